package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/checkout"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/metrics"
	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/session"
	"nightlife-storefront/internal/validation"
	"nightlife-storefront/web/templates/pages"
)

// CheckoutConfig holds what the checkout pages need from the configuration.
type CheckoutConfig struct {
	CallbackURL string
	StatusWait  time.Duration
}

// CheckoutHandler starts payments and follows them to a result page.
type CheckoutHandler struct {
	manager *session.Manager
	cfg     CheckoutConfig
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewCheckoutHandler(manager *session.Manager, cfg CheckoutConfig, clk clock.Clock, m *metrics.Metrics) *CheckoutHandler {
	if clk == nil {
		clk = clock.WallClock
	}
	return &CheckoutHandler{manager: manager, cfg: cfg, clock: clk, metrics: m}
}

var checkoutFields = []string{"email", "fullName", "phone", "legalId"}

func (h *CheckoutHandler) service(w http.ResponseWriter, r *http.Request, st *session.State) *checkout.Service {
	return checkout.NewService(checkout.Deps{
		API:     st.API,
		Cart:    st.Cart,
		Details: h.manager.Transactions(w, r, st),
		Clock:   h.clock,
		Metrics: h.metrics,
		Wait:    h.cfg.StatusWait,
	})
}

func checkoutData(st *session.State, form map[string]string) pages.CheckoutData {
	return pages.CheckoutData{
		Items:   st.Cart.Items(),
		Summary: st.Cart.Summary(),
		Totals:  st.Cart.Totals(),
		Form:    form,
	}
}

// CheckoutPage shows the order with the buyer form. An empty cart goes back
// to the cart page.
func (h *CheckoutHandler) CheckoutPage(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	_ = st.Cart.RefreshCart(r.Context())
	if len(st.Cart.Items()) == 0 {
		handleRedirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	form := map[string]string{}
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		form["email"] = user.Email
		form["fullName"] = user.FullName()
	}
	d := checkoutData(st, form)
	d.Error = st.Cart.Error()
	render(w, r, http.StatusOK, pages.CheckoutPage(d))
}

// ProcessCheckout validates the buyer, starts the payment and sends the
// browser to the payment processor.
func (h *CheckoutHandler) ProcessCheckout(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := formValues(r, checkoutFields...)
	req := models.CheckoutRequest{
		Email:       form["email"],
		FullName:    form["fullName"],
		Phone:       form["phone"],
		LegalID:     form["legalId"],
		CallbackURL: h.cfg.CallbackURL,
	}

	if errs := validation.Struct(req); len(errs) > 0 {
		d := checkoutData(st, form)
		d.Errors = errs
		render(w, r, http.StatusUnprocessableEntity, pages.CheckoutPage(d))
		return
	}

	if !st.Cart.Loaded() {
		_ = st.Cart.RefreshCart(ctx)
	}
	sess, err := h.service(w, r, st).Initiate(ctx, req, st.Cart.Items())
	if errors.Is(err, checkout.ErrEmptyCart) {
		handleRedirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str(logger.KeyTag, "handlers.ProcessCheckout").
			Msg("failed to start checkout")
		d := checkoutData(st, form)
		d.Error = backend.UserMessage(err)
		render(w, r, http.StatusBadGateway, pages.CheckoutPage(d))
		return
	}

	target := sess.RedirectURL
	if target == "" {
		target = "/checkout/processing/" + url.PathEscape(sess.TransactionID)
	}
	handleRedirect(w, r, target, http.StatusSeeOther)
}

// ProcessingCallback is where the payment processor returns the browser. It
// forwards to the processing page of the transaction in the query.
func (h *CheckoutHandler) ProcessingCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txID := strings.TrimSpace(q.Get("id"))
	if txID == "" {
		txID = strings.TrimSpace(q.Get("transactionId"))
	}
	if txID == "" {
		if st := session.FromContext(r.Context()); st != nil {
			if d, err := h.manager.Transactions(w, r, st).Load(r.Context()); err == nil && d != nil {
				txID = d.TransactionID
			}
		}
	}
	if txID == "" {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/checkout/processing/"+url.PathEscape(txID), http.StatusSeeOther)
}

// ProcessingPage shows the waiting screen. The status fragment polls until
// the payment has an outcome.
func (h *CheckoutHandler) ProcessingPage(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")
	render(w, r, http.StatusOK, pages.ProcessingPage(pages.ProcessingData{
		TransactionID: txID,
		Outcome:       checkout.Outcome{Status: models.TransactionPending},
	}))
}

// Status waits for the transaction's outcome. A final status redirects to
// its result page; a pending one re-renders the polling fragment.
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	txID := chi.URLParam(r, "txID")

	outcome, err := h.service(w, r, st).Await(r.Context(), txID)
	if err != nil {
		// the browser went away
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"transactionId": txID,
			"status":        outcome.Status,
			"route":         outcome.Route,
			"details":       outcome.Details,
		})
		return
	}
	if outcome.Done() {
		handleRedirect(w, r, outcome.Route, http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, pages.ProcessingStatus(pages.ProcessingData{
		TransactionID: txID,
		Outcome:       outcome,
	}))
}

var resultPages = map[string]bool{"success": true, "declined": true, "error": true, "timeout": true}

// ResultPage shows the last transaction of the session.
func (h *CheckoutHandler) ResultPage(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	result := chi.URLParam(r, "result")
	if !resultPages[result] {
		render(w, r, http.StatusNotFound, pages.ErrorPage("Not found", "The page you are looking for does not exist."))
		return
	}

	details, err := h.service(w, r, st).Last(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).
			Str(logger.KeyTag, "handlers.ResultPage").
			Msg("failed to load transaction details")
	}
	render(w, r, http.StatusOK, pages.ResultPage(pages.ResultData{Result: result, Details: details}))
}
