package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/cart"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/session"
	"nightlife-storefront/internal/validation"
	"nightlife-storefront/web/templates/pages"
)

// CartHandler serves the unified cart. The cart itself lives in the backend;
// each session keeps a synced copy.
type CartHandler struct{}

func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

// addToCartForm is what the ticket and menu forms post.
type addToCartForm struct {
	ItemType   string `json:"item_type" validate:"required,oneof=ticket menu"`
	TicketID   string `json:"ticket_id" validate:"required_if=ItemType ticket"`
	MenuItemID string `json:"menu_item_id" validate:"required_if=ItemType menu"`
	VariantID  string `json:"variant_id"`
	ClubID     string `json:"club_id"`
	Date       string `json:"date" validate:"required,isodate"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
}

var addToCartFields = []string{"item_type", "ticket_id", "menu_item_id", "variant_id", "club_id", "date", "quantity"}

func cartData(s *cart.Store) pages.CartData {
	return pages.CartData{
		Items:   s.Items(),
		Summary: s.Summary(),
		Totals:  s.Totals(),
		Error:   s.Error(),
	}
}

// CartPage refreshes the cart from the backend and renders it.
func (h *CartHandler) CartPage(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	// A failed refresh keeps the last known lines and shows the error.
	_ = st.Cart.RefreshCart(r.Context())

	if middleware.IsHTMXRequest(r) {
		render(w, r, http.StatusOK, pages.CartFragment(cartData(st.Cart)))
		return
	}
	render(w, r, http.StatusOK, pages.CartPage(cartData(st.Cart)))
}

// AddToCart adds a ticket or menu item. When the item does not fit the
// current cart the user is asked to confirm replacing it; the confirmed
// request clears the cart first.
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	ctx := r.Context()
	log := zerolog.Ctx(ctx).With().Str(logger.KeyTag, "handlers.AddToCart").Logger()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := addToCartForm{
		ItemType:   strings.TrimSpace(r.FormValue("item_type")),
		TicketID:   strings.TrimSpace(r.FormValue("ticket_id")),
		MenuItemID: strings.TrimSpace(r.FormValue("menu_item_id")),
		VariantID:  strings.TrimSpace(r.FormValue("variant_id")),
		ClubID:     strings.TrimSpace(r.FormValue("club_id")),
		Date:       strings.TrimSpace(r.FormValue("date")),
		Quantity:   1,
	}
	if raw := strings.TrimSpace(r.FormValue("quantity")); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			q = 0
		}
		form.Quantity = q
	}
	if errs := validation.Struct(form); len(errs) > 0 {
		log.Debug().Interface("errors", errs).Msg("invalid add to cart form")
		h.addFailed(w, r, http.StatusBadRequest, firstError(errs))
		return
	}

	if !st.Cart.Loaded() {
		_ = st.Cart.RefreshCart(ctx)
	}

	kind := models.ItemType(form.ItemType)
	if err := st.Cart.Compatibility(kind, form.ClubID, form.Date); err != nil {
		var conflict *models.CartConflictError
		if !errors.As(err, &conflict) {
			h.addFailed(w, r, http.StatusConflict, err.Error())
			return
		}
		if r.FormValue("confirm_replace") != "1" {
			log.Debug().Str("reason", string(conflict.Reason)).Msg("cart conflict")
			msg := conflictMessage(conflict)
			if middleware.IsHTMXRequest(r) {
				render(w, r, http.StatusOK, pages.CartConflict(pages.ConflictData{
					Message: msg,
					Form:    formValues(r, addToCartFields...),
				}))
				return
			}
			d := cartData(st.Cart)
			d.Error = msg
			render(w, r, http.StatusConflict, pages.CartPage(d))
			return
		}
		if err := st.Cart.ClearCart(ctx); err != nil {
			h.addFailed(w, r, http.StatusBadGateway, st.Cart.Error())
			return
		}
	}

	var err error
	switch kind {
	case models.ItemTypeTicket:
		err = st.Cart.AddTicket(ctx, form.TicketID, form.Date, form.Quantity)
	case models.ItemTypeMenu:
		err = st.Cart.AddMenuItem(ctx, form.MenuItemID, form.VariantID, form.Date, form.Quantity)
	}
	if err != nil {
		h.addFailed(w, r, http.StatusBadGateway, st.Cart.Error())
		return
	}

	if middleware.IsHTMXRequest(r) {
		w.Header().Set("HX-Trigger", "cart-updated")
		render(w, r, http.StatusOK, pages.Flash("Added to your cart."))
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (h *CartHandler) addFailed(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if middleware.IsHTMXRequest(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(middleware.ErrorBanner(msg)))
		return
	}
	st := mustState(w, r)
	if st == nil {
		return
	}
	d := cartData(st.Cart)
	d.Error = msg
	render(w, r, status, pages.CartPage(d))
}

// UpdateQuantity sets a line's quantity; zero or less removes the line. The
// local copy changes first and is reconciled with the backend on failure.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	ctx := r.Context()
	itemID := chi.URLParam(r, "id")

	quantity, err := strconv.Atoi(strings.TrimSpace(r.FormValue("quantity")))
	if err != nil {
		http.Error(w, "Invalid quantity", http.StatusBadRequest)
		return
	}

	st.Cart.UpdateQuantityOptimistic(itemID, quantity)
	if err := st.Cart.UpdateQuantity(ctx, itemID, quantity); err != nil {
		msg := st.Cart.Error()
		_ = st.Cart.RefreshCart(ctx)
		h.cartChanged(w, r, msg)
		return
	}
	h.cartChanged(w, r, "")
}

// RemoveItem drops a line from the cart.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	ctx := r.Context()
	itemID := chi.URLParam(r, "id")

	st.Cart.RemoveItemOptimistic(itemID)
	if err := st.Cart.RemoveItem(ctx, itemID); err != nil {
		msg := st.Cart.Error()
		_ = st.Cart.RefreshCart(ctx)
		h.cartChanged(w, r, msg)
		return
	}
	h.cartChanged(w, r, "")
}

// ClearCart empties the cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	var msg string
	if err := st.Cart.ClearCart(r.Context()); err != nil {
		msg = st.Cart.Error()
	}
	h.cartChanged(w, r, msg)
}

// cartChanged answers a cart mutation: the cart fragment for htmx, a
// redirect back to the cart otherwise.
func (h *CartHandler) cartChanged(w http.ResponseWriter, r *http.Request, errMsg string) {
	st := session.FromContext(r.Context())
	if middleware.IsHTMXRequest(r) {
		d := cartData(st.Cart)
		if errMsg != "" {
			d.Error = errMsg
		}
		w.Header().Set("HX-Trigger", "cart-updated")
		render(w, r, http.StatusOK, pages.CartFragment(d))
		return
	}
	if errMsg != "" {
		d := cartData(st.Cart)
		d.Error = errMsg
		render(w, r, http.StatusBadGateway, pages.CartPage(d))
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func conflictMessage(err *models.CartConflictError) string {
	msg := err.Error()
	return strings.ToUpper(msg[:1]) + msg[1:] + ". Replace your cart with this item?"
}

var fieldLabels = map[string]string{
	"item_type":    "Item type",
	"ticket_id":    "Ticket",
	"menu_item_id": "Menu item",
	"date":         "Date",
	"quantity":     "Quantity",
}

func firstError(errs map[string][]string) string {
	for _, field := range []string{"item_type", "ticket_id", "menu_item_id", "date", "quantity"} {
		if msgs := errs[field]; len(msgs) > 0 {
			return fieldLabels[field] + ": " + msgs[0]
		}
	}
	return "Invalid request"
}
