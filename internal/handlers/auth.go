package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/session"
	"nightlife-storefront/internal/validation"
	"nightlife-storefront/web/templates/pages"
)

// AuthHandler signs customers in and out. Credentials are checked by the
// backend; the session keeps a snapshot of the user for the views.
type AuthHandler struct {
	manager *session.Manager
}

func NewAuthHandler(manager *session.Manager) *AuthHandler {
	return &AuthHandler{manager: manager}
}

// LoginPage displays the login form
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if middleware.GetUserFromContext(r.Context()) != nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, pages.LoginPage(pages.AuthData{Next: next}))
}

// LoginSubmit handles login form submission
func (h *AuthHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	ctx := r.Context()
	log := zerolog.Ctx(ctx).With().Str(logger.KeyTag, "handlers.LoginSubmit").Logger()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	next := safeNext(r.FormValue("next"))
	form := formValues(r, "email")
	req := models.LoginRequest{
		Email:    strings.ToLower(form["email"]),
		Password: r.FormValue("password"),
	}

	if errs := validation.Struct(req); len(errs) > 0 {
		render(w, r, http.StatusUnprocessableEntity, pages.LoginPage(pages.AuthData{Form: form, Errors: errs, Next: next}))
		return
	}

	user, err := st.API.Login(ctx, req)
	if err != nil {
		log.Info().Err(err).Msg("login failed")
		status := http.StatusBadGateway
		msg := backend.UserMessage(err)
		if errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrInvalidInput) {
			status = http.StatusUnauthorized
			msg = "Invalid email or password"
		}
		render(w, r, status, pages.LoginPage(pages.AuthData{Form: form, Error: msg, Next: next}))
		return
	}

	h.signedIn(w, r, user, next)
}

// RegisterPage displays the registration form
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if middleware.GetUserFromContext(r.Context()) != nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, pages.RegisterPage(pages.AuthData{Next: next}))
}

// RegisterSubmit creates the account and signs it in.
func (h *AuthHandler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	next := safeNext(r.FormValue("next"))
	form := formValues(r, "email", "firstName", "lastName")
	req := models.RegisterRequest{
		Email:     strings.ToLower(form["email"]),
		Password:  r.FormValue("password"),
		FirstName: form["firstName"],
		LastName:  form["lastName"],
	}

	if errs := validation.Struct(req); len(errs) > 0 {
		render(w, r, http.StatusUnprocessableEntity, pages.RegisterPage(pages.AuthData{Form: form, Errors: errs, Next: next}))
		return
	}

	user, err := st.API.Register(ctx, req)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).
			Str(logger.KeyTag, "handlers.RegisterSubmit").
			Msg("registration failed")
		status := http.StatusBadGateway
		if errors.Is(err, models.ErrInvalidInput) {
			status = http.StatusUnprocessableEntity
		}
		render(w, r, status, pages.RegisterPage(pages.AuthData{Form: form, Error: backend.UserMessage(err), Next: next}))
		return
	}
	if user == nil {
		// account created without a backend session
		http.Redirect(w, r, "/auth/login?next="+url.QueryEscape(next), http.StatusSeeOther)
		return
	}

	h.signedIn(w, r, user, next)
}

// signedIn stores the user snapshot and reloads the cart, which the backend
// may have merged with the account's cart.
func (h *AuthHandler) signedIn(w http.ResponseWriter, r *http.Request, user *models.User, next string) {
	st := session.FromContext(r.Context())
	if err := h.manager.SetUser(w, r, user); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str(logger.KeyTag, "handlers.signedIn").
			Msg("failed to save session")
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}
	_ = st.Cart.RefreshCart(r.Context())

	zerolog.Ctx(r.Context()).Info().
		Str(logger.KeyTag, "handlers.signedIn").
		Str("userId", user.ID).
		Msg("user signed in")
	handleRedirect(w, r, next, http.StatusSeeOther)
}

// Logout ends the backend session and forgets the user snapshot.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	if err := st.API.Logout(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).
			Str(logger.KeyTag, "handlers.Logout").
			Msg("backend logout failed")
	}
	if err := h.manager.SetUser(w, r, nil); err != nil {
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}
	_ = st.Cart.RefreshCart(r.Context())
	handleRedirect(w, r, "/", http.StatusSeeOther)
}

// Me revalidates the user with the backend. An expired backend session
// clears the snapshot.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	st := mustState(w, r)
	if st == nil {
		return
	}
	user, err := st.API.Me(r.Context())
	if errors.Is(err, models.ErrUnauthorized) {
		_ = h.manager.SetUser(w, r, nil)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": backend.UserMessage(err)})
		return
	}
	if user == nil {
		_ = h.manager.SetUser(w, r, nil)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	if err := h.manager.SetUser(w, r, user); err != nil {
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
