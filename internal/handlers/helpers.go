package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/session"
	"nightlife-storefront/web/templates/pages"
)

// render writes a component with the given status. The session cart is made
// visible to the layout for the badge.
func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	ctx := r.Context()
	if st := session.FromContext(ctx); st != nil {
		ctx = pages.WithCart(ctx, st.Cart)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(ctx, w); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str(logger.KeyTag, "handlers.render").
			Msg("failed to render page")
	}
}

// handleRedirect redirects both htmx and regular requests.
func handleRedirect(w http.ResponseWriter, r *http.Request, url string, statusCode int) {
	if middleware.IsHTMXRequest(r) {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, statusCode)
}

// handleError answers a failed backend call: a banner for htmx requests, an
// error page otherwise.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	title := "Something went wrong"
	switch {
	case errors.Is(err, models.ErrNotFound):
		status, title = http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrUnauthorized):
		status, title = http.StatusUnauthorized, "Sign in required"
	case errors.Is(err, models.ErrInvalidInput):
		status, title = http.StatusBadRequest, "Invalid request"
	}

	zerolog.Ctx(r.Context()).Warn().Err(err).
		Str(logger.KeyTag, "handlers.handleError").
		Int(logger.KeyStatus, status).
		Msg("request failed")

	msg := backend.UserMessage(err)
	if middleware.IsHTMXRequest(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		// htmx only swaps 2xx responses
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(middleware.ErrorBanner(msg)))
		return
	}
	render(w, r, status, pages.ErrorPage(title, msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// formValues keeps the submitted fields for re-rendering a form.
func formValues(r *http.Request, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(r.FormValue(k)); v != "" {
			out[k] = v
		}
	}
	return out
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func mustState(w http.ResponseWriter, r *http.Request) *session.State {
	st := session.FromContext(r.Context())
	if st == nil {
		http.Error(w, "Session error", http.StatusInternalServerError)
	}
	return st
}
