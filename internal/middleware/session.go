package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/session"
)

type userKey struct{}

// SessionMiddleware loads the browser's server-side state for every request.
type SessionMiddleware struct {
	manager *session.Manager
}

func NewSessionMiddleware(manager *session.Manager) *SessionMiddleware {
	return &SessionMiddleware{manager: manager}
}

// LoadSession attaches the session state and the auth snapshot to the
// request context and tags the request logger with the session ids.
func (m *SessionMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := m.manager.Load(w, r)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).
				Str(logger.KeyTag, "middleware.LoadSession").
				Msg("failed to load session")
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}

		log := zerolog.Ctx(r.Context()).With().
			Str(logger.KeySessionID, st.ID).
			Str(logger.KeyClientID, st.ClientID).
			Logger()
		ctx := log.WithContext(r.Context())
		ctx = session.WithState(ctx, st)
		if user := m.manager.User(r); user != nil {
			ctx = context.WithValue(ctx, userKey{}, user)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SecureHeaders sets the browser hardening headers on every response.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext returns the signed in user, or nil.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey{}).(*models.User)
	return user
}

// IsHTMXRequest checks if the request is from HTMX
func IsHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
