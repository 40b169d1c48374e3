package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/logger"
)

const (
	csrfSessionKey = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
)

type csrfKey struct{}

// CSRFMiddleware provides CSRF protection functionality
type CSRFMiddleware struct {
	store       sessions.Store
	sessionName string
}

func NewCSRFMiddleware(store sessions.Store, sessionName string) *CSRFMiddleware {
	return &CSRFMiddleware{store: store, sessionName: sessionName}
}

// CSRFProtection ensures every session has a token, exposes it to templates
// and rejects state-changing requests that don't echo it.
func (m *CSRFMiddleware) CSRFProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := m.store.Get(r, m.sessionName)

		sessionToken, ok := session.Values[csrfSessionKey].(string)
		if !ok || sessionToken == "" {
			sessionToken = GenerateCSRFToken()
			session.Values[csrfSessionKey] = sessionToken
			if err := session.Save(r, w); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).
					Str(logger.KeyTag, "middleware.CSRFProtection").
					Msg("failed to save csrf token")
				http.Error(w, "Session error", http.StatusInternalServerError)
				return
			}
		}
		r = r.WithContext(context.WithValue(r.Context(), csrfKey{}, sessionToken))

		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		requestToken := r.Header.Get(csrfHeader)
		if requestToken == "" {
			requestToken = r.FormValue(csrfFormField)
		}
		if subtle.ConstantTimeCompare([]byte(requestToken), []byte(sessionToken)) != 1 {
			zerolog.Ctx(r.Context()).Warn().
				Str(logger.KeyTag, "middleware.CSRFProtection").
				Msg("csrf token mismatch")
			if IsHTMXRequest(r) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(ErrorBanner("Security token mismatch. Please refresh the page and try again.")))
			} else {
				http.Error(w, "CSRF token mismatch", http.StatusForbidden)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CSRFToken returns the token attached by CSRFProtection.
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey{}).(string)
	return token
}

func GenerateCSRFToken() string {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(tokenBytes)
}
