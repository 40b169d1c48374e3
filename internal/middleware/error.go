package middleware

import (
	"fmt"
	"html"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"nightlife-storefront/internal/logger"
)

// ErrorBanner is the inline error fragment swapped in by htmx requests.
func ErrorBanner(message string) string {
	return fmt.Sprintf(`<div class="alert alert-error" role="alert"><p>%s</p></div>`, html.EscapeString(message))
}

// ErrorHandlingMiddleware recovers panics and answers with a 500.
func ErrorHandlingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				zerolog.Ctx(r.Context()).Error().
					Str(logger.KeyTag, "middleware.ErrorHandlingMiddleware").
					Interface("panic", err).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")

				if IsHTMXRequest(r) {
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(ErrorBanner("Something went wrong. Please try again.")))
				} else {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsHTMXRequest(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(ErrorBanner("We couldn't find what you were looking for.")))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Page Not Found - Nightlife</title>
	<link href="/static/css/app.css" rel="stylesheet">
</head>
<body>
	<main class="not-found">
		<h1>404</h1>
		<p>The page you're looking for doesn't exist.</p>
		<a href="/" class="btn">Back to clubs</a>
	</main>
</body>
</html>`))
	})
}

// MethodNotAllowedHandler handles 405 errors
func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsHTMXRequest(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusMethodNotAllowed)
			_, _ = w.Write([]byte(ErrorBanner("Method not allowed for this endpoint.")))
			return
		}
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})
}
