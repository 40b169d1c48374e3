// Package server wires the storefront handlers into the router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/config"
	"nightlife-storefront/internal/handlers"
	"nightlife-storefront/internal/metrics"
	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/session"
)

type Deps struct {
	Config      *config.Config
	Sessions    *session.Manager
	RateLimiter *middleware.LoginRateLimiter
	Metrics     *metrics.Metrics
	Clock       clock.Clock
	Logger      zerolog.Logger
	// StaticDir is served under /static/ when set.
	StaticDir string
}

// NewRouter builds the storefront's http handler.
func NewRouter(d Deps) http.Handler {
	if d.Clock == nil {
		d.Clock = clock.WallClock
	}

	publicHandler := handlers.NewPublicHandler(d.Clock)
	cartHandler := handlers.NewCartHandler()
	checkoutHandler := handlers.NewCheckoutHandler(d.Sessions, handlers.CheckoutConfig{
		CallbackURL: d.Config.Checkout.CallbackURL,
		StatusWait:  d.Config.Checkout.StatusWait,
	}, d.Clock, d.Metrics)
	authHandler := handlers.NewAuthHandler(d.Sessions)

	sessionMiddleware := middleware.NewSessionMiddleware(d.Sessions)
	csrfMiddleware := middleware.NewCSRFMiddleware(d.Sessions.Store(), session.CookieName)

	r := chi.NewRouter()
	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.ErrorHandlingMiddleware)
	r.Use(middleware.SecureHeaders)

	if d.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(d.StaticDir))))
	}
	r.Get("/health", publicHandler.Health)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.LoadSession)
		r.Use(csrfMiddleware.CSRFProtection)

		// Public routes
		r.Get("/", publicHandler.HomePage)
		r.Get("/clubs", publicHandler.SearchClubs)
		r.Get("/clubs/{id}", publicHandler.ClubPage)
		r.Get("/clubs/{id}/availability", publicHandler.Availability)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.CartPage)
			r.Post("/add", cartHandler.AddToCart)
			r.Post("/clear", cartHandler.ClearCart)
			r.Post("/items/{id}", cartHandler.UpdateQuantity)
			r.Post("/items/{id}/remove", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.CheckoutPage)
			r.Post("/", checkoutHandler.ProcessCheckout)
			r.Get("/processing", checkoutHandler.ProcessingCallback)
			r.Get("/processing/{txID}", checkoutHandler.ProcessingPage)
			r.Get("/processing/{txID}/status", checkoutHandler.Status)
			r.Get("/{result}", checkoutHandler.ResultPage)
		})

		r.Route("/auth", func(r chi.Router) {
			if d.RateLimiter != nil {
				r.With(middleware.LoginRateLimit(d.RateLimiter)).Post("/login", authHandler.LoginSubmit)
				r.With(middleware.LoginRateLimit(d.RateLimiter)).Post("/register", authHandler.RegisterSubmit)
			} else {
				r.Post("/login", authHandler.LoginSubmit)
				r.Post("/register", authHandler.RegisterSubmit)
			}
			r.Get("/login", authHandler.LoginPage)
			r.Get("/register", authHandler.RegisterPage)
			r.Get("/me", authHandler.Me)

			// CSRF token for scripted requests
			r.Get("/csrf-token", handleGetCSRFToken)

			r.Post("/logout", authHandler.Logout)
		})
	})

	return r
}

func handleGetCSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(`{"csrf_token":"` + middleware.CSRFToken(r.Context()) + `"}`))
}
