package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/config"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/metrics"
	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/server"
	"nightlife-storefront/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.Get(cfg.Log, cfg.Server.Env)
	m := metrics.New()

	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	}, m)
	if err != nil {
		log.Fatal().Err(err).Str(logger.KeyTag, "main").Msg("failed to create backend client")
	}

	// Create session store
	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str(logger.KeyTag, "main").Msg("redis unreachable, transaction details stay in the session cookie")
			_ = rdb.Close()
			rdb = nil
		}
		cancel()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := session.NewManager(sessionStore, client, session.Options{
		Config:  cfg,
		Clock:   clock.WallClock,
		Metrics: m,
		Redis:   rdb,
		Logger:  log,
	})
	defer manager.Close()
	go manager.Run(ctx)

	loginLimiter := middleware.NewLoginRateLimiter(5, 15*time.Minute, clock.WallClock)
	go loginLimiter.Run(ctx)

	router := server.NewRouter(server.Deps{
		Config:      cfg,
		Sessions:    manager,
		RateLimiter: loginLimiter,
		Metrics:     m,
		Clock:       clock.WallClock,
		Logger:      log,
		StaticDir:   "web/static/",
	})

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str(logger.KeyTag, "main").
			Str("addr", serverAddr).
			Str("env", cfg.Server.Env).
			Str("backend", cfg.Backend.BaseURL).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str(logger.KeyTag, "main").Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Str(logger.KeyTag, "main").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Checkout.StatusWait+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str(logger.KeyTag, "main").Msg("graceful shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
