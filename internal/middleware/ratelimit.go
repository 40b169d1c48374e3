package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/session"
)

// LoginRateLimiter throttles login and registration attempts per browser.
type LoginRateLimiter struct {
	attempts    map[string][]time.Time
	mutex       sync.Mutex
	maxAttempts int
	window      time.Duration
	clock       clock.Clock
}

func NewLoginRateLimiter(maxAttempts int, window time.Duration, clk clock.Clock) *LoginRateLimiter {
	if clk == nil {
		clk = clock.WallClock
	}
	return &LoginRateLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		clock:       clk,
	}
}

// IsAllowed checks if another attempt from key is allowed
func (rl *LoginRateLimiter) IsAllowed(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	valid := rl.prune(key, rl.clock.Now())
	return len(valid) < rl.maxAttempts
}

// RecordAttempt records an attempt for key
func (rl *LoginRateLimiter) RecordAttempt(key string) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.attempts[key] = append(rl.attempts[key], rl.clock.Now())
}

// GetTimeUntilAllowed returns the time until the next attempt is allowed
func (rl *LoginRateLimiter) GetTimeUntilAllowed(key string) time.Duration {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.clock.Now()
	valid := rl.prune(key, now)
	if len(valid) < rl.maxAttempts {
		return 0
	}
	return valid[0].Add(rl.window).Sub(now)
}

// prune drops attempts older than the window. Caller holds the lock.
func (rl *LoginRateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	var valid []time.Time
	for _, attempt := range rl.attempts[key] {
		if attempt.After(cutoff) {
			valid = append(valid, attempt)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, key)
	} else {
		rl.attempts[key] = valid
	}
	return valid
}

// Cleanup removes stale entries. Returns the number of keys left.
func (rl *LoginRateLimiter) Cleanup() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.clock.Now()
	for key := range rl.attempts {
		rl.prune(key, now)
	}
	return len(rl.attempts)
}

// Run cleans up every minute until ctx ends.
func (rl *LoginRateLimiter) Run(ctx context.Context) {
	for {
		select {
		case <-rl.clock.After(time.Minute):
			rl.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// LoginRateLimit limits POSTs to the wrapped auth endpoints. Browsers are
// keyed by their client id, falling back to the client IP.
func LoginRateLimit(rateLimiter *LoginRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			if st := session.FromContext(r.Context()); st != nil {
				key = st.ClientID
			}

			if !rateLimiter.IsAllowed(key) {
				wait := rateLimiter.GetTimeUntilAllowed(key).Round(time.Second)
				zerolog.Ctx(r.Context()).Warn().
					Str(logger.KeyTag, "middleware.LoginRateLimit").
					Dur("retryIn", wait).
					Msg("login attempts throttled")

				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(wait.Seconds())))
				if IsHTMXRequest(r) {
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusTooManyRequests)
					_, _ = w.Write([]byte(ErrorBanner("Too many attempts. Please try again in " + wait.String() + ".")))
				} else {
					http.Error(w, "Too many attempts. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			defer rateLimiter.RecordAttempt(key)
			next.ServeHTTP(w, r)
		})
	}
}
