// Package search runs club searches with de-duplication, a small TTL cache
// and a back-off window after the backend rate limits the caller.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/metrics"
	"nightlife-storefront/internal/models"
)

var ErrRateLimited = errors.New("too many searches, please wait a moment and try again")

// Lister is the backend call behind a search.
type Lister interface {
	FilterClubs(ctx context.Context, f models.ClubFilter) ([]models.Club, error)
}

type Config struct {
	CacheSize int
	TTL       time.Duration
	// Backoff applies when a 429 carries no Retry-After.
	Backoff time.Duration
	Timeout time.Duration
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

type entry struct {
	clubs   []models.Club
	expires time.Time
}

type Searcher struct {
	api     Lister
	cache   *lru.Cache
	ttl     time.Duration
	backoff time.Duration
	timeout time.Duration
	clock   clock.Clock
	metrics *metrics.Metrics
	group   singleflight.Group

	mu           sync.Mutex
	blockedUntil time.Time
}

func New(api Lister, cfg Config) (*Searcher, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	return &Searcher{
		api:     api,
		cache:   cache,
		ttl:     cfg.TTL,
		backoff: cfg.Backoff,
		timeout: cfg.Timeout,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
	}, nil
}

// Search returns clubs matching f. Identical concurrent searches share one
// backend call; a caller whose ctx ends stops waiting without cancelling the
// shared call. While rate limited, stale results are served when available.
func (s *Searcher) Search(ctx context.Context, f models.ClubFilter) ([]models.Club, error) {
	key := f.Key()
	now := s.clock.Now()

	cached, found := s.lookup(key)
	if found && now.Before(cached.expires) {
		s.metrics.CacheHit("search")
		return cached.clubs, nil
	}
	if s.blocked(now) {
		if found {
			return cached.clubs, nil
		}
		return nil, ErrRateLimited
	}
	s.metrics.CacheMiss("search")

	ch := s.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		clubs, err := s.api.FilterClubs(callCtx, f)
		if err != nil {
			if wait, ok := backend.RateLimited(err); ok {
				if wait <= 0 {
					wait = s.backoff
				}
				s.block(s.clock.Now().Add(wait))
				zerolog.Ctx(ctx).Warn().
					Str(logger.KeyTag, "search.Searcher").
					Dur("retryAfter", wait).
					Msg("club search rate limited")
			}
			return nil, err
		}
		s.cache.Add(key, entry{clubs: clubs, expires: s.clock.Now().Add(s.ttl)})
		return clubs, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if _, limited := backend.RateLimited(res.Err); limited {
				if found {
					return cached.clubs, nil
				}
				return nil, ErrRateLimited
			}
			return nil, res.Err
		}
		return res.Val.([]models.Club), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Searcher) lookup(key string) (entry, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return entry{}, false
	}
	return v.(entry), true
}

func (s *Searcher) blocked(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Before(s.blockedUntil)
}

func (s *Searcher) block(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until.After(s.blockedUntil) {
		s.blockedUntil = until
	}
}

// RetryAt is when the current back-off window ends; zero when not limited.
func (s *Searcher) RetryAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock.Now().Before(s.blockedUntil) {
		return s.blockedUntil
	}
	return time.Time{}
}
