// Package availability fetches per-date ticket availability for one club,
// debouncing rapid date changes and caching answers by date.
package availability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/metrics"
	"nightlife-storefront/internal/models"
)

const DefaultDelay = 300 * time.Millisecond

var (
	// ErrSuperseded is returned to a caller whose date was replaced by a
	// newer selection before its fetch completed.
	ErrSuperseded = errors.New("availability: superseded by a newer selection")
	ErrClosed     = errors.New("availability: selector closed")
)

// Fetcher loads the snapshot of one club on one date.
type Fetcher func(ctx context.Context, clubID, date string) (*models.AvailableTickets, error)

type Config struct {
	ClubID  string
	Fetch   Fetcher
	Clock   clock.Clock
	Delay   time.Duration
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Snapshot is what a page renders for the selector.
type Snapshot struct {
	Date    string
	Tickets *models.AvailableTickets
	Loading bool
	Error   string
}

type result struct {
	tickets *models.AvailableTickets
	err     error
}

type Selector struct {
	clubID  string
	fetch   Fetcher
	clock   clock.Clock
	delay   time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	cache    map[string]*models.AvailableTickets
	selected string
	current  *models.AvailableTickets
	loading  bool
	errMsg   string
	gen      uint64
	timer    clock.Timer
	waiters  []chan result
	closed   bool
}

func NewSelector(cfg Config) *Selector {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	log := cfg.Logger.With().Str(logger.KeyTag, "availability.Selector").Str(logger.KeyClubID, cfg.ClubID).Logger()
	ctx, cancel := context.WithCancel(log.WithContext(context.Background()))
	return &Selector{
		clubID:  cfg.ClubID,
		fetch:   cfg.Fetch,
		clock:   cfg.Clock,
		delay:   cfg.Delay,
		metrics: cfg.Metrics,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		cache:   make(map[string]*models.AvailableTickets),
	}
}

// Select makes date the selected date and waits for its snapshot. A cached
// date answers immediately. Otherwise the fetch starts after the debounce
// delay; selecting another date first supersedes this call.
func (s *Selector) Select(ctx context.Context, date string) (*models.AvailableTickets, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	if cached, ok := s.cache[date]; ok {
		s.supersedeLocked()
		s.selected = date
		s.current = cached
		s.loading = false
		s.errMsg = ""
		s.mu.Unlock()
		s.metrics.CacheHit("availability")
		return cached, nil
	}

	ch := make(chan result, 1)
	if date == s.selected && s.loading {
		s.waiters = append(s.waiters, ch)
	} else {
		s.supersedeLocked()
		s.metrics.CacheMiss("availability")
		s.selected = date
		s.current = nil
		s.loading = true
		s.errMsg = ""
		s.waiters = []chan result{ch}
		gen := s.gen
		s.timer = s.clock.AfterFunc(s.delay, func() { go s.fire(gen, date) })
	}
	s.mu.Unlock()

	select {
	case r := <-ch:
		return r.tickets, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// supersedeLocked invalidates the pending selection, if any.
func (s *Selector) supersedeLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.notifyLocked(result{err: ErrSuperseded})
}

func (s *Selector) notifyLocked(r result) {
	for _, ch := range s.waiters {
		ch <- r
	}
	s.waiters = nil
}

func (s *Selector) fire(gen uint64, date string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	ctx := s.ctx
	s.mu.Unlock()

	tickets, err := s.fetch(ctx, s.clubID, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		s.log.Debug().Str("date", date).Msg("discarding availability for a stale date")
		return
	}
	s.loading = false
	if err != nil {
		s.errMsg = backend.UserMessage(err)
		s.log.Warn().Err(err).Str("date", date).Msg("failed to fetch availability")
		s.notifyLocked(result{err: err})
		return
	}
	s.cache[date] = tickets
	s.current = tickets
	s.notifyLocked(result{tickets: tickets})
}

func (s *Selector) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Date:    s.selected,
		Tickets: s.current,
		Loading: s.loading,
		Error:   s.errMsg,
	}
}

// Cached reports whether date has a cached snapshot.
func (s *Selector) Cached(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[date]
	return ok
}

// Close stops any pending timer and discards in-flight results.
func (s *Selector) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.notifyLocked(result{err: ErrClosed})
	s.cancel()
}
