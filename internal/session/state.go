package session

import (
	"context"
	"sync"
	"time"

	"nightlife-storefront/internal/availability"
	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/cart"
	"nightlife-storefront/internal/search"
)

// State is one browser's server-side state.
type State struct {
	ID       string
	ClientID string
	// API carries this browser's backend cookies and client id.
	API    *backend.Client
	Cart   *cart.Store
	Search *search.Searcher

	mu          sync.Mutex
	lastSeen    time.Time
	selectors   map[string]*availability.Selector
	newSelector func(clubID string) *availability.Selector
}

// Selector returns the availability selector of a club, creating it once.
func (s *State) Selector(clubID string) *availability.Selector {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selectors[clubID]
	if !ok {
		sel = s.newSelector(clubID)
		s.selectors[clubID] = sel
	}
	return sel
}

func (s *State) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sel := range s.selectors {
		sel.Close()
		delete(s.selectors, id)
	}
}

type ctxKey struct{}

func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

// FromContext returns the state attached by the session middleware.
func FromContext(ctx context.Context) *State {
	st, _ := ctx.Value(ctxKey{}).(*State)
	return st
}
