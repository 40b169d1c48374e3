package search

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/models"
)

type fakeLister struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
	clubs []models.Club
}

func (f *fakeLister) FilterClubs(ctx context.Context, _ models.ClubFilter) ([]models.Club, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.clubs, nil
}

func newSearcher(t *testing.T, api Lister, clk *testclock.Clock) *Searcher {
	t.Helper()
	s, err := New(api, Config{CacheSize: 8, TTL: time.Minute, Backoff: 30 * time.Second, Clock: clk})
	require.NoError(t, err)
	return s
}

func TestSearchCachesByCanonicalFilter(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	api := &fakeLister{clubs: []models.Club{{ID: "c1"}}}
	s := newSearcher(t, api, clk)
	ctx := context.Background()

	_, err := s.Search(ctx, models.ClubFilter{Query: "Techno"})
	require.NoError(t, err)
	clubs, err := s.Search(ctx, models.ClubFilter{Query: " techno "})
	require.NoError(t, err)

	assert.Len(t, clubs, 1)
	assert.EqualValues(t, 1, api.calls.Load())

	clk.Advance(2 * time.Minute)
	_, err = s.Search(ctx, models.ClubFilter{Query: "techno"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.calls.Load())
}

func TestConcurrentSearchesShareOneCall(t *testing.T) {
	api := &fakeLister{gate: make(chan struct{}), clubs: []models.Club{{ID: "c1"}}}
	s := newSearcher(t, api, testclock.NewClock(time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clubs, err := s.Search(context.Background(), models.ClubFilter{City: "Bogota"})
			assert.NoError(t, err)
			assert.Len(t, clubs, 1)
		}()
	}
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(api.gate)
	wg.Wait()

	assert.EqualValues(t, 1, api.calls.Load())
}

func TestCancelledCallerDoesNotCancelFlight(t *testing.T) {
	api := &fakeLister{gate: make(chan struct{}), clubs: []models.Club{{ID: "c1"}}}
	s := newSearcher(t, api, testclock.NewClock(time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Search(ctx, models.ClubFilter{Query: "salsa"})
		done <- err
	}()
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(api.gate)
	require.Eventually(t, func() bool {
		_, ok := s.lookup(models.ClubFilter{Query: "salsa"}.Key())
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestRateLimitOpensBackoffWindow(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	api := &fakeLister{clubs: []models.Club{{ID: "c1"}}}
	s := newSearcher(t, api, clk)
	ctx := context.Background()
	f := models.ClubFilter{Query: "house"}

	_, err := s.Search(ctx, f)
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)

	api.err = &backend.APIError{StatusCode: http.StatusTooManyRequests, RetryAfter: 10 * time.Second}
	clubs, err := s.Search(ctx, f)
	require.NoError(t, err, "stale entry is served while limited")
	assert.Len(t, clubs, 1)
	assert.False(t, s.RetryAt().IsZero())

	_, err = s.Search(ctx, models.ClubFilter{Query: "rock"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.EqualValues(t, 2, api.calls.Load(), "no backend call inside the window")

	clk.Advance(11 * time.Second)
	api.err = nil
	_, err = s.Search(ctx, models.ClubFilter{Query: "rock"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, api.calls.Load())
}

func TestRateLimitWithoutRetryAfterUsesDefault(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	api := &fakeLister{err: &backend.APIError{StatusCode: http.StatusTooManyRequests}}
	s := newSearcher(t, api, clk)

	_, err := s.Search(context.Background(), models.ClubFilter{Query: "x"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, clk.Now().Add(30*time.Second).Equal(s.RetryAt()))
}
