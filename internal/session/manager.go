// Package session keeps the server-side state of each browser: the backend
// credentials, the cart, availability selectors and the search cache.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/availability"
	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/cart"
	"nightlife-storefront/internal/checkout"
	"nightlife-storefront/internal/config"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/metrics"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/search"
)

const (
	CookieName = "nl_session"

	keySessionID = "sid"
	KeyClientID  = "nl_client_id"
	KeyAuth      = "auth-storage"
)

type Options struct {
	Config  *config.Config
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Redis   *redis.Client
	Logger  zerolog.Logger
}

type Manager struct {
	store   sessions.Store
	client  *backend.Client
	cfg     *config.Config
	clock   clock.Clock
	metrics *metrics.Metrics
	redis   *redis.Client
	log     zerolog.Logger

	mu     sync.Mutex
	states map[string]*State
}

func NewManager(store sessions.Store, client *backend.Client, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	return &Manager{
		store:   store,
		client:  client,
		cfg:     opts.Config,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		redis:   opts.Redis,
		log:     opts.Logger.With().Str(logger.KeyTag, "session.Manager").Logger(),
		states:  make(map[string]*State),
	}
}

// Store exposes the cookie store for handlers that keep their own values.
func (m *Manager) Store() sessions.Store {
	return m.store
}

// Load returns the state of the requesting browser, creating the session
// (and its cookie) on first visit.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*State, error) {
	sess, _ := m.store.Get(r, CookieName)

	sid, _ := sess.Values[keySessionID].(string)
	clientID, _ := sess.Values[KeyClientID].(string)
	resumed := sid != ""
	if sid == "" || clientID == "" {
		if sid == "" {
			sid = uuid.NewString()
		}
		if clientID == "" {
			clientID = uuid.NewString()
		}
		sess.Values[keySessionID] = sid
		sess.Values[KeyClientID] = clientID
		if err := sess.Save(r, w); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[sid]
	if !ok {
		var err error
		st, err = m.newState(sid, clientID)
		if err != nil {
			return nil, err
		}
		m.states[sid] = st

		// The backend cookies went with the swept state, so the snapshot
		// no longer matches a backend session.
		if _, signedIn := sess.Values[KeyAuth]; resumed && signedIn {
			delete(sess.Values, KeyAuth)
			if err := sess.Save(r, w); err != nil {
				return nil, fmt.Errorf("failed to save session: %w", err)
			}
			m.log.Debug().Str(logger.KeySessionID, sid).Msg("cleared auth snapshot of expired session")
		}
	}
	st.touch(m.clock.Now())
	return st, nil
}

func (m *Manager) newState(sid, clientID string) (*State, error) {
	api := m.client.WithCredentials(backend.NewCredentials(clientID))
	searcher, err := search.New(api, search.Config{
		CacheSize: m.cfg.Search.CacheSize,
		TTL:       m.cfg.Search.CacheTTL,
		Backoff:   m.cfg.Search.BackoffWindow,
		Timeout:   m.cfg.Backend.Timeout,
		Clock:     m.clock,
		Metrics:   m.metrics,
	})
	if err != nil {
		return nil, err
	}
	return &State{
		ID:        sid,
		ClientID:  clientID,
		API:       api,
		Cart:      cart.NewStore(api),
		Search:    searcher,
		selectors: make(map[string]*availability.Selector),
		newSelector: func(clubID string) *availability.Selector {
			return availability.NewSelector(availability.Config{
				ClubID:  clubID,
				Fetch:   api.AvailableTickets,
				Clock:   m.clock,
				Delay:   m.cfg.Availability.Debounce,
				Metrics: m.metrics,
				Logger:  m.log.With().Str(logger.KeySessionID, sid).Logger(),
			})
		},
	}, nil
}

// User reads the auth snapshot from the session cookie.
func (m *Manager) User(r *http.Request) *models.User {
	sess, err := m.store.Get(r, CookieName)
	if err != nil {
		return nil
	}
	raw, ok := sess.Values[KeyAuth].(string)
	if !ok || raw == "" {
		return nil
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

// SetUser stores (or with nil clears) the auth snapshot.
func (m *Manager) SetUser(w http.ResponseWriter, r *http.Request, u *models.User) error {
	sess, _ := m.store.Get(r, CookieName)
	if u == nil {
		delete(sess.Values, KeyAuth)
	} else {
		raw, err := json.Marshal(u)
		if err != nil {
			return err
		}
		sess.Values[KeyAuth] = string(raw)
	}
	return sess.Save(r, w)
}

// Transactions returns where the session's last transaction is kept: the
// session cookie and, when configured, redis.
func (m *Manager) Transactions(w http.ResponseWriter, r *http.Request, st *State) checkout.DetailsStore {
	cookie := checkout.NewSessionDetails(m.store, CookieName, r, w)
	if m.redis == nil {
		return cookie
	}
	return checkout.Mirror{cookie, checkout.NewRedisDetails(m.redis, st.ID)}
}

// Sweep drops sessions idle since before now-idle and closes their selectors.
func (m *Manager) Sweep(now time.Time) int {
	idle := m.cfg.Session.IdleTimeout
	m.mu.Lock()
	var expired []*State
	for id, st := range m.states {
		if now.Sub(st.LastSeen()) > idle {
			expired = append(expired, st)
			delete(m.states, id)
		}
	}
	m.mu.Unlock()

	for _, st := range expired {
		st.close()
	}
	if len(expired) > 0 {
		m.log.Debug().Int("expired", len(expired)).Msg("swept idle sessions")
	}
	return len(expired)
}

// Run sweeps idle sessions every minute until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-m.clock.After(time.Minute):
			m.Sweep(m.clock.Now())
		case <-ctx.Done():
			return
		}
	}
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	states := m.states
	m.states = make(map[string]*State)
	m.mu.Unlock()
	for _, st := range states {
		st.close()
	}
}
