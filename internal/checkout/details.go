package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"nightlife-storefront/internal/models"
)

const (
	// DetailsKey is the session value holding the last transaction.
	DetailsKey = "lastTransactionDetails"

	redisKeyPrefix = "nl:tx:"
	redisTTL       = 7 * 24 * time.Hour
)

// DetailsStore persists the last transaction of one browser session.
type DetailsStore interface {
	Load(ctx context.Context) (*models.TransactionDetails, error)
	Save(ctx context.Context, d models.TransactionDetails) error
}

// SessionDetails keeps the details as JSON in the gorilla session cookie.
type SessionDetails struct {
	store sessions.Store
	name  string
	r     *http.Request
	w     http.ResponseWriter
}

func NewSessionDetails(store sessions.Store, name string, r *http.Request, w http.ResponseWriter) *SessionDetails {
	return &SessionDetails{store: store, name: name, r: r, w: w}
}

func (s *SessionDetails) Load(_ context.Context) (*models.TransactionDetails, error) {
	session, err := s.store.Get(s.r, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	raw, ok := session.Values[DetailsKey].(string)
	if !ok || raw == "" {
		return nil, nil
	}
	var d models.TransactionDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", DetailsKey, err)
	}
	return &d, nil
}

func (s *SessionDetails) Save(_ context.Context, d models.TransactionDetails) error {
	session, err := s.store.Get(s.r, s.name)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", DetailsKey, err)
	}
	session.Values[DetailsKey] = string(raw)
	if err := session.Save(s.r, s.w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// RedisDetails mirrors the details under nl:tx:<session id>.
type RedisDetails struct {
	client *redis.Client
	key    string
}

func NewRedisDetails(client *redis.Client, sessionID string) *RedisDetails {
	return &RedisDetails{client: client, key: redisKeyPrefix + sessionID}
}

func (s *RedisDetails) Load(ctx context.Context) (*models.TransactionDetails, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", s.key, err)
	}
	var d models.TransactionDetails
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.key, err)
	}
	return &d, nil
}

func (s *RedisDetails) Save(ctx context.Context, d models.TransactionDetails) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.key, err)
	}
	if err := s.client.Set(ctx, s.key, raw, redisTTL).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", s.key, err)
	}
	return nil
}

// Mirror writes to every store and reads from the first that has a value.
type Mirror []DetailsStore

func (m Mirror) Load(ctx context.Context) (*models.TransactionDetails, error) {
	var errs []error
	for _, s := range m {
		d, err := s.Load(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, errors.Join(errs...)
}

func (m Mirror) Save(ctx context.Context, d models.TransactionDetails) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
