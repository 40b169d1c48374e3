// Package cart keeps the local view of a session's unified cart. The backend
// owns the cart; every mutation is sent there first and the store then
// replaces its copy with a fresh read.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/models"
)

// API is the slice of the backend client the store needs.
type API interface {
	CartItems(ctx context.Context) ([]models.CartItem, error)
	CartTotals(ctx context.Context) (models.CartTotals, error)
	AddToCart(ctx context.Context, req models.AddToCartRequest) error
	UpdateCartLine(ctx context.Context, lineID string, quantity int) error
	RemoveCartLine(ctx context.Context, lineID string) error
	ClearCart(ctx context.Context) error
}

type Store struct {
	api API

	// mu serializes actions so a refetch always lands after its mutation.
	mu      sync.Mutex
	state   sync.RWMutex
	items   []models.CartItem
	totals  models.CartTotals
	loaded  bool
	lastErr string
}

func NewStore(api API) *Store {
	return &Store{api: api}
}

// Items returns a copy of the current lines.
func (s *Store) Items() []models.CartItem {
	s.state.RLock()
	defer s.state.RUnlock()
	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Summary is derived from the items on every call.
func (s *Store) Summary() models.CartSummary {
	return models.Summarize(s.Items())
}

func (s *Store) Totals() models.CartTotals {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.totals
}

// Error is the message of the last failed action, empty after a success.
func (s *Store) Error() string {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.lastErr
}

// Loaded reports whether the cart has been fetched at least once.
func (s *Store) Loaded() bool {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.loaded
}

func (s *Store) AddTicket(ctx context.Context, ticketID, date string, quantity int) error {
	return s.add(ctx, models.AddToCartRequest{
		ItemType: models.ItemTypeTicket,
		TicketID: ticketID,
		Date:     date,
		Quantity: quantity,
	})
}

// AddMenuItem adds a menu item; variantID may be empty.
func (s *Store) AddMenuItem(ctx context.Context, menuItemID, variantID, date string, quantity int) error {
	return s.add(ctx, models.AddToCartRequest{
		ItemType:   models.ItemTypeMenu,
		MenuItemID: menuItemID,
		VariantID:  variantID,
		Date:       date,
		Quantity:   quantity,
	})
}

func (s *Store) add(ctx context.Context, req models.AddToCartRequest) error {
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.AddToCart(ctx, req); err != nil {
		return s.fail(ctx, "add", err)
	}
	return s.refresh(ctx)
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.UpdateCartLine(ctx, itemID, quantity); err != nil {
		return s.fail(ctx, "update", err)
	}
	return s.refresh(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.RemoveCartLine(ctx, itemID); err != nil {
		return s.fail(ctx, "remove", err)
	}
	return s.refresh(ctx)
}

// ClearCart empties the backend cart and the local copy without a refetch.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.ClearCart(ctx); err != nil {
		return s.fail(ctx, "clear", err)
	}
	s.state.Lock()
	s.items = []models.CartItem{}
	s.totals = models.CartTotals{}
	s.loaded = true
	s.lastErr = ""
	s.state.Unlock()
	return nil
}

// RefreshCart replaces the local items and totals with the backend's.
func (s *Store) RefreshCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *Store) refresh(ctx context.Context) error {
	var (
		items  []models.CartItem
		totals models.CartTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.api.CartItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.api.CartTotals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.fail(ctx, "refresh", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}

	s.state.Lock()
	s.items = items
	s.totals = totals
	s.loaded = true
	s.lastErr = ""
	s.state.Unlock()
	return nil
}

// UpdateQuantityOptimistic changes a line locally only. The subtotal follows
// the effective price; totals stay as last fetched.
func (s *Store) UpdateQuantityOptimistic(itemID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItemOptimistic(itemID)
		return
	}
	s.state.Lock()
	defer s.state.Unlock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Quantity = quantity
			s.items[i].Subtotal = s.items[i].EffectivePrice().Mul(decimal.NewFromInt(int64(quantity)))
			return
		}
	}
}

// RemoveItemOptimistic drops a line locally only.
func (s *Store) RemoveItemOptimistic(itemID string) {
	s.state.Lock()
	defer s.state.Unlock()
	kept := s.items[:0:0]
	for _, item := range s.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

// Compatibility reports whether an item of the given kind, club and date can
// join the current cart. Tickets and menu items are never mixed.
func (s *Store) Compatibility(kind models.ItemType, clubID, date string) error {
	s.state.RLock()
	defer s.state.RUnlock()
	if len(s.items) == 0 {
		return nil
	}
	head := s.items[0]
	switch {
	case head.ItemType != kind:
		return &models.CartConflictError{Reason: models.ConflictKind, Current: string(head.ItemType), Wanted: string(kind)}
	case clubID != "" && head.ClubID != "" && head.ClubID != clubID:
		return &models.CartConflictError{Reason: models.ConflictClub, Current: head.ClubID, Wanted: clubID}
	case date != "" && head.Date != "" && head.Date != date:
		return &models.CartConflictError{Reason: models.ConflictDate, Current: head.Date, Wanted: date}
	}
	return nil
}

func (s *Store) fail(ctx context.Context, action string, err error) error {
	msg := backend.UserMessage(err)
	s.state.Lock()
	s.lastErr = msg
	s.state.Unlock()

	zerolog.Ctx(ctx).Warn().
		Str(logger.KeyTag, "cart.Store").
		Str("action", action).
		Err(err).
		Msg("cart action failed")
	return fmt.Errorf("cart %s: %w", action, err)
}
