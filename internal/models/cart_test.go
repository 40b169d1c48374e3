package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	items := []CartItem{
		{ID: "a", ItemType: ItemTypeTicket, Quantity: 2, Subtotal: decimal.NewFromInt(50000)},
		{ID: "b", ItemType: ItemTypeMenu, Quantity: 1, Subtotal: decimal.NewFromInt(120000)},
		{ID: "c", ItemType: ItemTypeMenu, Quantity: 3, Subtotal: decimal.NewFromInt(30000)},
	}

	s := Summarize(items)

	assert.True(t, s.TicketSubtotal.Equal(decimal.NewFromInt(50000)))
	assert.True(t, s.MenuSubtotal.Equal(decimal.NewFromInt(150000)))
	assert.True(t, s.Total.Equal(decimal.NewFromInt(200000)))
	assert.Equal(t, 2, s.TicketCount)
	assert.Equal(t, 4, s.MenuCount)
	assert.Equal(t, 6, s.ItemCount)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.Total.IsZero())
	assert.Equal(t, 0, s.ItemCount)
}

func TestCartItemEffectivePrice(t *testing.T) {
	item := CartItem{UnitPrice: decimal.NewFromInt(100)}
	assert.True(t, item.EffectivePrice().Equal(decimal.NewFromInt(100)))

	dyn := decimal.NewFromInt(80)
	item.DynamicPrice = &dyn
	assert.True(t, item.EffectivePrice().Equal(decimal.NewFromInt(80)))
}

func TestCartItemName(t *testing.T) {
	assert.Equal(t, "VIP", CartItem{Ticket: &Ticket{Name: "VIP"}}.Name())
	assert.Equal(t, "Gin (Bottle)", CartItem{
		MenuItem: &MenuItem{Name: "Gin"},
		Variant:  &MenuVariant{Name: "Bottle"},
	}.Name())
	assert.Equal(t, "Item", CartItem{}.Name())
}

func TestTransactionDetailsMerge(t *testing.T) {
	created := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	now := created.Add(time.Minute)
	d := TransactionDetails{
		TransactionID: "tx-1",
		Status:        TransactionPending,
		Email:         "a@b.co",
		CreatedAt:     created,
	}

	merged := d.Merge(StatusUpdate{Status: TransactionApproved, Reference: "REF-9"}, now)

	assert.Equal(t, "tx-1", merged.TransactionID)
	assert.Equal(t, TransactionApproved, merged.Status)
	assert.Equal(t, "REF-9", merged.Reference)
	assert.Equal(t, "a@b.co", merged.Email)
	assert.Equal(t, created, merged.CreatedAt)
	assert.Equal(t, now, merged.UpdatedAt)
}

func TestTransactionStatusIsTerminal(t *testing.T) {
	assert.False(t, TransactionPending.IsTerminal())
	assert.False(t, TransactionStatus("").IsTerminal())
	assert.True(t, TransactionStatus("VOIDED").IsTerminal())
	for _, s := range []TransactionStatus{TransactionApproved, TransactionDeclined, TransactionError, TransactionTimeout} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestCartConflictErrorIs(t *testing.T) {
	err := error(&CartConflictError{Reason: ConflictDate, Current: "2024-06-01", Wanted: "2024-06-02"})
	assert.True(t, errors.Is(err, ErrCartConflict))
	assert.Contains(t, err.Error(), "2024-06-01")
}

func TestGroupMenu(t *testing.T) {
	groups := GroupMenu([]MenuItem{
		{ID: "1", CategoryName: "Bottles"},
		{ID: "2", CategoryName: "Cocktails"},
		{ID: "3", CategoryName: "Bottles"},
		{ID: "4"},
	})

	if assert.Len(t, groups, 3) {
		assert.Equal(t, "Bottles", groups[0].Name)
		assert.Len(t, groups[0].Items, 2)
		assert.Equal(t, "Other", groups[2].Name)
	}
}

func TestClubFilterKey(t *testing.T) {
	a := ClubFilter{Query: " Techno ", City: "Bogota"}
	b := ClubFilter{Query: "techno", City: "bogota"}
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, ClubFilter{}.IsEmpty())
	assert.True(t, Club{OpenDays: []string{"Friday"}}.OpensOn("friday"))
}
