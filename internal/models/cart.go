package models

import "github.com/shopspring/decimal"

// ItemType distinguishes the two kinds of unified-cart lines.
type ItemType string

const (
	ItemTypeTicket ItemType = "ticket"
	ItemTypeMenu   ItemType = "menu"
)

// CartItem is one line of the unified cart. The authoritative copy lives in
// the backend; this is the last fetched view of it.
type CartItem struct {
	ID           string           `json:"id"`
	ItemType     ItemType         `json:"itemType"`
	Quantity     int              `json:"quantity"`
	Date         string           `json:"date"`
	ClubID       string           `json:"clubId"`
	Ticket       *Ticket          `json:"ticket,omitempty"`
	MenuItem     *MenuItem        `json:"menuItem,omitempty"`
	Variant      *MenuVariant     `json:"variant,omitempty"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	DynamicPrice *decimal.Decimal `json:"dynamicPrice,omitempty"`
}

// EffectivePrice is the dynamic price when the backend provided one.
func (i CartItem) EffectivePrice() decimal.Decimal {
	if i.DynamicPrice != nil {
		return *i.DynamicPrice
	}
	return i.UnitPrice
}

// Name returns a display name for the line regardless of payload.
func (i CartItem) Name() string {
	switch {
	case i.Ticket != nil:
		return i.Ticket.Name
	case i.MenuItem != nil && i.Variant != nil:
		return i.MenuItem.Name + " (" + i.Variant.Name + ")"
	case i.MenuItem != nil:
		return i.MenuItem.Name
	}
	return "Item"
}

// CartSummary is derived from the items on every read and never stored.
type CartSummary struct {
	TicketSubtotal decimal.Decimal
	MenuSubtotal   decimal.Decimal
	Total          decimal.Decimal
	TicketCount    int
	MenuCount      int
	ItemCount      int
}

// Summarize computes a CartSummary from cart lines.
func Summarize(items []CartItem) CartSummary {
	s := CartSummary{
		TicketSubtotal: decimal.Zero,
		MenuSubtotal:   decimal.Zero,
		Total:          decimal.Zero,
	}
	for _, item := range items {
		switch item.ItemType {
		case ItemTypeTicket:
			s.TicketSubtotal = s.TicketSubtotal.Add(item.Subtotal)
			s.TicketCount += item.Quantity
		case ItemTypeMenu:
			s.MenuSubtotal = s.MenuSubtotal.Add(item.Subtotal)
			s.MenuCount += item.Quantity
		}
		s.ItemCount += item.Quantity
	}
	s.Total = s.TicketSubtotal.Add(s.MenuSubtotal)
	return s
}

// CartTotals is the backend computed summary (fees included).
type CartTotals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	ServiceFee decimal.Decimal `json:"serviceFee"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	ItemCount  int             `json:"itemCount"`
}

// AddToCartRequest is the body of POST /unified-cart/add.
type AddToCartRequest struct {
	ItemType   ItemType `json:"itemType"`
	TicketID   string   `json:"ticketId,omitempty"`
	MenuItemID string   `json:"menuItemId,omitempty"`
	VariantID  string   `json:"variantId,omitempty"`
	Date       string   `json:"date"`
	Quantity   int      `json:"quantity"`
}
