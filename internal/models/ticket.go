package models

import "github.com/shopspring/decimal"

// TicketCategory groups tickets into availability buckets.
type TicketCategory string

const (
	TicketGeneral TicketCategory = "general"
	TicketEvent   TicketCategory = "event"
	TicketFree    TicketCategory = "free"
)

// Ticket is a sellable ticket type. Pricing is server computed; DynamicPrice is
// only set when the backend applies a dynamic adjustment.
type Ticket struct {
	ID           string           `json:"id"`
	ClubID       string           `json:"clubId"`
	EventID      string           `json:"eventId,omitempty"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Category     TicketCategory   `json:"category"`
	Price        decimal.Decimal  `json:"price"`
	DynamicPrice *decimal.Decimal `json:"dynamicPrice,omitempty"`
	Available    int              `json:"available"`
	MaxPerPerson int              `json:"maxPerPerson"`
	Date         string           `json:"availableDate,omitempty"`
	IsActive     bool             `json:"isActive"`
	IncludesMenu bool             `json:"includesMenuItem"`
}

// EffectivePrice is the price a buyer pays right now.
func (t Ticket) EffectivePrice() decimal.Decimal {
	if t.DynamicPrice != nil {
		return *t.DynamicPrice
	}
	return t.Price
}

func (t Ticket) IsFree() bool {
	return t.Category == TicketFree || t.Price.IsZero()
}

func (t Ticket) SoldOut() bool {
	return t.Available <= 0
}
