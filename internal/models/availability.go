package models

// AvailableTickets is the per-date snapshot of what a club sells on one day.
type AvailableTickets struct {
	ClubID         string   `json:"clubId"`
	Date           string   `json:"date"`
	Event          *Event   `json:"event,omitempty"`
	EventTickets   []Ticket `json:"eventTickets"`
	GeneralTickets []Ticket `json:"generalTickets"`
	FreeTickets    []Ticket `json:"freeTickets"`
}

func (a *AvailableTickets) HasEvent() bool {
	return a != nil && a.Event != nil
}

// IsEmpty reports a date with nothing for sale.
func (a *AvailableTickets) IsEmpty() bool {
	return a == nil || len(a.EventTickets)+len(a.GeneralTickets)+len(a.FreeTickets) == 0
}

// CalendarDay is one entry of the ticket calendar used to mark selectable dates.
type CalendarDay struct {
	Date     string `json:"date"`
	HasEvent bool   `json:"hasEvent"`
	EventID  string `json:"eventId,omitempty"`
	Name     string `json:"name,omitempty"`
}
