package models

import "errors"

// Common errors used throughout the application
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrCartConflict = errors.New("cart conflict")
)

// ConflictReason says why adding an item clashes with the current cart.
type ConflictReason string

const (
	ConflictClub ConflictReason = "club"
	ConflictDate ConflictReason = "date"
	ConflictKind ConflictReason = "kind"
)

// CartConflictError is returned when an add would mix clubs, dates or item kinds.
type CartConflictError struct {
	Reason  ConflictReason
	Current string
	Wanted  string
}

func (e *CartConflictError) Error() string {
	switch e.Reason {
	case ConflictClub:
		return "your cart has items from another club"
	case ConflictDate:
		return "your cart has items for " + e.Current + ", not " + e.Wanted
	case ConflictKind:
		return "your cart has " + e.Current + " items; tickets and menu items cannot be mixed"
	}
	return "cart conflict"
}

func (e *CartConflictError) Unwrap() error {
	return ErrCartConflict
}
