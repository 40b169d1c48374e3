package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the payment processor outcome as reported by the backend.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionApproved TransactionStatus = "APPROVED"
	TransactionDeclined TransactionStatus = "DECLINED"
	TransactionError    TransactionStatus = "ERROR"
	TransactionTimeout  TransactionStatus = "TIMEOUT"
)

// IsTerminal reports whether the processor has decided the transaction. Any
// reported status other than PENDING is final; unknown ones end on the error page.
func (s TransactionStatus) IsTerminal() bool {
	return s != "" && s != TransactionPending
}

// StatusUpdate is a single status observation, pushed or polled.
type StatusUpdate struct {
	TransactionID string            `json:"transactionId"`
	Status        TransactionStatus `json:"status"`
	Message       string            `json:"message,omitempty"`
	Reference     string            `json:"reference,omitempty"`
	Amount        *decimal.Decimal  `json:"amount,omitempty"`
}

// TransactionDetails is what the storefront remembers about the last checkout
// ("lastTransactionDetails").
type TransactionDetails struct {
	TransactionID string            `json:"transactionId"`
	Status        TransactionStatus `json:"status"`
	Reference     string            `json:"reference,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency,omitempty"`
	Email         string            `json:"email,omitempty"`
	FullName      string            `json:"fullName,omitempty"`
	ClubID        string            `json:"clubId,omitempty"`
	Date          string            `json:"date,omitempty"`
	Message       string            `json:"message,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Merge applies an update on top of the stored details. Fields the update
// leaves empty keep their previous value.
func (d TransactionDetails) Merge(u StatusUpdate, now time.Time) TransactionDetails {
	if u.TransactionID != "" {
		d.TransactionID = u.TransactionID
	}
	if u.Status != "" {
		d.Status = u.Status
	}
	if u.Message != "" {
		d.Message = u.Message
	}
	if u.Reference != "" {
		d.Reference = u.Reference
	}
	if u.Amount != nil {
		d.Amount = *u.Amount
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return d
}

// CheckoutRequest is the body of POST /checkout/unified/initiate.
type CheckoutRequest struct {
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"fullName" validate:"required,min=3,max=120"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,e164"`
	LegalID     string `json:"legalId,omitempty" validate:"omitempty,max=20"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// CheckoutSession is the backend's answer to a checkout initiation.
type CheckoutSession struct {
	TransactionID string            `json:"transactionId"`
	RedirectURL   string            `json:"redirectUrl"`
	Status        TransactionStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Reference     string            `json:"reference"`
}
