// Package transaction defines the transaction record and its stores.
//
// A Transaction is an immutable value object describing one financial
// movement. It is created at the ingestion boundary (API or bulk file
// parser), validated once, and read-only thereafter.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("transaction not found")
	ErrExists   = errors.New("transaction already exists")
)

// Type categorizes a transaction.
type Type string

const (
	TypeTransfer   Type = "transfer"
	TypePayment    Type = "payment"
	TypeWithdrawal Type = "withdrawal"
	TypeDeposit    Type = "deposit"
)

// Defaults applied by Normalize when a field is unset.
const (
	DefaultCurrency = "USD"
	DefaultCountry  = "India"
)

// Transaction represents one financial movement.
type Transaction struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	Country          string    `json:"country"`
	MerchantType     string    `json:"merchantType"`
	DeviceRiskScore  float64   `json:"deviceRiskScore"`
	Timestamp        time.Time `json:"timestamp"`
	Type             Type      `json:"transactionType"`
	Description      string    `json:"description,omitempty"`
	RecipientAccount string    `json:"recipientAccount,omitempty"`
	SenderAccount    string    `json:"senderAccount,omitempty"`
}

// ValidationError reports a malformed transaction field. It is surfaced to
// the caller immediately and never silently corrected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction: %s %s", e.Field, e.Message)
}

// Validate checks the transaction invariants.
func (t *Transaction) Validate() error {
	if t.Amount <= 0 {
		return &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if t.DeviceRiskScore < 0.0 || t.DeviceRiskScore > 1.0 {
		return &ValidationError{Field: "deviceRiskScore", Message: "must be between 0.0 and 1.0"}
	}
	switch t.Type {
	case "", TypeTransfer, TypePayment, TypeWithdrawal, TypeDeposit:
	default:
		return &ValidationError{Field: "transactionType", Message: "must be one of transfer, payment, withdrawal, deposit"}
	}
	return nil
}

// Normalize fills defaulted fields in place. It never touches ID.
func (t *Transaction) Normalize() {
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	if t.Country == "" {
		t.Country = DefaultCountry
	}
	if t.Type == "" {
		t.Type = TypeTransfer
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
}

// Record is a stored transaction annotated with its risk assessment.
type Record struct {
	Transaction
	RiskScore int       `json:"riskScore"`
	RiskLevel string    `json:"riskLevel"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists transaction records.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit, offset int) ([]*Record, error)
}
