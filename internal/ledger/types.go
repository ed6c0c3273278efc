package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Country identifies the tax jurisdiction of an entry.
type Country string

const (
	CountryIN Country = "IN"
	CountrySA Country = "SA"
)

// Entry is a persisted financial record. TaxAmount and NetAmount are derived
// at insert time: tax_amount = amount * tax_rate / 100, net_amount =
// amount - tax_amount for income and amount unchanged for expense.
type Entry struct {
	ID          string
	SenderID    string
	MessageID   string
	Description string
	Kind        Kind
	Category    string
	Country     Country
	Amount      decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	NetAmount   decimal.Decimal

	// AccountID is nil for entries created over WhatsApp; linking to an
	// owning account happens at signup time, outside this pipeline.
	AccountID *string
	CreatedAt time.Time
}

// NewEntry carries the caller-supplied fields of an entry to be inserted.
type NewEntry struct {
	SenderID    string
	MessageID   string
	Description string
	Kind        Kind
	Category    string
	Country     Country
	Amount      decimal.Decimal
	TaxRate     decimal.Decimal
}

// Summary aggregates all entries of one sender.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Tax     decimal.Decimal
	Net     decimal.Decimal
	Count   int
}

// RateDecision is the outcome of consuming one message from a sender's
// fixed rate window.
type RateDecision struct {
	Blocked    bool
	RetryAfter time.Duration
}

var ErrInvalidEntry = errors.New("invalid ledger entry")
