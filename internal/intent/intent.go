// Package intent turns free-form inbound text into a structured transaction
// or command. Parsing is deterministic, single-pass, and makes no external
// calls; anything it cannot classify is Unrecognized and the caller answers
// with a usage hint.
package intent

import (
	"github.com/shopspring/decimal"

	"github.com/unclehq/uncle-gw/internal/ledger"
)

// Command is a recognized ledger command.
type Command string

const (
	CommandUndo    Command = "undo"
	CommandBalance Command = "balance"
)

// Transaction is a parsed financial intent. TaxRate is a suggested default
// derived from country and kind; the ledger is free to override it.
type Transaction struct {
	Amount      decimal.Decimal
	Description string
	Kind        ledger.Kind
	Category    string
	Country     ledger.Country
	TaxRate     decimal.Decimal
}

// Intent is the tagged result of parsing one message. Exactly one of
// Transaction and Command is set for recognized input; the zero value means
// the text was not understood.
type Intent struct {
	Transaction *Transaction
	Command     Command
}

// Recognized reports whether parsing produced a transaction or a command.
func (i Intent) Recognized() bool {
	return i.Transaction != nil || i.Command != ""
}
