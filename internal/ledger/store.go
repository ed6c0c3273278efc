package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Store persists ledger entries, rate windows, and the processed-message
// cache in SQLite. It is the concrete ledger collaborator injected into the
// webhook controller.
type Store struct {
	db        *sql.DB
	window    time.Duration
	limit     int
	dedupeTTL time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewStore creates a Store with the given fixed-window rate limit settings.
func NewStore(db *sql.DB, window time.Duration, limit int, dedupeTTL time.Duration) *Store {
	return &Store{
		db:        db,
		window:    window,
		limit:     limit,
		dedupeTTL: dedupeTTL,
		now:       time.Now,
	}
}

// InsertEntry derives tax and net amounts, persists the entry, and returns
// its id. The owning-account reference stays unset; linking happens when the
// sender signs up in the dashboard.
func (s *Store) InsertEntry(ctx context.Context, e NewEntry) (string, error) {
	if e.SenderID == "" {
		return "", fmt.Errorf("%w: sender_id is empty", ErrInvalidEntry)
	}
	if e.Kind != KindIncome && e.Kind != KindExpense {
		return "", fmt.Errorf("%w: kind %q", ErrInvalidEntry, e.Kind)
	}
	if e.Amount.IsNegative() {
		return "", fmt.Errorf("%w: negative amount %s", ErrInvalidEntry, e.Amount)
	}

	taxAmount := e.Amount.Mul(e.TaxRate).Div(oneHundred)
	netAmount := e.Amount
	if e.Kind == KindIncome {
		netAmount = e.Amount.Sub(taxAmount)
	}

	id := uuid.NewString()
	// Stored as integer nanoseconds so creation order survives SQLite's
	// lexicographic text comparison.
	createdAt := s.now().UnixNano()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO ledger_entries(
  id, sender_id, message_id, description, kind, category, country,
  amount, tax_rate, tax_amount, net_amount, account_id, created_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?);
`, id, e.SenderID, e.MessageID, e.Description, string(e.Kind), e.Category, string(e.Country),
		e.Amount.String(), e.TaxRate.String(), taxAmount.String(), netAmount.String(), createdAt)
	if err != nil {
		return "", fmt.Errorf("insert ledger entry: %w", err)
	}
	return id, nil
}

// DeleteMostRecent removes the newest entry for a sender and returns it.
// Returns (nil, nil) when the sender has no entries. Creation-time ties are
// broken by rowid, newest insert wins.
func (s *Store) DeleteMostRecent(ctx context.Context, senderID string) (*Entry, error) {
	if senderID == "" {
		return nil, fmt.Errorf("sender_id is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
SELECT id, sender_id, message_id, description, kind, category, country,
       amount, tax_rate, tax_amount, net_amount, account_id, created_at
FROM ledger_entries
WHERE sender_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT 1;
`, senderID)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load most recent entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?;`, entry.ID); err != nil {
		return nil, fmt.Errorf("delete ledger entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// Summarize aggregates all entries for a sender: income and expense totals,
// total tax, and net = income - expense. Read-only.
func (s *Store) Summarize(ctx context.Context, senderID string) (Summary, error) {
	sum := Summary{
		Income:  decimal.Zero,
		Expense: decimal.Zero,
		Tax:     decimal.Zero,
		Net:     decimal.Zero,
	}
	if senderID == "" {
		return sum, fmt.Errorf("sender_id is empty")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT kind, amount, tax_amount
FROM ledger_entries
WHERE sender_id = ?;
`, senderID)
	if err != nil {
		return sum, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kindS, amountS, taxS string
		if err := rows.Scan(&kindS, &amountS, &taxS); err != nil {
			return sum, fmt.Errorf("scan ledger entry: %w", err)
		}
		amount, err := decimal.NewFromString(amountS)
		if err != nil {
			return sum, fmt.Errorf("stored amount %q is not decimal: %w", amountS, err)
		}
		tax, err := decimal.NewFromString(taxS)
		if err != nil {
			return sum, fmt.Errorf("stored tax_amount %q is not decimal: %w", taxS, err)
		}

		switch Kind(kindS) {
		case KindIncome:
			sum.Income = sum.Income.Add(amount)
		case KindExpense:
			sum.Expense = sum.Expense.Add(amount)
		}
		sum.Tax = sum.Tax.Add(tax)
		sum.Count++
	}
	if err := rows.Err(); err != nil {
		return sum, fmt.Errorf("iterate ledger entries: %w", err)
	}

	sum.Net = sum.Income.Sub(sum.Expense)
	return sum, nil
}

func scanEntry(row *sql.Row) (*Entry, error) {
	var (
		e         Entry
		kindS     string
		countryS  string
		amountS   string
		taxRateS  string
		taxAmtS   string
		netAmtS   string
		accountID sql.NullString
		createdAt int64
	)
	err := row.Scan(&e.ID, &e.SenderID, &e.MessageID, &e.Description, &kindS, &e.Category, &countryS,
		&amountS, &taxRateS, &taxAmtS, &netAmtS, &accountID, &createdAt)
	if err != nil {
		return nil, err
	}

	e.Kind = Kind(kindS)
	e.Country = Country(countryS)
	if e.Amount, err = decimal.NewFromString(amountS); err != nil {
		return nil, fmt.Errorf("stored amount %q is not decimal: %w", amountS, err)
	}
	if e.TaxRate, err = decimal.NewFromString(taxRateS); err != nil {
		return nil, fmt.Errorf("stored tax_rate %q is not decimal: %w", taxRateS, err)
	}
	if e.TaxAmount, err = decimal.NewFromString(taxAmtS); err != nil {
		return nil, fmt.Errorf("stored tax_amount %q is not decimal: %w", taxAmtS, err)
	}
	if e.NetAmount, err = decimal.NewFromString(netAmtS); err != nil {
		return nil, fmt.Errorf("stored net_amount %q is not decimal: %w", netAmtS, err)
	}
	if accountID.Valid {
		e.AccountID = &accountID.String
	}
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	return &e, nil
}
