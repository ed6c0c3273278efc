package intent

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/unclehq/uncle-gw/internal/ledger"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		text string
		want Command
	}{
		{"undo", CommandUndo},
		{"Undo", CommandUndo},
		{"  UNDO please", CommandUndo},
		{"balance", CommandBalance},
		{"Balance?", CommandBalance},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Parse(tt.text)
			if got.Command != tt.want {
				t.Errorf("Parse(%q).Command = %q, want %q", tt.text, got.Command, tt.want)
			}
			if got.Transaction != nil {
				t.Errorf("Parse(%q) should not yield a transaction", tt.text)
			}
		})
	}
}

func TestParseTransactions(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		amount   string
		kind     ledger.Kind
		category string
		country  ledger.Country
		taxRate  string
	}{
		{
			name: "income with rupee symbol", text: "Sold 5 items for ₹500",
			amount: "500", kind: ledger.KindIncome, category: "sales",
			country: ledger.CountryIN, taxRate: "18",
		},
		{
			name: "expense with rupee symbol", text: "Bought supplies ₹200",
			amount: "200", kind: ledger.KindExpense, category: "purchases",
			country: ledger.CountryIN, taxRate: "0",
		},
		{
			name: "k suffix multiplies by 1000", text: "2.5k sold",
			amount: "2500", kind: ledger.KindIncome, category: "sales",
			country: ledger.CountryIN, taxRate: "18",
		},
		{
			name: "thousands separator", text: "sold goods for INR 1,250.50",
			amount: "1250.5", kind: ledger.KindIncome, category: "sales",
			country: ledger.CountryIN, taxRate: "18",
		},
		{
			name: "saudi income", text: "received SAR 300 from customer",
			amount: "300", kind: ledger.KindIncome, category: "sales",
			country: ledger.CountrySA, taxRate: "15",
		},
		{
			name: "saudi vat hint", text: "spent 80 on vat consultancy saudi",
			amount: "80", kind: ledger.KindExpense, category: "purchases",
			country: ledger.CountrySA, taxRate: "0",
		},
		{
			name: "paid without to-me is expense", text: "paid 150 for electricity",
			amount: "150", kind: ledger.KindExpense, category: "purchases",
			country: ledger.CountryIN, taxRate: "0",
		},
		{
			name: "paid to me is income", text: "customer paid to me 600",
			amount: "600", kind: ledger.KindIncome, category: "sales",
			country: ledger.CountryIN, taxRate: "18",
		},
		{
			name: "ambiguous defaults to india", text: "sold 700",
			amount: "700", kind: ledger.KindIncome, category: "sales",
			country: ledger.CountryIN, taxRate: "18",
		},
		{
			name: "rounds to two places", text: "sold 10.999",
			amount: "11", kind: ledger.KindIncome, category: "sales",
			country: ledger.CountryIN, taxRate: "18",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if got.Transaction == nil {
				t.Fatalf("Parse(%q) unrecognized, want transaction", tt.text)
			}
			tx := got.Transaction

			want, _ := decimal.NewFromString(tt.amount)
			if !tx.Amount.Equal(want) {
				t.Errorf("Amount = %s, want %s", tx.Amount, tt.amount)
			}
			if tx.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", tx.Kind, tt.kind)
			}
			if tx.Category != tt.category {
				t.Errorf("Category = %q, want %q", tx.Category, tt.category)
			}
			if tx.Country != tt.country {
				t.Errorf("Country = %q, want %q", tx.Country, tt.country)
			}
			wantRate, _ := decimal.NewFromString(tt.taxRate)
			if !tx.TaxRate.Equal(wantRate) {
				t.Errorf("TaxRate = %s, want %s", tx.TaxRate, tt.taxRate)
			}
			if tx.Description != tt.text {
				t.Errorf("Description = %q, original casing must be preserved", tx.Description)
			}
		})
	}
}

func TestParseUnrecognized(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"hello there",
		"sold some stuff",        // verb but no amount
		"500",                    // amount but no verb
		"received and spent 100", // both keyword sets match, no fallback verb
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			got := Parse(text)
			if got.Recognized() {
				t.Errorf("Parse(%q) = %+v, want Unrecognized", text, got)
			}
		})
	}
}

func TestParseFallbackPattern(t *testing.T) {
	// "sold ... income" matches both sets in the structured pass; the
	// fallback sold-then-number pattern still recovers it as income.
	got := Parse("sold for expense reasons 450")
	if got.Transaction == nil {
		t.Fatal("fallback should recover a sold-then-number message")
	}
	if got.Transaction.Kind != ledger.KindIncome {
		t.Errorf("Kind = %q, want income", got.Transaction.Kind)
	}
	want := decimal.NewFromInt(450)
	if !got.Transaction.Amount.Equal(want) {
		t.Errorf("Amount = %s, want 450", got.Transaction.Amount)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	text := "Sold 5 items for ₹500"
	first := Parse(text)
	for i := 0; i < 5; i++ {
		again := Parse(text)
		if again.Transaction == nil || !again.Transaction.Amount.Equal(first.Transaction.Amount) {
			t.Fatal("Parse must be deterministic")
		}
	}
}
