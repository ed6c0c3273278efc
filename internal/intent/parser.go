package intent

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/unclehq/uncle-gw/internal/ledger"
)

// Country hints. Symbols and codes beat the default; India wins ambiguous
// text (documented heuristic, not a contract).
var (
	countryINPattern = regexp.MustCompile(`(?i)₹|\binr\b|india|\bgst\b`)
	countrySAPattern = regexp.MustCompile(`(?i)﷼|\bsar\b|saudi|\bvat\b`)
)

// Amount extraction. A currency-prefixed token is preferred over the first
// bare number so "Sold 5 items for ₹500" reads the ₹500, not the 5.
var (
	prefixedAmountPattern = regexp.MustCompile(`(?i)(?:₹|﷼|\binr\b|\bsar\b)\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]+)?|[0-9]+(?:\.[0-9]+)?)\s*([kK])?`)
	bareAmountPattern     = regexp.MustCompile(`([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]+)?|[0-9]+(?:\.[0-9]+)?)\s*([kK])?`)
)

// Classification keyword sets.
var (
	incomePattern       = regexp.MustCompile(`(?i)sold|sale|received|income|paid to me`)
	expenseWordPattern  = regexp.MustCompile(`(?i)bought|purchase|spent|expense`)
	paidPattern         = regexp.MustCompile(`(?i)\bpaid\b`)
	paidToMePattern     = regexp.MustCompile(`(?i)\bpaid\s+to\s+me\b`)
	fallbackSoldPattern = regexp.MustCompile(`(?i)sold.*?\b([0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?)\b`)
	fallbackBuyPattern  = regexp.MustCompile(`(?i)bought.*?\b([0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?)\b`)
)

var (
	taxRateINIncome = decimal.NewFromInt(18)
	taxRateSAIncome = decimal.NewFromInt(15)
)

// Parse interprets one message. Commands are matched on a trimmed,
// lowercased copy; the original casing is preserved in the transaction
// description.
func Parse(text string) Intent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Intent{}
	}

	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "undo") {
		return Intent{Command: CommandUndo}
	}
	if strings.HasPrefix(lower, "balance") {
		return Intent{Command: CommandBalance}
	}

	if tx := parseTransaction(trimmed); tx != nil {
		return Intent{Transaction: tx}
	}
	if tx := parseFallback(trimmed); tx != nil {
		return Intent{Transaction: tx}
	}
	return Intent{}
}

func parseTransaction(text string) *Transaction {
	amount, ok := extractAmount(text)
	if !ok {
		return nil
	}

	isIncome := incomePattern.MatchString(text)
	isExpense := expenseWordPattern.MatchString(text) ||
		(paidPattern.MatchString(text) && !paidToMePattern.MatchString(text))

	// Both or neither keyword set matching means the classification is
	// ambiguous; let the fallback patterns have a try.
	if isIncome == isExpense {
		return nil
	}

	kind := ledger.KindExpense
	if isIncome {
		kind = ledger.KindIncome
	}
	return buildTransaction(text, amount, kind)
}

// parseFallback is the second-chance heuristic: a classification verb with a
// bare number somewhere after it.
func parseFallback(text string) *Transaction {
	if m := fallbackSoldPattern.FindStringSubmatch(text); m != nil {
		if amount, ok := parseAmountToken(m[1], false); ok {
			return buildTransaction(text, amount, ledger.KindIncome)
		}
	}
	if m := fallbackBuyPattern.FindStringSubmatch(text); m != nil {
		if amount, ok := parseAmountToken(m[1], false); ok {
			return buildTransaction(text, amount, ledger.KindExpense)
		}
	}
	return nil
}

func buildTransaction(text string, amount decimal.Decimal, kind ledger.Kind) *Transaction {
	country := inferCountry(text)
	category := "purchases"
	if kind == ledger.KindIncome {
		category = "sales"
	}
	return &Transaction{
		Amount:      amount,
		Description: text,
		Kind:        kind,
		Category:    category,
		Country:     country,
		TaxRate:     defaultTaxRate(country, kind),
	}
}

func inferCountry(text string) ledger.Country {
	hasIN := countryINPattern.MatchString(text)
	hasSA := countrySAPattern.MatchString(text)
	if hasSA && !hasIN {
		return ledger.CountrySA
	}
	return ledger.CountryIN
}

// defaultTaxRate suggests GST 18% for Indian income and VAT 15% for Saudi
// income. Expenses carry no default rate.
func defaultTaxRate(country ledger.Country, kind ledger.Kind) decimal.Decimal {
	if kind != ledger.KindIncome {
		return decimal.Zero
	}
	switch country {
	case ledger.CountrySA:
		return taxRateSAIncome
	default:
		return taxRateINIncome
	}
}

// extractAmount finds a single numeric token, preferring one preceded by a
// currency symbol or code. Thousands separators and a trailing k suffix
// (x1000) are accepted; the result is rounded to 2 decimal places.
func extractAmount(text string) (decimal.Decimal, bool) {
	if m := prefixedAmountPattern.FindStringSubmatch(text); m != nil {
		return parseAmountToken(m[1], m[2] != "")
	}
	if m := bareAmountPattern.FindStringSubmatch(text); m != nil {
		return parseAmountToken(m[1], m[2] != "")
	}
	return decimal.Zero, false
}

func parseAmountToken(token string, kSuffix bool) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(token, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	if kSuffix {
		amount = amount.Mul(decimal.NewFromInt(1000))
	}
	return amount.Round(2), true
}
