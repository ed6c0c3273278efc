package webhook

import (
	"fmt"
	"math"
	"time"

	"github.com/unclehq/uncle-gw/internal/ledger"
)

const (
	replyGenericError  = "⚠️ Sorry, something went wrong. Please try again."
	replyNothingToUndo = "Nothing to undo."
	replyUsageHint     = "I couldn't understand that. Try:\n" +
		"- Sold 5 items for ₹500\n" +
		"- Bought supplies ₹200\n" +
		"Commands: undo, balance"
)

func recordedReply(kind ledger.Kind, amount, category string) string {
	return fmt.Sprintf("✅ Recorded: %s of %s (%s)", kind, amount, category)
}

func undoneReply(e *ledger.Entry) string {
	return fmt.Sprintf("↩️ Undone: %s of %s (%s)", e.Kind, e.Amount, e.Description)
}

func balanceReply(s ledger.Summary) string {
	return fmt.Sprintf("📊 Balance\nIncome: %s\nExpenses: %s\nTax: %s\nNet: %s",
		s.Income, s.Expense, s.Tax, s.Net)
}

func rateLimitNotice(retryAfter time.Duration) string {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("⏳ You're sending messages too fast. Please wait %ds and try again.", secs)
}
