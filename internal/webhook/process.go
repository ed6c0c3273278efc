package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/unclehq/uncle-gw/internal/intent"
	"github.com/unclehq/uncle-gw/internal/ledger"
	"github.com/unclehq/uncle-gw/internal/log"
	"github.com/unclehq/uncle-gw/internal/whatsapp"
)

// processEnvelope parses the verified raw body and runs the per-message
// loop. Message order from the payload is preserved and every message's
// outcome is isolated: one failure never aborts the rest of the batch.
func (s *Server) processEnvelope(ctx context.Context, body []byte) {
	var env whatsapp.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.logger.Warn("webhook received invalid body", "error", err)
		return
	}

	value := env.Value()
	if value == nil {
		s.logger.Warn("webhook received unexpected envelope shape")
		return
	}

	// Delivery/read receipts carry no messages to process.
	if len(value.Statuses) > 0 {
		s.logger.Debug("status-only payload acknowledged", "statuses", len(value.Statuses))
		return
	}

	for _, msg := range value.Messages {
		res := s.processMessage(ctx, msg)

		switch {
		case res.Skipped:
			continue
		case res.Err != nil:
			s.logger.Error("error processing message",
				"sender", log.MaskSender(msg.From),
				"error", res.Err,
			)
			if msg.From != "" {
				s.sender.SendText(ctx, msg.From, replyGenericError)
			}
		default:
			if !s.sender.SendText(ctx, msg.From, res.Reply) {
				s.logger.Warn("reply delivery failed", "sender", log.MaskSender(msg.From))
			}
		}
	}
}

// processMessage runs one message through the gates: well-formedness,
// dedup replay, rate limit, parse, dispatch. It never panics the batch;
// failures come back as Result.Err.
func (s *Server) processMessage(ctx context.Context, msg whatsapp.Message) Result {
	if msg.Type != "text" {
		s.logger.Debug("skipping non-text message", "type", msg.Type)
		return Result{Skipped: true}
	}

	text := msg.TextContent()
	if msg.ID == "" || msg.From == "" || text == "" {
		s.logger.Warn("skipping malformed message",
			"has_id", msg.ID != "",
			"has_text", text != "",
			"sender", log.MaskSender(msg.From),
		)
		return Result{Skipped: true}
	}

	// Redelivered webhooks replay the original reply without consuming
	// rate budget or touching the ledger again.
	if cached, found, err := s.ledger.LookupReply(ctx, msg.From, msg.ID); err != nil {
		return Result{Err: fmt.Errorf("dedup lookup: %w", err)}
	} else if found {
		s.logger.Info("replaying reply for redelivered message", "sender", log.MaskSender(msg.From))
		return Result{Reply: cached}
	}

	decision, err := s.ledger.IncrementRateCounter(ctx, msg.From)
	if err != nil {
		return Result{Err: fmt.Errorf("rate counter: %w", err)}
	}
	if decision.Blocked {
		s.logger.Info("sender rate limited",
			"sender", log.MaskSender(msg.From),
			"retry_after_ms", decision.RetryAfter.Milliseconds(),
		)
		return Result{Reply: rateLimitNotice(decision.RetryAfter)}
	}

	if utf8.RuneCountInString(text) > s.config.MaxTextLength {
		s.logger.Warn("message text exceeds limit",
			"sender", log.MaskSender(msg.From),
			"length", utf8.RuneCountInString(text),
		)
		return Result{Reply: replyUsageHint}
	}

	reply, err := s.dispatch(ctx, msg.From, msg.ID, text)
	if err != nil {
		return Result{Err: err}
	}

	if err := s.ledger.RecordReply(ctx, msg.From, msg.ID, reply); err != nil {
		// The reply is still good; losing the dedup record only risks a
		// duplicate on redelivery.
		s.logger.Warn("failed to record processed message", "error", err)
	}
	return Result{Reply: reply}
}

// dispatch interprets the text and applies it to the ledger.
func (s *Server) dispatch(ctx context.Context, senderID, messageID, text string) (string, error) {
	parsed := intent.Parse(text)

	switch {
	case parsed.Command == intent.CommandUndo:
		entry, err := s.ledger.DeleteMostRecent(ctx, senderID)
		if err != nil {
			return "", fmt.Errorf("undo: %w", err)
		}
		if entry == nil {
			return replyNothingToUndo, nil
		}
		s.logger.Info("entry undone",
			"sender", log.MaskSender(senderID),
			"entry_id", entry.ID,
		)
		return undoneReply(entry), nil

	case parsed.Command == intent.CommandBalance:
		sum, err := s.ledger.Summarize(ctx, senderID)
		if err != nil {
			return "", fmt.Errorf("balance: %w", err)
		}
		return balanceReply(sum), nil

	case parsed.Transaction != nil:
		tx := parsed.Transaction
		id, err := s.ledger.InsertEntry(ctx, ledger.NewEntry{
			SenderID:    senderID,
			MessageID:   messageID,
			Description: tx.Description,
			Kind:        tx.Kind,
			Category:    tx.Category,
			Country:     tx.Country,
			Amount:      tx.Amount,
			TaxRate:     tx.TaxRate,
		})
		if err != nil {
			return "", fmt.Errorf("insert entry: %w", err)
		}
		s.logger.Info("entry recorded",
			"sender", log.MaskSender(senderID),
			"entry_id", id,
			"kind", string(tx.Kind),
		)
		return recordedReply(tx.Kind, tx.Amount.String(), tx.Category), nil

	default:
		return replyUsageHint, nil
	}
}
