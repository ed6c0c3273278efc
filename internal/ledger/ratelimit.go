package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IncrementRateCounter applies the fixed-window limiter for one inbound
// message. The read-modify-write runs in a single transaction so concurrent
// webhook deliveries for the same sender cannot lose updates.
//
// Window rules:
//   - no window yet: create with count=1, allow
//   - window expired: reset start to now, count=1, allow
//   - count+1 <= limit: increment, allow
//   - otherwise: leave count capped, block with the remaining window time
//
// This is a coarse fixed-window limiter; bursts straddling a window boundary
// are accepted as a known trade-off.
func (s *Store) IncrementRateCounter(ctx context.Context, senderID string) (RateDecision, error) {
	if senderID == "" {
		return RateDecision{}, fmt.Errorf("sender_id is empty")
	}

	nowMs := s.now().UnixMilli()
	windowMs := s.window.Milliseconds()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RateDecision{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		startMs int64
		count   int
	)
	err = tx.QueryRowContext(ctx,
		"SELECT window_start_ms, count FROM rate_windows WHERE sender_id = ?;",
		senderID).Scan(&startMs, &count)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO rate_windows(sender_id, window_start_ms, count) VALUES(?, ?, 1);",
			senderID, nowMs); err != nil {
			return RateDecision{}, fmt.Errorf("create rate window: %w", err)
		}

	case err != nil:
		return RateDecision{}, fmt.Errorf("read rate window: %w", err)

	case nowMs-startMs > windowMs:
		if _, err := tx.ExecContext(ctx,
			"UPDATE rate_windows SET window_start_ms = ?, count = 1 WHERE sender_id = ?;",
			nowMs, senderID); err != nil {
			return RateDecision{}, fmt.Errorf("reset rate window: %w", err)
		}

	case count+1 <= s.limit:
		if _, err := tx.ExecContext(ctx,
			"UPDATE rate_windows SET count = count + 1 WHERE sender_id = ?;",
			senderID); err != nil {
			return RateDecision{}, fmt.Errorf("increment rate window: %w", err)
		}

	default:
		// Blocked. The count stays capped at the limit.
		if err := tx.Commit(); err != nil {
			return RateDecision{}, fmt.Errorf("commit tx: %w", err)
		}
		retryAfter := time.Duration(windowMs-(nowMs-startMs)) * time.Millisecond
		if retryAfter < 0 {
			retryAfter = 0
		}
		return RateDecision{Blocked: true, RetryAfter: retryAfter}, nil
	}

	if err := tx.Commit(); err != nil {
		return RateDecision{}, fmt.Errorf("commit tx: %w", err)
	}
	return RateDecision{}, nil
}
