package ledger

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// messageDigest keys the processed-message cache. The provider message id
// and sender identity are hashed together so transport identifiers never
// land in the cache table verbatim.
func messageDigest(senderID, messageID string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(senderID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(messageID))
	return hex.EncodeToString(h.Sum(nil))
}

// LookupReply returns the cached reply for a previously processed message,
// if any. Used to replay the original reply when the provider re-delivers a
// webhook, without consuming rate budget or touching the ledger again.
func (s *Store) LookupReply(ctx context.Context, senderID, messageID string) (string, bool, error) {
	var reply string
	err := s.db.QueryRowContext(ctx,
		"SELECT reply FROM processed_messages WHERE digest = ?;",
		messageDigest(senderID, messageID)).Scan(&reply)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup processed message: %w", err)
	}
	return reply, true, nil
}

// RecordReply stores the reply produced for a message and prunes cache rows
// older than the dedupe TTL. Replaying an id that is already recorded keeps
// the first reply.
func (s *Store) RecordReply(ctx context.Context, senderID, messageID, reply string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO processed_messages(digest, reply, created_at)
VALUES(?, ?, ?)
ON CONFLICT(digest) DO NOTHING;
`, messageDigest(senderID, messageID), reply, now.UnixNano())
	if err != nil {
		return fmt.Errorf("record processed message: %w", err)
	}

	cutoff := now.Add(-s.dedupeTTL).UnixNano()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM processed_messages WHERE created_at < ?;", cutoff); err != nil {
		return fmt.Errorf("prune processed messages: %w", err)
	}
	return nil
}
