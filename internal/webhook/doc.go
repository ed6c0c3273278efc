// Package webhook implements the WhatsApp webhook endpoint with HMAC-SHA256 verification.
//
// The endpoint serves two verbs on a single path: GET answers the provider's
// subscribe handshake (hub.mode/hub.verify_token/hub.challenge), and POST is
// the message intake. Inbound messages flow through dedup, rate limiting,
// intent parsing, and ledger dispatch, and the reply is delivered back over
// the provider's send API.
//
// # Security Model
//
// - HMAC-SHA256 signatures verified using crypto/subtle (constant-time comparison)
// - Raw body read exactly once, verified before any JSON parsing
// - Body size limits enforced to prevent DoS attacks
// - No signature details leaked in error responses (always generic 403)
// - Request logging excludes payloads and full sender identities
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured path
//  2. Body read once through a size-limited reader
//  3. Signature header extracted and HMAC-SHA256 verified (403 on mismatch)
//  4. Envelope parsed; delivery/read receipts acknowledged and dropped
//  5. Each message runs through dedup, rate limit, parse, ledger dispatch
//  6. Reply sent to the sender; failures are logged, never bounced
//  7. 200 with "EVENT_RECEIVED" returned
//
// # Error Responses
//
// - 403 Forbidden: Invalid or missing signature (no details)
// - 200 OK: Everything else, including malformed and oversized payloads;
//   non-200 responses would only trigger provider redelivery of input that
//   will never become valid
//
// # Example Usage
//
//	cfg := webhook.FromGlobalConfig(globalCfg)
//	server := webhook.New(cfg, store, client, logger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
