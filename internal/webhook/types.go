package webhook

import (
	"context"

	"github.com/unclehq/uncle-gw/internal/config"
	"github.com/unclehq/uncle-gw/internal/ledger"
)

// Ledger is the narrow contract the controller consumes. The concrete
// collaborator (internal/ledger.Store) is injected at construction; the
// pipeline never reaches around this interface.
type Ledger interface {
	InsertEntry(ctx context.Context, e ledger.NewEntry) (string, error)
	DeleteMostRecent(ctx context.Context, senderID string) (*ledger.Entry, error)
	Summarize(ctx context.Context, senderID string) (ledger.Summary, error)
	IncrementRateCounter(ctx context.Context, senderID string) (ledger.RateDecision, error)
	LookupReply(ctx context.Context, senderID, messageID string) (string, bool, error)
	RecordReply(ctx context.Context, senderID, messageID, reply string) error
}

// ReplySender delivers reply text to a sender. Implementations are
// non-throwing; failures are reported as false and logged.
type ReplySender interface {
	SendText(ctx context.Context, to, body string) bool
}

// Config holds webhook server configuration.
type Config struct {
	Listen string

	// Path serves both the GET verification handshake and POST intake.
	Path string

	// SignatureHeader is the HTTP header containing the HMAC signature.
	SignatureHeader string

	// VerifyToken answers the provider's subscribe handshake.
	VerifyToken string

	// AppSecret signs webhook payloads. Empty only in degraded mode.
	AppSecret string

	// AllowUnsigned skips signature verification when AppSecret is empty.
	AllowUnsigned bool

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64

	// MaxTextLength caps message text before it reaches the parser.
	MaxTextLength int
}

// FromGlobalConfig projects the service configuration onto the webhook
// server's own config.
func FromGlobalConfig(cfg *config.Config) Config {
	return Config{
		Listen:          cfg.Webhook.Listen,
		Path:            cfg.Webhook.Path,
		SignatureHeader: cfg.Webhook.SignatureHeader,
		VerifyToken:     cfg.WhatsApp.VerifyToken,
		AppSecret:       cfg.WhatsApp.AppSecret,
		AllowUnsigned:   cfg.Webhook.AllowUnsigned,
		MaxBodySize:     cfg.Webhook.MaxBodySize,
		MaxTextLength:   cfg.Webhook.MaxTextLength,
	}
}

// Result is the per-message outcome of the intake loop. Failures are values
// here, not control flow: the loop continues past any single message's
// error, and Err only ever triggers a best-effort failure notice.
type Result struct {
	Reply   string
	Err     error
	Skipped bool
}

const ackBody = "EVENT_RECEIVED"
