package config

import "time"

// Config represents the complete uncle-gw configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	State     StateConfig     `yaml:"state"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string        `yaml:"name"`
	LogLevel  string        `yaml:"log_level"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// WebhookConfig defines the inbound webhook listener.
type WebhookConfig struct {
	Listen string `yaml:"listen"`

	// Path is the URL path registered for both the GET verification
	// handshake and the POST message endpoint.
	Path string `yaml:"path"`

	// SignatureHeader is the HTTP header carrying the HMAC signature.
	SignatureHeader string `yaml:"signature_header"`

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`

	// MaxTextLength caps inbound message text before it reaches the parser.
	MaxTextLength int `yaml:"max_text_length,omitempty"`

	// AllowUnsigned permits processing without signature verification when
	// no app secret is configured. Development/degraded mode only.
	AllowUnsigned bool `yaml:"allow_unsigned,omitempty"`
}

// WhatsAppConfig holds the provider credentials and endpoints. All values
// are opaque to the pipeline and normally injected via ${ENV} references.
type WhatsAppConfig struct {
	VerifyToken   string `yaml:"verify_token"`
	AppSecret     string `yaml:"app_secret"`
	AccessToken   string `yaml:"access_token"`
	PhoneNumberID string `yaml:"phone_number_id"`
	GraphBaseURL  string `yaml:"graph_base_url,omitempty"`
}

// RateLimitConfig defines the fixed-window limiter.
type RateLimitConfig struct {
	Window time.Duration `yaml:"window"`
	Limit  int           `yaml:"limit"`
}

// DeliveryConfig defines outbound send retry behavior.
type DeliveryConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffCap     time.Duration `yaml:"backoff_cap"`
}

// Default values applied by Load when the file omits them.
const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultPath            = "/webhooks/whatsapp"
	DefaultSignatureHeader = "X-Hub-Signature-256"
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultMaxTextLength   = 1000
	DefaultGraphBaseURL    = "https://graph.facebook.com/v20.0"
	DefaultRateLimit       = 15
)

const (
	DefaultRateWindow     = 60 * time.Second
	DefaultDedupeTTL      = 24 * time.Hour
	DefaultAttemptTimeout = 7 * time.Second
	DefaultBackoffBase    = 1 * time.Second
	DefaultBackoffCap     = 8 * time.Second
)

// DefaultMaxAttempts is the total outbound attempt budget per send.
const DefaultMaxAttempts = 3

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "uncle-gw",
			LogLevel:  "INFO",
			DedupeTTL: DefaultDedupeTTL,
		},
		State: StateConfig{
			Path: "state/uncle-gw.db",
		},
		Webhook: WebhookConfig{
			Listen:          DefaultListen,
			Path:            DefaultPath,
			SignatureHeader: DefaultSignatureHeader,
			MaxBodySize:     DefaultMaxBodySize,
			MaxTextLength:   DefaultMaxTextLength,
		},
		WhatsApp: WhatsAppConfig{
			GraphBaseURL: DefaultGraphBaseURL,
		},
		RateLimit: RateLimitConfig{
			Window: DefaultRateWindow,
			Limit:  DefaultRateLimit,
		},
		Delivery: DeliveryConfig{
			AttemptTimeout: DefaultAttemptTimeout,
			MaxAttempts:    DefaultMaxAttempts,
			BackoffBase:    DefaultBackoffBase,
			BackoffCap:     DefaultBackoffCap,
		},
	}
}
