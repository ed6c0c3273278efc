package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a YAML file. Environment variable
// references of the form ${VAR} are expanded before parsing so that secrets
// (app secret, access token, verify token) never need to live in the file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	expanded := expandEnvVars(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables keep the placeholder so validation can flag them.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// applyDefaults fills zero values the YAML file left out. Defaults() seeds
// most of them, but explicit empty strings in the file reset fields.
func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "uncle-gw"
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = "INFO"
	}
	if cfg.Service.DedupeTTL <= 0 {
		cfg.Service.DedupeTTL = DefaultDedupeTTL
	}
	if cfg.Webhook.Listen == "" {
		cfg.Webhook.Listen = DefaultListen
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = DefaultPath
	}
	if cfg.Webhook.SignatureHeader == "" {
		cfg.Webhook.SignatureHeader = DefaultSignatureHeader
	}
	if cfg.Webhook.MaxBodySize <= 0 {
		cfg.Webhook.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Webhook.MaxTextLength <= 0 {
		cfg.Webhook.MaxTextLength = DefaultMaxTextLength
	}
	if cfg.WhatsApp.GraphBaseURL == "" {
		cfg.WhatsApp.GraphBaseURL = DefaultGraphBaseURL
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = DefaultRateWindow
	}
	if cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = DefaultRateLimit
	}
	if cfg.Delivery.AttemptTimeout <= 0 {
		cfg.Delivery.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.Delivery.MaxAttempts <= 0 {
		cfg.Delivery.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Delivery.BackoffBase <= 0 {
		cfg.Delivery.BackoffBase = DefaultBackoffBase
	}
	if cfg.Delivery.BackoffCap <= 0 {
		cfg.Delivery.BackoffCap = DefaultBackoffCap
	}
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}
	if !validLogLevels[strings.ToUpper(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}

	if cfg.WhatsApp.VerifyToken == "" || unresolvedRef(cfg.WhatsApp.VerifyToken) {
		return fmt.Errorf("whatsapp.verify_token is required (set WHATSAPP_VERIFY_TOKEN)")
	}
	if unresolvedRef(cfg.WhatsApp.AppSecret) {
		return fmt.Errorf("whatsapp.app_secret references an unset environment variable")
	}
	if cfg.WhatsApp.AppSecret == "" && !cfg.Webhook.AllowUnsigned {
		return fmt.Errorf("whatsapp.app_secret is required unless webhook.allow_unsigned is set")
	}
	if unresolvedRef(cfg.WhatsApp.AccessToken) {
		return fmt.Errorf("whatsapp.access_token references an unset environment variable")
	}

	if cfg.RateLimit.Limit <= 0 {
		return fmt.Errorf("rate_limit.limit must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}

	if cfg.Delivery.MaxAttempts < 1 || cfg.Delivery.MaxAttempts > 5 {
		return fmt.Errorf("delivery.max_attempts must be between 1 and 5 (got %d)", cfg.Delivery.MaxAttempts)
	}
	if cfg.Delivery.BackoffCap < cfg.Delivery.BackoffBase {
		return fmt.Errorf("delivery.backoff_cap must be >= delivery.backoff_base")
	}

	return nil
}

// unresolvedRef reports whether a value still carries an unexpanded ${VAR}
// placeholder after env expansion.
func unresolvedRef(v string) bool {
	return envVarPattern.MatchString(v)
}
