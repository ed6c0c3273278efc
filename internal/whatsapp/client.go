package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/unclehq/uncle-gw/internal/config"
	"github.com/unclehq/uncle-gw/internal/log"
)

// MaxBodyLength is the provider's limit on outbound text bodies.
const MaxBodyLength = 4000

// Client sends text messages through the provider's Graph API with a
// bounded retry budget. Retries for one send are strictly sequential; each
// attempt is bound to its own timeout.
type Client struct {
	httpc          *http.Client
	baseURL        string
	accessToken    string
	phoneNumberID  string
	attemptTimeout time.Duration
	maxAttempts    int
	backoffBase    time.Duration
	backoffCap     time.Duration
	logger         *slog.Logger
}

// NewClient builds a Client from configuration.
func NewClient(wa config.WhatsAppConfig, delivery config.DeliveryConfig) *Client {
	return &Client{
		httpc:          &http.Client{},
		baseURL:        strings.TrimRight(wa.GraphBaseURL, "/"),
		accessToken:    wa.AccessToken,
		phoneNumberID:  wa.PhoneNumberID,
		attemptTimeout: delivery.AttemptTimeout,
		maxAttempts:    delivery.MaxAttempts,
		backoffBase:    delivery.BackoffBase,
		backoffCap:     delivery.BackoffCap,
		logger:         log.WithComponent("whatsapp"),
	}
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             sendText `json:"text"`
}

type sendText struct {
	Body string `json:"body"`
}

// SendText delivers a reply to the recipient. Non-throwing: the outcome is
// reported as a bool and logged with the recipient masked. Empty recipient
// or empty body after truncation is a skip, not an error.
func (c *Client) SendText(ctx context.Context, to, body string) bool {
	to = strings.TrimSpace(to)
	body = strings.TrimSpace(truncate(body, MaxBodyLength))

	if to == "" {
		c.logger.Warn("send skipped: empty recipient")
		return true
	}
	if body == "" {
		c.logger.Warn("send skipped: empty body", "to", log.MaskSender(to))
		return true
	}
	if c.accessToken == "" || c.phoneNumberID == "" {
		c.logger.Warn("send skipped: missing access token or phone number id",
			"to", log.MaskSender(to))
		return false
	}

	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             sendText{Body: body},
	})
	if err != nil {
		c.logger.Error("failed to marshal send request", "error", err)
		return false
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		status, retryAfter, err := c.attempt(ctx, url, payload)
		if err == nil && status >= 200 && status < 300 {
			c.logger.Info("message sent",
				"to", log.MaskSender(to),
				"attempt", attempt,
			)
			return true
		}

		retryable := err != nil || status == http.StatusTooManyRequests || status >= 500
		if !retryable {
			c.logger.Error("send failed with terminal status",
				"to", log.MaskSender(to),
				"status", status,
			)
			return false
		}

		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoff(attempt)
		if retryAfter > delay {
			delay = retryAfter
		}
		c.logger.Warn("send attempt failed, backing off",
			"to", log.MaskSender(to),
			"attempt", attempt,
			"status", status,
			"error", err,
			"delay_ms", delay.Milliseconds(),
		)
		if !sleep(ctx, delay) {
			c.logger.Warn("send abandoned: context cancelled", "to", log.MaskSender(to))
			return false
		}
	}

	c.logger.Error("send failed after retry budget exhausted",
		"to", log.MaskSender(to),
		"attempts", c.maxAttempts,
	)
	return false
}

// attempt performs one POST bound to its own timeout. Returns the HTTP
// status, any Retry-After lower bound, and a transport error if the request
// never completed.
func (c *Client) attempt(ctx context.Context, url string, payload []byte) (int, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

// backoff doubles the base delay per attempt, capped.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.backoffBase << (attempt - 1)
	if delay > c.backoffCap || delay <= 0 {
		delay = c.backoffCap
	}
	return delay
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// sleep waits for d or until ctx is done. Returns false when cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// truncate limits s to max runes without splitting a multi-byte character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
