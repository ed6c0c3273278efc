package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unclehq/uncle-gw/internal/config"
)

func testClient(t *testing.T, serverURL string, maxAttempts int) *Client {
	t.Helper()
	return NewClient(
		config.WhatsAppConfig{
			GraphBaseURL:  serverURL,
			AccessToken:   "test-token",
			PhoneNumberID: "550123",
		},
		config.DeliveryConfig{
			AttemptTimeout: 500 * time.Millisecond,
			MaxAttempts:    maxAttempts,
			BackoffBase:    time.Millisecond,
			BackoffCap:     8 * time.Millisecond,
		},
	)
}

func TestSendTextSuccess(t *testing.T) {
	t.Parallel()

	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/550123/messages" {
			t.Errorf("path = %s, want /550123/messages", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL, 3)
	if !c.SendText(context.Background(), "919876543210", "✅ Recorded") {
		t.Fatal("SendText should succeed")
	}

	if got.MessagingProduct != "whatsapp" {
		t.Errorf("messaging_product = %q", got.MessagingProduct)
	}
	if got.To != "919876543210" {
		t.Errorf("to = %q", got.To)
	}
	if got.Type != "text" {
		t.Errorf("type = %q", got.Type)
	}
	if got.Text.Body != "✅ Recorded" {
		t.Errorf("text.body = %q", got.Text.Body)
	}
}

func TestSendTextRetriesOn429ThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL, 3)
	if !c.SendText(context.Background(), "1234567", "hello") {
		t.Fatal("SendText should succeed on retry")
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSendTextExhaustsBudgetOn5xx(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL, 3)
	if c.SendText(context.Background(), "1234567", "hello") {
		t.Fatal("SendText should fail after retry budget")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want full budget of 3", calls.Load())
	}
}

func TestSendTextTerminalOn4xx(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL, 3)
	if c.SendText(context.Background(), "1234567", "hello") {
		t.Fatal("SendText should fail on 400")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, 4xx must not be retried", calls.Load())
	}
}

func TestSendTextRetriesOnTimeout(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL, 2)
	c.attemptTimeout = 20 * time.Millisecond

	if c.SendText(context.Background(), "1234567", "hello") {
		t.Fatal("SendText should fail when every attempt times out")
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSendTextSkipsEmptyInput(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be issued for empty input")
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL, 3)
	if !c.SendText(context.Background(), "", "hello") {
		t.Error("empty recipient is a skip, not a failure")
	}
	if !c.SendText(context.Background(), "1234567", "   ") {
		t.Error("empty body after trimming is a skip, not a failure")
	}
}

func TestSendTextTruncatesBody(t *testing.T) {
	t.Parallel()

	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}

	c := testClient(t, srv.URL, 1)
	if !c.SendText(context.Background(), "1234567", string(long)) {
		t.Fatal("SendText should succeed")
	}
	if len(got.Text.Body) != MaxBodyLength {
		t.Errorf("body length = %d, want %d", len(got.Text.Body), MaxBodyLength)
	}
}

func TestEnvelopeValue(t *testing.T) {
	t.Parallel()

	var empty Envelope
	if empty.Value() != nil {
		t.Error("empty envelope should have no value")
	}

	env := Envelope{Entry: []EnvelopeEntry{{Changes: []EnvelopeChange{{
		Value: EnvelopeValue{Messages: []Message{{ID: "wamid.1", From: "1", Type: "text", Text: &TextBody{Body: "hi"}}}},
	}}}}}
	v := env.Value()
	if v == nil || len(v.Messages) != 1 {
		t.Fatal("expected one message")
	}
	if v.Messages[0].TextContent() != "hi" {
		t.Errorf("TextContent = %q", v.Messages[0].TextContent())
	}
}
