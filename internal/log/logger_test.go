package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
)

func TestSetup(t *testing.T) {
	logger = nil
	once = *new(sync.Once)

	Setup("DEBUG")
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(slog.NewJSONHandler(&buf, nil))

	WithComponent("webhook").Info("hello")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["component"] != "webhook" {
		t.Errorf("Expected component 'webhook', got %v", out["component"])
	}
	if out["msg"] != "hello" {
		t.Errorf("Expected msg 'hello', got %v", out["msg"])
	}
}

func TestWithSenderMasksIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(slog.NewJSONHandler(&buf, nil))

	WithSender("919876543210").Info("inbound")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["sender"] != "****3210" {
		t.Errorf("Expected masked sender '****3210', got %v", out["sender"])
	}
}

func TestMaskSender(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"919876543210", "****3210"},
		{"12345", "****2345"},
		{"1234", "****"},
		{"", "****"},
	}
	for _, tt := range tests {
		if got := MaskSender(tt.in); got != tt.want {
			t.Errorf("MaskSender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
