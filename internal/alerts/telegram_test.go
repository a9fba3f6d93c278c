package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"jlp-hedge-bot/internal/config"

	"go.uber.org/zap"
)

func boolPtr(v bool) *bool { return &v }

func TestTelegramSendDisabled(t *testing.T) {
	cfg := config.TelegramConfig{Enabled: boolPtr(false), Token: "token", ChatID: "1"}
	client := newTelegram(cfg, zap.NewNop(), "http://unused", nil)
	if err := client.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("expected nil error when disabled, got %v", err)
	}
}

func TestTelegramEnabledDefaultsFromCredentials(t *testing.T) {
	if newTelegram(config.TelegramConfig{}, nil, "http://unused", nil).Enabled() {
		t.Fatalf("expected telegram disabled without credentials")
	}
	if !newTelegram(config.TelegramConfig{Token: "t", ChatID: "1"}, nil, "http://unused", nil).Enabled() {
		t.Fatalf("expected telegram enabled with credentials")
	}
}

func TestTelegramSendMissingConfig(t *testing.T) {
	cfg := config.TelegramConfig{Enabled: boolPtr(true)}
	client := newTelegram(cfg, zap.NewNop(), "http://unused", nil)
	if err := client.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for missing token/chat_id")
	}
}

func TestTelegramSendPostsMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	cfg := config.TelegramConfig{Token: "token", ChatID: "123"}
	client := newTelegram(cfg, zap.NewNop(), server.URL, nil)
	if err := client.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("expected send success, got %v", err)
	}
	if gotPath != "/bottoken/sendMessage" {
		t.Fatalf("expected path /bottoken/sendMessage, got %s", gotPath)
	}
	if gotPayload["chat_id"] != "123" {
		t.Fatalf("expected chat_id 123, got %q", gotPayload["chat_id"])
	}
	if gotPayload["text"] != "hello" {
		t.Fatalf("expected text hello, got %q", gotPayload["text"])
	}
}

func TestTelegramSendReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	client := newTelegram(config.TelegramConfig{Token: "token", ChatID: "1"}, zap.NewNop(), server.URL, nil)
	err := client.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected chat not found error, got %v", err)
	}
}

func TestTelegramSendHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTelegram(config.TelegramConfig{Token: "token", ChatID: "1"}, zap.NewNop(), server.URL, nil)
	if err := client.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for http 401")
	}
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("⚠", maxMessageRunes+10)
	got := truncateRunes(long, maxMessageRunes)
	if utf8.RuneCountInString(got) != maxMessageRunes {
		t.Fatalf("expected %d runes, got %d", maxMessageRunes, utf8.RuneCountInString(got))
	}
}
