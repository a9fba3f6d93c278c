package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jlp-hedge-bot/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	telegramBaseURL = "https://api.telegram.org"
	maxMessageRunes = 4096
)

type Telegram struct {
	enabled bool
	token   string
	chatID  string
	client  *resty.Client
	log     *zap.Logger
}

func NewTelegram(cfg config.TelegramConfig, log *zap.Logger) *Telegram {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramBaseURL
	}
	return newTelegram(cfg, log, baseURL, resty.New().SetTimeout(cfg.Timeout))
}

func newTelegram(cfg config.TelegramConfig, log *zap.Logger, baseURL string, client *resty.Client) *Telegram {
	if client == nil {
		client = resty.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	return &Telegram{
		enabled: cfg.EnabledValue(),
		token:   strings.TrimSpace(cfg.Token),
		chatID:  strings.TrimSpace(cfg.ChatID),
		client:  client,
		log:     log,
	}
}

func (t *Telegram) Enabled() bool {
	return t.enabled
}

// Send delivers message once. Messages over the Telegram limit are cut.
func (t *Telegram) Send(ctx context.Context, message string) error {
	if !t.enabled {
		t.log.Debug("telegram disabled, message dropped")
		return nil
	}
	if t.token == "" || t.chatID == "" {
		return errors.New("telegram token and chat_id are required")
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("telegram message is empty")
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"chat_id": t.chatID,
			"text":    truncateRunes(message, maxMessageRunes),
		}).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram send failed: http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err == nil && !result.OK {
		desc := strings.TrimSpace(result.Description)
		if desc == "" {
			desc = "unknown telegram error"
		}
		return fmt.Errorf("telegram send failed: %s", desc)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
