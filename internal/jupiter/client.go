package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"jlp-hedge-bot/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrNoPrice = errors.New("no price quoted")

// Balance is one token holding of a wallet.
type Balance struct {
	Amount   string  `json:"amount"`
	UIAmount float64 `json:"uiAmount"`
	IsFrozen bool    `json:"isFrozen"`
}

type priceEntry struct {
	ID    string      `json:"id"`
	Type  string      `json:"type"`
	Price json.Number `json:"price"`
}

type priceResponse struct {
	Data map[string]*priceEntry `json:"data"`
}

type Client struct {
	http *resty.Client
	log  *zap.Logger
}

func New(cfg config.JupiterConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http: resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(cfg.Timeout),
		log:  log,
	}
}

// Price returns the USD price of a token mint.
func (c *Client) Price(ctx context.Context, mint string) (float64, error) {
	var out priceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("ids", mint).
		Get("/price/v2")
	if err != nil {
		return 0, fmt.Errorf("jupiter price %s: %w", mint, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("jupiter price %s: http %d", mint, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, fmt.Errorf("jupiter price %s: decode: %w", mint, err)
	}
	entry := out.Data[mint]
	if entry == nil || entry.Price == "" {
		return 0, fmt.Errorf("%w for %s", ErrNoPrice, mint)
	}
	price, err := entry.Price.Float64()
	if err != nil {
		return 0, fmt.Errorf("jupiter price %s: %w", mint, err)
	}
	return price, nil
}

// Balances returns every token balance of address keyed by mint, with the
// native gas token under its symbol.
func (c *Client) Balances(ctx context.Context, address string) (map[string]Balance, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/ultra/v1/balances/" + url.PathEscape(address))
	if err != nil {
		return nil, fmt.Errorf("jupiter balances: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("jupiter balances: http %d: %s", resp.StatusCode(), resp.String())
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("jupiter balances: decode: %w", err)
	}
	if msg, ok := raw["error"]; ok {
		var text string
		if json.Unmarshal(msg, &text) != nil {
			text = string(msg)
		}
		return nil, fmt.Errorf("jupiter balances: %s", text)
	}
	out := make(map[string]Balance, len(raw))
	for key, value := range raw {
		var b Balance
		if err := json.Unmarshal(value, &b); err != nil {
			c.log.Debug("skipping balance entry", zap.String("key", key), zap.Error(err))
			continue
		}
		out[key] = b
	}
	return out, nil
}
