package okx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"jlp-hedge-bot/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	tickerPath    = "/api/v5/market/ticker"
	positionsPath = "/api/v5/account/positions"
	orderPath     = "/api/v5/trade/order"
)

type Client struct {
	http       *resty.Client
	apiKey     string
	secret     string
	passphrase string
	tradeMode  string
	now        func() time.Time
	log        *zap.Logger
}

func New(cfg config.OKXConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.SimulatedValue() {
		r.SetHeader("x-simulated-trading", "1")
	}
	return &Client{
		http:       r,
		apiKey:     cfg.APIKey,
		secret:     cfg.Secret,
		passphrase: cfg.Passphrase,
		tradeMode:  cfg.TradeMode,
		now:        time.Now,
		log:        log,
	}
}

// Ticker returns the last traded price of instID.
func (c *Client) Ticker(ctx context.Context, instID string) (float64, error) {
	path := tickerPath + "?" + url.Values{"instId": {instID}}.Encode()
	env, err := call[rawTicker](ctx, c, http.MethodGet, path, nil, false)
	if err != nil {
		return 0, err
	}
	if len(env.Data) == 0 {
		return 0, fmt.Errorf("okx ticker %s: empty data", instID)
	}
	last, ok := parseNumber(env.Data[0].Last)
	if !ok {
		return 0, fmt.Errorf("okx ticker %s: invalid last price %q", instID, env.Data[0].Last)
	}
	return last, nil
}

func (c *Client) Positions(ctx context.Context, instType string) ([]Position, error) {
	path := positionsPath
	if instType != "" {
		path += "?" + url.Values{"instType": {instType}}.Encode()
	}
	env, err := call[rawPosition](ctx, c, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	out := make([]Position, 0, len(env.Data))
	for _, raw := range env.Data {
		pos, err := raw.position()
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

// PlaceOrder submits req once. A rejected order yields an *APIError carrying
// the per-order code when the exchange supplies one.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	if req.TradeMode == "" {
		req.TradeMode = c.tradeMode
	}
	if req.OrderType == "" {
		req.OrderType = "market"
	}
	env, err := call[OrderAck](ctx, c, http.MethodPost, orderPath, req, true)
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(env.Data) > 0 && env.Data[0].SCode != "" && env.Data[0].SCode != "0" {
		return OrderAck{}, &APIError{Code: env.Data[0].SCode, Msg: env.Data[0].SMsg}
	}
	if err != nil {
		return OrderAck{}, err
	}
	if len(env.Data) == 0 {
		return OrderAck{}, errors.New("okx place order: empty data")
	}
	ack := env.Data[0]
	if ack.SCode != "" && ack.SCode != "0" {
		return OrderAck{}, &APIError{Code: ack.SCode, Msg: ack.SMsg}
	}
	c.log.Info("order accepted",
		zap.String("inst_id", req.InstID),
		zap.String("side", string(req.Side)),
		zap.String("size", req.Size),
		zap.String("ord_id", ack.OrderID),
	)
	return ack, nil
}

// Order reads back one order by exchange id.
func (c *Client) Order(ctx context.Context, instID, orderID string) (Order, error) {
	path := orderPath + "?" + url.Values{"instId": {instID}, "ordId": {orderID}}.Encode()
	env, err := call[rawOrder](ctx, c, http.MethodGet, path, nil, true)
	if err != nil {
		return Order{}, err
	}
	if len(env.Data) == 0 {
		return Order{}, fmt.Errorf("okx order %s: not found", orderID)
	}
	return env.Data[0].order(), nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any, private bool) (envelope[T], error) {
	var env envelope[T]
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return env, err
		}
	}
	req := c.http.R().SetContext(ctx)
	if payload != nil {
		req.SetBody(payload)
	}
	if private {
		ts := formatTimestamp(c.now())
		req.SetHeaders(map[string]string{
			"OK-ACCESS-KEY":        c.apiKey,
			"OK-ACCESS-SIGN":       Sign(c.secret, ts, method, path, payload),
			"OK-ACCESS-TIMESTAMP":  ts,
			"OK-ACCESS-PASSPHRASE": c.passphrase,
		})
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return env, fmt.Errorf("okx %s %s: %w", method, path, err)
	}
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		if resp.IsError() {
			return env, fmt.Errorf("okx %s %s: http %d: %s", method, path, resp.StatusCode(), truncate(resp.String(), 512))
		}
		return env, fmt.Errorf("okx %s %s: decode: %w", method, path, err)
	}
	if env.Code != "0" {
		return env, &APIError{Code: env.Code, Msg: env.Msg}
	}
	if resp.IsError() {
		return env, fmt.Errorf("okx %s %s: http %d", method, path, resp.StatusCode())
	}
	return env, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
