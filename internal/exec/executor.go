package exec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jlp-hedge-bot/internal/asset"
	"jlp-hedge-bot/internal/okx"
	"jlp-hedge-bot/internal/state"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrZeroQuantity = errors.New("order quantity is zero")

const orderKeyPrefix = "order:"

type RestClient interface {
	PlaceOrder(ctx context.Context, req okx.OrderRequest) (okx.OrderAck, error)
	Order(ctx context.Context, instID, orderID string) (okx.Order, error)
}

// Request is a signed quantity in asset units. Positive buys.
type Request struct {
	Asset         asset.Asset
	InstID        string
	Quantity      decimal.Decimal
	ContractValue decimal.Decimal
}

// Trade is a placed order as read back from the exchange. Size is the
// filled quantity in asset units, signed like the request.
type Trade struct {
	Asset         asset.Asset
	InstID        string
	OrderID       string
	ClientOrderID string
	Side          okx.Side
	Contracts     decimal.Decimal
	Requested     decimal.Decimal
	Size          float64
	AvgPrice      float64
	State         string
	CreatedAt     time.Time
	// Confirmed is false when the order was accepted but the readback failed.
	Confirmed bool
}

type Executor struct {
	rest  RestClient
	store state.Store
	log   *zap.Logger
	newID func() string
}

func New(rest RestClient, store state.Store, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{rest: rest, store: store, log: log, newID: newClientOrderID}
}

// Execute places exactly one market order for req and reads it back once.
// A rejected order returns an error and no trade.
func (e *Executor) Execute(ctx context.Context, req Request) (Trade, error) {
	if req.Quantity.IsZero() {
		return Trade{}, fmt.Errorf("%s: %w", req.Asset, ErrZeroQuantity)
	}
	if req.ContractValue.Sign() <= 0 {
		return Trade{}, fmt.Errorf("%s: contract value %s must be > 0", req.Asset, req.ContractValue)
	}
	side := okx.SideBuy
	if req.Quantity.Sign() < 0 {
		side = okx.SideSell
	}
	contracts := req.Quantity.Abs().Div(req.ContractValue)
	clOrdID := e.newID()

	ack, err := e.rest.PlaceOrder(ctx, okx.OrderRequest{
		InstID:        req.InstID,
		Side:          side,
		OrderType:     "market",
		Size:          contracts.String(),
		ClientOrderID: clOrdID,
	})
	if err != nil {
		return Trade{}, fmt.Errorf("place %s %s %s: %w", side, contracts, req.InstID, err)
	}
	if ack.OrderID == "" {
		return Trade{}, fmt.Errorf("place %s %s: empty order id", side, req.InstID)
	}
	e.remember(ctx, clOrdID, ack.OrderID)

	trade := Trade{
		Asset:         req.Asset,
		InstID:        req.InstID,
		OrderID:       ack.OrderID,
		ClientOrderID: clOrdID,
		Side:          side,
		Contracts:     contracts,
		Requested:     req.Quantity,
		Size:          req.Quantity.InexactFloat64(),
	}
	order, err := e.rest.Order(ctx, req.InstID, ack.OrderID)
	if err != nil {
		e.log.Warn("order readback failed",
			zap.String("inst_id", req.InstID),
			zap.String("ord_id", ack.OrderID),
			zap.Error(err),
		)
		return trade, nil
	}
	filled := decimal.NewFromFloat(order.FilledSize).Mul(req.ContractValue)
	if side == okx.SideSell {
		filled = filled.Neg()
	}
	trade.Size = filled.InexactFloat64()
	trade.AvgPrice = order.AvgPrice
	trade.State = order.State
	trade.CreatedAt = order.CreatedAt
	trade.Confirmed = true

	e.log.Info("order executed",
		zap.String("asset", req.Asset.String()),
		zap.String("inst_id", req.InstID),
		zap.String("side", string(side)),
		zap.String("contracts", contracts.String()),
		zap.Float64("filled", trade.Size),
		zap.Float64("avg_px", trade.AvgPrice),
		zap.String("state", trade.State),
	)
	return trade, nil
}

func (e *Executor) remember(ctx context.Context, clOrdID, orderID string) {
	if e.store == nil {
		return
	}
	if err := e.store.Set(ctx, orderKeyPrefix+clOrdID, []byte(orderID)); err != nil {
		e.log.Warn("failed to persist order id", zap.Error(err))
	}
}

// newClientOrderID returns 32 alphanumerics, the longest id the exchange accepts.
func newClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
