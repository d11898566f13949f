package og

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/internal/obs"
	"dipbot/internal/recorder"
	"dipbot/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// Exchange is the connectivity layer the gateway drives. Implementations do
// not retry; ErrOrderNotFound must be returned when cancelling an order that
// is no longer open.
type Exchange interface {
	PlaceOrder(ctx context.Context, req adapter.OrderRequest) (adapter.Order, error)
	CancelOrder(ctx context.Context, symbol string, id adapter.OrderID) error
	ListOpenOrders(ctx context.Context, symbol string) ([]adapter.Order, error)
	GetOrder(ctx context.Context, symbol string, id adapter.OrderID) (adapter.Order, error)
}

// GatewayConfig controls one gateway instance. A gateway serves one symbol.
type GatewayConfig struct {
	Symbol    string
	SessionID string
	// Tag prefixes client order ids, default "dl", at most 8 characters.
	Tag string
}

// Gateway is a thin façade over the exchange for one symbol. It translates
// failures into *GatewayError and keeps a ledger of its own actions.
type Gateway struct {
	cfg      GatewayConfig
	exchange Exchange
	ledger   *Ledger
	metrics  *obs.Metrics
	journal  recorder.Recorder
}

// NewGateway creates a gateway. metrics and journal may be nil.
func NewGateway(cfg GatewayConfig, exchange Exchange, metrics *obs.Metrics, journal recorder.Recorder) *Gateway {
	cfg.Symbol = adapter.NormalizeSymbol(cfg.Symbol)
	if cfg.Tag == "" {
		cfg.Tag = "dl"
	}
	if len(cfg.Tag) > 8 {
		cfg.Tag = cfg.Tag[:8]
	}
	if journal == nil {
		journal = recorder.Nop{}
	}
	return &Gateway{
		cfg:      cfg,
		exchange: exchange,
		ledger:   NewLedger(),
		metrics:  metrics,
		journal:  journal,
	}
}

// Symbol returns the symbol the gateway trades.
func (g *Gateway) Symbol() string {
	return g.cfg.Symbol
}

// Ledger returns the record of orders placed and cancelled by this gateway.
func (g *Gateway) Ledger() *Ledger {
	return g.ledger
}

// CanceledByUs reports whether this gateway cancelled id.
func (g *Gateway) CanceledByUs(id adapter.OrderID) bool {
	return g.ledger.CanceledByUs(id)
}

// PlaceLimitOrder submits a resting GTC limit order for leg.
func (g *Gateway) PlaceLimitOrder(ctx context.Context, leg enum.Leg, side enum.OrderSide, price, qty decimal.Decimal) (adapter.Order, error) {
	return g.place(ctx, leg, adapter.OrderRequest{
		Symbol:   g.cfg.Symbol,
		Side:     side,
		Kind:     enum.OrderKindLimit,
		Price:    price,
		Quantity: qty,
	})
}

// PlaceStopMarketOrder submits a market order triggered at stopPrice for leg.
func (g *Gateway) PlaceStopMarketOrder(ctx context.Context, leg enum.Leg, side enum.OrderSide, stopPrice, qty decimal.Decimal) (adapter.Order, error) {
	return g.place(ctx, leg, adapter.OrderRequest{
		Symbol:   g.cfg.Symbol,
		Side:     side,
		Kind:     enum.OrderKindStopMarket,
		Price:    stopPrice,
		Quantity: qty,
	})
}

func (g *Gateway) place(ctx context.Context, leg enum.Leg, req adapter.OrderRequest) (adapter.Order, error) {
	if !req.IsValid() {
		return adapter.Order{}, g.fail(OpPlace, "invalid request", fmt.Errorf("%w: %s %s %s x %s",
			exception.ErrOrderInvalidRequest, req.Side, req.Kind, req.Price, req.Quantity))
	}
	req.ClientOrderID = g.newClientOrderID(leg)

	order, err := g.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return adapter.Order{}, g.fail(OpPlace, fmt.Sprintf("place %s %s", leg, req.Kind), err)
	}
	if order.ID.IsEmpty() {
		return adapter.Order{}, g.fail(OpPlace, fmt.Sprintf("place %s %s", leg, req.Kind), exception.ErrOrderEmptyID)
	}

	if err := g.ledger.ApplyPlaced(leg, order); err != nil {
		logs.Warnf("[%s] ledger %s order %s, err: %+v", g.cfg.Symbol, leg, order.ID, err)
	}
	g.metrics.ObserveOrderPlaced(g.cfg.Symbol, leg, req.Kind)
	g.record(ctx, recorder.EntryFromOrder(g.cfg.SessionID, recorder.ActionPlaced, leg, order))
	logs.Infof("[%s] placed %s %s %s %s x %s, id: %s, status: %s",
		g.cfg.Symbol, leg, order.Kind, order.Side, order.Price, order.Quantity, order.ID, order.Status)

	// The entry's status is followed by the caller; any other leg must rest
	// on the book or have filled, or it would later read as a fill.
	if leg != enum.LegEntry && !order.Status.IsOpen() && order.Status != enum.OrderStatusFilled {
		return adapter.Order{}, g.fail(OpPlace, fmt.Sprintf("%s %s rejected by venue", leg, req.Kind),
			fmt.Errorf("%w: %s is %s", exception.ErrOrderRejected, order.ID, order.Status))
	}
	return order, nil
}

// CancelAllOpenOrders cancels every open order of the symbol. Orders that are
// already gone are skipped silently and single cancel failures are logged
// without stopping the sweep. Only a failure to list open orders is returned.
func (g *Gateway) CancelAllOpenOrders(ctx context.Context) error {
	open, err := g.exchange.ListOpenOrders(ctx, g.cfg.Symbol)
	if err != nil {
		return g.fail(OpList, "list open orders for sweep", err)
	}

	var canceled, failed int
	for _, order := range open {
		err := g.exchange.CancelOrder(ctx, g.cfg.Symbol, order.ID)
		switch {
		case err == nil:
			canceled++
			g.ledger.ApplyCanceled(order.ID)
			g.metrics.ObserveOrderCanceled(g.cfg.Symbol)
			g.record(ctx, recorder.EntryFromOrder(g.cfg.SessionID, recorder.ActionCanceled, g.legOf(order.ID), order))
		case errors.Is(err, exception.ErrOrderNotFound):
			logs.Debugf("[%s] cancel %s skipped, already resolved", g.cfg.Symbol, order.ID)
		default:
			failed++
			g.metrics.ObserveGatewayError(g.cfg.Symbol, string(OpCancel))
			logs.Warnf("[%s] cancel %s, err: %+v", g.cfg.Symbol, order.ID, err)
		}
	}

	if len(open) != 0 {
		logs.Infof("[%s] cancel sweep done, open: %d, canceled: %d, failed: %d", g.cfg.Symbol, len(open), canceled, failed)
	}
	return nil
}

// ListOpenOrderIDs returns the current open-order snapshot of the symbol.
func (g *Gateway) ListOpenOrderIDs(ctx context.Context) (adapter.IDSet, error) {
	open, err := g.exchange.ListOpenOrders(ctx, g.cfg.Symbol)
	if err != nil {
		return nil, g.fail(OpList, "list open orders", err)
	}
	ids := make(adapter.IDSet, len(open))
	for _, order := range open {
		ids.Add(order.ID)
	}
	return ids, nil
}

// GetOrder returns a point-in-time view of one order.
func (g *Gateway) GetOrder(ctx context.Context, id adapter.OrderID) (adapter.Order, error) {
	order, err := g.exchange.GetOrder(ctx, g.cfg.Symbol, id)
	if err != nil {
		return adapter.Order{}, g.fail(OpQuery, "query order "+id.String(), err)
	}
	return order, nil
}

// GetOrderStatus returns the current status of one order.
func (g *Gateway) GetOrderStatus(ctx context.Context, id adapter.OrderID) (enum.OrderStatus, error) {
	order, err := g.GetOrder(ctx, id)
	if err != nil {
		return 0, err
	}
	return order.Status, nil
}

func (g *Gateway) fail(op Op, reason string, err error) error {
	g.metrics.ObserveGatewayError(g.cfg.Symbol, string(op))
	return &GatewayError{Op: op, Symbol: g.cfg.Symbol, Reason: reason, Err: err}
}

func (g *Gateway) legOf(id adapter.OrderID) enum.Leg {
	if r, ok := g.ledger.Record(id); ok {
		return r.Leg
	}
	return 0
}

func (g *Gateway) record(ctx context.Context, entry recorder.Entry) {
	entry.CreatedAt = time.Now()
	if err := g.journal.Record(ctx, entry); err != nil {
		logs.Warnf("[%s] journal %s, err: %+v", g.cfg.Symbol, entry.Action, err)
	}
}

// newClientOrderID builds an id within the exchange's 36 character limit.
func (g *Gateway) newClientOrderID(leg enum.Leg) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return g.cfg.Tag + "-" + leg.Code() + "-" + id[:24]
}
