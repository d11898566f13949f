package paper

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// Exchange is an in-memory venue. Limit orders rest until the mark price
// crosses them; stop-market orders trigger when the mark reaches the stop.
// Every method is safe for concurrent use.
type Exchange struct {
	mu      sync.Mutex
	seq     int64
	mark    map[string]decimal.Decimal
	symbols map[string]adapter.SymbolMeta
	orders  map[adapter.OrderID]*adapter.Order
	seqIDs  []adapter.OrderID
	placed  int
	reject  int

	faults *Faults
}

// New creates an empty paper venue. faults may be nil.
func New(faults *Faults) *Exchange {
	return &Exchange{
		mark:    make(map[string]decimal.Decimal),
		symbols: make(map[string]adapter.SymbolMeta),
		orders:  make(map[adapter.OrderID]*adapter.Order),
		faults:  faults,
	}
}

// Faults returns the injector; nil when the venue was built without one.
func (e *Exchange) Faults() *Faults {
	return e.faults
}

// AddSymbol lists a trading pair on the venue.
func (e *Exchange) AddSymbol(meta adapter.SymbolMeta) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.symbols[meta.Symbol] = meta
}

func (e *Exchange) FetchSymbolMetadata(_ context.Context, symbol string) (adapter.SymbolMeta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	meta, ok := e.symbols[symbol]
	if !ok {
		return adapter.SymbolMeta{}, fmt.Errorf("%w: %s not listed", exception.ErrInvalidSymbol, symbol)
	}
	return meta, nil
}

// MarkPrice returns the last tick of symbol.
func (e *Exchange) MarkPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	if p, ok := e.Mark(symbol); ok {
		return p, nil
	}
	return decimal.Zero, fmt.Errorf("%w: no mark price for %s", exception.ErrInvalidSymbol, symbol)
}

// RejectNext makes the next placement come back with status REJECTED.
func (e *Exchange) RejectNext() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reject++
}

func (e *Exchange) PlaceOrder(_ context.Context, req adapter.OrderRequest) (adapter.Order, error) {
	if err := e.faults.check(OpPlace); err != nil {
		return adapter.Order{}, err
	}
	if !req.IsValid() {
		return adapter.Order{}, exception.ErrOrderInvalidRequest
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mark, hasMark := e.mark[req.Symbol]
	if req.Kind == enum.OrderKindStopMarket && hasMark && triggered(req.Side, req.Price, mark) {
		return adapter.Order{}, fmt.Errorf("%w: stop %s would immediately trigger at mark %s",
			exception.ErrOrderInvalidRequest, req.Price, mark)
	}

	e.seq++
	order := &adapter.Order{
		ID:            adapter.OrderID(strconv.FormatInt(e.seq, 10)),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Kind:          req.Kind,
		Price:         req.Price,
		Quantity:      req.Quantity,
		Filled:        decimal.Zero,
		Status:        enum.OrderStatusOpen,
		UpdatedTime:   time.Now().UnixMilli(),
	}
	e.orders[order.ID] = order
	e.seqIDs = append(e.seqIDs, order.ID)
	e.placed++

	switch {
	case e.reject > 0:
		e.reject--
		order.Status = enum.OrderStatusRejected
	case req.Kind == enum.OrderKindLimit && hasMark && crossed(req.Side, req.Price, mark):
		e.fill(order)
	}
	return *order, nil
}

func (e *Exchange) CancelOrder(_ context.Context, symbol string, id adapter.OrderID) error {
	if err := e.faults.check(OpCancel); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[id]
	if !ok || order.Symbol != symbol || !order.Status.IsOpen() {
		return fmt.Errorf("%w: %s", exception.ErrOrderNotFound, id)
	}
	order.Status = enum.OrderStatusCanceled
	order.UpdatedTime = time.Now().UnixMilli()
	return nil
}

func (e *Exchange) ListOpenOrders(_ context.Context, symbol string) ([]adapter.Order, error) {
	if err := e.faults.check(OpList); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var out []adapter.Order
	for _, id := range e.seqIDs {
		order := e.orders[id]
		if order.Symbol == symbol && order.Status.IsOpen() {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (e *Exchange) GetOrder(_ context.Context, symbol string, id adapter.OrderID) (adapter.Order, error) {
	if err := e.faults.check(OpQuery); err != nil {
		return adapter.Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[id]
	if !ok || order.Symbol != symbol {
		return adapter.Order{}, fmt.Errorf("%w: %s", exception.ErrOrderNotFound, id)
	}
	return *order, nil
}

// Tick moves the mark price of symbol and fills every open order it crosses.
// It returns the orders that filled, in placement order.
func (e *Exchange) Tick(symbol string, price decimal.Decimal) []adapter.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mark[symbol] = price
	var filled []adapter.Order
	for _, id := range e.seqIDs {
		order := e.orders[id]
		if order.Symbol != symbol || !order.Status.IsOpen() {
			continue
		}
		hit := false
		switch order.Kind {
		case enum.OrderKindLimit:
			hit = crossed(order.Side, order.Price, price)
		case enum.OrderKindStopMarket:
			hit = triggered(order.Side, order.Price, price)
		}
		if hit {
			e.fill(order)
			filled = append(filled, *order)
		}
	}
	return filled
}

// Mark returns the last mark price of symbol.
func (e *Exchange) Mark(symbol string) (decimal.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.mark[symbol]
	return p, ok
}

// Fill fills an open order regardless of the mark.
func (e *Exchange) Fill(id adapter.OrderID) error {
	return e.resolve(id, enum.OrderStatusFilled)
}

// Expire removes an open order the way the venue would, without a fill.
func (e *Exchange) Expire(id adapter.OrderID) error {
	return e.resolve(id, enum.OrderStatusExpired)
}

// Orders returns every order ever placed, in placement order.
func (e *Exchange) Orders() []adapter.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]adapter.Order, 0, len(e.seqIDs))
	for _, id := range e.seqIDs {
		out = append(out, *e.orders[id])
	}
	return out
}

// PlaceCount returns the number of accepted placements.
func (e *Exchange) PlaceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placed
}

func (e *Exchange) resolve(id adapter.OrderID, status enum.OrderStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[id]
	if !ok || !order.Status.IsOpen() {
		return fmt.Errorf("%w: %s", exception.ErrOrderNotFound, id)
	}
	if status == enum.OrderStatusFilled {
		e.fill(order)
		return nil
	}
	order.Status = status
	order.UpdatedTime = time.Now().UnixMilli()
	return nil
}

func (e *Exchange) fill(order *adapter.Order) {
	order.Status = enum.OrderStatusFilled
	order.Filled = order.Quantity
	order.UpdatedTime = time.Now().UnixMilli()
	logs.Debugf("[%s] paper fill %s %s %s x %s", order.Symbol, order.ID, order.Side, order.Price, order.Quantity)
}

// crossed reports whether a limit order at price is marketable at mark.
func crossed(side enum.OrderSide, price, mark decimal.Decimal) bool {
	if side == enum.OrderSideBuy {
		return mark.LessThanOrEqual(price)
	}
	return mark.GreaterThanOrEqual(price)
}

// triggered reports whether a stop at stop has been reached by mark.
func triggered(side enum.OrderSide, stop, mark decimal.Decimal) bool {
	if side == enum.OrderSideSell {
		return mark.LessThanOrEqual(stop)
	}
	return mark.GreaterThanOrEqual(stop)
}
