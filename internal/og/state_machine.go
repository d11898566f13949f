package og

import (
	"errors"
	"sync"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
)

var (
	ErrDuplicateOrder = errors.New("order already exists")
	ErrUnknownOrder   = errors.New("order not found")
)

// OrderState tracks what the gateway itself did with an order.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStatePlaced
	OrderStateCanceled
)

// Record is the ledger's view of one order placed through the gateway.
type Record struct {
	Order adapter.Order
	Leg   enum.Leg
	State OrderState
}

// Ledger remembers every order the gateway placed and every cancel it issued,
// so a disappearing order can be told apart from one we removed ourselves.
type Ledger struct {
	mu     sync.RWMutex
	orders map[adapter.OrderID]*Record
	seq    []adapter.OrderID
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{orders: make(map[adapter.OrderID]*Record)}
}

// ApplyPlaced records a newly placed order for leg.
func (l *Ledger) ApplyPlaced(leg enum.Leg, order adapter.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.orders[order.ID]; ok {
		return ErrDuplicateOrder
	}
	l.orders[order.ID] = &Record{Order: order, Leg: leg, State: OrderStatePlaced}
	l.seq = append(l.seq, order.ID)
	return nil
}

// ApplyCanceled marks an order as cancelled by us. Unknown ids are recorded
// too; the sweep also removes orders placed outside this session.
func (l *Ledger) ApplyCanceled(id adapter.OrderID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.orders[id]
	if !ok {
		r = &Record{Order: adapter.Order{ID: id}}
		l.orders[id] = r
		l.seq = append(l.seq, id)
	}
	r.State = OrderStateCanceled
}

// CanceledByUs reports whether the gateway issued a successful cancel for id.
func (l *Ledger) CanceledByUs(id adapter.OrderID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.orders[id]
	return ok && r.State == OrderStateCanceled
}

// Record returns the ledger entry for id.
func (l *Ledger) Record(id adapter.OrderID) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.orders[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Placed returns the orders placed by the gateway, oldest first.
func (l *Ledger) Placed() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, 0, len(l.seq))
	for _, id := range l.seq {
		r := l.orders[id]
		if r.Leg.IsAvailable() {
			out = append(out, *r)
		}
	}
	return out
}

// PlacedFor returns the orders placed for one leg, oldest first.
func (l *Ledger) PlacedFor(leg enum.Leg) []Record {
	var out []Record
	for _, r := range l.Placed() {
		if r.Leg == leg {
			out = append(out, r)
		}
	}
	return out
}
