package recorder

import (
	"context"
	"sync"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"

	"github.com/shopspring/decimal"
)

// Action names a journaled event.
type Action string

const (
	ActionPlaced   Action = "placed"
	ActionCanceled Action = "canceled"
	ActionFilled   Action = "filled"
	ActionReplan   Action = "replan"
	ActionClosed   Action = "closed"
)

// Entry is one line of the order journal.
type Entry struct {
	SessionID string
	Symbol    string
	Action    Action
	Leg       string
	OrderID   string
	Side      string
	Kind      string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// EntryFromOrder describes an action taken on order.
func EntryFromOrder(sessionID string, action Action, leg enum.Leg, order adapter.Order) Entry {
	e := Entry{
		SessionID: sessionID,
		Symbol:    order.Symbol,
		Action:    action,
		OrderID:   order.ID.String(),
		Price:     order.Price,
		Quantity:  order.Quantity,
	}
	if leg.IsAvailable() {
		e.Leg = leg.String()
	}
	if order.Side.IsAvailable() {
		e.Side = order.Side.String()
	}
	if order.Kind.IsAvailable() {
		e.Kind = order.Kind.String()
	}
	return e
}

// Recorder persists journal entries. Record must not block on slow storage
// for long; the ladder waits on it.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop drops every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Memory keeps entries in process, for tests and the paper tool.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Record(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Actions filters the recorded entries by action.
func (m *Memory) Actions(action Action) []Entry {
	var out []Entry
	for _, e := range m.Entries() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
