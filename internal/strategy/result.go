package strategy

import (
	"time"

	"dipbot/internal/adapter/enum"

	"github.com/shopspring/decimal"
)

// Result is the terminal report of a session.
type Result struct {
	SessionID    string
	Symbol       string
	Direction    enum.Direction
	State        enum.SessionState
	Outcome      enum.Outcome
	Cause        error
	CleanupErr   error
	Volume       decimal.Decimal
	AverageEntry decimal.Decimal
	Legs         [enum.LegCount]LegState
	StartedAt    time.Time
	ClosedAt     time.Time
}

// Leg returns the final state of one leg.
func (r Result) Leg(leg enum.Leg) LegState {
	if !leg.IsAvailable() {
		return LegState{}
	}
	return r.Legs[leg]
}

// Duration is the time from entry placement to close.
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.ClosedAt.IsZero() {
		return 0
	}
	return r.ClosedAt.Sub(r.StartedAt)
}

// Failed reports whether the session ended without reaching a target.
func (r Result) Failed() bool {
	return r.Outcome.IsError() || r.Outcome.IsEntryFailure()
}
