package strategy

import (
	"dipbot/internal/adapter"
)

// LegStatus is the tag of a LegState.
type LegStatus uint8

const (
	LegEmpty LegStatus = iota
	LegLive
	LegResolved
)

func (s LegStatus) String() string {
	switch s {
	case LegEmpty:
		return "empty"
	case LegLive:
		return "live"
	case LegResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Resolution says how a leg stopped being live.
type Resolution uint8

const (
	ResolutionNone Resolution = iota
	ResolutionFilled
	ResolutionCanceled
	ResolutionRejected
	ResolutionVanished
)

func (r Resolution) String() string {
	switch r {
	case ResolutionFilled:
		return "filled"
	case ResolutionCanceled:
		return "canceled"
	case ResolutionRejected:
		return "rejected"
	case ResolutionVanished:
		return "vanished"
	default:
		return "none"
	}
}

// LegState is Empty, Live(Order) or Resolved(Order, Resolution).
type LegState struct {
	Status     LegStatus
	Order      adapter.Order
	Resolution Resolution
}

func live(order adapter.Order) LegState {
	return LegState{Status: LegLive, Order: order}
}

func resolved(order adapter.Order, r Resolution) LegState {
	return LegState{Status: LegResolved, Order: order, Resolution: r}
}

func (s LegState) IsLive() bool {
	return s.Status == LegLive
}

func (s LegState) IsEmpty() bool {
	return s.Status == LegEmpty
}

// Is reports whether the leg resolved with r.
func (s LegState) Is(r Resolution) bool {
	return s.Status == LegResolved && s.Resolution == r
}

func (s LegState) String() string {
	switch s.Status {
	case LegLive:
		return "live(" + s.Order.ID.String() + ")"
	case LegResolved:
		return "resolved(" + s.Resolution.String() + ")"
	default:
		return s.Status.String()
	}
}
