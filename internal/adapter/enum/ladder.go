package enum

// Leg names one order slot of the ladder.
type Leg uint8

const (
	_leg_beg Leg = iota
	LegEntry
	LegTakeProfit
	LegDipBuy1
	LegDipBuy2
	LegStopLoss
	_leg_end
)

// LegCount sizes arrays indexed by Leg.
const LegCount = int(_leg_end)

func (l Leg) IsAvailable() bool {
	return l > _leg_beg && l < _leg_end
}

// Legs lists every ladder leg in placement order.
func Legs() []Leg {
	return []Leg{LegEntry, LegTakeProfit, LegDipBuy1, LegDipBuy2, LegStopLoss}
}

func (l Leg) String() string {
	switch l {
	case LegEntry:
		return "entry"
	case LegTakeProfit:
		return "take-profit"
	case LegDipBuy1:
		return "dip-buy-1"
	case LegDipBuy2:
		return "dip-buy-2"
	case LegStopLoss:
		return "stop-loss"
	default:
		return "unknown"
	}
}

// Code is a short tag used inside client order ids.
func (l Leg) Code() string {
	switch l {
	case LegEntry:
		return "en"
	case LegTakeProfit:
		return "tp"
	case LegDipBuy1:
		return "d1"
	case LegDipBuy2:
		return "d2"
	case LegStopLoss:
		return "sl"
	default:
		return "xx"
	}
}

// SessionState AwaitingEntry -> EntryPlaced -> Running -> Closed
type SessionState uint8

const (
	_session_state_beg SessionState = iota
	SessionAwaitingEntry
	SessionEntryPlaced
	SessionRunning
	SessionClosed
	_session_state_end
)

func (s SessionState) IsAvailable() bool {
	return s > _session_state_beg && s < _session_state_end
}

func (s SessionState) String() string {
	switch s {
	case SessionAwaitingEntry:
		return "awaiting-entry"
	case SessionEntryPlaced:
		return "entry-placed"
	case SessionRunning:
		return "running"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outcome is the reason a session closed.
type Outcome uint8

const (
	_outcome_beg Outcome = iota
	OutcomeTakeProfitHit
	OutcomeStopLossHit
	OutcomeEntryRejected
	OutcomeEntryTimeout
	OutcomeError
	OutcomeInterrupted
	_outcome_end
)

func (o Outcome) IsAvailable() bool {
	return o > _outcome_beg && o < _outcome_end
}

// IsEntryFailure reports whether the session ended before the ladder was built.
func (o Outcome) IsEntryFailure() bool {
	return o == OutcomeEntryRejected || o == OutcomeEntryTimeout
}

// IsError reports whether the outcome needs operator attention.
func (o Outcome) IsError() bool {
	return o == OutcomeError || o == OutcomeInterrupted
}

func (o Outcome) String() string {
	switch o {
	case OutcomeTakeProfitHit:
		return "take-profit-hit"
	case OutcomeStopLossHit:
		return "stop-loss-hit"
	case OutcomeEntryRejected:
		return "entry-rejected"
	case OutcomeEntryTimeout:
		return "entry-timeout"
	case OutcomeError:
		return "error"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "none"
	}
}
