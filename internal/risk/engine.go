package risk

import (
	"fmt"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
)

var _bps = decimal.NewFromInt(10000)

// Config defines static ladder limits. Zero disables a limit.
type Config struct {
	KillSwitch           bool            `json:"killSwitch"`
	MaxOrderQty          decimal.Decimal `json:"maxOrderQty"`
	MaxOrderNotional     decimal.Decimal `json:"maxOrderNotional"`
	MaxPosition          decimal.Decimal `json:"maxPosition"`
	MaxPriceDeviationBps int64           `json:"maxPriceDeviationBps"`
	// SkipGeometry turns off the ladder shape checks.
	SkipGeometry bool `json:"skipGeometry"`
}

// Action is the verdict of a check.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason names the limit that denied a plan.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonMaxQty
	ReasonMaxNotional
	ReasonPositionLimit
	ReasonPriceBand
	ReasonGeometry
)

func (r Reason) String() string {
	switch r {
	case ReasonKillSwitch:
		return "kill-switch"
	case ReasonMaxQty:
		return "max-order-qty"
	case ReasonMaxNotional:
		return "max-order-notional"
	case ReasonPositionLimit:
		return "max-position"
	case ReasonPriceBand:
		return "price-band"
	case ReasonGeometry:
		return "ladder-geometry"
	default:
		return "none"
	}
}

// Decision is the result of evaluating one plan.
type Decision struct {
	Action Action
	Reason Reason
	Detail string
}

func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// Err returns nil for an allowed plan, an ErrRiskDenied wrap otherwise.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return fmt.Errorf("%w: %s, %s", exception.ErrRiskDenied, d.Reason, d.Detail)
}

// Engine evaluates ladder plans before any order is placed.
type Engine struct {
	cfg Config
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

type ladderOrder struct {
	leg   enum.Leg
	price decimal.Decimal
	qty   decimal.Decimal
}

// orders lists every order the plan can place, each at its largest size.
func orders(p adapter.Plan) []ladderOrder {
	return []ladderOrder{
		{enum.LegEntry, p.EntryPrice, p.EntryVolume},
		{enum.LegTakeProfit, p.TakeProfit, p.EntryVolume},
		{enum.LegDipBuy1, p.Dip1.Limit, p.Dip1.Volume},
		{enum.LegTakeProfit, p.Dip1.Target, p.EntryVolume.Add(p.Dip1.Volume)},
		{enum.LegDipBuy2, p.Dip2.Limit, p.Dip2.Volume},
		{enum.LegTakeProfit, p.Dip2.Target, p.MaxVolume()},
		{enum.LegStopLoss, p.StopLoss, p.MaxVolume()},
	}
}

// Evaluate applies the limits to plan. reference is the current market
// price; zero skips the price band check.
func (e *Engine) Evaluate(plan adapter.Plan, reference decimal.Decimal) Decision {
	if e.cfg.KillSwitch {
		return deny(ReasonKillSwitch, "trading disabled")
	}

	for _, o := range orders(plan) {
		if e.cfg.MaxOrderQty.IsPositive() && o.qty.GreaterThan(e.cfg.MaxOrderQty) {
			return deny(ReasonMaxQty, fmt.Sprintf("%s qty %s > %s", o.leg, o.qty, e.cfg.MaxOrderQty))
		}
		notional := o.price.Mul(o.qty)
		if e.cfg.MaxOrderNotional.IsPositive() && notional.GreaterThan(e.cfg.MaxOrderNotional) {
			return deny(ReasonMaxNotional, fmt.Sprintf("%s notional %s > %s", o.leg, notional, e.cfg.MaxOrderNotional))
		}
	}

	if e.cfg.MaxPosition.IsPositive() && plan.MaxVolume().GreaterThan(e.cfg.MaxPosition) {
		return deny(ReasonPositionLimit, fmt.Sprintf("position %s > %s", plan.MaxVolume(), e.cfg.MaxPosition))
	}

	if e.cfg.MaxPriceDeviationBps > 0 && reference.IsPositive() {
		if exceedsDeviation(plan.EntryPrice, reference, e.cfg.MaxPriceDeviationBps) {
			return deny(ReasonPriceBand, fmt.Sprintf("entry %s is more than %d bps from %s",
				plan.EntryPrice, e.cfg.MaxPriceDeviationBps, reference))
		}
	}

	if !e.cfg.SkipGeometry {
		if err := checkGeometry(plan); err != nil {
			return deny(ReasonGeometry, err.Error())
		}
	}

	return Decision{Action: ActionAllow, Reason: ReasonNone}
}

func deny(reason Reason, detail string) Decision {
	return Decision{Action: ActionDeny, Reason: reason, Detail: detail}
}

// checkGeometry requires the dips and the stop on the adverse side of the
// entry, each deeper than the last, and every target on the favourable side
// of the price it exits from.
func checkGeometry(p adapter.Plan) error {
	// adverse(a, b) is true when a is further against the position than b.
	adverse := func(a, b decimal.Decimal) bool {
		if p.Direction == enum.DirectionShort {
			return a.GreaterThan(b)
		}
		return a.LessThan(b)
	}

	steps := []struct {
		name      string
		deep, ref decimal.Decimal
	}{
		{"dip 1 limit vs entry", p.Dip1.Limit, p.EntryPrice},
		{"dip 2 limit vs dip 1 limit", p.Dip2.Limit, p.Dip1.Limit},
		{"stop loss vs dip 2 limit", p.StopLoss, p.Dip2.Limit},
		{"entry vs take profit", p.EntryPrice, p.TakeProfit},
		{"dip 1 limit vs dip 1 target", p.Dip1.Limit, p.Dip1.Target},
		{"dip 2 limit vs dip 2 target", p.Dip2.Limit, p.Dip2.Target},
	}
	for _, s := range steps {
		if !adverse(s.deep, s.ref) {
			return fmt.Errorf("%s: %s is not on the %s side of %s", s.name, s.deep, adverseWord(p.Direction), s.ref)
		}
	}
	return nil
}

func adverseWord(d enum.Direction) string {
	if d == enum.DirectionShort {
		return "upper"
	}
	return "lower"
}

func exceedsDeviation(price, ref decimal.Decimal, bps int64) bool {
	diff := price.Sub(ref).Abs()
	return diff.Mul(_bps).GreaterThan(ref.Mul(decimal.NewFromInt(bps)))
}
