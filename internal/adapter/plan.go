package adapter

import (
	"fmt"

	"dipbot/internal/adapter/enum"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
)

// DipBuy is one contingent averaging-down order and the take-profit that
// replaces the current one once it fills.
type DipBuy struct {
	Limit  decimal.Decimal
	Volume decimal.Decimal
	Target decimal.Decimal
}

// Plan is the fully rounded ladder of one session.
type Plan struct {
	Symbol      string
	Direction   enum.Direction
	EntryPrice  decimal.Decimal
	EntryVolume decimal.Decimal
	TakeProfit  decimal.Decimal
	StopLoss    decimal.Decimal
	Dip1        DipBuy
	Dip2        DipBuy
	Meta        SymbolMeta
}

func (p Plan) EntrySide() enum.OrderSide {
	return p.Direction.EntrySide()
}

func (p Plan) ExitSide() enum.OrderSide {
	return p.Direction.ExitSide()
}

// MaxVolume is the position size once both dip-buys filled.
func (p Plan) MaxVolume() decimal.Decimal {
	return p.EntryVolume.Add(p.Dip1.Volume).Add(p.Dip2.Volume)
}

// Validate checks that every price and volume is usable.
func (p Plan) Validate() error {
	if len(p.Symbol) == 0 {
		return fmt.Errorf("%w: empty symbol", exception.ErrInvalidParams)
	}
	if !p.Direction.IsAvailable() {
		return exception.ErrInvalidDirection
	}
	if !p.Meta.IsValid() {
		return fmt.Errorf("%w: %s", exception.ErrInvalidSymbol, p.Symbol)
	}
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"entry price", p.EntryPrice},
		{"entry volume", p.EntryVolume},
		{"take profit", p.TakeProfit},
		{"stop loss", p.StopLoss},
		{"dip 1 limit", p.Dip1.Limit},
		{"dip 1 volume", p.Dip1.Volume},
		{"dip 1 target", p.Dip1.Target},
		{"dip 2 limit", p.Dip2.Limit},
		{"dip 2 volume", p.Dip2.Volume},
		{"dip 2 target", p.Dip2.Target},
	}
	for _, f := range fields {
		if !f.value.IsPositive() {
			return fmt.Errorf("%w: %s must be positive, got %s", exception.ErrInvalidParams, f.name, f.value)
		}
	}
	return nil
}
