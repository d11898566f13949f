// Package precision rounds prices and quantities to the rules an exchange
// publishes for each trading pair.
package precision

import (
	"fmt"
	"strings"

	"dipbot/internal/adapter"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
)

// RoundPrice rounds raw to the nearest multiple of the tick size. The result
// carries exactly as many decimal places as the tick size itself.
func RoundPrice(raw decimal.Decimal, meta *adapter.SymbolMeta) (decimal.Decimal, error) {
	if err := check(meta); err != nil {
		return decimal.Zero, err
	}
	steps := raw.Div(meta.TickSize).Round(0)
	return steps.Mul(meta.TickSize).Round(PriceDigits(meta.TickSize)), nil
}

// RoundQuantity rounds raw to the declared quantity precision.
func RoundQuantity(raw decimal.Decimal, meta *adapter.SymbolMeta) (decimal.Decimal, error) {
	if err := check(meta); err != nil {
		return decimal.Zero, err
	}
	return raw.Round(meta.QuantityPrecision), nil
}

// PriceDigits counts the decimal places of a tick size, ignoring trailing zeros.
func PriceDigits(tick decimal.Decimal) int32 {
	s := tick.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return int32(len(s) - i - 1)
	}
	return 0
}

// FormatPrice renders a rounded price the way the exchange expects it on the wire.
func FormatPrice(price decimal.Decimal, meta *adapter.SymbolMeta) string {
	if meta == nil {
		return price.String()
	}
	return price.StringFixed(PriceDigits(meta.TickSize))
}

// FormatQuantity renders a rounded quantity the way the exchange expects it on the wire.
func FormatQuantity(qty decimal.Decimal, meta *adapter.SymbolMeta) string {
	if meta == nil {
		return qty.String()
	}
	return qty.StringFixed(meta.QuantityPrecision)
}

func check(meta *adapter.SymbolMeta) error {
	if meta == nil {
		return fmt.Errorf("%w: metadata absent", exception.ErrInvalidSymbol)
	}
	if !meta.IsValid() {
		return fmt.Errorf("%w: unusable metadata for %q", exception.ErrInvalidSymbol, meta.Symbol)
	}
	return nil
}
