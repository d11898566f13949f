package adapter

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SymbolMeta carries the exchange precision rules of one trading pair.
// It never changes during a session.
type SymbolMeta struct {
	Symbol            string          `json:"symbol"`
	TickSize          decimal.Decimal `json:"tickSize"`
	QuantityPrecision int32           `json:"quantityPrecision"`
}

// IsValid reports whether the metadata can be used for rounding.
func (m SymbolMeta) IsValid() bool {
	return len(m.Symbol) != 0 && m.TickSize.IsPositive() && m.QuantityPrecision >= 0
}

// NormalizeSymbol upper-cases and trims a trading pair name.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
