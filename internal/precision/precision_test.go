package precision

import (
	"math/rand"
	"testing"

	"dipbot/internal/adapter"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meta(tick string, qtyPrecision int32) *adapter.SymbolMeta {
	return &adapter.SymbolMeta{
		Symbol:            "BTCUSDT",
		TickSize:          decimal.RequireFromString(tick),
		QuantityPrecision: qtyPrecision,
	}
}

func TestRoundPrice(t *testing.T) {
	testCases := []struct {
		desc string
		tick string
		raw  string
		want string
	}{
		{desc: "round down to tenth", tick: "0.10", raw: "100.04", want: "100"},
		{desc: "round up to tenth", tick: "0.10", raw: "100.07", want: "100.1"},
		{desc: "cent tick", tick: "0.01", raw: "123.456", want: "123.46"},
		{desc: "integer tick", tick: "5", raw: "1002", want: "1000"},
		{desc: "integer tick up", tick: "5", raw: "1003", want: "1005"},
		{desc: "half tick", tick: "0.5", raw: "10.3", want: "10.5"},
		{desc: "already aligned", tick: "0.001", raw: "0.123", want: "0.123"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := RoundPrice(decimal.RequireFromString(tc.raw), meta(tc.tick, 3))
			require.NoError(t, err)
			assert.Truef(t, got.Equal(decimal.RequireFromString(tc.want)), "want %s, got %s", tc.want, got)
		})
	}
}

func TestRoundPriceIsMultipleOfTick(t *testing.T) {
	ticks := []string{"0.1", "0.01", "0.25", "0.0001", "1", "5", "0.00000100"}
	r := rand.New(rand.NewSource(42))

	for _, tick := range ticks {
		m := meta(tick, 4)
		digits := PriceDigits(m.TickSize)
		for range 200 {
			raw := decimal.NewFromFloat(r.Float64() * 50000).Round(8)
			got, err := RoundPrice(raw, m)
			require.NoError(t, err)
			assert.Truef(t, got.Mod(m.TickSize).IsZero(), "%s is not a multiple of %s", got, tick)
			assert.LessOrEqualf(t, -got.Exponent(), digits, "%s carries more digits than tick %s", got, tick)
			assert.Truef(t, got.Sub(raw).Abs().LessThanOrEqual(m.TickSize.Div(decimal.NewFromInt(2))),
				"%s is more than half a tick away from %s", got, raw)
		}
	}
}

func TestRoundQuantity(t *testing.T) {
	got, err := RoundQuantity(decimal.RequireFromString("1.23456"), meta("0.1", 3))
	require.NoError(t, err)
	assert.Equal(t, "1.235", got.String())

	got, err = RoundQuantity(decimal.RequireFromString("2.6"), meta("0.1", 0))
	require.NoError(t, err)
	assert.Equal(t, "3", got.String())

	r := rand.New(rand.NewSource(7))
	for precision := int32(0); precision <= 6; precision++ {
		for range 100 {
			raw := decimal.NewFromFloat(r.Float64() * 1000)
			got, err := RoundQuantity(raw, meta("0.1", precision))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got.Exponent(), -precision)
		}
	}
}

func TestRoundRejectsMissingMetadata(t *testing.T) {
	_, err := RoundPrice(decimal.NewFromInt(1), nil)
	assert.ErrorIs(t, err, exception.ErrInvalidSymbol)

	_, err = RoundQuantity(decimal.NewFromInt(1), nil)
	assert.ErrorIs(t, err, exception.ErrInvalidSymbol)

	_, err = RoundPrice(decimal.NewFromInt(1), meta("0", 2))
	assert.ErrorIs(t, err, exception.ErrInvalidSymbol)

	_, err = RoundQuantity(decimal.NewFromInt(1), meta("0.1", -1))
	assert.ErrorIs(t, err, exception.ErrInvalidSymbol)
}

func TestPriceDigits(t *testing.T) {
	assert.Equal(t, int32(2), PriceDigits(decimal.RequireFromString("0.0100")))
	assert.Equal(t, int32(1), PriceDigits(decimal.RequireFromString("0.1")))
	assert.Equal(t, int32(0), PriceDigits(decimal.RequireFromString("10")))
	assert.Equal(t, int32(8), PriceDigits(decimal.RequireFromString("0.00000001")))
}

func TestFormat(t *testing.T) {
	m := meta("0.10", 3)
	assert.Equal(t, "100.0", FormatPrice(decimal.NewFromInt(100), m))
	assert.Equal(t, "1.500", FormatQuantity(decimal.RequireFromString("1.5"), m))
}
