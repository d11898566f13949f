package paper

import (
	"testing"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkStaysOnTickAndFillsCrossedOrders(t *testing.T) {
	ex := New(nil)
	ex.AddSymbol(adapter.SymbolMeta{Symbol: "BTCUSDT", TickSize: d("0.5"), QuantityPrecision: 3})
	ex.Tick("BTCUSDT", d("100"))

	_, err := NewWalk(ex, WalkConfig{StepBps: 10}, "ETHUSDT")
	assert.Error(t, err)
	_, err = NewWalk(ex, WalkConfig{}, "BTCUSDT")
	assert.Error(t, err)

	w, err := NewWalk(ex, WalkConfig{Seed: 7, StepBps: 50, Drift: -100}, "BTCUSDT")
	require.NoError(t, err)

	_, err = ex.PlaceOrder(t.Context(), limit(enum.OrderSideBuy, "99", "1"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		marks := w.Next()
		assert.True(t, marks["BTCUSDT"].Mod(d("0.5")).IsZero(), marks["BTCUSDT"].String())
	}
	assert.Equal(t, 5, w.Ticks())

	mark, _ := ex.Mark("BTCUSDT")
	assert.True(t, mark.LessThan(d("100")))
	open, err := ex.ListOpenOrders(t.Context(), "BTCUSDT")
	require.NoError(t, err)
	assert.Empty(t, open)
}
