package og

import (
	"testing"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerPlacedAndCanceled(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.ApplyPlaced(enum.LegEntry, adapter.Order{ID: "1"}))
	require.NoError(t, l.ApplyPlaced(enum.LegTakeProfit, adapter.Order{ID: "2"}))
	assert.ErrorIs(t, l.ApplyPlaced(enum.LegTakeProfit, adapter.Order{ID: "2"}), ErrDuplicateOrder)

	assert.False(t, l.CanceledByUs("2"))
	l.ApplyCanceled("2")
	assert.True(t, l.CanceledByUs("2"))

	r, ok := l.Record("2")
	require.True(t, ok)
	assert.Equal(t, enum.LegTakeProfit, r.Leg)
	assert.Equal(t, OrderStateCanceled, r.State)
}

func TestLedgerForeignCancel(t *testing.T) {
	l := NewLedger()
	l.ApplyCanceled("x")
	assert.True(t, l.CanceledByUs("x"))
	assert.Empty(t, l.Placed(), "foreign orders carry no leg")

	_, ok := l.Record("missing")
	assert.False(t, ok)
}

func TestLedgerPlacedFor(t *testing.T) {
	l := NewLedger()
	_ = l.ApplyPlaced(enum.LegTakeProfit, adapter.Order{ID: "a"})
	_ = l.ApplyPlaced(enum.LegDipBuy1, adapter.Order{ID: "b"})
	_ = l.ApplyPlaced(enum.LegTakeProfit, adapter.Order{ID: "c"})

	tps := l.PlacedFor(enum.LegTakeProfit)
	require.Len(t, tps, 2)
	assert.Equal(t, adapter.OrderID("a"), tps[0].Order.ID)
	assert.Equal(t, adapter.OrderID("c"), tps[1].Order.ID)
}
