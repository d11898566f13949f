package paper

import (
	"context"
	"errors"
	"testing"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sym = "BTCUSDT"

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func limit(side enum.OrderSide, price, qty string) adapter.OrderRequest {
	return adapter.OrderRequest{Symbol: sym, Side: side, Kind: enum.OrderKindLimit, Price: d(price), Quantity: d(qty)}
}

func stop(side enum.OrderSide, price, qty string) adapter.OrderRequest {
	return adapter.OrderRequest{Symbol: sym, Side: side, Kind: enum.OrderKindStopMarket, Price: d(price), Quantity: d(qty)}
}

func TestMarketableLimitFillsOnPlacement(t *testing.T) {
	ctx := context.Background()
	ex := New(nil)
	ex.Tick(sym, d("100"))

	buy, err := ex.PlaceOrder(ctx, limit(enum.OrderSideBuy, "100", "1"))
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusFilled, buy.Status)
	assert.True(t, buy.Filled.Equal(d("1")))

	rest, err := ex.PlaceOrder(ctx, limit(enum.OrderSideBuy, "95", "1"))
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusOpen, rest.Status)

	open, err := ex.ListOpenOrders(ctx, sym)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, rest.ID, open[0].ID)
	assert.Equal(t, 2, ex.PlaceCount())
}

func TestTickCrossesLimitsAndTriggersStops(t *testing.T) {
	ctx := context.Background()
	ex := New(nil)
	ex.Tick(sym, d("100"))

	tp, _ := ex.PlaceOrder(ctx, limit(enum.OrderSideSell, "110", "1"))
	dip, _ := ex.PlaceOrder(ctx, limit(enum.OrderSideBuy, "95", "1"))
	sl, err := ex.PlaceOrder(ctx, stop(enum.OrderSideSell, "85", "1"))
	require.NoError(t, err)

	assert.Empty(t, ex.Tick(sym, d("99")))

	filled := ex.Tick(sym, d("94"))
	require.Len(t, filled, 1)
	assert.Equal(t, dip.ID, filled[0].ID)

	filled = ex.Tick(sym, d("85"))
	require.Len(t, filled, 1)
	assert.Equal(t, sl.ID, filled[0].ID)

	got, err := ex.GetOrder(ctx, sym, tp.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusOpen, got.Status)
}

func TestStopThatWouldTriggerIsRefused(t *testing.T) {
	ex := New(nil)
	ex.Tick(sym, d("80"))
	_, err := ex.PlaceOrder(context.Background(), stop(enum.OrderSideSell, "85", "1"))
	assert.ErrorIs(t, err, exception.ErrOrderInvalidRequest)
	assert.Equal(t, 0, ex.PlaceCount())
}

func TestCancelResolvedOrderIsNotFound(t *testing.T) {
	ctx := context.Background()
	ex := New(nil)
	o, err := ex.PlaceOrder(ctx, limit(enum.OrderSideBuy, "95", "1"))
	require.NoError(t, err)

	require.NoError(t, ex.CancelOrder(ctx, sym, o.ID))
	assert.ErrorIs(t, ex.CancelOrder(ctx, sym, o.ID), exception.ErrOrderNotFound)
	assert.ErrorIs(t, ex.CancelOrder(ctx, sym, "nope"), exception.ErrOrderNotFound)
	assert.ErrorIs(t, ex.Fill(o.ID), exception.ErrOrderNotFound)
}

func TestRejectNextAndExpire(t *testing.T) {
	ctx := context.Background()
	ex := New(nil)
	ex.RejectNext()

	o, err := ex.PlaceOrder(ctx, limit(enum.OrderSideBuy, "100", "1"))
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusRejected, o.Status)

	o, err = ex.PlaceOrder(ctx, limit(enum.OrderSideBuy, "100", "1"))
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusOpen, o.Status)
	require.NoError(t, ex.Expire(o.ID))

	open, err := ex.ListOpenOrders(ctx, sym)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestScriptedFaults(t *testing.T) {
	ctx := context.Background()
	faults, err := NewFaults(FaultConfig{Seed: 1})
	require.NoError(t, err)
	ex := New(faults)

	boom := errors.New("boom")
	ex.Faults().FailNext(OpPlace, boom)
	ex.Faults().FailNext(OpList, nil)

	_, err = ex.PlaceOrder(ctx, limit(enum.OrderSideBuy, "100", "1"))
	assert.ErrorIs(t, err, boom)
	_, err = ex.ListOpenOrders(ctx, sym)
	assert.ErrorIs(t, err, exception.ErrPaperFault)

	_, err = ex.PlaceOrder(ctx, limit(enum.OrderSideBuy, "100", "1"))
	assert.NoError(t, err)
}

func TestRandomFaultsAlwaysFailAtRateOne(t *testing.T) {
	faults, err := NewFaults(FaultConfig{Seed: 7, FailRate: 1})
	require.NoError(t, err)
	ex := New(faults)
	_, err = ex.ListOpenOrders(context.Background(), sym)
	assert.ErrorIs(t, err, exception.ErrPaperFault)
}

func TestFaultConfigValidate(t *testing.T) {
	assert.Error(t, FaultConfig{FailRate: 2}.Validate())
	assert.Error(t, FaultConfig{MaxDelay: -1}.Validate())
	assert.NoError(t, FaultConfig{FailRate: 0.5}.Validate())
}

func TestSymbolsAndMark(t *testing.T) {
	ctx := context.Background()
	ex := New(nil)

	_, err := ex.FetchSymbolMetadata(ctx, sym)
	assert.ErrorIs(t, err, exception.ErrInvalidSymbol)
	_, err = ex.MarkPrice(ctx, sym)
	assert.ErrorIs(t, err, exception.ErrInvalidSymbol)

	ex.AddSymbol(adapter.SymbolMeta{Symbol: sym, TickSize: d("0.1"), QuantityPrecision: 3})
	ex.Tick(sym, d("101.5"))

	meta, err := ex.FetchSymbolMetadata(ctx, sym)
	require.NoError(t, err)
	assert.Equal(t, int32(3), meta.QuantityPrecision)
	mark, err := ex.MarkPrice(ctx, sym)
	require.NoError(t, err)
	assert.True(t, mark.Equal(d("101.5")))
}
