package og

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/internal/recorder"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExchange struct {
	mock.Mock
}

func (m *mockExchange) PlaceOrder(ctx context.Context, req adapter.OrderRequest) (adapter.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(adapter.Order), args.Error(1)
}

func (m *mockExchange) CancelOrder(ctx context.Context, symbol string, id adapter.OrderID) error {
	return m.Called(ctx, symbol, id).Error(0)
}

func (m *mockExchange) ListOpenOrders(ctx context.Context, symbol string) ([]adapter.Order, error) {
	args := m.Called(ctx, symbol)
	orders, _ := args.Get(0).([]adapter.Order)
	return orders, args.Error(1)
}

func (m *mockExchange) GetOrder(ctx context.Context, symbol string, id adapter.OrderID) (adapter.Order, error) {
	args := m.Called(ctx, symbol, id)
	return args.Get(0).(adapter.Order), args.Error(1)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestGateway(ex Exchange) (*Gateway, *recorder.Memory) {
	journal := &recorder.Memory{}
	return NewGateway(GatewayConfig{Symbol: " btcusdt ", SessionID: "s1"}, ex, nil, journal), journal
}

func TestPlaceLimitOrder(t *testing.T) {
	ctx := context.Background()
	ex := &mockExchange{}
	gw, journal := newTestGateway(ex)

	ex.On("PlaceOrder", ctx, mock.MatchedBy(func(req adapter.OrderRequest) bool {
		return req.Symbol == "BTCUSDT" &&
			req.Side == enum.OrderSideSell &&
			req.Kind == enum.OrderKindLimit &&
			req.Price.Equal(d("110")) &&
			strings.HasPrefix(req.ClientOrderID, "dl-tp-") &&
			len(req.ClientOrderID) <= 36
	})).Return(adapter.Order{
		ID: "101", Symbol: "BTCUSDT", Side: enum.OrderSideSell, Kind: enum.OrderKindLimit,
		Price: d("110"), Quantity: d("1"), Status: enum.OrderStatusOpen,
	}, nil).Once()

	order, err := gw.PlaceLimitOrder(ctx, enum.LegTakeProfit, enum.OrderSideSell, d("110"), d("1"))
	require.NoError(t, err)
	assert.Equal(t, adapter.OrderID("101"), order.ID)
	assert.Equal(t, "BTCUSDT", gw.Symbol())

	placed := gw.Ledger().PlacedFor(enum.LegTakeProfit)
	require.Len(t, placed, 1)
	assert.Equal(t, adapter.OrderID("101"), placed[0].Order.ID)

	entries := journal.Actions(recorder.ActionPlaced)
	require.Len(t, entries, 1)
	assert.Equal(t, "take-profit", entries[0].Leg)
	assert.Equal(t, "s1", entries[0].SessionID)
	assert.False(t, entries[0].CreatedAt.IsZero())
	ex.AssertExpectations(t)
}

func TestPlaceStopMarketOrder(t *testing.T) {
	ctx := context.Background()
	ex := &mockExchange{}
	gw, _ := newTestGateway(ex)

	ex.On("PlaceOrder", ctx, mock.MatchedBy(func(req adapter.OrderRequest) bool {
		return req.Kind == enum.OrderKindStopMarket && req.Price.Equal(d("85")) && strings.HasPrefix(req.ClientOrderID, "dl-sl-")
	})).Return(adapter.Order{ID: "7", Kind: enum.OrderKindStopMarket, Status: enum.OrderStatusOpen}, nil).Once()

	_, err := gw.PlaceStopMarketOrder(ctx, enum.LegStopLoss, enum.OrderSideSell, d("85"), d("2"))
	require.NoError(t, err)
	ex.AssertExpectations(t)
}

func TestPlaceFailuresAreGatewayErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("timeout")

	t.Run("exchange error", func(t *testing.T) {
		ex := &mockExchange{}
		gw, journal := newTestGateway(ex)
		ex.On("PlaceOrder", ctx, mock.Anything).Return(adapter.Order{}, boom).Once()

		_, err := gw.PlaceLimitOrder(ctx, enum.LegEntry, enum.OrderSideBuy, d("100"), d("1"))
		var gerr *GatewayError
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, OpPlace, gerr.Op)
		assert.Equal(t, "BTCUSDT", gerr.Symbol)
		assert.ErrorIs(t, err, exception.ErrGateway)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, gw.Ledger().Placed())
		assert.Empty(t, journal.Entries())
	})

	t.Run("empty id", func(t *testing.T) {
		ex := &mockExchange{}
		gw, _ := newTestGateway(ex)
		ex.On("PlaceOrder", ctx, mock.Anything).Return(adapter.Order{}, nil).Once()

		_, err := gw.PlaceLimitOrder(ctx, enum.LegEntry, enum.OrderSideBuy, d("100"), d("1"))
		assert.ErrorIs(t, err, exception.ErrOrderEmptyID)
		assert.ErrorIs(t, err, exception.ErrGateway)
	})

	t.Run("rejected exit leg", func(t *testing.T) {
		ex := &mockExchange{}
		gw, journal := newTestGateway(ex)
		ex.On("PlaceOrder", ctx, mock.Anything).
			Return(adapter.Order{ID: "7", Symbol: "BTCUSDT", Status: enum.OrderStatusRejected}, nil).Once()

		_, err := gw.PlaceLimitOrder(ctx, enum.LegTakeProfit, enum.OrderSideSell, d("110"), d("1"))
		var gerr *GatewayError
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, OpPlace, gerr.Op)
		assert.ErrorIs(t, err, exception.ErrOrderRejected)
		assert.Len(t, journal.Actions(recorder.ActionPlaced), 1, "rejection stays in the audit trail")
	})

	t.Run("rejected entry is left to the caller", func(t *testing.T) {
		ex := &mockExchange{}
		gw, _ := newTestGateway(ex)
		ex.On("PlaceOrder", ctx, mock.Anything).
			Return(adapter.Order{ID: "8", Symbol: "BTCUSDT", Status: enum.OrderStatusRejected}, nil).Once()

		order, err := gw.PlaceLimitOrder(ctx, enum.LegEntry, enum.OrderSideBuy, d("100"), d("1"))
		require.NoError(t, err)
		assert.Equal(t, enum.OrderStatusRejected, order.Status)
	})

	t.Run("invalid request never reaches the exchange", func(t *testing.T) {
		ex := &mockExchange{}
		gw, _ := newTestGateway(ex)

		_, err := gw.PlaceLimitOrder(ctx, enum.LegEntry, enum.OrderSideBuy, d("100"), decimal.Zero)
		assert.ErrorIs(t, err, exception.ErrOrderInvalidRequest)
		ex.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	})
}

func TestCancelAllOpenOrdersIsBestEffort(t *testing.T) {
	ctx := context.Background()
	ex := &mockExchange{}
	gw, journal := newTestGateway(ex)

	ex.On("ListOpenOrders", ctx, "BTCUSDT").Return([]adapter.Order{{ID: "1"}, {ID: "2"}, {ID: "3"}}, nil).Once()
	ex.On("CancelOrder", ctx, "BTCUSDT", adapter.OrderID("1")).Return(nil).Once()
	ex.On("CancelOrder", ctx, "BTCUSDT", adapter.OrderID("2")).Return(exception.ErrOrderNotFound).Once()
	ex.On("CancelOrder", ctx, "BTCUSDT", adapter.OrderID("3")).Return(errors.New("rate limited")).Once()

	require.NoError(t, gw.CancelAllOpenOrders(ctx))
	assert.True(t, gw.CanceledByUs("1"))
	assert.False(t, gw.CanceledByUs("2"))
	assert.False(t, gw.CanceledByUs("3"))
	assert.Len(t, journal.Actions(recorder.ActionCanceled), 1)
	ex.AssertExpectations(t)
}

func TestCancelAllOpenOrdersEmptyBook(t *testing.T) {
	ctx := context.Background()
	ex := &mockExchange{}
	gw, journal := newTestGateway(ex)
	ex.On("ListOpenOrders", ctx, "BTCUSDT").Return([]adapter.Order{}, nil).Twice()

	require.NoError(t, gw.CancelAllOpenOrders(ctx))
	require.NoError(t, gw.CancelAllOpenOrders(ctx))
	assert.Empty(t, journal.Entries())
	ex.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelAllOpenOrdersListFailure(t *testing.T) {
	ctx := context.Background()
	ex := &mockExchange{}
	gw, _ := newTestGateway(ex)
	ex.On("ListOpenOrders", ctx, "BTCUSDT").Return(nil, errors.New("503")).Once()

	err := gw.CancelAllOpenOrders(ctx)
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, OpList, gerr.Op)
}

func TestListOpenOrderIDsAndStatus(t *testing.T) {
	ctx := context.Background()
	ex := &mockExchange{}
	gw, _ := newTestGateway(ex)
	ex.On("ListOpenOrders", ctx, "BTCUSDT").Return([]adapter.Order{{ID: "5"}, {ID: "9"}}, nil).Once()
	ex.On("GetOrder", ctx, "BTCUSDT", adapter.OrderID("5")).Return(adapter.Order{ID: "5", Status: enum.OrderStatusFilled}, nil).Once()
	ex.On("GetOrder", ctx, "BTCUSDT", adapter.OrderID("6")).Return(adapter.Order{}, exception.ErrOrderNotFound).Once()

	ids, err := gw.ListOpenOrderIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []adapter.OrderID{"5", "9"}, ids.Sorted())

	status, err := gw.GetOrderStatus(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusFilled, status)

	_, err = gw.GetOrderStatus(ctx, "6")
	assert.ErrorIs(t, err, exception.ErrOrderNotFound)
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, OpQuery, gerr.Op)
}

func TestClientOrderIDTag(t *testing.T) {
	gw := NewGateway(GatewayConfig{Symbol: "ETHUSDT", Tag: "averylongtag"}, &mockExchange{}, nil, nil)
	id := gw.newClientOrderID(enum.LegDipBuy2)
	assert.True(t, strings.HasPrefix(id, "averylon-d2-"), id)
	assert.LessOrEqual(t, len(id), 36)
	assert.NotEqual(t, id, gw.newClientOrderID(enum.LegDipBuy2))
}
