package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSink struct {
	mu      sync.Mutex
	batches [][]Entry
	err     error
}

func (s *sliceSink) Insert(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *sliceSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestWriterFlushesOnClose(t *testing.T) {
	sink := &sliceSink{}
	w, err := NewWriter(Config{QueueSize: 16, BatchSize: 8, FlushInterval: time.Hour}, sink)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Record(context.Background(), Entry{Action: ActionPlaced}))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, 5, sink.total())
}

func TestWriterFlushesFullBatch(t *testing.T) {
	sink := &sliceSink{}
	w, err := NewWriter(Config{QueueSize: 16, BatchSize: 2, FlushInterval: time.Hour}, sink)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	require.NoError(t, w.Record(context.Background(), Entry{Action: ActionPlaced}))
	require.NoError(t, w.Record(context.Background(), Entry{Action: ActionCanceled}))
	assert.Eventually(t, func() bool { return sink.total() == 2 }, time.Second, 5*time.Millisecond)
}

func TestWriterLifecycleErrors(t *testing.T) {
	w, err := NewWriter(DefaultConfig(), &sliceSink{})
	require.NoError(t, err)
	assert.ErrorIs(t, w.Record(context.Background(), Entry{}), ErrNotStarted)

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Record(context.Background(), Entry{}), ErrClosed)
}

func TestWriterKeepsSinkError(t *testing.T) {
	boom := errors.New("db down")
	w, err := NewWriter(DefaultConfig(), &sliceSink{err: boom})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Record(context.Background(), Entry{}))
	assert.ErrorIs(t, w.Close(), boom)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{QueueSize: 2, BatchSize: 4}.Validate())
	assert.Error(t, Config{FlushInterval: -time.Second}.Validate())
}

func TestEntryFromOrder(t *testing.T) {
	order := adapter.Order{
		ID:       "42",
		Symbol:   "BTCUSDT",
		Side:     enum.OrderSideSell,
		Kind:     enum.OrderKindLimit,
		Price:    decimal.RequireFromString("105"),
		Quantity: decimal.RequireFromString("2"),
	}
	e := EntryFromOrder("s-1", ActionPlaced, enum.LegTakeProfit, order)
	assert.Equal(t, "s-1", e.SessionID)
	assert.Equal(t, "take-profit", e.Leg)
	assert.Equal(t, "42", e.OrderID)
	assert.Equal(t, "SELL", e.Side)
	assert.Equal(t, "LIMIT", e.Kind)
	assert.True(t, e.Price.Equal(decimal.RequireFromString("105")))

	e = EntryFromOrder("s-1", ActionCanceled, 0, adapter.Order{ID: "7"})
	assert.Empty(t, e.Leg)
	assert.Empty(t, e.Side)
}

func TestMemoryActions(t *testing.T) {
	m := &Memory{}
	_ = m.Record(context.Background(), Entry{Action: ActionPlaced})
	_ = m.Record(context.Background(), Entry{Action: ActionClosed})
	_ = m.Record(context.Background(), Entry{Action: ActionPlaced})
	assert.Len(t, m.Entries(), 3)
	assert.Len(t, m.Actions(ActionPlaced), 2)
}
