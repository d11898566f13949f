package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"dipbot/internal/adapter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	open adapter.IDSet
	err  error
}

func (s staticLister) Symbol() string { return "BTCUSDT" }

func (s staticLister) ListOpenOrderIDs(context.Context) (adapter.IDSet, error) {
	return s.open, s.err
}

func TestPollOnceReportsVanished(t *testing.T) {
	d := New(staticLister{open: adapter.NewIDSet("tp", "d2", "foreign")}, time.Millisecond, nil)

	gone, err := d.PollOnce(context.Background(), adapter.NewIDSet("tp", "d1", "d2"))
	require.NoError(t, err)
	assert.Equal(t, []adapter.OrderID{"d1"}, gone.Sorted())
}

func TestPollOnceNothingGone(t *testing.T) {
	d := New(staticLister{open: adapter.NewIDSet("tp", "d1")}, 0, nil)

	gone, err := d.PollOnce(context.Background(), adapter.NewIDSet("tp", "d1"))
	require.NoError(t, err)
	assert.Empty(t, gone)
	assert.Equal(t, DefaultPollInterval, d.Interval())
}

func TestPollOnceEmptyBook(t *testing.T) {
	d := New(staticLister{open: adapter.NewIDSet()}, time.Second, nil)

	gone, err := d.PollOnce(context.Background(), adapter.NewIDSet("tp", "d1"))
	require.NoError(t, err)
	assert.Len(t, gone, 2)
}

func TestPollOnceError(t *testing.T) {
	boom := errors.New("list failed")
	d := New(staticLister{err: boom}, time.Second, nil)

	gone, err := d.PollOnce(context.Background(), adapter.NewIDSet("tp"))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, gone)
}

func TestWaitHonoursContext(t *testing.T) {
	d := New(staticLister{}, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.Canceled)
}
