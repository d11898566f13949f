package detector

import (
	"context"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/obs"
)

// DefaultPollInterval is the cadence used when none is configured.
const DefaultPollInterval = 2 * time.Second

// OpenOrderLister returns the open-order snapshot of one symbol.
type OpenOrderLister interface {
	Symbol() string
	ListOpenOrderIDs(ctx context.Context) (adapter.IDSet, error)
}

// Detector reports which tracked orders left the book between two polls.
// It does not decide whether an order filled or was cancelled.
type Detector struct {
	lister   OpenOrderLister
	interval time.Duration
	metrics  *obs.Metrics
}

// New creates a detector. A non-positive interval falls back to DefaultPollInterval.
func New(lister OpenOrderLister, interval time.Duration, metrics *obs.Metrics) *Detector {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Detector{lister: lister, interval: interval, metrics: metrics}
}

// Interval returns the poll cadence.
func (d *Detector) Interval() time.Duration {
	return d.interval
}

// PollOnce returns known minus the current open set. Ids that were never in
// known are ignored. On error the caller must not assume anything vanished.
func (d *Detector) PollOnce(ctx context.Context, known adapter.IDSet) (adapter.IDSet, error) {
	start := time.Now()
	open, err := d.lister.ListOpenOrderIDs(ctx)
	d.metrics.ObservePoll(d.lister.Symbol(), time.Since(start))
	if err != nil {
		return nil, err
	}
	return known.Difference(open), nil
}

// Wait blocks for one poll interval or until ctx is done.
func (d *Detector) Wait(ctx context.Context) error {
	t := time.NewTimer(d.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
