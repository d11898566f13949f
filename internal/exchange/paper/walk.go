package paper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// WalkConfig controls a random-walk price feed.
type WalkConfig struct {
	Seed int64
	// StepBps is the largest move per tick in basis points.
	StepBps  int64
	Interval time.Duration
	// Drift shifts each step by this many basis points, negative to trend down.
	Drift int64
}

// Walk moves the mark prices of a paper venue. It is driven by one goroutine.
type Walk struct {
	ex      *Exchange
	cfg     WalkConfig
	rng     *rand.Rand
	symbols []string
	ticks   int
}

// NewWalk creates a random walk over every symbol that already has a mark.
func NewWalk(ex *Exchange, cfg WalkConfig, symbols ...string) (*Walk, error) {
	if cfg.StepBps <= 0 {
		return nil, fmt.Errorf("stepBps must be > 0")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	for _, s := range symbols {
		if _, ok := ex.Mark(s); !ok {
			return nil, fmt.Errorf("symbol %s has no mark price", s)
		}
	}
	return &Walk{
		ex:      ex,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		symbols: symbols,
	}, nil
}

// Next moves every symbol by one random step and returns the new marks.
func (w *Walk) Next() map[string]decimal.Decimal {
	marks := make(map[string]decimal.Decimal, len(w.symbols))
	for _, s := range w.symbols {
		mark, _ := w.ex.Mark(s)
		bps := w.rng.Int63n(2*w.cfg.StepBps+1) - w.cfg.StepBps + w.cfg.Drift
		next := mark.Add(mark.Mul(decimal.New(bps, -4)))
		if meta, err := w.ex.FetchSymbolMetadata(context.Background(), s); err == nil && meta.TickSize.IsPositive() {
			next = next.Div(meta.TickSize).Round(0).Mul(meta.TickSize)
		}
		if !next.IsPositive() {
			next = mark
		}
		for _, o := range w.ex.Tick(s, next) {
			logs.Infof("[%s] paper %s %s filled at mark %s", s, o.Kind, o.ID, next)
		}
		marks[s] = next
	}
	w.ticks++
	return marks
}

// Ticks returns the number of steps taken.
func (w *Walk) Ticks() int {
	return w.ticks
}

// Run steps the walk every interval until ctx is done.
func (w *Walk) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Next()
		}
	}
}
