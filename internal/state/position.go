package state

import (
	"sync"

	"dipbot/internal/adapter/enum"

	"github.com/shopspring/decimal"
)

// Fill is one ladder leg that was treated as filled.
type Fill struct {
	Leg      enum.Leg
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Snapshot is a point-in-time copy of a position.
type Snapshot struct {
	Volume       decimal.Decimal
	AverageEntry decimal.Decimal
	Fills        []Fill
}

// Position accumulates the entry-side fills of one session. Exit legs close
// the session and are never applied here.
type Position struct {
	mu    sync.RWMutex
	fills []Fill
	legs  [enum.LegCount]bool
}

// NewPosition creates an empty position.
func NewPosition() *Position {
	return &Position{}
}

// ApplyFill adds a fill and returns the new raw cumulative volume. A leg is
// applied at most once; a repeat returns ok false and changes nothing.
func (p *Position) ApplyFill(fill Fill) (decimal.Decimal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !fill.Leg.IsAvailable() || p.legs[fill.Leg] {
		return p.volume(), false
	}
	p.legs[fill.Leg] = true
	p.fills = append(p.fills, fill)
	return p.volume(), true
}

// Has reports whether leg was applied.
func (p *Position) Has(leg enum.Leg) bool {
	if !leg.IsAvailable() {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.legs[leg]
}

// Volume returns the raw cumulative volume, before exchange rounding.
func (p *Position) Volume() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume()
}

// AverageEntry returns the volume-weighted entry price, zero when flat.
func (p *Position) AverageEntry() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.average()
}

// Snapshot copies the current position.
func (p *Position) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	fills := make([]Fill, len(p.fills))
	copy(fills, p.fills)
	return Snapshot{
		Volume:       p.volume(),
		AverageEntry: p.average(),
		Fills:        fills,
	}
}

// Count returns the number of applied fills.
func (p *Position) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.fills)
}

func (p *Position) volume() decimal.Decimal {
	total := decimal.Zero
	for _, f := range p.fills {
		total = total.Add(f.Quantity)
	}
	return total
}

func (p *Position) average() decimal.Decimal {
	volume := p.volume()
	if !volume.IsPositive() {
		return decimal.Zero
	}
	notional := decimal.Zero
	for _, f := range p.fills {
		notional = notional.Add(f.Price.Mul(f.Quantity))
	}
	return notional.Div(volume)
}
