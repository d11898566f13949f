package paper

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"dipbot/pkg/exception"
)

// Op names an exchange call that faults can target.
type Op string

const (
	OpPlace  Op = "place"
	OpCancel Op = "cancel"
	OpList   Op = "list"
	OpQuery  Op = "query"
)

// FaultConfig controls random failure injection.
type FaultConfig struct {
	Seed     int64
	FailRate float64
	MaxDelay time.Duration
}

// Validate ensures the config is within supported ranges.
func (c FaultConfig) Validate() error {
	if c.FailRate < 0 || c.FailRate > 1 {
		return fmt.Errorf("failRate must be between 0 and 1")
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("maxDelay must be >= 0")
	}
	return nil
}

// Faults injects failures into exchange calls, both scripted (FailNext) and
// random (FailRate). A nil *Faults injects nothing.
type Faults struct {
	mu      sync.Mutex
	cfg     FaultConfig
	rng     *rand.Rand
	scripts map[Op][]error
}

// NewFaults creates a fault injector with validation.
func NewFaults(cfg FaultConfig) (*Faults, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Faults{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		scripts: make(map[Op][]error),
	}, nil
}

// FailNext makes the next call of op return err. Calls queue up.
func (f *Faults) FailNext(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = exception.ErrPaperFault
	}
	f.scripts[op] = append(f.scripts[op], err)
}

func (f *Faults) check(op Op) error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	if q := f.scripts[op]; len(q) != 0 {
		err := q[0]
		f.scripts[op] = q[1:]
		f.mu.Unlock()
		return err
	}
	fail := f.cfg.FailRate > 0 && f.rng.Float64() < f.cfg.FailRate
	var delay time.Duration
	if f.cfg.MaxDelay > 0 {
		delay = time.Duration(f.rng.Int63n(f.cfg.MaxDelay.Nanoseconds() + 1))
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return fmt.Errorf("%w: random %s failure", exception.ErrPaperFault, op)
	}
	return nil
}
