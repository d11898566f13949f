package session

import (
	"context"
	"fmt"
	"sync"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/internal/obs"
	"dipbot/internal/og"
	"dipbot/internal/precision"
	"dipbot/internal/recorder"
	"dipbot/internal/risk"
	"dipbot/internal/strategy"
	"dipbot/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"
)

// MetadataLookup resolves symbol precision rules.
type MetadataLookup interface {
	Lookup(ctx context.Context, symbol string) (*adapter.SymbolMeta, error)
}

// MarkPricer is implemented by venues that can quote a reference price for
// the risk price band.
type MarkPricer interface {
	MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Operator is the human on the other side of the terminal.
type Operator interface {
	Confirm(ctx context.Context, prepared *Prepared) (bool, error)
	Report(result strategy.Result)
}

// Options wires a Controller.
type Options struct {
	Strategy strategy.Config
	Exchange og.Exchange
	Metadata MetadataLookup
	Risk     *risk.Engine
	Operator Operator
	Metrics  *obs.Metrics
	Journal  recorder.Recorder
	// Tag prefixes client order ids.
	Tag string
}

// Prepared is a validated, rounded plan waiting for confirmation.
type Prepared struct {
	ID        string
	Plan      adapter.Plan
	Reference decimal.Decimal
	Risk      risk.Decision
}

// Controller turns operator parameters into running sessions. Sessions for
// different symbols run concurrently; they share only the metadata cache.
type Controller struct {
	opt Options

	mu     sync.Mutex
	active map[string]string
}

func NewController(opt Options) (*Controller, error) {
	if opt.Exchange == nil || opt.Metadata == nil || opt.Operator == nil {
		return nil, exception.ErrNilInstance
	}
	if opt.Risk == nil {
		opt.Risk = risk.NewEngine(risk.Config{})
	}
	return &Controller{opt: opt, active: make(map[string]string)}, nil
}

// Prepare validates the direction, rounds every price and volume to the
// symbol's precision and runs the risk checks. Nothing is placed.
func (c *Controller) Prepare(ctx context.Context, p Params) (*Prepared, error) {
	direction, ok := enum.ParseDirection(p.Direction)
	if !ok {
		return nil, fmt.Errorf("%w: got %q", exception.ErrInvalidDirection, p.Direction)
	}

	meta, err := c.opt.Metadata.Lookup(ctx, p.Symbol)
	if err != nil {
		return nil, err
	}

	plan, err := buildPlan(p, direction, meta)
	if err != nil {
		return nil, err
	}

	reference := decimal.Zero
	if pricer, ok := c.opt.Exchange.(MarkPricer); ok {
		if mark, err := pricer.MarkPrice(ctx, plan.Symbol); err == nil {
			reference = mark
		} else {
			logs.Warnf("[%s] mark price unavailable, price band skipped, err: %+v", plan.Symbol, err)
		}
	}

	decision := c.opt.Risk.Evaluate(plan, reference)
	if err := decision.Err(); err != nil {
		return nil, err
	}

	return &Prepared{
		ID:        uuid.NewString(),
		Plan:      plan,
		Reference: reference,
		Risk:      decision,
	}, nil
}

func buildPlan(p Params, direction enum.Direction, meta *adapter.SymbolMeta) (adapter.Plan, error) {
	var err error
	price := func(v decimal.Decimal) decimal.Decimal {
		if err != nil {
			return v
		}
		var out decimal.Decimal
		out, err = precision.RoundPrice(v, meta)
		return out
	}
	qty := func(v decimal.Decimal) decimal.Decimal {
		if err != nil {
			return v
		}
		var out decimal.Decimal
		out, err = precision.RoundQuantity(v, meta)
		return out
	}

	plan := adapter.Plan{
		Symbol:      meta.Symbol,
		Direction:   direction,
		EntryPrice:  price(p.EntryPrice),
		EntryVolume: qty(p.EntryVolume),
		TakeProfit:  price(p.TakeProfit),
		StopLoss:    price(p.StopLoss),
		Dip1: adapter.DipBuy{
			Limit:  price(p.Dip1Limit),
			Volume: qty(p.Dip1Volume),
			Target: price(p.Dip1Target),
		},
		Dip2: adapter.DipBuy{
			Limit:  price(p.Dip2Limit),
			Volume: qty(p.Dip2Volume),
			Target: price(p.Dip2Target),
		},
		Meta: *meta,
	}
	if err != nil {
		return adapter.Plan{}, err
	}
	if err := plan.Validate(); err != nil {
		return adapter.Plan{}, err
	}
	return plan, nil
}

// Confirm asks the operator. Anything but an explicit yes is ErrNotConfirmed.
func (c *Controller) Confirm(ctx context.Context, prepared *Prepared) error {
	ok, err := c.opt.Operator.Confirm(ctx, prepared)
	if err != nil {
		return fmt.Errorf("%w: %w", exception.ErrNotConfirmed, err)
	}
	if !ok {
		return exception.ErrNotConfirmed
	}
	return nil
}

// Execute runs a confirmed session to its terminal state and reports it.
// The only error is ErrDuplicateSymbol; session failures are in the Result.
func (c *Controller) Execute(ctx context.Context, prepared *Prepared) (strategy.Result, error) {
	symbol := prepared.Plan.Symbol
	if err := c.claim(symbol, prepared.ID); err != nil {
		return strategy.Result{}, err
	}
	defer c.release(symbol)

	gw := og.NewGateway(og.GatewayConfig{
		Symbol:    symbol,
		SessionID: prepared.ID,
		Tag:       c.opt.Tag,
	}, c.opt.Exchange, c.opt.Metrics, c.opt.Journal)

	m, err := strategy.New(prepared.ID, c.opt.Strategy, prepared.Plan, gw, strategy.Deps{
		Metrics: c.opt.Metrics,
		Journal: c.opt.Journal,
	})
	if err != nil {
		return strategy.Result{}, err
	}

	result := m.Run(ctx)
	c.opt.Operator.Report(result)
	return result, nil
}

// Run prepares, confirms and executes one session.
func (c *Controller) Run(ctx context.Context, p Params) (strategy.Result, error) {
	prepared, err := c.Prepare(ctx, p)
	if err != nil {
		return strategy.Result{}, err
	}
	if err := c.Confirm(ctx, prepared); err != nil {
		return strategy.Result{}, err
	}
	return c.Execute(ctx, prepared)
}

// RunAll prepares and confirms every parameter set first, then executes
// the sessions concurrently. Any preparation or confirmation failure aborts
// before an order is placed. Results keep the input order.
func (c *Controller) RunAll(ctx context.Context, params []Params) ([]strategy.Result, error) {
	prepared := make([]*Prepared, 0, len(params))
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		prep, err := c.Prepare(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", adapter.NormalizeSymbol(p.Symbol), err)
		}
		if _, dup := seen[prep.Plan.Symbol]; dup {
			return nil, fmt.Errorf("%w: %s", exception.ErrDuplicateSymbol, prep.Plan.Symbol)
		}
		seen[prep.Plan.Symbol] = struct{}{}
		prepared = append(prepared, prep)
	}
	for _, prep := range prepared {
		if err := c.Confirm(ctx, prep); err != nil {
			return nil, fmt.Errorf("%s: %w", prep.Plan.Symbol, err)
		}
	}

	results := make([]strategy.Result, len(prepared))
	var eg errgroup.Group
	for i, prep := range prepared {
		eg.Go(func() error {
			res, err := c.Execute(ctx, prep)
			if err != nil {
				return fmt.Errorf("%s: %w", prep.Plan.Symbol, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (c *Controller) claim(symbol, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if other, ok := c.active[symbol]; ok {
		return fmt.Errorf("%w: %s is run by session %s", exception.ErrDuplicateSymbol, symbol, other)
	}
	c.active[symbol] = id
	return nil
}

func (c *Controller) release(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, symbol)
}
