package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/internal/detector"
	"dipbot/internal/obs"
	"dipbot/internal/recorder"
	"dipbot/internal/state"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

const (
	DefaultEntryTimeout   = 10 * time.Minute
	DefaultCleanupTimeout = 15 * time.Second
)

// Config bounds the waiting done by a Machine.
type Config struct {
	PollInterval time.Duration
	// EntryTimeout bounds the wait for the entry fill.
	EntryTimeout time.Duration
	// MaxRunDuration bounds the whole run, 0 means unbounded.
	MaxRunDuration time.Duration
	// VerifyFills queries a vanished leg before treating it as filled.
	VerifyFills bool
	// CancelOnInterrupt sweeps open orders when the run is interrupted.
	CancelOnInterrupt bool
	CleanupTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = detector.DefaultPollInterval
	}
	if c.EntryTimeout <= 0 {
		c.EntryTimeout = DefaultEntryTimeout
	}
	if c.CleanupTimeout <= 0 {
		c.CleanupTimeout = DefaultCleanupTimeout
	}
	return c
}

// Gateway is the order surface a Machine drives. It is scoped to one symbol.
type Gateway interface {
	detector.OpenOrderLister
	PlaceLimitOrder(ctx context.Context, leg enum.Leg, side enum.OrderSide, price, qty decimal.Decimal) (adapter.Order, error)
	PlaceStopMarketOrder(ctx context.Context, leg enum.Leg, side enum.OrderSide, stopPrice, qty decimal.Decimal) (adapter.Order, error)
	CancelAllOpenOrders(ctx context.Context) error
	GetOrder(ctx context.Context, id adapter.OrderID) (adapter.Order, error)
	GetOrderStatus(ctx context.Context, id adapter.OrderID) (enum.OrderStatus, error)
	CanceledByUs(id adapter.OrderID) bool
}

// Deps are the optional collaborators of a Machine.
type Deps struct {
	Metrics *obs.Metrics
	Journal recorder.Recorder
}

// Machine owns the ladder of one session. Enter and Step are serialized by
// the machine itself; the getters may be called from any goroutine.
type Machine struct {
	id       string
	cfg      Config
	plan     adapter.Plan
	gw       Gateway
	detector *detector.Detector
	metrics  *obs.Metrics
	journal  recorder.Recorder

	mu         sync.RWMutex
	state      enum.SessionState
	outcome    enum.Outcome
	cause      error
	cleanupErr error
	legs       [enum.LegCount]LegState
	volume     decimal.Decimal
	position   *state.Position
	startedAt  time.Time
	closedAt   time.Time
}

// New creates a machine in AwaitingEntry. The plan must already be rounded.
func New(id string, cfg Config, plan adapter.Plan, gw Gateway, deps Deps) (*Machine, error) {
	if gw == nil {
		return nil, exception.ErrNilInstance
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if gw.Symbol() != plan.Symbol {
		return nil, fmt.Errorf("%w: gateway trades %s, plan is for %s", exception.ErrInvalidParams, gw.Symbol(), plan.Symbol)
	}
	cfg = cfg.withDefaults()
	journal := deps.Journal
	if journal == nil {
		journal = recorder.Nop{}
	}
	return &Machine{
		id:       id,
		cfg:      cfg,
		plan:     plan,
		gw:       gw,
		detector: detector.New(gw, cfg.PollInterval, deps.Metrics),
		metrics:  deps.Metrics,
		journal:  journal,
		state:    enum.SessionAwaitingEntry,
		volume:   decimal.Zero,
		position: state.NewPosition(),
	}, nil
}

// Run places the entry and drives the ladder until it closes, ctx is done
// or MaxRunDuration elapses.
func (m *Machine) Run(ctx context.Context) Result {
	if m.cfg.MaxRunDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.MaxRunDuration)
		defer cancel()
	}

	if err := m.Enter(ctx); err != nil {
		logs.Errorf("[%s] enter session %s, err: %+v", m.plan.Symbol, m.id, err)
		return m.Result()
	}

	for !m.Closed() {
		if err := m.detector.Wait(ctx); err != nil {
			m.Interrupt(ctx, err)
			break
		}
		m.Step(ctx)
	}
	return m.Result()
}

// Enter runs entry sequencing: place the entry, wait for its fill, then
// place the initial take-profit and first dip-buy. Failures close the
// session; the returned error only reports a machine that was already entered.
func (m *Machine) Enter(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case enum.SessionAwaitingEntry:
	case enum.SessionClosed:
		return exception.ErrSessionClosed
	default:
		return fmt.Errorf("%w: state %s", exception.ErrSessionNotActive, m.state)
	}

	m.startedAt = time.Now()
	m.metrics.SessionStarted()
	logs.Infof("[%s] session %s start, %s entry %s x %s",
		m.plan.Symbol, m.id, m.plan.Direction, m.plan.EntryPrice, m.plan.EntryVolume)

	entry, err := m.gw.PlaceLimitOrder(ctx, enum.LegEntry, m.plan.EntrySide(), m.plan.EntryPrice, m.plan.EntryVolume)
	if err != nil {
		m.abort(ctx, err)
		return nil
	}
	m.legs[enum.LegEntry] = live(entry)
	m.state = enum.SessionEntryPlaced

	entry, outcome, err := m.awaitEntry(ctx, entry)
	if err != nil {
		switch {
		case outcome == enum.OutcomeError:
			m.abort(ctx, err)
		case outcome == enum.OutcomeEntryRejected && entry.Filled.IsPositive():
			m.fill(ctx, enum.LegEntry, entry)
			if v, rerr := m.roundVolume(); rerr == nil {
				m.volume = v
			}
			m.close(ctx, enum.OutcomeError, fmt.Errorf("%w, %s of %s filled before, position has no exit orders",
				err, entry.Filled, entry.Quantity))
		case outcome == enum.OutcomeEntryRejected:
			m.legs[enum.LegEntry] = resolved(entry, ResolutionRejected)
			m.close(ctx, outcome, err)
		default:
			m.close(ctx, outcome, err)
		}
		return nil
	}
	m.fill(ctx, enum.LegEntry, entry)

	volume, err := m.roundVolume()
	if err != nil {
		m.close(ctx, enum.OutcomeError, err)
		return nil
	}
	m.volume = volume

	tp, err := m.gw.PlaceLimitOrder(ctx, enum.LegTakeProfit, m.plan.ExitSide(), m.plan.TakeProfit, m.volume)
	if err != nil {
		m.abort(ctx, err)
		return nil
	}
	m.legs[enum.LegTakeProfit] = live(tp)

	dip, err := m.gw.PlaceLimitOrder(ctx, enum.LegDipBuy1, m.plan.EntrySide(), m.plan.Dip1.Limit, m.plan.Dip1.Volume)
	if err != nil {
		m.abort(ctx, err)
		return nil
	}
	m.legs[enum.LegDipBuy1] = live(dip)

	m.state = enum.SessionRunning
	logs.Infof("[%s] session %s running, tp %s x %s, dip 1 %s x %s",
		m.plan.Symbol, m.id, tp.Price, tp.Quantity, dip.Price, dip.Quantity)
	return nil
}

// awaitEntry polls the entry order until it fills, fails or the entry
// timeout passes. It returns the last seen order with its filled quantity.
func (m *Machine) awaitEntry(ctx context.Context, entry adapter.Order) (adapter.Order, enum.Outcome, error) {
	wctx, cancel := context.WithTimeout(ctx, m.cfg.EntryTimeout)
	defer cancel()

	for {
		switch entry.Status {
		case enum.OrderStatusFilled:
			return entry, 0, nil
		case enum.OrderStatusCanceled, enum.OrderStatusRejected, enum.OrderStatusExpired:
			return entry, enum.OutcomeEntryRejected, fmt.Errorf("%w: entry %s is %s", exception.ErrEntryRejected, entry.ID, entry.Status)
		}

		if err := m.detector.Wait(wctx); err != nil {
			if ctx.Err() != nil {
				return entry, enum.OutcomeInterrupted, ctx.Err()
			}
			return entry, enum.OutcomeEntryTimeout, fmt.Errorf("%w: entry %s still %s after %s",
				exception.ErrEntryTimeout, entry.ID, entry.Status, m.cfg.EntryTimeout)
		}

		got, err := m.gw.GetOrder(ctx, entry.ID)
		if err != nil {
			return entry, enum.OutcomeError, err
		}
		entry.Status = got.Status
		entry.Filled = got.Filled
		if got.Status == enum.OrderStatusFilled && !got.Filled.IsPositive() {
			entry.Filled = entry.Quantity
		}
	}
}

// Step runs one poll cycle and reports whether the session is closed. At
// most one rule acts per cycle, in the order take-profit, stop-loss,
// dip-buy 1, dip-buy 2.
func (m *Machine) Step(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != enum.SessionRunning {
		return m.state == enum.SessionClosed
	}

	gone, err := m.detector.PollOnce(ctx, m.liveIDs())
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		m.close(ctx, enum.OutcomeError, err)
		return true
	}

	for _, leg := range ruleOrder {
		ls := m.legs[leg]
		if !ls.IsLive() || !gone.Has(ls.Order.ID) {
			continue
		}
		m.onVanished(ctx, leg)
		break
	}
	return m.state == enum.SessionClosed
}

var ruleOrder = [...]enum.Leg{enum.LegTakeProfit, enum.LegStopLoss, enum.LegDipBuy1, enum.LegDipBuy2}

// Interrupt closes a session that is still active with OutcomeInterrupted.
func (m *Machine) Interrupt(ctx context.Context, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == enum.SessionClosed {
		return
	}
	if cause == nil {
		cause = context.Canceled
	}
	m.close(ctx, enum.OutcomeInterrupted, cause)
}

func (m *Machine) liveIDs() adapter.IDSet {
	ids := make(adapter.IDSet, len(ruleOrder))
	for _, leg := range ruleOrder {
		if ls := m.legs[leg]; ls.IsLive() {
			ids.Add(ls.Order.ID)
		}
	}
	return ids
}

// ID returns the session id.
func (m *Machine) ID() string {
	return m.id
}

// Plan returns the ladder the machine executes.
func (m *Machine) Plan() adapter.Plan {
	return m.plan
}

func (m *Machine) State() enum.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) Closed() bool {
	return m.State() == enum.SessionClosed
}

func (m *Machine) Outcome() enum.Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.outcome
}

// Leg returns the current state of one leg.
func (m *Machine) Leg(leg enum.Leg) LegState {
	if !leg.IsAvailable() {
		return LegState{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.legs[leg]
}

// Volume returns the cumulative filled volume, rounded to the symbol precision.
func (m *Machine) Volume() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Result returns a snapshot report. It is final once the session is closed.
func (m *Machine) Result() Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Result{
		SessionID:    m.id,
		Symbol:       m.plan.Symbol,
		Direction:    m.plan.Direction,
		State:        m.state,
		Outcome:      m.outcome,
		Cause:        m.cause,
		CleanupErr:   m.cleanupErr,
		Volume:       m.volume,
		AverageEntry: m.position.AverageEntry(),
		Legs:         m.legs,
		StartedAt:    m.startedAt,
		ClosedAt:     m.closedAt,
	}
}
