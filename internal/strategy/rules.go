package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/internal/precision"
	"dipbot/internal/recorder"
	"dipbot/internal/state"
	"dipbot/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

func (m *Machine) onVanished(ctx context.Context, leg enum.Leg) {
	order := m.legs[leg].Order
	if err := m.confirmFill(ctx, order); err != nil {
		m.legs[leg] = resolved(order, ResolutionVanished)
		m.close(ctx, enum.OutcomeError, fmt.Errorf("%s %s: %w", leg, order.ID, err))
		return
	}

	switch leg {
	case enum.LegTakeProfit:
		m.legs[leg] = resolved(order, ResolutionFilled)
		m.record(ctx, recorder.EntryFromOrder(m.id, recorder.ActionFilled, leg, order))
		m.close(ctx, enum.OutcomeTakeProfitHit, nil)
	case enum.LegStopLoss:
		m.legs[leg] = resolved(order, ResolutionFilled)
		m.record(ctx, recorder.EntryFromOrder(m.id, recorder.ActionFilled, leg, order))
		m.close(ctx, enum.OutcomeStopLossHit, nil)
	case enum.LegDipBuy1, enum.LegDipBuy2:
		m.replan(ctx, leg, order)
	}
}

// confirmFill decides whether a vanished order filled. An order this session
// cancelled never counts as a fill; with VerifyFills the exchange status must
// also say FILLED.
func (m *Machine) confirmFill(ctx context.Context, order adapter.Order) error {
	if m.gw.CanceledByUs(order.ID) {
		return fmt.Errorf("%w: cancelled by this session", exception.ErrLegVanished)
	}
	if !m.cfg.VerifyFills {
		return nil
	}
	got, err := m.gw.GetOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if got.Status != enum.OrderStatusFilled {
		return fmt.Errorf("%w: status %s", exception.ErrLegVanished, got.Status)
	}
	return nil
}

// replan reacts to a filled dip-buy: sweep the book, resize the take-profit
// to the new cumulative volume at the dip's target, then place the next dip
// (after dip 1) or arm the stop-loss (after dip 2). The first failure closes
// the session with OutcomeError and nothing is rolled back.
func (m *Machine) replan(ctx context.Context, leg enum.Leg, order adapter.Order) {
	dip := m.plan.Dip1
	if leg == enum.LegDipBuy2 {
		dip = m.plan.Dip2
	}

	m.fill(ctx, leg, order)
	m.metrics.ObserveReplan(m.plan.Symbol, leg)
	logs.Infof("[%s] %s filled at %s, re-plan", m.plan.Symbol, leg, order.Price)

	if err := m.gw.CancelAllOpenOrders(ctx); err != nil {
		m.abort(ctx, fmt.Errorf("re-plan after %s: %w", leg, err))
		return
	}
	if tp := m.legs[enum.LegTakeProfit]; tp.IsLive() {
		m.legs[enum.LegTakeProfit] = resolved(tp.Order, ResolutionCanceled)
	}

	volume, err := m.roundVolume()
	if err != nil {
		m.close(ctx, enum.OutcomeError, err)
		return
	}
	m.volume = volume

	tp, err := m.gw.PlaceLimitOrder(ctx, enum.LegTakeProfit, m.plan.ExitSide(), dip.Target, m.volume)
	if err != nil {
		m.abort(ctx, fmt.Errorf("re-plan after %s: %w", leg, err))
		return
	}
	m.legs[enum.LegTakeProfit] = live(tp)

	var next adapter.Order
	if leg == enum.LegDipBuy1 {
		next, err = m.gw.PlaceLimitOrder(ctx, enum.LegDipBuy2, m.plan.EntrySide(), m.plan.Dip2.Limit, m.plan.Dip2.Volume)
	} else {
		next, err = m.gw.PlaceStopMarketOrder(ctx, enum.LegStopLoss, m.plan.ExitSide(), m.plan.StopLoss, m.volume)
	}
	if err != nil {
		m.abort(ctx, fmt.Errorf("re-plan after %s: %w", leg, err))
		return
	}
	nextLeg := enum.LegDipBuy2
	if leg == enum.LegDipBuy2 {
		nextLeg = enum.LegStopLoss
	}
	m.legs[nextLeg] = live(next)

	m.record(ctx, recorder.Entry{
		SessionID: m.id,
		Symbol:    m.plan.Symbol,
		Action:    recorder.ActionReplan,
		Leg:       leg.String(),
		Price:     dip.Target,
		Quantity:  m.volume,
		Detail:    fmt.Sprintf("tp %s, %s %s", tp.ID, nextLeg, next.ID),
	})
	logs.Infof("[%s] re-plan done, tp %s x %s, %s %s x %s",
		m.plan.Symbol, tp.Price, tp.Quantity, nextLeg, next.Price, next.Quantity)
}

// fill applies an entry-side fill to the position and resolves the leg.
func (m *Machine) fill(ctx context.Context, leg enum.Leg, order adapter.Order) {
	qty := order.Quantity
	if order.Filled.IsPositive() {
		qty = order.Filled
	}
	if _, ok := m.position.ApplyFill(state.Fill{Leg: leg, Price: order.Price, Quantity: qty}); !ok {
		logs.Warnf("[%s] %s fill %s applied twice, ignored", m.plan.Symbol, leg, order.ID)
		return
	}
	m.legs[leg] = resolved(order, ResolutionFilled)
	m.metrics.ObserveFilledVolume(m.plan.Symbol, m.position.Volume().InexactFloat64())
	m.record(ctx, recorder.EntryFromOrder(m.id, recorder.ActionFilled, leg, order))
}

func (m *Machine) roundVolume() (decimal.Decimal, error) {
	return precision.RoundQuantity(m.position.Volume(), &m.plan.Meta)
}

// abort closes the session after a failed exchange call. A failure caused by
// the caller's cancellation is an interrupt and follows the interrupt policy.
func (m *Machine) abort(ctx context.Context, err error) {
	if ctx.Err() != nil {
		m.close(ctx, enum.OutcomeInterrupted, errors.Join(ctx.Err(), err))
		return
	}
	m.close(ctx, enum.OutcomeError, err)
}

// close moves the session to Closed. Target hits and entry timeouts sweep
// the book; an interrupt sweeps only with CancelOnInterrupt; errors leave
// the exchange untouched.
func (m *Machine) close(ctx context.Context, outcome enum.Outcome, cause error) {
	if m.state == enum.SessionClosed {
		return
	}

	sweep := false
	switch outcome {
	case enum.OutcomeTakeProfitHit, enum.OutcomeStopLossHit, enum.OutcomeEntryTimeout:
		sweep = true
	case enum.OutcomeInterrupted:
		sweep = m.cfg.CancelOnInterrupt
	}

	if sweep {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.CleanupTimeout)
		if err := m.gw.CancelAllOpenOrders(cctx); err != nil {
			m.cleanupErr = err
			logs.Errorf("[%s] session %s cleanup sweep, err: %+v", m.plan.Symbol, m.id, err)
		} else {
			for _, leg := range enum.Legs() {
				if ls := m.legs[leg]; ls.IsLive() {
					m.legs[leg] = resolved(ls.Order, ResolutionCanceled)
				}
			}
		}
		if outcome == enum.OutcomeEntryTimeout {
			outcome, cause = m.recheckEntry(cctx, cause)
		}
		cancel()
	}

	m.state = enum.SessionClosed
	m.outcome = outcome
	m.cause = cause
	m.closedAt = time.Now()
	m.metrics.SessionClosed(m.plan.Symbol, outcome)

	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	m.record(ctx, recorder.Entry{
		SessionID: m.id,
		Symbol:    m.plan.Symbol,
		Action:    recorder.ActionClosed,
		Quantity:  m.volume,
		Outcome:   outcome.String(),
		Detail:    detail,
	})

	switch {
	case outcome.IsError():
		logs.Errorf("[%s] session %s closed, outcome: %s, err: %+v", m.plan.Symbol, m.id, outcome, cause)
	case cause != nil:
		logs.Warnf("[%s] session %s closed, outcome: %s, cause: %v", m.plan.Symbol, m.id, outcome, cause)
	default:
		logs.Infof("[%s] session %s closed, outcome: %s, volume: %s", m.plan.Symbol, m.id, outcome, m.volume)
	}
}

// recheckEntry catches an entry that filled, fully or in part, before or
// while it was being cancelled. Such a position has no exit orders and needs
// the operator.
func (m *Machine) recheckEntry(ctx context.Context, cause error) (enum.Outcome, error) {
	entry := m.legs[enum.LegEntry].Order
	if entry.ID.IsEmpty() {
		return enum.OutcomeEntryTimeout, cause
	}
	got, err := m.gw.GetOrder(ctx, entry.ID)
	if err != nil {
		logs.Warnf("[%s] recheck entry %s after timeout, err: %+v", m.plan.Symbol, entry.ID, err)
		return enum.OutcomeEntryTimeout, cause
	}
	filled := got.Filled
	if got.Status == enum.OrderStatusFilled && !filled.IsPositive() {
		filled = entry.Quantity
	}
	if !filled.IsPositive() {
		return enum.OutcomeEntryTimeout, cause
	}

	entry.Status = got.Status
	entry.Filled = filled
	m.fill(ctx, enum.LegEntry, entry)
	if v, err := m.roundVolume(); err == nil {
		m.volume = v
	}
	return enum.OutcomeError, errors.Join(cause, fmt.Errorf("%w: entry %s filled %s of %s, status %s, position has no exit orders",
		exception.ErrEntryTimeout, entry.ID, filled, entry.Quantity, got.Status))
}

func (m *Machine) record(ctx context.Context, entry recorder.Entry) {
	entry.SessionID = m.id
	if entry.Symbol == "" {
		entry.Symbol = m.plan.Symbol
	}
	entry.CreatedAt = time.Now()
	if err := m.journal.Record(ctx, entry); err != nil {
		logs.Warnf("[%s] journal %s, err: %+v", m.plan.Symbol, entry.Action, err)
	}
}
