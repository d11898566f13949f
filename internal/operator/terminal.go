// Package operator talks to the human running the bot: it collects ladder
// parameters, asks for confirmation and prints the outcome.
package operator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/internal/session"
	"dipbot/internal/strategy"

	"github.com/shopspring/decimal"
)

// Terminal is a line based operator console.
type Terminal struct {
	mu      sync.Mutex
	in      *bufio.Reader
	out     io.Writer
	autoYes bool
}

// NewTerminal reads answers from in and writes prompts to out. With autoYes
// every plan is confirmed without asking.
func NewTerminal(in io.Reader, out io.Writer, autoYes bool) *Terminal {
	return &Terminal{
		in:      bufio.NewReader(in),
		out:     out,
		autoYes: autoYes,
	}
}

// Prompt collects one parameter set interactively. Invalid answers are asked
// again; end of input aborts.
func (t *Terminal) Prompt(ctx context.Context) (session.Params, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var p session.Params
	var err error
	fmt.Fprintln(t.out, "Dip-buy ladder setup")

	if p.Symbol, err = t.ask(ctx, "Trading pair (e.g. BTCUSDT): ", func(s string) error {
		if adapter.NormalizeSymbol(s) == "" {
			return errors.New("symbol is required")
		}
		return nil
	}); err != nil {
		return p, err
	}
	p.Symbol = adapter.NormalizeSymbol(p.Symbol)

	if p.Direction, err = t.ask(ctx, "Direction (long/short): ", func(s string) error {
		if _, ok := enum.ParseDirection(s); !ok {
			return errors.New("enter 'long' or 'short'")
		}
		return nil
	}); err != nil {
		return p, err
	}
	p.Direction = strings.ToLower(strings.TrimSpace(p.Direction))

	fields := []struct {
		label string
		dst   *decimal.Decimal
	}{
		{"Entry price: ", &p.EntryPrice},
		{"Entry volume: ", &p.EntryVolume},
		{"Take profit price: ", &p.TakeProfit},
		{"Stop-loss price: ", &p.StopLoss},
		{"Dip buy 1 limit price: ", &p.Dip1Limit},
		{"Dip buy 1 volume: ", &p.Dip1Volume},
		{"Dip buy 1 take profit price: ", &p.Dip1Target},
		{"Dip buy 2 limit price: ", &p.Dip2Limit},
		{"Dip buy 2 volume: ", &p.Dip2Volume},
		{"Dip buy 2 take profit price: ", &p.Dip2Target},
	}
	for _, f := range fields {
		if *f.dst, err = t.askDecimal(ctx, f.label); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Confirm prints the rounded plan and proceeds only on an explicit "yes".
func (t *Terminal) Confirm(ctx context.Context, prepared *session.Prepared) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.out, Summary(prepared))
	if t.autoYes {
		fmt.Fprintln(t.out, "Confirmed by -yes.")
		return true, nil
	}

	answer, err := t.readLine(ctx, "Proceed with these parameters? (yes/no): ")
	if err != nil {
		return false, err
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
		fmt.Fprintf(t.out, "[%s] not confirmed, no orders were placed.\n", prepared.Plan.Symbol)
		return false, nil
	}
	return true, nil
}

// Report prints the terminal result of a session.
func (t *Terminal) Report(result strategy.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, Report(result))
}

func (t *Terminal) askDecimal(ctx context.Context, label string) (decimal.Decimal, error) {
	raw, err := t.ask(ctx, label, func(s string) error {
		v, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return errors.New("not a number")
		}
		if !v.IsPositive() {
			return errors.New("must be positive")
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.RequireFromString(strings.TrimSpace(raw)), nil
}

func (t *Terminal) ask(ctx context.Context, label string, valid func(string) error) (string, error) {
	for {
		line, err := t.readLine(ctx, label)
		if err != nil {
			return "", err
		}
		if err := valid(line); err != nil {
			fmt.Fprintf(t.out, "  invalid: %v\n", err)
			continue
		}
		return strings.TrimSpace(line), nil
	}
}

func (t *Terminal) readLine(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(t.out, label)
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) != 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
