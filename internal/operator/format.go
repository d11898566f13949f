package operator

import (
	"fmt"
	"strings"
	"time"

	"dipbot/internal/adapter/enum"
	"dipbot/internal/precision"
	"dipbot/internal/session"
	"dipbot/internal/strategy"
)

// Summary renders a prepared plan with its rounded values.
func Summary(prepared *session.Prepared) string {
	p := prepared.Plan
	var b strings.Builder
	fmt.Fprintf(&b, "\nSession %s\n", prepared.ID)
	fmt.Fprintf(&b, "  Symbol:      %s\n", p.Symbol)
	fmt.Fprintf(&b, "  Direction:   %s\n", p.Direction)
	fmt.Fprintf(&b, "  Entry:       %s x %s\n", precision.FormatPrice(p.EntryPrice, &p.Meta), precision.FormatQuantity(p.EntryVolume, &p.Meta))
	fmt.Fprintf(&b, "  Take profit: %s\n", precision.FormatPrice(p.TakeProfit, &p.Meta))
	fmt.Fprintf(&b, "  Stop loss:   %s\n", precision.FormatPrice(p.StopLoss, &p.Meta))
	for i, dip := range []struct{ limit, volume, target string }{
		{precision.FormatPrice(p.Dip1.Limit, &p.Meta), precision.FormatQuantity(p.Dip1.Volume, &p.Meta), precision.FormatPrice(p.Dip1.Target, &p.Meta)},
		{precision.FormatPrice(p.Dip2.Limit, &p.Meta), precision.FormatQuantity(p.Dip2.Volume, &p.Meta), precision.FormatPrice(p.Dip2.Target, &p.Meta)},
	} {
		fmt.Fprintf(&b, "  Dip buy %d:   limit %s, volume %s, target %s\n", i+1, dip.limit, dip.volume, dip.target)
	}
	if prepared.Reference.IsPositive() {
		fmt.Fprintf(&b, "  Mark price:  %s\n", prepared.Reference)
	}
	return b.String()
}

// Report renders the terminal result of a session.
func Report(r strategy.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] session %s %s after %s\n", r.Symbol, r.SessionID, r.Outcome, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "  volume %s, average entry %s\n", r.Volume, r.AverageEntry)
	for _, leg := range enum.Legs() {
		ls := r.Leg(leg)
		if ls.IsEmpty() {
			continue
		}
		fmt.Fprintf(&b, "  %-11s %s\n", leg.String()+":", ls)
	}
	if r.Cause != nil {
		fmt.Fprintf(&b, "  cause: %v\n", r.Cause)
	}
	if r.CleanupErr != nil {
		fmt.Fprintf(&b, "  cleanup failed, check open orders: %v\n", r.CleanupErr)
	}
	return b.String()
}
