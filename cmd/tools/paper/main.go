package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/exchange/paper"
	"dipbot/internal/obs"
	"dipbot/internal/operator"
	"dipbot/internal/ops"
	"dipbot/internal/precision"
	"dipbot/internal/recorder"
	"dipbot/internal/risk"
	"dipbot/internal/session"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config (strategy and risk sections are used)")
	paramsPath := flag.String("params", "", "JSON file with one or more ladders (default: built-in BTCUSDT long ladder)")
	seed := flag.Int64("seed", 0, "Random seed for prices and faults (0=time based)")
	stepBps := flag.Int64("step-bps", 30, "Largest price move per tick in basis points")
	drift := flag.Int64("drift-bps", -5, "Price drift per tick in basis points")
	interval := flag.Duration("interval", 20*time.Millisecond, "Delay between ticks")
	failRate := flag.Float64("fail-rate", 0, "Probability that a venue call fails")
	maxDelay := flag.Duration("max-delay", 0, "Maximum injected latency per venue call")
	timeout := flag.Duration("timeout", time.Minute, "Stop the simulation after this long")
	tick := flag.String("tick-size", "", "Tick size of symbols not listed in the paper config")
	qtyPrecision := flag.Int("qty-precision", -1, "Quantity precision of symbols not listed in the paper config")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *tick != "" {
		tickSize, err := decimal.NewFromString(*tick)
		if err != nil || !tickSize.IsPositive() {
			log.Fatalf("invalid tick-size %q", *tick)
		}
		loaded.Paper.Default.TickSize = tickSize
	}
	if *qtyPrecision >= 0 {
		loaded.Paper.Default.QuantityPrecision = int32(*qtyPrecision)
	}

	params := []session.Params{defaultParams()}
	if *paramsPath != "" {
		if params, err = operator.LoadParams(*paramsPath); err != nil {
			log.Fatalf("params load failed: %v", err)
		}
	}

	faults, err := paper.NewFaults(paper.FaultConfig{Seed: *seed, FailRate: *failRate, MaxDelay: *maxDelay})
	if err != nil {
		log.Fatalf("fault config invalid: %v", err)
	}
	ex := paper.New(faults)
	symbols := make([]string, 0, len(params))
	for _, p := range params {
		symbol := adapter.NormalizeSymbol(p.Symbol)
		ex.AddSymbol(loaded.Paper.Meta(symbol))
		ex.Tick(symbol, p.EntryPrice)
		symbols = append(symbols, symbol)
	}
	walk, err := paper.NewWalk(ex, paper.WalkConfig{Seed: *seed, StepBps: *stepBps, Drift: *drift, Interval: *interval}, symbols...)
	if err != nil {
		log.Fatalf("walk init failed: %v", err)
	}

	strategyCfg := loaded.Strategy
	strategyCfg.PollInterval = *interval
	journal := &recorder.Memory{}
	metrics := obs.NewMetrics()
	ctrl, err := session.NewController(session.Options{
		Strategy: strategyCfg,
		Exchange: ex,
		Metadata: precision.NewCache(ex, nil),
		Risk:     risk.NewEngine(loaded.Risk),
		Operator: operator.NewTerminal(os.Stdin, os.Stdout, true),
		Metrics:  metrics,
		Journal:  journal,
		Tag:      "sim",
	})
	if err != nil {
		log.Fatalf("controller init failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	go walk.Run(ctx)

	results, err := ctrl.RunAll(ctx, params)
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	logs.Infof("simulation done after %d ticks, %d orders placed", walk.Ticks(), ex.PlaceCount())
	for _, e := range journal.Entries() {
		fmt.Printf("%s %-8s %-8s %-4s %-10s %s x %s %s %s\n",
			e.CreatedAt.Format(time.TimeOnly), e.Symbol, e.Action, e.Leg, e.OrderID, e.Price, e.Quantity, e.Outcome, e.Detail)
	}
	for _, r := range results {
		if r.Failed() {
			os.Exit(2)
		}
	}
}

func defaultParams() session.Params {
	d := decimal.RequireFromString
	return session.Params{
		Symbol:      "BTCUSDT",
		Direction:   "long",
		EntryPrice:  d("60000"),
		EntryVolume: d("0.01"),
		TakeProfit:  d("60600"),
		StopLoss:    d("57000"),
		Dip1Limit:   d("59400"),
		Dip1Volume:  d("0.01"),
		Dip1Target:  d("60200"),
		Dip2Limit:   d("58800"),
		Dip2Volume:  d("0.02"),
		Dip2Target:  d("59700"),
	}
}
