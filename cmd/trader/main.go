package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/exchange/binance"
	"dipbot/internal/exchange/paper"
	"dipbot/internal/obs"
	"dipbot/internal/og"
	"dipbot/internal/operator"
	"dipbot/internal/ops"
	"dipbot/internal/precision"
	"dipbot/internal/recorder"
	"dipbot/internal/risk"
	"dipbot/internal/session"
	"dipbot/internal/strategy"
	"dipbot/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

type venue interface {
	og.Exchange
	precision.MetadataSource
}

func main() {
	os.Exit(run())
}

// run returns the process exit code. Every cleanup is deferred here so the
// journal is flushed before the process exits.
func run() int {
	configPath := flag.String("config", "", "Path to JSON config")
	paramsPath := flag.String("params", "", "JSON file with one or more ladders (default: interactive prompt)")
	envPath := flag.String("env", ".env", "Comma separated .env files with API credentials")
	autoYes := flag.Bool("yes", false, "Confirm every ladder without asking")
	dryRun := flag.Bool("dry-run", false, "Trade against the in-memory paper venue")
	flag.Parse()

	if err := ops.LoadEnv(strings.Split(*envPath, ",")...); err != nil {
		log.Printf("env load failed: %v", err)
		return exitSetup
	}
	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Printf("config load failed: %v", err)
		return exitSetup
	}
	if *dryRun {
		loaded.Venue = ops.VenuePaper
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		logs.Info("shutdown signal received, interrupting sessions")
		cancel()
	}()

	if loaded.Profiling.Enabled {
		profiler, err := startProfiler(loaded.Profiling)
		if err != nil {
			logs.Errorf("pyroscope start, err: %+v", err)
			return exitSetup
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	ex, err := newVenue(loaded)
	if err != nil {
		logs.Errorf("venue init, err: %+v", err)
		return exitSetup
	}

	var store precision.Store
	if loaded.Cache.Enabled {
		rdb, err := conn.NewRedis(ctx, loaded.Cache.Redis)
		if err != nil {
			logs.Errorf("redis init, err: %+v", err)
			return exitSetup
		}
		defer rdb.Close()
		store = precision.NewRedisStore(rdb, loaded.Cache.TTL)
	}

	var journal recorder.Recorder = recorder.Nop{}
	if loaded.Journal.Enabled {
		writer, closeJournal, err := startJournal(ctx, loaded.Journal)
		if err != nil {
			logs.Errorf("journal init, err: %+v", err)
			return exitSetup
		}
		defer closeJournal()
		journal = writer
	}

	metrics := obs.NewMetrics()
	if loaded.Metrics.Listen != "" {
		srv := &http.Server{Addr: loaded.Metrics.Listen, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logs.Errorf("metrics server, err: %+v", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	term := operator.NewTerminal(os.Stdin, os.Stdout, *autoYes)
	ctrl, err := session.NewController(session.Options{
		Strategy: loaded.Strategy,
		Exchange: ex,
		Metadata: precision.NewCache(ex, store),
		Risk:     risk.NewEngine(loaded.Risk),
		Operator: term,
		Metrics:  metrics,
		Journal:  journal,
		Tag:      loaded.Tag,
	})
	if err != nil {
		logs.Errorf("controller init, err: %+v", err)
		return exitSetup
	}

	params, err := readParams(ctx, *paramsPath, term)
	if err != nil {
		logs.Errorf("read params, err: %+v", err)
		return exitSetup
	}

	if px, ok := ex.(*paper.Exchange); ok {
		walk, err := seedPaper(px, loaded.Paper, params)
		if err != nil {
			logs.Errorf("paper venue seed, err: %+v", err)
			return exitSetup
		}
		go walk.Run(ctx)
	}

	results, err := ctrl.RunAll(ctx, params)
	if err != nil {
		logs.Errorf("run sessions, err: %+v", err)
	}
	return exitCode(results, err)
}

const (
	exitOK            = 0
	exitSetup         = 1
	exitSessionFailed = 2
)

// exitCode maps the session results to the process exit code.
func exitCode(results []strategy.Result, err error) int {
	if err != nil {
		return exitSetup
	}
	for _, r := range results {
		if r.Failed() {
			return exitSessionFailed
		}
	}
	return exitOK
}

func newVenue(loaded ops.Loaded) (venue, error) {
	if loaded.Venue == ops.VenuePaper {
		logs.Info("paper venue, no real orders will be sent")
		return paper.New(nil), nil
	}
	token := ops.Token()
	if token.IsEmpty() {
		return nil, fmt.Errorf("%s and %s must be set", ops.EnvAPIKey, ops.EnvAPISecret)
	}
	logs.Infof("binance futures venue, testnet: %t", loaded.Testnet)
	return binance.New(binance.Config{Token: token, Testnet: loaded.Testnet})
}

// seedPaper lists every requested symbol on the paper venue with its
// configured precision and its mark at the entry price, and returns a walk
// to move it.
func seedPaper(ex *paper.Exchange, spec ops.PaperSpec, params []session.Params) (*paper.Walk, error) {
	symbols := make([]string, 0, len(params))
	for _, p := range params {
		symbol := adapter.NormalizeSymbol(p.Symbol)
		ex.AddSymbol(spec.Meta(symbol))
		ex.Tick(symbol, p.EntryPrice)
		symbols = append(symbols, symbol)
	}
	return paper.NewWalk(ex, paper.WalkConfig{StepBps: 20, Interval: 500 * time.Millisecond}, symbols...)
}

func startJournal(ctx context.Context, spec ops.JournalSpec) (*recorder.Writer, func(), error) {
	client, err := conn.New(spec.Postgres)
	if err != nil {
		return nil, nil, err
	}
	sink, err := recorder.NewGormSink(client.DB())
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	writer, err := recorder.NewWriter(spec.Writer, sink)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if err := writer.Start(context.WithoutCancel(ctx)); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return writer, func() {
		if err := writer.Close(); err != nil {
			logs.Errorf("journal close, err: %+v", err)
		}
		if n := writer.Dropped(); n > 0 {
			logs.Errorf("journal dropped %d entries", n)
		}
		_ = client.Close()
	}, nil
}

func readParams(ctx context.Context, path string, term *operator.Terminal) ([]session.Params, error) {
	if path != "" {
		return operator.LoadParams(path)
	}
	p, err := term.Prompt(ctx)
	if err != nil {
		return nil, err
	}
	return []session.Params{p}, nil
}

func startProfiler(spec ops.ProfilingSpec) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: spec.ApplicationName,
		ServerAddress:   spec.ServerAddress,
		Tags:            spec.Tags,
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (profilerLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
