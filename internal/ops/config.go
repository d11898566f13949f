package ops

import (
	"fmt"
	"os"
	"strings"
	"time"

	"dipbot/internal/adapter"
	"dipbot/internal/recorder"
	"dipbot/internal/risk"
	"dipbot/internal/strategy"
	"dipbot/pkg/conn"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const (
	VenueBinance = "binance"
	VenuePaper   = "paper"

	EnvAPIKey    = "BINANCE_API_KEY"
	EnvAPISecret = "BINANCE_API_SECRET"

	defaultCacheTTL = 24 * time.Hour
	defaultAppName  = "dipbot"

	defaultPaperQuantityPrecision = 3
)

var defaultPaperTickSize = decimal.New(1, -2)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Exchange  ExchangeConfig  `json:"exchange"`
	Strategy  StrategyConfig  `json:"strategy"`
	Risk      risk.Config     `json:"risk"`
	Cache     CacheConfig     `json:"cache"`
	Journal   JournalConfig   `json:"journal"`
	Metrics   MetricsConfig   `json:"metrics"`
	Profiling ProfilingConfig `json:"profiling"`
	Paper     PaperConfig     `json:"paper"`
}

// ExchangeConfig selects the venue.
type ExchangeConfig struct {
	Venue   string `json:"venue"`
	Testnet *bool  `json:"testnet"`
	Tag     string `json:"clientOrderTag"`
}

// StrategyConfig holds the run loop bounds. Durations are strings like "2s".
type StrategyConfig struct {
	PollInterval      string `json:"pollInterval"`
	EntryTimeout      string `json:"entryTimeout"`
	MaxRunDuration    string `json:"maxRunDuration"`
	CleanupTimeout    string `json:"cleanupTimeout"`
	VerifyFills       *bool  `json:"verifyFills"`
	CancelOnInterrupt *bool  `json:"cancelOnInterrupt"`
}

// CacheConfig enables the Redis tier of the symbol metadata cache.
type CacheConfig struct {
	RedisAddr     string `json:"redisAddr"`
	RedisPassword string `json:"redisPassword"`
	RedisDB       int    `json:"redisDb"`
	TTL           string `json:"ttl"`
}

// JournalConfig enables the PostgreSQL order journal.
type JournalConfig struct {
	DSN           string `json:"dsn"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	User          string `json:"user"`
	Password      string `json:"password"`
	Database      string `json:"database"`
	SSLMode       string `json:"sslMode"`
	QueueSize     int    `json:"queueSize"`
	BatchSize     int    `json:"batchSize"`
	FlushInterval string `json:"flushInterval"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `json:"listen"`
}

// ProfilingConfig enables continuous profiling.
type ProfilingConfig struct {
	ServerAddress   string            `json:"serverAddress"`
	ApplicationName string            `json:"applicationName"`
	Tags            map[string]string `json:"tags"`
}

// PaperConfig sets the precision rules of the paper venue. Symbols not
// listed use the default tick size and quantity precision.
type PaperConfig struct {
	TickSize          decimal.Decimal      `json:"tickSize"`
	QuantityPrecision *int32               `json:"quantityPrecision"`
	Symbols           []adapter.SymbolMeta `json:"symbols"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Venue     string
	Testnet   bool
	Tag       string
	Strategy  strategy.Config
	Risk      risk.Config
	Cache     CacheSpec
	Journal   JournalSpec
	Metrics   MetricsConfig
	Profiling ProfilingSpec
	Paper     PaperSpec
}

type CacheSpec struct {
	Enabled bool
	Redis   conn.RedisOption
	TTL     time.Duration
}

type JournalSpec struct {
	Enabled  bool
	Postgres conn.Option
	Writer   recorder.Config
}

type PaperSpec struct {
	Default adapter.SymbolMeta
	Symbols map[string]adapter.SymbolMeta
}

// Meta returns the precision rules of symbol on the paper venue.
func (s PaperSpec) Meta(symbol string) adapter.SymbolMeta {
	symbol = adapter.NormalizeSymbol(symbol)
	if meta, ok := s.Symbols[symbol]; ok {
		return meta
	}
	meta := s.Default
	meta.Symbol = symbol
	return meta
}

type ProfilingSpec struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
	Tags            map[string]string
}

// Load reads a JSON config file. An empty path yields the defaults.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, err
		}
		if err := sonic.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return Resolve(cfg)
}

// Resolve validates a decoded file and fills in defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	venue := strings.ToLower(strings.TrimSpace(cfg.Exchange.Venue))
	if venue == "" {
		venue = VenueBinance
	}
	if venue != VenueBinance && venue != VenuePaper {
		return Loaded{}, fmt.Errorf("unknown venue %q", cfg.Exchange.Venue)
	}

	strat, err := resolveStrategy(cfg.Strategy)
	if err != nil {
		return Loaded{}, err
	}
	cache, err := resolveCache(cfg.Cache)
	if err != nil {
		return Loaded{}, err
	}
	journal, err := resolveJournal(cfg.Journal)
	if err != nil {
		return Loaded{}, err
	}
	paper, err := resolvePaper(cfg.Paper)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Venue:     venue,
		Testnet:   boolOr(cfg.Exchange.Testnet, true),
		Tag:       cfg.Exchange.Tag,
		Strategy:  strat,
		Risk:      cfg.Risk,
		Cache:     cache,
		Journal:   journal,
		Metrics:   cfg.Metrics,
		Profiling: resolveProfiling(cfg.Profiling),
		Paper:     paper,
	}, nil
}

func resolveStrategy(cfg StrategyConfig) (strategy.Config, error) {
	var (
		out strategy.Config
		err error
	)
	if out.PollInterval, err = duration("strategy.pollInterval", cfg.PollInterval); err != nil {
		return out, err
	}
	if out.EntryTimeout, err = duration("strategy.entryTimeout", cfg.EntryTimeout); err != nil {
		return out, err
	}
	if out.MaxRunDuration, err = duration("strategy.maxRunDuration", cfg.MaxRunDuration); err != nil {
		return out, err
	}
	if out.CleanupTimeout, err = duration("strategy.cleanupTimeout", cfg.CleanupTimeout); err != nil {
		return out, err
	}
	out.VerifyFills = boolOr(cfg.VerifyFills, false)
	out.CancelOnInterrupt = boolOr(cfg.CancelOnInterrupt, true)
	return out, nil
}

func resolveCache(cfg CacheConfig) (CacheSpec, error) {
	ttl, err := duration("cache.ttl", cfg.TTL)
	if err != nil {
		return CacheSpec{}, err
	}
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return CacheSpec{
		Enabled: cfg.RedisAddr != "",
		Redis: conn.RedisOption{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		TTL: ttl,
	}, nil
}

func resolveJournal(cfg JournalConfig) (JournalSpec, error) {
	flush, err := duration("journal.flushInterval", cfg.FlushInterval)
	if err != nil {
		return JournalSpec{}, err
	}
	writer := recorder.Config{
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: flush,
	}
	if err := writer.Validate(); err != nil {
		return JournalSpec{}, fmt.Errorf("journal: %w", err)
	}
	return JournalSpec{
		Enabled: cfg.DSN != "" || cfg.Host != "",
		Postgres: conn.Option{
			Host:       cfg.Host,
			Port:       cfg.Port,
			User:       cfg.User,
			Password:   cfg.Password,
			Database:   cfg.Database,
			SSLMode:    cfg.SSLMode,
			ConnString: cfg.DSN,
		},
		Writer: writer,
	}, nil
}

func resolveProfiling(cfg ProfilingConfig) ProfilingSpec {
	name := cfg.ApplicationName
	if name == "" {
		name = defaultAppName
	}
	return ProfilingSpec{
		Enabled:         cfg.ServerAddress != "",
		ServerAddress:   cfg.ServerAddress,
		ApplicationName: name,
		Tags:            cfg.Tags,
	}
}

func resolvePaper(cfg PaperConfig) (PaperSpec, error) {
	def := adapter.SymbolMeta{TickSize: defaultPaperTickSize, QuantityPrecision: defaultPaperQuantityPrecision}
	if !cfg.TickSize.IsZero() {
		def.TickSize = cfg.TickSize
	}
	if cfg.QuantityPrecision != nil {
		def.QuantityPrecision = *cfg.QuantityPrecision
	}
	if !def.TickSize.IsPositive() || def.QuantityPrecision < 0 {
		return PaperSpec{}, fmt.Errorf("paper: tickSize must be > 0 and quantityPrecision >= 0")
	}

	symbols := make(map[string]adapter.SymbolMeta, len(cfg.Symbols))
	for _, meta := range cfg.Symbols {
		meta.Symbol = adapter.NormalizeSymbol(meta.Symbol)
		if !meta.IsValid() {
			return PaperSpec{}, fmt.Errorf("paper: invalid symbol %q, tick %s, precision %d",
				meta.Symbol, meta.TickSize, meta.QuantityPrecision)
		}
		if _, dup := symbols[meta.Symbol]; dup {
			return PaperSpec{}, fmt.Errorf("paper: symbol %s listed twice", meta.Symbol)
		}
		symbols[meta.Symbol] = meta
	}
	return PaperSpec{Default: def, Symbols: symbols}, nil
}

func duration(field, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %s", field, s)
	}
	return d, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Token reads the exchange credentials from the environment.
func Token() adapter.Token {
	return adapter.NewToken(strings.TrimSpace(os.Getenv(EnvAPIKey)), strings.TrimSpace(os.Getenv(EnvAPISecret)))
}
