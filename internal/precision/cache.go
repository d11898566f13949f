package precision

import (
	"context"
	"fmt"
	"sync"

	"dipbot/internal/adapter"
	"dipbot/pkg/exception"

	"github.com/yanun0323/logs"
	"golang.org/x/sync/singleflight"
)

// MetadataSource fetches symbol metadata from the exchange.
type MetadataSource interface {
	FetchSymbolMetadata(ctx context.Context, symbol string) (adapter.SymbolMeta, error)
}

// Store is a shared second-level cache, e.g. Redis.
type Store interface {
	Load(ctx context.Context, symbol string) (adapter.SymbolMeta, bool, error)
	Save(ctx context.Context, meta adapter.SymbolMeta) error
}

// Cache resolves symbol metadata once per symbol and then serves it read-only.
// It is safe for concurrent sessions.
type Cache struct {
	source MetadataSource
	store  Store

	mu      sync.RWMutex
	entries map[string]adapter.SymbolMeta
	group   singleflight.Group
}

// NewCache creates a cache over source. store may be nil.
func NewCache(source MetadataSource, store Store) *Cache {
	return &Cache{
		source:  source,
		store:   store,
		entries: make(map[string]adapter.SymbolMeta),
	}
}

// Lookup returns the metadata for symbol. Any failure is reported as
// exception.ErrInvalidSymbol.
func (c *Cache) Lookup(ctx context.Context, symbol string) (*adapter.SymbolMeta, error) {
	symbol = adapter.NormalizeSymbol(symbol)
	if len(symbol) == 0 {
		return nil, fmt.Errorf("%w: empty symbol", exception.ErrInvalidSymbol)
	}

	c.mu.RLock()
	meta, ok := c.entries[symbol]
	c.mu.RUnlock()
	if ok {
		return &meta, nil
	}

	v, err, _ := c.group.Do(symbol, func() (any, error) {
		return c.resolve(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	meta = v.(adapter.SymbolMeta)
	return &meta, nil
}

func (c *Cache) resolve(ctx context.Context, symbol string) (adapter.SymbolMeta, error) {
	if c.store != nil {
		meta, ok, err := c.store.Load(ctx, symbol)
		if err != nil {
			logs.Warnf("[%s] metadata store load, err: %+v", symbol, err)
		}
		if ok && meta.IsValid() && meta.Symbol == symbol {
			c.put(meta)
			return meta, nil
		}
	}

	if c.source == nil {
		return adapter.SymbolMeta{}, fmt.Errorf("%w: no metadata source for %s", exception.ErrInvalidSymbol, symbol)
	}
	meta, err := c.source.FetchSymbolMetadata(ctx, symbol)
	if err != nil {
		return adapter.SymbolMeta{}, fmt.Errorf("%w: fetch %s: %w", exception.ErrInvalidSymbol, symbol, err)
	}
	meta.Symbol = symbol
	if !meta.IsValid() {
		return adapter.SymbolMeta{}, fmt.Errorf("%w: unusable metadata for %s", exception.ErrInvalidSymbol, symbol)
	}

	if c.store != nil {
		if err := c.store.Save(ctx, meta); err != nil {
			logs.Warnf("[%s] metadata store save, err: %+v", symbol, err)
		}
	}
	c.put(meta)
	return meta, nil
}

func (c *Cache) put(meta adapter.SymbolMeta) {
	c.mu.Lock()
	c.entries[meta.Symbol] = meta
	c.mu.Unlock()
}
