package precision

import (
	"context"
	"errors"
	"time"

	"dipbot/internal/adapter"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const _redisKeyPrefix = "dipbot:symbol-meta:"

// RedisStore keeps symbol metadata in Redis so that several processes share
// one exchange lookup.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, symbol string) (adapter.SymbolMeta, bool, error) {
	var meta adapter.SymbolMeta
	val, err := s.rdb.Get(ctx, _redisKeyPrefix+symbol).Result()
	if errors.Is(err, redis.Nil) {
		return meta, false, nil
	}
	if err != nil {
		return meta, false, err
	}
	if err := sonic.UnmarshalString(val, &meta); err != nil {
		s.rdb.Del(ctx, _redisKeyPrefix+symbol)
		return meta, false, err
	}
	return meta, true, nil
}

func (s *RedisStore) Save(ctx context.Context, meta adapter.SymbolMeta) error {
	encoded, err := sonic.Marshal(meta)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, _redisKeyPrefix+meta.Symbol, string(encoded), s.ttl).Err()
}
