package conn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisDialTimeout = 3 * time.Second

// RedisOption defines connection options for the metadata cache tier.
type RedisOption struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewRedis connects to Redis and pings it once.
func NewRedis(ctx context.Context, option RedisOption) (*redis.Client, error) {
	if option.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	dialTimeout := option.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultRedisDialTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        option.Addr,
		Password:    option.Password,
		DB:          option.DB,
		DialTimeout: dialTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", option.Addr, err)
	}
	return rdb, nil
}
