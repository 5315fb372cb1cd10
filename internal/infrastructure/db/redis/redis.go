// Package redis connects to Redis and implements the role cache on it.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPingTimeout = 5 * time.Second
	defaultOpTimeout   = 500 * time.Millisecond
)

// Config describes the Redis connection. An empty Addr means "no Redis"; the
// caller decides what to do about that before calling Connect.
type Config struct {
	Addr     string
	Password string
	DB       int
	// OpTimeout bounds every read and write. Role lookups fall back to the
	// database on error, so this is kept short.
	OpTimeout time.Duration
}

func (c Config) options() *redis.Options {
	op := c.OpTimeout
	if op <= 0 {
		op = defaultOpTimeout
	}
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		ReadTimeout:  op,
		WriteTimeout: op,
	}
}

// Connect builds a client and pings it once.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
