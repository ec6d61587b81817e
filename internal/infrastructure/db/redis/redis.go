// Package redis holds the short-lived guard state of the account service:
// rate-limit windows and CSRF secrets. Nothing here is authoritative; losing
// the keyspace only resets windows and forces clients to fetch a new token.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Config selects the Redis instance backing the guards.
type Config struct {
	Addr     string
	Password string
	DB       int
	// PoolSize of 0 keeps the driver default.
	PoolSize int
}

// Connect dials Redis and fails fast when the server does not answer a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  pingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
