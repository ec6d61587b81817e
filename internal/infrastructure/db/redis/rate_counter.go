package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signatech/account-service/internal/core/ports"
)

// RateCounter implements fixed windows with INCR and a PEXPIRE set on the
// first hit. Key format: rl:<class>:<client>
type RateCounter struct {
	client *redis.Client
}

// NewRateCounter creates a RateCounter wrapping the given Redis client.
func NewRateCounter(client *redis.Client) *RateCounter {
	return &RateCounter{client: client}
}

var _ ports.RateCounter = (*RateCounter)(nil)

// Hit increments key and returns the new count with the time left in the
// window. A key left without expiry is repaired on the next hit.
func (c *RateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("rate counter: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		if err := c.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("rate counter expire: %w", err)
		}
		remaining = window
	}
	return incr.Val(), remaining, nil
}
