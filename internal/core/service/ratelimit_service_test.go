package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/core/domain"
)

// memoryCounter is a fixed-window counter driven by a fake clock.
type memoryCounter struct {
	mu      sync.Mutex
	clock   *fakeClock
	counts  map[string]int64
	expires map[string]time.Time
	err     error
}

func newMemoryCounter(clock *fakeClock) *memoryCounter {
	return &memoryCounter{clock: clock, counts: map[string]int64{}, expires: map[string]time.Time{}}
}

func (c *memoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, 0, c.err
	}
	now := c.clock.Now()
	if exp, ok := c.expires[key]; !ok || !now.Before(exp) {
		c.counts[key] = 0
		c.expires[key] = now.Add(window)
	}
	c.counts[key]++
	return c.counts[key], c.expires[key].Sub(now), nil
}

func authRules() map[domain.EndpointClass]domain.RateLimitRule {
	return map[domain.EndpointClass]domain.RateLimitRule{
		domain.ClassAuth: {Max: 3, Window: 15 * time.Minute},
	}
}

func TestRateLimiter_RejectsOverLimitAndResets(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(newMemoryCounter(clock), authRules(), true, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx, domain.ClassAuth, "1.2.3.4"); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}

	clock.Advance(5 * time.Minute)
	err := limiter.Allow(ctx, domain.ClassAuth, "1.2.3.4")
	var rle *domain.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if !errors.Is(err, domain.ErrTooManyRequests) {
		t.Fatalf("expected error to match ErrTooManyRequests")
	}
	if rle.RetryAfter != 10*time.Minute {
		t.Fatalf("expected retry after 10m, got %s", rle.RetryAfter)
	}

	// Other clients and classes are unaffected.
	if err := limiter.Allow(ctx, domain.ClassAuth, "5.6.7.8"); err != nil {
		t.Fatalf("other client rejected: %v", err)
	}
	if err := limiter.Allow(ctx, domain.ClassGeneral, "1.2.3.4"); err != nil {
		t.Fatalf("unconfigured class rejected: %v", err)
	}

	clock.Advance(10 * time.Minute)
	if err := limiter.Allow(ctx, domain.ClassAuth, "1.2.3.4"); err != nil {
		t.Fatalf("expected new window to allow, got %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(newMemoryCounter(clock), authRules(), false, zerolog.Nop())
	for i := 0; i < 10; i++ {
		if err := limiter.Allow(context.Background(), domain.ClassAuth, "1.2.3.4"); err != nil {
			t.Fatalf("disabled limiter rejected request: %v", err)
		}
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	counter := newMemoryCounter(newFakeClock())
	counter.err = errors.New("redis down")
	limiter := NewRateLimiter(counter, authRules(), true, zerolog.Nop())
	if err := limiter.Allow(context.Background(), domain.ClassAuth, "1.2.3.4"); err != nil {
		t.Fatalf("expected request to pass when the counter fails, got %v", err)
	}
}
