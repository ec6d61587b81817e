package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

// RateLimiter enforces fixed-window limits per (client, endpoint class).
type RateLimiter struct {
	counter ports.RateCounter
	rules   map[domain.EndpointClass]domain.RateLimitRule
	enabled bool
	log     zerolog.Logger
}

func NewRateLimiter(counter ports.RateCounter, rules map[domain.EndpointClass]domain.RateLimitRule, enabled bool, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{counter: counter, rules: rules, enabled: enabled, log: log}
}

// Allow records a hit for client in class and returns a
// *domain.RateLimitError once the window's budget is spent. Counter failures
// let the request through.
func (l *RateLimiter) Allow(ctx context.Context, class domain.EndpointClass, client string) error {
	if !l.enabled {
		return nil
	}
	rule, ok := l.rules[class]
	if !ok || rule.Max <= 0 || rule.Window <= 0 {
		return nil
	}

	count, remaining, err := l.counter.Hit(ctx, rateKey(class, client), rule.Window)
	if err != nil {
		l.log.Warn().Err(err).Str("class", string(class)).Msg("rate counter unavailable, allowing request")
		return nil
	}
	if count > int64(rule.Max) {
		if remaining <= 0 {
			remaining = rule.Window
		}
		return &domain.RateLimitError{Class: class, RetryAfter: remaining}
	}
	return nil
}

func rateKey(class domain.EndpointClass, client string) string {
	return "rl:" + string(class) + ":" + client
}
