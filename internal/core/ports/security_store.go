package ports

import (
	"context"
	"time"
)

// RateCounter counts hits inside fixed windows.
type RateCounter interface {
	// Hit increments key. The first hit of a window starts it with the given
	// length. It returns the count so far and the time left in the window.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// CSRFSecretStore keeps one secret per client session.
type CSRFSecretStore interface {
	// GetOrCreate returns the secret for sessionID, storing candidate when
	// none exists yet. Concurrent callers observe the same secret.
	GetOrCreate(ctx context.Context, sessionID, candidate string, ttl time.Duration) (string, error)
	// Get returns the stored secret, or "" when there is none.
	Get(ctx context.Context, sessionID string) (string, error)
}
