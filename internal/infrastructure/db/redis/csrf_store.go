package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signatech/account-service/internal/core/ports"
)

// CSRFStore keeps per-session CSRF secrets.
// Key format: csrf:<session_id>
type CSRFStore struct {
	client *redis.Client
}

// NewCSRFStore creates a CSRFStore wrapping the given Redis client.
func NewCSRFStore(client *redis.Client) *CSRFStore {
	return &CSRFStore{client: client}
}

var _ ports.CSRFSecretStore = (*CSRFStore)(nil)

// GetOrCreate stores candidate with SETNX so concurrent first requests of a
// session agree on one secret.
func (s *CSRFStore) GetOrCreate(ctx context.Context, sessionID, candidate string, ttl time.Duration) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, s.key(sessionID), candidate, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("csrf store: %w", err)
		}
		if ok {
			return candidate, nil
		}
		existing, err := s.Get(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if existing != "" {
			return existing, nil
		}
		// Expired between SETNX and GET; try again.
	}
	return "", errors.New("csrf store: secret vanished during creation")
}

// Get returns "" when the session has no secret.
func (s *CSRFStore) Get(ctx context.Context, sessionID string) (string, error) {
	secret, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("csrf store: %w", err)
	}
	return secret, nil
}

func (s *CSRFStore) key(sessionID string) string {
	return "csrf:" + sessionID
}
