package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

const (
	csrfSecretBytes = 18
	csrfSaltBytes   = 8
)

// CSRFGuard issues per-session secrets and verifies tokens derived from
// them. A token is "salt.mac" where mac is HMAC-SHA256(secret, salt).
type CSRFGuard struct {
	store ports.CSRFSecretStore
	ttl   time.Duration
}

func NewCSRFGuard(store ports.CSRFSecretStore, ttl time.Duration) *CSRFGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CSRFGuard{store: store, ttl: ttl}
}

// Token returns a fresh token for the session, creating its secret on first
// use.
func (g *CSRFGuard) Token(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", domain.ErrCSRFInvalid
	}
	candidate, err := randomToken(csrfSecretBytes)
	if err != nil {
		return "", fmt.Errorf("csrf secret: %w", err)
	}
	secret, err := g.store.GetOrCreate(ctx, sessionID, candidate, g.ttl)
	if err != nil {
		return "", fmt.Errorf("csrf secret: %w", err)
	}
	salt, err := randomToken(csrfSaltBytes)
	if err != nil {
		return "", fmt.Errorf("csrf salt: %w", err)
	}
	return deriveCSRFToken(secret, salt), nil
}

// Verify checks token against the session's secret.
func (g *CSRFGuard) Verify(ctx context.Context, sessionID, token string) error {
	if sessionID == "" || token == "" {
		return domain.ErrCSRFInvalid
	}
	secret, err := g.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("csrf secret: %w", err)
	}
	if secret == "" {
		return domain.ErrCSRFInvalid
	}
	salt, _, ok := strings.Cut(token, ".")
	if !ok || salt == "" {
		return domain.ErrCSRFInvalid
	}
	if !hmac.Equal([]byte(deriveCSRFToken(secret, salt)), []byte(token)) {
		return domain.ErrCSRFInvalid
	}
	return nil
}

func deriveCSRFToken(secret, salt string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(salt))
	return salt + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
