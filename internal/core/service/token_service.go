package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

const (
	sessionAudience      = "session"
	registrationAudience = "registration"

	defaultContinuationTTL = time.Hour
)

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// PendingRegistration is the data a client holds between register and
// verify-email. The password is already hashed.
type PendingRegistration struct {
	Name         string
	Email        string
	PasswordHash string
	Company      string
	Phone        string
}

type continuationClaims struct {
	Name         string `json:"name"`
	PasswordHash string `json:"pwd"`
	Company      string `json:"company,omitempty"`
	Phone        string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the stateless HS256 tokens handed to
// clients: session tokens and registration continuations. The two use
// different audiences so one can never be replayed as the other.
type TokenIssuer struct {
	secret          []byte
	ttl             time.Duration
	continuationTTL time.Duration
	now             func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret:          []byte(secret),
		ttl:             ttl,
		continuationTTL: defaultContinuationTTL,
		now:             time.Now,
	}
}

// Issue mints a session token for the account.
func (t *TokenIssuer) Issue(account *domain.Account) (string, error) {
	if account == nil || account.ID == "" {
		return "", errors.New("issue token: account has no id")
	}
	now := t.now()
	claims := sessionClaims{
		Email: account.Email,
		Role:  account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, audience and expiry of a session token.
func (t *TokenIssuer) Verify(token string) (*ports.SessionClaims, error) {
	var claims sessionClaims
	if err := t.parse(token, &claims, sessionAudience); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, domain.ErrUnauthorized
	}
	return &ports.SessionClaims{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
	}, nil
}

// SealRegistration signs the pending registration into an opaque string.
func (t *TokenIssuer) SealRegistration(p PendingRegistration) (string, error) {
	now := t.now()
	claims := continuationClaims{
		Name:         p.Name,
		PasswordHash: p.PasswordHash,
		Company:      p.Company,
		Phone:        p.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			Audience:  jwt.ClaimStrings{registrationAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.continuationTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("seal registration: %w", err)
	}
	return signed, nil
}

// OpenRegistration verifies a continuation produced by SealRegistration.
func (t *TokenIssuer) OpenRegistration(token string) (*PendingRegistration, error) {
	var claims continuationClaims
	if err := t.parse(token, &claims, registrationAudience); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.PasswordHash == "" {
		return nil, errors.New("open registration: incomplete payload")
	}
	return &PendingRegistration{
		Name:         claims.Name,
		Email:        claims.Subject,
		PasswordHash: claims.PasswordHash,
		Company:      claims.Company,
		Phone:        claims.Phone,
	}, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, audience string) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return jwt.ErrTokenSignatureInvalid
	}
	return nil
}
