package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

// codeBook issues and redeems one-time codes on top of the ledger. Every
// check re-reads the latest row; nothing is cached between steps.
type codeBook struct {
	codes    ports.VerificationCodeRepository
	generate func() (string, error)
}

func newCodeBook(codes ports.VerificationCodeRepository) *codeBook {
	return &codeBook{codes: codes, generate: randomCode}
}

// issue stores a fresh code for the pair and returns the raw digits.
func (b *codeBook) issue(ctx context.Context, email string, purpose domain.CodePurpose, now time.Time) (string, error) {
	code, err := b.generate()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if err := b.codes.Insert(ctx, domain.NewVerificationCode(email, purpose, code, now)); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// check validates code against the most recently issued row for the pair.
// An older row never validates once a newer one exists.
func (b *codeBook) check(ctx context.Context, email string, purpose domain.CodePurpose, code string, now time.Time) (*domain.VerificationCode, error) {
	latest, err := b.codes.Latest(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrInvalidOrExpiredCode
		}
		return nil, fmt.Errorf("lookup code: %w", err)
	}
	if !latest.Redeemable(code, now) {
		return nil, domain.ErrInvalidOrExpiredCode
	}
	return latest, nil
}

// redeem checks the code and consumes it. Losing a concurrent consume race
// reads as an invalid code.
func (b *codeBook) redeem(ctx context.Context, email string, purpose domain.CodePurpose, code string, now time.Time) error {
	v, err := b.check(ctx, email, purpose, code, now)
	if err != nil {
		return err
	}
	if err := b.codes.MarkConsumed(ctx, v.ID, now); err != nil {
		if errors.Is(err, domain.ErrCodeAlreadyConsumed) {
			return domain.ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

// randomCode returns domain.CodeLength digits drawn from crypto/rand.
func randomCode() (string, error) {
	var b strings.Builder
	b.Grow(domain.CodeLength)
	ten := big.NewInt(10)
	for i := 0; i < domain.CodeLength; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
