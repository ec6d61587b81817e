package ports

import (
	"context"
	"time"

	"github.com/signatech/account-service/internal/core/domain"
)

// VerificationCodeRepository is the append-only ledger of issued codes.
type VerificationCodeRepository interface {
	Insert(ctx context.Context, code *domain.VerificationCode) error
	// Latest returns the most recently issued row for the pair regardless of
	// its state, or domain.ErrCodeNotFound.
	Latest(ctx context.Context, email string, purpose domain.CodePurpose) (*domain.VerificationCode, error)
	// MarkConsumed flips consumed from false to true. It returns
	// domain.ErrCodeAlreadyConsumed when the row was already consumed.
	MarkConsumed(ctx context.Context, id string, at time.Time) error
	DeleteByEmail(ctx context.Context, email string) error
}

// Transactor runs fn as one atomic unit. Repository calls made with the
// context passed to fn take part in the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
