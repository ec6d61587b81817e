package ports

import (
	"context"

	"github.com/signatech/account-service/internal/core/domain"
)

// AccountRepository is the credential store keyed by normalised email.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// Create inserts a new account and returns it with its ID set. A taken
	// email yields domain.ErrAccountExists.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
	// LinkProvider tags an existing account with a federated provider and
	// marks its email verified.
	LinkProvider(ctx context.Context, email, provider string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.Account, error)
	Delete(ctx context.Context, id string) error
}

// SubmissionPurger removes contact submissions owned by an email when its
// account is deleted.
type SubmissionPurger interface {
	PurgeByEmail(ctx context.Context, email string) error
}
