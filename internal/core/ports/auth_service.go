package ports

import (
	"context"

	"github.com/signatech/account-service/internal/core/domain"
)

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Company  string
	Phone    string
}

// RegistrationPending is returned when a registration code has been sent.
// TempData is the signed continuation the client echoes on verification.
type RegistrationPending struct {
	Email    string
	TempData string
}

// VerifyEmailInput confirms a pending registration.
type VerifyEmailInput struct {
	Email    string
	Code     string
	TempData string
}

// RegistrationService drives the register → verify state machine.
type RegistrationService interface {
	Start(ctx context.Context, in RegisterInput) (*RegistrationPending, error)
	Resend(ctx context.Context, email string) error
	Verify(ctx context.Context, in VerifyEmailInput) (string, *domain.Account, error)
}

// RecoveryService drives the password-reset state machine.
type RecoveryService interface {
	RequestReset(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// AuthService covers password login and operations on the signed-in account.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
	Me(ctx context.Context, accountID string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, accountID string, update domain.ProfileUpdate) (*domain.Account, error)
	ChangePassword(ctx context.Context, accountID, current, next string) error
	DeleteAccount(ctx context.Context, accountID string) error
}

// OAuthService bridges a federated provider to local accounts.
type OAuthService interface {
	AuthURL(state string) string
	Complete(ctx context.Context, code string) (*FederatedSignIn, error)
}

// FederatedSignIn is the outcome of a completed provider callback.
type FederatedSignIn struct {
	Token   string
	Account *domain.Account
	// Created is set when the callback created the account.
	Created bool
}

// SessionClaims is the identity carried by a verified session token.
type SessionClaims struct {
	AccountID string
	Email     string
	Role      string
}

// TokenVerifier validates bearer tokens for the auth middleware.
type TokenVerifier interface {
	Verify(token string) (*SessionClaims, error)
}
