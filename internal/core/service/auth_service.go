package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

type authService struct {
	accounts    ports.AccountRepository
	codes       ports.VerificationCodeRepository
	submissions ports.SubmissionPurger
	tx          ports.Transactor
	tokens      *TokenIssuer
	notify      ports.NotificationQueue
	log         zerolog.Logger
}

// NewAuthService returns an AuthService covering password login and the
// signed-in account operations.
func NewAuthService(
	accounts ports.AccountRepository,
	codes ports.VerificationCodeRepository,
	submissions ports.SubmissionPurger,
	tx ports.Transactor,
	tokens *TokenIssuer,
	notify ports.NotificationQueue,
	log zerolog.Logger,
) ports.AuthService {
	if notify == nil {
		notify = discardQueue{}
	}
	return &authService{
		accounts:    accounts,
		codes:       codes,
		submissions: submissions,
		tx:          tx,
		tokens:      tokens,
		notify:      notify,
		log:         log,
	}
}

// Login returns ErrInvalidCredentials for an unknown email, a wrong password
// and a federated-only account alike.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			passwordMatches(string(dummyHash), password)
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("login: %w", err)
	}
	if !account.HasPassword() {
		passwordMatches(string(dummyHash), password)
		return "", nil, domain.ErrInvalidCredentials
	}
	if !passwordMatches(account.PasswordHash, password) {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}
	return token, account, nil
}

func (s *authService) Me(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	return account, nil
}

func (s *authService) UpdateProfile(ctx context.Context, accountID string, update domain.ProfileUpdate) (*domain.Account, error) {
	account, err := s.accounts.UpdateProfile(ctx, accountID, update)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return account, nil
}

// ChangePassword requires the current password. Federated-only accounts use
// the recovery flow to set a first password.
func (s *authService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("change password: %w", err)
	}
	if !account.HasPassword() {
		return domain.ErrUseFederatedLogin
	}
	if !passwordMatches(account.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}

	hash, err := hashPassword(next)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.Email, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("password changed")
	s.notify.Enqueue(ports.Notification{Kind: ports.NotifyPasswordChanged, Email: account.Email, Name: account.Name})
	return nil
}

// DeleteAccount removes the account together with its codes and contact
// submissions.
func (s *authService) DeleteAccount(ctx context.Context, accountID string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("delete account: %w", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.codes.DeleteByEmail(ctx, account.Email); err != nil {
			return err
		}
		if err := s.submissions.PurgeByEmail(ctx, account.Email); err != nil {
			return err
		}
		return s.accounts.Delete(ctx, account.ID)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("account deleted")
	return nil
}
