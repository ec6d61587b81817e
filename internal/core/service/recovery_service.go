package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

type recoveryService struct {
	accounts ports.AccountRepository
	codes    *codeBook
	tx       ports.Transactor
	mailer   ports.Mailer
	notify   ports.NotificationQueue
	log      zerolog.Logger
	now      func() time.Time
}

// NewRecoveryService returns a RecoveryService implementation.
func NewRecoveryService(
	accounts ports.AccountRepository,
	codes ports.VerificationCodeRepository,
	tx ports.Transactor,
	mailer ports.Mailer,
	notify ports.NotificationQueue,
	log zerolog.Logger,
) ports.RecoveryService {
	if notify == nil {
		notify = discardQueue{}
	}
	return &recoveryService{
		accounts: accounts,
		codes:    newCodeBook(codes),
		tx:       tx,
		mailer:   mailer,
		notify:   notify,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RequestReset mails a reset code to an existing password account.
func (s *recoveryService) RequestReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrEmailNotRegistered
		}
		return fmt.Errorf("forgot password: %w", err)
	}
	if !account.HasPassword() {
		return domain.ErrUseFederatedLogin
	}

	code, err := s.codes.issue(ctx, email, domain.PurposePasswordReset, s.now())
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	if err := s.mailer.SendPasswordResetCode(ctx, email, code); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("reset email failed")
		return fmt.Errorf("forgot password: send code: %w", err)
	}

	s.log.Info().Str("email", email).Msg("password reset code issued")
	return nil
}

// VerifyCode reports whether code is currently redeemable without consuming
// it.
func (s *recoveryService) VerifyCode(ctx context.Context, email, code string) error {
	email = domain.NormalizeEmail(email)
	if _, err := s.codes.check(ctx, email, domain.PurposePasswordReset, code, s.now()); err != nil {
		return err
	}
	return nil
}

// ResetPassword consumes the code and replaces the password hash in one
// transaction.
func (s *recoveryService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = domain.NormalizeEmail(email)
	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	var account *domain.Account
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.codes.redeem(ctx, email, domain.PurposePasswordReset, code, s.now()); err != nil {
			return err
		}
		found, err := s.accounts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return domain.ErrInvalidOrExpiredCode
			}
			return err
		}
		if err := s.accounts.UpdatePasswordHash(ctx, email, hash); err != nil {
			return err
		}
		account = found
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredCode) {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("password reset")
	s.notify.Enqueue(ports.Notification{Kind: ports.NotifyPasswordChanged, Email: account.Email, Name: account.Name})
	return nil
}
