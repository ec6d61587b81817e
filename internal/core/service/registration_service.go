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

type registrationService struct {
	accounts ports.AccountRepository
	codes    *codeBook
	tx       ports.Transactor
	mailer   ports.Mailer
	tokens   *TokenIssuer
	notify   ports.NotificationQueue
	log      zerolog.Logger
	now      func() time.Time
}

// NewRegistrationService returns a RegistrationService implementation.
func NewRegistrationService(
	accounts ports.AccountRepository,
	codes ports.VerificationCodeRepository,
	tx ports.Transactor,
	mailer ports.Mailer,
	tokens *TokenIssuer,
	notify ports.NotificationQueue,
	log zerolog.Logger,
) ports.RegistrationService {
	if notify == nil {
		notify = discardQueue{}
	}
	return &registrationService{
		accounts: accounts,
		codes:    newCodeBook(codes),
		tx:       tx,
		mailer:   mailer,
		tokens:   tokens,
		notify:   notify,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start hashes the password, issues a registration code and mails it. No
// account exists until Verify succeeds.
func (s *registrationService) Start(ctx context.Context, in ports.RegisterInput) (*ports.RegistrationPending, error) {
	email := domain.NormalizeEmail(in.Email)
	if err := s.ensureAvailable(ctx, email); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	code, err := s.codes.issue(ctx, email, domain.PurposeRegistration, s.now())
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := s.mailer.SendVerificationCode(ctx, email, in.Name, code); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("verification email failed")
		return nil, fmt.Errorf("register: send code: %w", err)
	}

	temp, err := s.tokens.SealRegistration(PendingRegistration{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Company:      in.Company,
		Phone:        in.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("email", email).Msg("registration code issued")
	return &ports.RegistrationPending{Email: email, TempData: temp}, nil
}

// Resend issues a fresh registration code. The previous one stops
// validating because only the latest row is ever checked.
func (s *registrationService) Resend(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := s.ensureAvailable(ctx, email); err != nil {
		return err
	}

	code, err := s.codes.issue(ctx, email, domain.PurposeRegistration, s.now())
	if err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	if err := s.mailer.SendVerificationCode(ctx, email, "", code); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("verification email failed")
		return fmt.Errorf("resend verification: send code: %w", err)
	}

	s.log.Info().Str("email", email).Msg("registration code reissued")
	return nil
}

// Verify redeems the registration code and creates the account in one
// transaction, then signs the caller in.
func (s *registrationService) Verify(ctx context.Context, in ports.VerifyEmailInput) (string, *domain.Account, error) {
	email := domain.NormalizeEmail(in.Email)
	pending, err := s.tokens.OpenRegistration(in.TempData)
	if err != nil || pending.Email != email {
		return "", nil, domain.ErrInvalidOrExpiredCode
	}

	var created *domain.Account
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		if err := s.codes.redeem(ctx, email, domain.PurposeRegistration, in.Code, now); err != nil {
			return err
		}
		account, err := s.accounts.Create(ctx, &domain.Account{
			Name:               pending.Name,
			Email:              email,
			PasswordHash:       pending.PasswordHash,
			Company:            pending.Company,
			Phone:              pending.Phone,
			Role:               domain.RoleClient,
			EmailVerified:      true,
			EmailNotifications: true,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		if err != nil {
			return err
		}
		created = account
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredCode) || errors.Is(err, domain.ErrAccountExists) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("verify email: %w", err)
	}

	token, err := s.tokens.Issue(created)
	if err != nil {
		return "", nil, fmt.Errorf("verify email: %w", err)
	}

	s.log.Info().Str("account_id", created.ID).Msg("account created")
	if created.EmailNotifications {
		s.notify.Enqueue(ports.Notification{Kind: ports.NotifyWelcome, Email: created.Email, Name: created.Name})
	}
	return token, created, nil
}

func (s *registrationService) ensureAvailable(ctx context.Context, email string) error {
	_, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.ErrAccountExists
	case errors.Is(err, domain.ErrAccountNotFound):
		return nil
	default:
		return fmt.Errorf("lookup account: %w", err)
	}
}

type discardQueue struct{}

func (discardQueue) Enqueue(ports.Notification) {}
