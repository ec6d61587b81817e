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

var (
	// ErrProviderExchange wraps any failure talking to the identity provider.
	ErrProviderExchange = errors.New("identity provider exchange failed")
	// ErrUnverifiedIdentity is returned when the provider does not vouch for
	// the email it reports.
	ErrUnverifiedIdentity = errors.New("federated identity has no verified email")
)

type oauthBridge struct {
	provider ports.IdentityProvider
	accounts ports.AccountRepository
	tokens   *TokenIssuer
	notify   ports.NotificationQueue
	log      zerolog.Logger
	now      func() time.Time
}

// NewOAuthBridge returns an OAuthService backed by provider.
func NewOAuthBridge(
	provider ports.IdentityProvider,
	accounts ports.AccountRepository,
	tokens *TokenIssuer,
	notify ports.NotificationQueue,
	log zerolog.Logger,
) ports.OAuthService {
	if notify == nil {
		notify = discardQueue{}
	}
	return &oauthBridge{
		provider: provider,
		accounts: accounts,
		tokens:   tokens,
		notify:   notify,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (b *oauthBridge) AuthURL(state string) string {
	return b.provider.AuthCodeURL(state)
}

// Complete exchanges the authorization code, then links the identity to the
// account with the same email or creates a password-less one.
func (b *oauthBridge) Complete(ctx context.Context, code string) (*ports.FederatedSignIn, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrProviderExchange)
	}
	identity, err := b.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}
	if identity.Email == "" || !identity.EmailVerified {
		return nil, ErrUnverifiedIdentity
	}

	account, created, err := b.resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, err := b.tokens.Issue(account)
	if err != nil {
		return nil, fmt.Errorf("oauth: %w", err)
	}
	return &ports.FederatedSignIn{Token: token, Account: account, Created: created}, nil
}

// resolve reports created=true only when it inserted a new account.
func (b *oauthBridge) resolve(ctx context.Context, identity *ports.FederatedIdentity) (*domain.Account, bool, error) {
	email := domain.NormalizeEmail(identity.Email)

	existing, err := b.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		linked, err := b.link(ctx, existing, identity.Provider)
		return linked, false, err
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, false, fmt.Errorf("oauth lookup: %w", err)
	}

	now := b.now()
	name := identity.Name
	if name == "" {
		name = email
	}
	created, err := b.accounts.Create(ctx, &domain.Account{
		Name:               name,
		Email:              email,
		Role:               domain.RoleClient,
		OAuthProvider:      identity.Provider,
		EmailVerified:      true,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if errors.Is(err, domain.ErrAccountExists) {
		// Lost a race with a concurrent first sign-in or registration.
		existing, err = b.accounts.FindByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("oauth lookup: %w", err)
		}
		linked, err := b.link(ctx, existing, identity.Provider)
		return linked, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("oauth create: %w", err)
	}

	b.log.Info().Str("account_id", created.ID).Str("provider", identity.Provider).Msg("federated account created")
	b.notify.Enqueue(ports.Notification{Kind: ports.NotifyWelcome, Email: created.Email, Name: created.Name})
	return created, true, nil
}

// link tags an untagged account with the provider. An account already tagged
// keeps its tag.
func (b *oauthBridge) link(ctx context.Context, account *domain.Account, provider string) (*domain.Account, error) {
	if account.OAuthProvider != "" {
		return account, nil
	}
	linked, err := b.accounts.LinkProvider(ctx, account.Email, provider)
	if err != nil {
		return nil, fmt.Errorf("oauth link: %w", err)
	}
	b.log.Info().Str("account_id", linked.ID).Str("provider", provider).Msg("federated identity linked")
	return linked, nil
}
