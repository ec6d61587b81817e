package ports

import "context"

// FederatedIdentity is the verified identity returned by a provider after a
// successful code exchange.
type FederatedIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// IdentityProvider performs the server side of an OAuth authorization-code
// flow.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*FederatedIdentity, error)
}
