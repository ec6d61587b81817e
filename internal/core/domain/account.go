package domain

import (
	"strings"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// ProviderGoogle tags accounts linked to Google sign-in.
const ProviderGoogle = "google"

// Account models a registered identity. Email is the natural key and is
// always stored normalised.
type Account struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	Company            string    `json:"company,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Role               string    `json:"role"`
	OAuthProvider      string    `json:"oauth_provider,omitempty"`
	EmailVerified      bool      `json:"email_verified"`
	EmailNotifications bool      `json:"email_notifications"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can authenticate with a local
// password. Federated-only accounts never set one.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// IsFederatedOnly reports whether the account can only sign in through its
// identity provider.
func (a *Account) IsFederatedOnly() bool {
	return a.OAuthProvider != "" && !a.HasPassword()
}

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileUpdate carries the mutable profile fields. Nil pointers are left
// untouched.
type ProfileUpdate struct {
	Name               *string
	Company            *string
	Phone              *string
	EmailNotifications *bool
}
