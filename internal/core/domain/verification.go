package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// CodePurpose separates registration codes from password-reset codes so one
// can never be redeemed for the other.
type CodePurpose string

const (
	PurposeRegistration  CodePurpose = "registration"
	PurposePasswordReset CodePurpose = "password_reset"
)

// CodeTTL is how long an issued code stays redeemable.
const CodeTTL = 15 * time.Minute

// CodeLength is the number of ASCII digits in a verification code.
const CodeLength = 6

// VerificationCode is one issued one-time code. Only the hash of the code is
// persisted; Consumed moves from false to true exactly once.
type VerificationCode struct {
	ID         string
	Email      string
	Purpose    CodePurpose
	CodeHash   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Consumed   bool
	ConsumedAt *time.Time
}

// NewVerificationCode builds an unconsumed code issued at now.
func NewVerificationCode(email string, purpose CodePurpose, code string, now time.Time) *VerificationCode {
	return &VerificationCode{
		Email:     NormalizeEmail(email),
		Purpose:   purpose,
		CodeHash:  HashCode(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(CodeTTL),
	}
}

// IsExpired reports whether the code can no longer be redeemed at now. The
// expiry instant itself is already expired.
func (v *VerificationCode) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// Matches compares a submitted code against the stored hash in constant time.
func (v *VerificationCode) Matches(code string) bool {
	got := HashCode(code)
	return subtle.ConstantTimeCompare([]byte(got), []byte(v.CodeHash)) == 1
}

// Redeemable reports whether the code is unconsumed, unexpired and equal to
// the submitted value.
func (v *VerificationCode) Redeemable(code string, now time.Time) bool {
	return !v.Consumed && !v.IsExpired(now) && v.Matches(code)
}

// HashCode returns the hex SHA-256 digest stored in place of the raw code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
