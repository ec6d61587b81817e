package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAccountExists        = errors.New("account already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUseFederatedLogin    = errors.New("account uses federated sign-in")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrCSRFInvalid          = errors.New("invalid csrf token")
	ErrTooManyRequests      = errors.New("too many requests")
	ErrValidationFailed     = errors.New("validation failed")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
)

// ErrEmailNotRegistered is returned when a password reset is requested for
// an address with no account.
var ErrEmailNotRegistered = errors.New("email not registered")

// ErrCodeNotFound is returned by the code ledger when no row exists for an
// (email, purpose) pair. Services fold it into ErrInvalidOrExpiredCode.
var ErrCodeNotFound = errors.New("verification code not found")

// ErrCodeAlreadyConsumed is returned when a conditional consume lost the race
// against another request.
var ErrCodeAlreadyConsumed = errors.New("verification code already consumed")

// RateLimitError reports a rejected request and how long the caller has to
// wait before the window resets.
type RateLimitError struct {
	Class      EndpointClass
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests for %s, retry after %s", e.Class, e.RetryAfter)
}

// Is lets errors.Is(err, ErrTooManyRequests) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrTooManyRequests
}
