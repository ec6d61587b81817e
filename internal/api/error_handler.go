package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/api/handler"
	"github.com/signatech/account-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error      string            `json:"error"`
	Code       string            `json:"code"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and a stable code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if body.RetryAfter > 0 {
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(body.RetryAfter))
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		return http.StatusTooManyRequests, errorResponse{
			Error:      "too many requests, please try again later",
			Code:       "RATE_LIMITED",
			RetryAfter: retryAfterSeconds(rle),
		}
	}

	var ve *handler.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: ve.Fields,
		}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{
			Error: fmt.Sprintf("%v", he.Message),
			Code:  httpErrorCode(he.Code),
		}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, errorResponse{Error: "an account with this email already exists", Code: "ACCOUNT_EXISTS"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid email or password", Code: "INVALID_CREDENTIALS"}
	case errors.Is(err, domain.ErrUseFederatedLogin):
		return http.StatusBadRequest, errorResponse{Error: "this account signs in with Google", Code: "USE_FEDERATED_LOGIN"}
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest, errorResponse{Error: "invalid or expired verification code", Code: "INVALID_CODE"}
	case errors.Is(err, domain.ErrCSRFInvalid):
		return http.StatusForbidden, errorResponse{Error: "invalid csrf token", Code: "CSRF_INVALID"}
	case errors.Is(err, domain.ErrEmailNotRegistered):
		return http.StatusBadRequest, errorResponse{Error: "email not found", Code: "EMAIL_NOT_FOUND"}
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, errorResponse{Error: "account not found", Code: "ACCOUNT_NOT_FOUND"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "authentication required", Code: "UNAUTHORIZED"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "insufficient role", Code: "FORBIDDEN"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}
}

// retryAfterSeconds rounds up so a client never retries inside the window.
func retryAfterSeconds(rle *domain.RateLimitError) int {
	secs := int(math.Ceil(rle.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	}
	if status >= 500 {
		return "INTERNAL_ERROR"
	}
	return "REQUEST_FAILED"
}
