package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

// Context keys populated by Auth.
const (
	CtxAccountID = "account_id"
	CtxEmail     = "email"
	CtxRole      = "role"
)

// Auth validates the bearer token and injects its claims into context.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrUnauthorized
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				return domain.ErrUnauthorized
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				return domain.ErrUnauthorized
			}

			c.Set(CtxAccountID, claims.AccountID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)

			return next(c)
		}
	}
}
