package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/core/domain"
)

// RBAC admits accounts whose token role is one of roles. It reads the role
// set by Auth, so it must be mounted after it.
func RBAC(roles ...string) echo.MiddlewareFunc {
	permitted := make(map[string]bool, len(roles))
	for _, r := range roles {
		permitted[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if role == "" {
				return domain.ErrUnauthorized
			}
			if !permitted[role] {
				return fmt.Errorf("role %q: %w", role, domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
