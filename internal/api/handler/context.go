package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/api/middleware"
	"github.com/signatech/account-service/internal/core/domain"
)

// ctxAccountID extracts the account injected by the Auth middleware. An
// empty value means the middleware did not run.
func ctxAccountID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.CtxAccountID).(string)
	if id == "" {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}

// bind decodes and validates a request body. A malformed body is a 400; a
// body that fails validation is returned as *ValidationError.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
