package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/api/middleware"
)

// CSRFTokenIssuer derives a token bound to a session secret.
type CSRFTokenIssuer interface {
	Token(ctx context.Context, sessionID string) (string, error)
}

type CSRFHandler struct {
	issuer       CSRFTokenIssuer
	secureCookie bool
	ttl          time.Duration
}

func NewCSRFHandler(issuer CSRFTokenIssuer, secureCookie bool, ttl time.Duration) *CSRFHandler {
	return &CSRFHandler{issuer: issuer, secureCookie: secureCookie, ttl: ttl}
}

// Token returns a CSRF token for the caller's session, starting one if
// needed.
//
// @Summary      CSRF token
// @Tags         security
// @Produce      json
// @Success      200  {object}  csrfTokenResponse
// @Router       /csrf-token [get]
func (h *CSRFHandler) Token(c echo.Context) error {
	sid := middleware.CSRFSession(c, h.secureCookie, h.ttl)
	token, err := h.issuer.Token(c.Request().Context(), sid)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, csrfTokenResponse{CSRFToken: token})
}
