package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/core/ports"
)

// AdminHandler serves operator-only account lookups. Routes are mounted
// behind Auth and RBAC(admin).
type AdminHandler struct {
	auth ports.AuthService
}

func NewAdminHandler(auth ports.AuthService) *AdminHandler {
	return &AdminHandler{auth: auth}
}

// GetAccount returns any account by id.
//
// @Summary      Get account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  domain.Account
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/accounts/{id} [get]
func (h *AdminHandler) GetAccount(c echo.Context) error {
	account, err := h.auth.Me(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}
