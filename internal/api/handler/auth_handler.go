package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/api/metrics"
	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

type AuthHandler struct {
	registration ports.RegistrationService
	recovery     ports.RecoveryService
	auth         ports.AuthService
}

func NewAuthHandler(registration ports.RegistrationService, recovery ports.RecoveryService, auth ports.AuthService) *AuthHandler {
	return &AuthHandler{registration: registration, recovery: recovery, auth: auth}
}

// Register starts an email-verified registration.
//
// @Summary      Start registration
// @Description  Emails a 6-digit code and returns the continuation to echo back on verification.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      202   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pending, err := h.registration.Start(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Company:  req.Company,
		Phone:    req.Phone,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("started").Inc()
	metrics.CodesIssuedTotal.WithLabelValues(string(domain.PurposeRegistration)).Inc()
	return c.JSON(http.StatusAccepted, registerResponse{
		Message:  "verification code sent",
		Email:    pending.Email,
		TempData: pending.TempData,
	})
}

// ResendVerification issues a fresh registration code.
//
// @Summary      Resend verification code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Email awaiting verification"
// @Success      200   {object}  messageResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.registration.Resend(c.Request().Context(), req.Email); err != nil {
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("resent").Inc()
	metrics.CodesIssuedTotal.WithLabelValues(string(domain.PurposeRegistration)).Inc()
	return c.JSON(http.StatusOK, messageResponse{
		Message: "verification code sent",
		Email:   domain.NormalizeEmail(req.Email),
	})
}

// VerifyEmail completes registration and signs the new account in.
//
// @Summary      Verify email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyEmailRequest  true  "Code and continuation"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	token, account, err := h.registration.Verify(c.Request().Context(), ports.VerifyEmailInput{
		Email:    req.Email,
		Code:     req.Code,
		TempData: req.TempData,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredCode) {
			metrics.CodeChecksTotal.WithLabelValues(string(domain.PurposeRegistration), "invalid").Inc()
		}
		return err
	}

	metrics.CodeChecksTotal.WithLabelValues(string(domain.PurposeRegistration), "valid").Inc()
	metrics.RegistrationsTotal.WithLabelValues("verified").Inc()
	metrics.AccountsCreatedTotal.WithLabelValues("email").Inc()
	return c.JSON(http.StatusCreated, authResponse{Token: token, User: account})
}

// Login authenticates with email and password.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	token, account, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrInvalidCredentials) {
			result = "invalid_credentials"
		}
		metrics.LoginsTotal.WithLabelValues(result).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, authResponse{Token: token, User: account})
}

// Me returns the signed-in account.
//
// @Summary      Current account
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Account
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxAccountID(c)
	if err != nil {
		return err
	}
	account, err := h.auth.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// UpdateProfile changes the mutable profile fields. Omitted fields are kept.
//
// @Summary      Update profile
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  domain.Account
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	id, err := ctxAccountID(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.auth.UpdateProfile(c.Request().Context(), id, domain.ProfileUpdate{
		Name:               req.Name,
		Company:            req.Company,
		Phone:              req.Phone,
		EmailNotifications: req.EmailNotifications,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// ChangePassword replaces the password after checking the current one.
//
// @Summary      Change password
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, err := ctxAccountID(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.Request().Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}

// DeleteAccount removes the account together with its codes and contact
// submissions.
//
// @Summary      Delete account
// @Tags         account
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /auth/account [delete]
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	id, err := ctxAccountID(c)
	if err != nil {
		return err
	}
	if err := h.auth.DeleteAccount(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword emails a password-reset code.
//
// @Summary      Request password reset
// @Tags         recovery
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.recovery.RequestReset(c.Request().Context(), req.Email); err != nil {
		return err
	}

	metrics.CodesIssuedTotal.WithLabelValues(string(domain.PurposePasswordReset)).Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "password reset code sent"})
}

// VerifyResetCode checks a reset code without consuming it.
//
// @Summary      Check reset code
// @Tags         recovery
// @Accept       json
// @Produce      json
// @Param        body  body      verifyResetCodeRequest  true  "Email and code"
// @Success      200   {object}  verifyResetCodeResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/verify-reset-code [post]
func (h *AuthHandler) VerifyResetCode(c echo.Context) error {
	var req verifyResetCodeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.recovery.VerifyCode(c.Request().Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredCode) {
			metrics.CodeChecksTotal.WithLabelValues(string(domain.PurposePasswordReset), "invalid").Inc()
		}
		return err
	}

	metrics.CodeChecksTotal.WithLabelValues(string(domain.PurposePasswordReset), "valid").Inc()
	return c.JSON(http.StatusOK, verifyResetCodeResponse{Message: "code is valid", Valid: true})
}

// ResetPassword consumes a reset code and sets the new password.
//
// @Summary      Reset password
// @Tags         recovery
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Email, code and the new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.recovery.ResetPassword(c.Request().Context(), req.Email, req.Code, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password has been reset"})
}
