package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

type stubRegistration struct {
	startFn  func(ctx context.Context, in ports.RegisterInput) (*ports.RegistrationPending, error)
	resendFn func(ctx context.Context, email string) error
	verifyFn func(ctx context.Context, in ports.VerifyEmailInput) (string, *domain.Account, error)
}

func (s *stubRegistration) Start(ctx context.Context, in ports.RegisterInput) (*ports.RegistrationPending, error) {
	return s.startFn(ctx, in)
}

func (s *stubRegistration) Resend(ctx context.Context, email string) error {
	return s.resendFn(ctx, email)
}

func (s *stubRegistration) Verify(ctx context.Context, in ports.VerifyEmailInput) (string, *domain.Account, error) {
	return s.verifyFn(ctx, in)
}

type stubRecovery struct {
	requestFn func(ctx context.Context, email string) error
	verifyFn  func(ctx context.Context, email, code string) error
	resetFn   func(ctx context.Context, email, code, newPassword string) error
}

func (s *stubRecovery) RequestReset(ctx context.Context, email string) error {
	return s.requestFn(ctx, email)
}

func (s *stubRecovery) VerifyCode(ctx context.Context, email, code string) error {
	return s.verifyFn(ctx, email, code)
}

func (s *stubRecovery) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return s.resetFn(ctx, email, code, newPassword)
}

type stubAuthService struct {
	loginFn          func(ctx context.Context, email, password string) (string, *domain.Account, error)
	meFn             func(ctx context.Context, accountID string) (*domain.Account, error)
	updateProfileFn  func(ctx context.Context, accountID string, update domain.ProfileUpdate) (*domain.Account, error)
	changePasswordFn func(ctx context.Context, accountID, current, next string) error
	deleteFn         func(ctx context.Context, accountID string) error
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Me(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.meFn(ctx, accountID)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, accountID string, update domain.ProfileUpdate) (*domain.Account, error) {
	return s.updateProfileFn(ctx, accountID, update)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	return s.changePasswordFn(ctx, accountID, current, next)
}

func (s *stubAuthService) DeleteAccount(ctx context.Context, accountID string) error {
	return s.deleteFn(ctx, accountID)
}

// newContext builds an echo context with the request validator installed.
func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newGetContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	return newContext(http.MethodGet, target, "")
}
