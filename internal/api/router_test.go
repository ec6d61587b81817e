package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/api/handler"
	"github.com/signatech/account-service/internal/api/middleware"
	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
	"github.com/signatech/account-service/internal/core/service"
)

const testSecret = "router-test-secret-router-test-secret"

type memorySecrets struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *memorySecrets) GetOrCreate(_ context.Context, sid, candidate string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[sid]; ok {
		return v, nil
	}
	s.m[sid] = candidate
	return candidate, nil
}

func (s *memorySecrets) Get(_ context.Context, sid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[sid], nil
}

type switchLimiter struct {
	reject domain.EndpointClass
}

func (l *switchLimiter) Allow(_ context.Context, class domain.EndpointClass, _ string) error {
	if class == l.reject {
		return &domain.RateLimitError{Class: class, RetryAfter: 30 * time.Second}
	}
	return nil
}

// accountsAuth serves Login and Me from a fixed set of accounts.
type accountsAuth struct {
	ports.AuthService
	tokens   *service.TokenIssuer
	accounts map[string]*domain.Account
}

func (a *accountsAuth) Login(_ context.Context, email, password string) (string, *domain.Account, error) {
	for _, acc := range a.accounts {
		if acc.Email == email && password == "s3cretpass" {
			token, err := a.tokens.Issue(acc)
			return token, acc, err
		}
	}
	return "", nil, domain.ErrInvalidCredentials
}

func (a *accountsAuth) Me(_ context.Context, id string) (*domain.Account, error) {
	if acc, ok := a.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

type testServer struct {
	e       *echo.Echo
	tokens  *service.TokenIssuer
	limiter *switchLimiter
	admin   *domain.Account
	client  *domain.Account
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens := service.NewTokenIssuer(testSecret, time.Hour)
	guard := service.NewCSRFGuard(&memorySecrets{m: map[string]string{}}, time.Hour)
	limiter := &switchLimiter{}

	admin := &domain.Account{ID: "acc_admin", Email: "root@example.com", Role: domain.RoleAdmin}
	client := &domain.Account{ID: "acc_client", Email: "ada@example.com", Role: domain.RoleClient}
	auth := &accountsAuth{tokens: tokens, accounts: map[string]*domain.Account{admin.ID: admin, client.ID: client}}

	e := NewRouter(Dependencies{
		Log:          zerolog.Nop(),
		Auth:         handler.NewAuthHandler(nil, nil, auth),
		CSRF:         handler.NewCSRFHandler(guard, false, time.Hour),
		Admin:        handler.NewAdminHandler(auth),
		Readiness:    handler.NewReadinessHandler(nil),
		Tokens:       tokens,
		Limiter:      limiter,
		CSRFVerifier: guard,
		CSRFOptions:  middleware.CSRFOptions{Enabled: true, Allowlist: []string{"/auth/google", "/admin"}},
		Registerer:   prometheus.NewRegistry(),
	})
	return &testServer{e: e, tokens: tokens, limiter: limiter, admin: admin, client: client}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) bearer(t *testing.T, acc *domain.Account) string {
	t.Helper()
	token, err := s.tokens.Issue(acc)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

// csrf fetches a token and the session cookie it is bound to.
func (s *testServer) csrf(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	rec := s.do(httptest.NewRequest(http.MethodGet, "/csrf-token", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf-token: %d", rec.Code)
	}
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	cookies := rec.Result().Cookies()
	if body.CSRFToken == "" || len(cookies) != 1 {
		t.Fatalf("expected token and cookie, got %q %v", body.CSRFToken, cookies)
	}
	return body.CSRFToken, cookies[0]
}

func loginRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRouter_LoginRequiresCSRFToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(loginRequest(`{"email":"ada@example.com","password":"s3cretpass"}`))
	if rec.Code != http.StatusForbidden || decodeError(t, rec).Code != "CSRF_INVALID" {
		t.Fatalf("expected 403 CSRF_INVALID, got %d %s", rec.Code, rec.Body.String())
	}

	token, cookie := s.csrf(t)
	req := loginRequest(`{"email":"ada@example.com","password":"s3cretpass"}`)
	req.AddCookie(cookie)
	req.Header.Set(middleware.HeaderCSRFToken, token)
	rec = s.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	// Token in the JSON body instead of the header.
	req = loginRequest(`{"email":"ada@example.com","password":"s3cretpass","_csrf":"` + token + `"}`)
	req.AddCookie(cookie)
	if rec = s.do(req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with body token, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	token, cookie := s.csrf(t)

	req := loginRequest(`{"email":"ada@example.com","password":"wrong"}`)
	req.AddCookie(cookie)
	req.Header.Set(middleware.HeaderCSRFToken, token)
	rec := s.do(req)
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec).Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected 401 INVALID_CREDENTIALS, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_RateLimitedClass(t *testing.T) {
	s := newTestServer(t)
	s.limiter.reject = domain.ClassAuth
	token, cookie := s.csrf(t)

	req := loginRequest(`{"email":"ada@example.com","password":"s3cretpass"}`)
	req.AddCookie(cookie)
	req.Header.Set(middleware.HeaderCSRFToken, token)
	rec := s.do(req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" || decodeError(t, rec).RetryAfter != 30 {
		t.Fatalf("expected retry after 30s, got %q %s", rec.Header().Get("Retry-After"), rec.Body.String())
	}

	// Other classes are unaffected.
	if rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected health to pass, got %d", rec.Code)
	}
}

func TestRouter_GeneralLimitAppliesEverywhere(t *testing.T) {
	s := newTestServer(t)
	s.limiter.reject = domain.ClassGeneral

	if rec := s.do(httptest.NewRequest(http.MethodGet, "/csrf-token", nil)); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRouter_BearerRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, s.bearer(t, s.client))
	rec = s.do(req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"acc_client"`) {
		t.Fatalf("expected own profile, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_AdminRequiresRole(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts/acc_client", nil)
	req.Header.Set(echo.HeaderAuthorization, s.bearer(t, s.client))
	if rec := s.do(req); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for client role, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/accounts/acc_client", nil)
	req.Header.Set(echo.HeaderAuthorization, s.bearer(t, s.admin))
	if rec := s.do(req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_GoogleRoutesAbsentWhenDisabled(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(httptest.NewRequest(http.MethodGet, "/auth/google", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
