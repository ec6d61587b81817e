package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/api/metrics"
	"github.com/signatech/account-service/internal/core/domain"
)

const (
	// HeaderCSRFToken carries the token on state-changing requests.
	HeaderCSRFToken = "X-CSRF-Token"
	// CSRFSessionCookie binds a browser to its server-side secret.
	CSRFSessionCookie = "csrf_sid"

	csrfBodyField   = "_csrf"
	maxCSRFBodyPeek = 1 << 20
)

// CSRFVerifier checks a submitted token against the session secret.
type CSRFVerifier interface {
	Verify(ctx context.Context, sessionID, token string) error
}

// CSRFOptions configures the CSRF middleware.
type CSRFOptions struct {
	Enabled bool
	// Allowlist holds path prefixes that skip verification.
	Allowlist []string
}

// CSRF rejects state-changing requests whose token does not match the
// caller's session secret. Safe methods and allowlisted paths pass through.
func CSRF(verifier CSRFVerifier, opts CSRFOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !opts.Enabled || isSafeMethod(req.Method) || allowlisted(req.URL.Path, opts.Allowlist) {
				return next(c)
			}

			var sessionID string
			if cookie, err := c.Cookie(CSRFSessionCookie); err == nil {
				sessionID = cookie.Value
			}
			token := req.Header.Get(HeaderCSRFToken)
			if token == "" {
				token = tokenFromBody(c)
			}

			if err := verifier.Verify(req.Context(), sessionID, token); err != nil {
				if errors.Is(err, domain.ErrCSRFInvalid) {
					metrics.CSRFRejectedTotal.Inc()
				}
				return err
			}
			return next(c)
		}
	}
}

// CSRFSession returns the caller's session id, issuing a new cookie when
// the request has none.
func CSRFSession(c echo.Context, secure bool, ttl time.Duration) string {
	if cookie, err := c.Cookie(CSRFSessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	sid := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     CSRFSessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func allowlisted(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// tokenFromBody reads the _csrf field from a form or JSON body. A JSON body
// is restored so the handler can still bind it.
func tokenFromBody(c echo.Context) string {
	req := c.Request()
	ct := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ct, echo.MIMEApplicationForm), strings.HasPrefix(ct, echo.MIMEMultipartForm):
		return c.FormValue(csrfBodyField)
	case strings.HasPrefix(ct, echo.MIMEApplicationJSON):
		if req.Body == nil {
			return ""
		}
		body, err := io.ReadAll(io.LimitReader(req.Body, maxCSRFBodyPeek))
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return ""
		}
		var payload struct {
			CSRF string `json:"_csrf"`
		}
		if json.Unmarshal(body, &payload) != nil {
			return ""
		}
		return payload.CSRF
	}
	return ""
}
