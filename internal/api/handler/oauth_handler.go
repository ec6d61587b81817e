package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/api/metrics"
	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
	"github.com/signatech/account-service/internal/core/service"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// Redirect markers understood by the client application.
const (
	oauthDenied        = "oauth_denied"
	oauthState         = "oauth_state"
	oauthFailed        = "oauth_failed"
	registrationFailed = "registration_failed"
)

// OAuthOptions locates the client page that receives the result of a
// federated sign-in.
type OAuthOptions struct {
	Provider     string
	ClientURL    string
	ClientPath   string
	SecureCookie bool
}

// OAuthHandler runs the browser side of the authorization-code flow. Every
// outcome is a redirect back to the client, never a JSON body.
type OAuthHandler struct {
	oauth ports.OAuthService
	opts  OAuthOptions
	log   zerolog.Logger
}

func NewOAuthHandler(oauth ports.OAuthService, opts OAuthOptions, log zerolog.Logger) *OAuthHandler {
	if opts.Provider == "" {
		opts.Provider = domain.ProviderGoogle
	}
	return &OAuthHandler{oauth: oauth, opts: opts, log: log}
}

// Start sends the browser to the provider's consent page.
//
// @Summary      Start Google sign-in
// @Tags         oauth
// @Success      307
// @Router       /auth/google [get]
func (h *OAuthHandler) Start(c echo.Context) error {
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthURL(state))
}

// Callback finishes the flow and hands the session token to the client.
//
// @Summary      Google sign-in callback
// @Tags         oauth
// @Param        code   query  string  false  "Authorization code"
// @Param        state  query  string  false  "Anti-forgery state"
// @Param        error  query  string  false  "Provider error"
// @Success      307
// @Router       /auth/google/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	h.clearState(c)

	if c.QueryParam("error") != "" {
		return h.fail(c, oauthDenied)
	}

	cookie, err := c.Cookie(oauthStateCookie)
	state := c.QueryParam("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		return h.fail(c, oauthState)
	}

	signIn, err := h.oauth.Complete(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		marker := registrationFailed
		if errors.Is(err, service.ErrProviderExchange) || errors.Is(err, service.ErrUnverifiedIdentity) {
			marker = oauthFailed
		}
		h.log.Warn().Err(err).Str("marker", marker).Msg("federated sign-in failed")
		return h.fail(c, marker)
	}

	metrics.OAuthCallbacksTotal.WithLabelValues(h.opts.Provider, "success").Inc()
	if signIn.Created {
		metrics.AccountsCreatedTotal.WithLabelValues(h.opts.Provider).Inc()
	}
	return c.Redirect(http.StatusTemporaryRedirect, h.clientURL(url.Values{
		"token": {signIn.Token},
		"name":  {signIn.Account.Name},
		"email": {signIn.Account.Email},
	}))
}

func (h *OAuthHandler) fail(c echo.Context, marker string) error {
	metrics.OAuthCallbacksTotal.WithLabelValues(h.opts.Provider, marker).Inc()
	return c.Redirect(http.StatusTemporaryRedirect, h.clientURL(url.Values{"error": {marker}}))
}

func (h *OAuthHandler) clearState(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *OAuthHandler) clientURL(q url.Values) string {
	base := strings.TrimSuffix(h.opts.ClientURL, "/")
	path := h.opts.ClientPath
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path + "?" + q.Encode()
}
