// Package app wires configuration, storage, services and the HTTP router
// into a runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/signatech/account-service/internal/api"
	"github.com/signatech/account-service/internal/api/handler"
	"github.com/signatech/account-service/internal/api/middleware"
	"github.com/signatech/account-service/internal/core/ports"
	"github.com/signatech/account-service/internal/core/service"
	"github.com/signatech/account-service/internal/infrastructure/config"
	mongodb "github.com/signatech/account-service/internal/infrastructure/db/mongo"
	redisdb "github.com/signatech/account-service/internal/infrastructure/db/redis"
	"github.com/signatech/account-service/internal/infrastructure/mail"
	"github.com/signatech/account-service/internal/infrastructure/oauth"
	"github.com/signatech/account-service/internal/infrastructure/queue"
	"github.com/signatech/account-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg        *config.Config
	log        zerolog.Logger
	echo       *echo.Echo
	mongo      *mongo.Client
	redis      *redis.Client
	dispatcher *queue.Dispatcher
}

func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "account-service",
	})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("init mongo: %w", err)
	}
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("init mongo indexes: %w", err)
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("init redis: %w", err)
	}

	mailer, err := newMailer(cfg, log)
	if err != nil {
		_ = rdb.Close()
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("init mailer: %w", err)
	}

	dispatcher := queue.NewDispatcher(cfg.NotifyWorkers, mailer, logger.Component("notifications"))

	accounts := mongodb.NewAccountRepository(db)
	codes := mongodb.NewVerificationCodeRepository(db)
	submissions := mongodb.NewSubmissionRepository(db)
	tx := mongodb.NewTransactor(mongoClient)
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	registration := service.NewRegistrationService(accounts, codes, tx, mailer, tokens, dispatcher, logger.Component("registration"))
	recovery := service.NewRecoveryService(accounts, codes, tx, mailer, dispatcher, logger.Component("recovery"))
	auth := service.NewAuthService(accounts, codes, submissions, tx, tokens, dispatcher, logger.Component("auth"))

	limiter := service.NewRateLimiter(redisdb.NewRateCounter(rdb), cfg.RateLimit.Rules(), cfg.RateLimit.Enabled, logger.Component("ratelimit"))
	csrfGuard := service.NewCSRFGuard(redisdb.NewCSRFStore(rdb), cfg.CSRF.SecretTTL)

	var oauthHandler *handler.OAuthHandler
	if cfg.Google.Enabled() {
		provider := oauth.NewGoogleProvider(oauth.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
		bridge := service.NewOAuthBridge(provider, accounts, tokens, dispatcher, logger.Component("oauth"))
		oauthHandler = handler.NewOAuthHandler(bridge, handler.OAuthOptions{
			Provider:     provider.Name(),
			ClientURL:    cfg.ClientURL,
			ClientPath:   cfg.Google.ClientPath,
			SecureCookie: cfg.CSRF.CookieSecure,
		}, logger.Component("oauth"))
	} else {
		log.Info().Msg("google sign-in not configured, federated routes disabled")
	}

	e := api.NewRouter(api.Dependencies{
		Log:   logger.Component("http"),
		Auth:  handler.NewAuthHandler(registration, recovery, auth),
		OAuth: oauthHandler,
		CSRF:  handler.NewCSRFHandler(csrfGuard, cfg.CSRF.CookieSecure, cfg.CSRF.SecretTTL),
		Admin: handler.NewAdminHandler(auth),
		Readiness: handler.NewReadinessHandler(map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return mongodb.Ping(ctx, db) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Tokens:       tokens,
		Limiter:      limiter,
		CSRFVerifier: csrfGuard,
		CSRFOptions: middleware.CSRFOptions{
			Enabled:   cfg.CSRF.Enabled,
			Allowlist: cfg.CSRF.Allowlist,
		},
	})

	return &Application{
		cfg:        cfg,
		log:        log,
		echo:       e,
		mongo:      mongoClient,
		redis:      rdb,
		dispatcher: dispatcher,
	}, nil
}

// newMailer picks SMTP delivery when a host is configured and falls back to
// writing messages to the log.
func newMailer(cfg *config.Config, log zerolog.Logger) (ports.Mailer, error) {
	if cfg.Mail.SMTPHost == "" {
		log.Warn().Msg("MAIL_SMTP_HOST not set, emails are written to the log")
		return mail.NewLogMailer(logger.Component("mail")), nil
	}
	return mail.NewSMTPMailer(mail.Config{
		Host:      cfg.Mail.SMTPHost,
		Port:      cfg.Mail.SMTPPort,
		Username:  cfg.Mail.Username,
		Password:  cfg.Mail.Password,
		From:      cfg.Mail.From,
		ClientURL: cfg.ClientURL,
	})
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests and
// closes the backing stores.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.mongo.Disconnect(disconnectCtx); err != nil {
			a.log.Error().Err(err).Msg("mongo disconnect")
		}
		if err := a.redis.Close(); err != nil {
			a.log.Error().Err(err).Msg("redis close")
		}
	}()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	a.dispatcher.Start(workerCtx)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.echo,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.log.Info().
		Str("env", a.cfg.Env).
		Str("address", srv.Addr).
		Msg("starting account service")

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
