package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/signatech/account-service/internal/core/domain"
)

type Config struct {
	Port          string        `env:"PORT,           default=8080"`
	Env           string        `env:"ENV,            default=development"`
	LogLevel      string        `env:"LOG_LEVEL,      default=info"`
	JWTSecret     string        `env:"JWT_SECRET,     required"`
	TokenTTL      time.Duration `env:"TOKEN_TTL,      default=24h"`
	ClientURL     string        `env:"CLIENT_URL,     default=http://localhost:8080"`
	NotifyWorkers int           `env:"NOTIFY_WORKERS, default=4"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Mail      MailConfig
	Google    GoogleConfig
	CSRF      CSRFConfig
	RateLimit RateLimitConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=signatech"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=0"`
}

// MailConfig selects the log mailer when SMTPHost is empty.
type MailConfig struct {
	SMTPHost string `env:"MAIL_SMTP_HOST"`
	SMTPPort int    `env:"MAIL_SMTP_PORT, default=587"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	From     string `env:"MAIL_FROM,      default=no-reply@signatech.local"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL, default=http://localhost:5000/auth/google/callback"`
	// ClientPath is appended to ClientURL for the post-login redirect.
	ClientPath string `env:"OAUTH_CLIENT_PATH, default=/contact"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type CSRFConfig struct {
	Enabled      bool          `env:"CSRF_ENABLED,       default=true"`
	SecretTTL    time.Duration `env:"CSRF_SECRET_TTL,    default=24h"`
	CookieSecure bool          `env:"CSRF_COOKIE_SECURE, default=false"`
	Allowlist    []string      `env:"CSRF_ALLOWLIST"`
}

var defaultCSRFAllowlist = []string{"/auth/google", "/admin"}

// RuleConfig overrides one endpoint class. Zero values keep the default.
type RuleConfig struct {
	Max    int           `env:"MAX"`
	Window time.Duration `env:"WINDOW"`
}

type RateLimitConfig struct {
	Enabled       bool       `env:"RATE_LIMIT_ENABLED, default=true"`
	Auth          RuleConfig `env:", prefix=RATE_LIMIT_AUTH_"`
	PasswordReset RuleConfig `env:", prefix=RATE_LIMIT_PASSWORD_RESET_"`
	Upload        RuleConfig `env:", prefix=RATE_LIMIT_UPLOAD_"`
	Contact       RuleConfig `env:", prefix=RATE_LIMIT_CONTACT_"`
	General       RuleConfig `env:", prefix=RATE_LIMIT_GENERAL_"`
}

// DefaultRateLimits are the per-class limits used when no override is set.
var DefaultRateLimits = map[domain.EndpointClass]domain.RateLimitRule{
	domain.ClassAuth:          {Max: 15, Window: 15 * time.Minute},
	domain.ClassPasswordReset: {Max: 10, Window: time.Hour},
	domain.ClassUpload:        {Max: 50, Window: 15 * time.Minute},
	domain.ClassContact:       {Max: 10, Window: time.Hour},
	domain.ClassGeneral:       {Max: 1000, Window: 15 * time.Minute},
}

// Rules merges the overrides onto DefaultRateLimits.
func (r RateLimitConfig) Rules() map[domain.EndpointClass]domain.RateLimitRule {
	overrides := map[domain.EndpointClass]RuleConfig{
		domain.ClassAuth:          r.Auth,
		domain.ClassPasswordReset: r.PasswordReset,
		domain.ClassUpload:        r.Upload,
		domain.ClassContact:       r.Contact,
		domain.ClassGeneral:       r.General,
	}
	rules := make(map[domain.EndpointClass]domain.RateLimitRule, len(DefaultRateLimits))
	for class, rule := range DefaultRateLimits {
		o := overrides[class]
		if o.Max > 0 {
			rule.Max = o.Max
		}
		if o.Window > 0 {
			rule.Window = o.Window
		}
		rules[class] = rule
	}
	return rules
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(cfg.CSRF.Allowlist) == 0 {
		cfg.CSRF.Allowlist = append([]string(nil), defaultCSRFAllowlist...)
	}
	if cfg.IsProduction() && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least 32 bytes in production")
	}
	return &cfg, nil
}
