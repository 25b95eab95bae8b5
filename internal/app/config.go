package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the portal.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// UpstreamURL is the REST backend that owns accounts and profiles.
	UpstreamURL     string        `envconfig:"UPSTREAM_API_URL" required:"true"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`

	// PGDSN is optional: when empty the auth event trail is disabled.
	PGDSN string `envconfig:"PG_DSN"`
	// RedisAddr is optional: when empty the identity cache is disabled and
	// every rehydration hits the upstream.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	CookieSecret string `envconfig:"COOKIE_SECRET" required:"true"`
	CSRFSecret   string `envconfig:"CSRF_SECRET" required:"true"`

	TokenCookie string        `envconfig:"TOKEN_COOKIE" default:"token"`
	RoleCookie  string        `envconfig:"ROLE_COOKIE" default:"user_role"`
	CookieTTL   time.Duration `envconfig:"COOKIE_TTL" default:"720h"`

	SessionCacheTTL  time.Duration `envconfig:"SESSION_CACHE_TTL" default:"15m"`
	RehydrateTimeout time.Duration `envconfig:"REHYDRATE_TIMEOUT" default:"5s"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CookieSecret == "" {
		return nil, errors.New("cookie secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the portal runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
