package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_API_URL", "http://backend.internal:4000")
	t.Setenv("COOKIE_SECRET", "cookie-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "token", cfg.TokenCookie)
	require.Equal(t, "user_role", cfg.RoleCookie)
	require.Equal(t, 720*time.Hour, cfg.CookieTTL)
	require.Equal(t, 5*time.Second, cfg.RehydrateTimeout)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresUpstream(t *testing.T) {
	t.Setenv("UPSTREAM_API_URL", "")
	t.Setenv("COOKIE_SECRET", "cookie-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	t.Setenv("UPSTREAM_API_URL", "http://backend.internal:4000")
	t.Setenv("COOKIE_SECRET", "s")
	t.Setenv("CSRF_SECRET", "s")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
}
