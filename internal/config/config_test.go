package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("REFRESH_STORE", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL())
	require.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenTTL())
	require.Equal(t, "ROLE_USER", cfg.Auth.DefaultAuthority)
	require.Equal(t, RefreshStoreRedis, cfg.RefreshStore.Backend)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL_HOURS", "1")
	t.Setenv("REFRESH_STORE", "Postgres")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
	require.Equal(t, RefreshStorePostgres, cfg.RefreshStore.Backend)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Auth: AuthConfig{
				JWTSecret:             "secret",
				AccessTokenTTLMinutes: 30,
				RefreshTokenTTLHours:  24,
				DefaultAuthority:      "ROLE_USER",
			},
			RefreshStore: RefreshStoreConfig{Backend: RefreshStoreRedis},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = " " }},
		{"zero access ttl", func(c *Config) { c.Auth.AccessTokenTTLMinutes = 0 }},
		{"refresh not longer than access", func(c *Config) { c.Auth.AccessTokenTTLMinutes = 24 * 60 }},
		{"no default authority", func(c *Config) { c.Auth.DefaultAuthority = "" }},
		{"unknown backend", func(c *Config) { c.RefreshStore.Backend = "memcached" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
