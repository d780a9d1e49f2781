package adminauth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "adminauth", cfg.JWT.Issuer)
	assert.Equal(t, "adminauth-admin", cfg.JWT.Audience)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 30*time.Second, cfg.JWT.Leeway)
	assert.Equal(t, "admin_token", cfg.Cookie.Name)
	assert.Equal(t, "/", cfg.Cookie.Path)
	assert.Equal(t, "strict", cfg.Cookie.SameSite)
	assert.True(t, cfg.Cookie.HTTPOnly)
	assert.Equal(t, "admin", cfg.Fallback.Username)
	assert.Equal(t, 5, cfg.Lockout.Threshold)
	assert.Equal(t, 15*time.Minute, cfg.Lockout.Duration)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "adm", cfg.Session.RedisPrefix)
	assert.Equal(t, ModeAmbiguous, cfg.Mode())
	assert.NoError(t, cfg.Validate())
}

func TestConfigMode(t *testing.T) {
	cases := map[string]RuntimeMode{
		"production":    ModeProduction,
		" PROD ":        ModeProduction,
		"development":   ModeDevelopment,
		"dev":           ModeDevelopment,
		"local":         ModeDevelopment,
		"test":          ModeDevelopment,
		"":              ModeAmbiguous,
		"staging":       ModeAmbiguous,
		"productionish": ModeAmbiguous,
	}
	for env, want := range cases {
		cfg := Config{Environment: env}
		assert.Equal(t, want, cfg.Mode(), "APP_ENV=%q", env)
	}
}

func TestCookieSecure(t *testing.T) {
	cases := []struct {
		env    string
		secure string
		want   bool
	}{
		{"production", "auto", true},
		{"development", "auto", false},
		{"staging", "", false},
		{"development", "true", true},
		{"production", "false", false},
	}
	for _, tc := range cases {
		cfg := Config{Environment: tc.env, Cookie: CookieConfig{Secure: tc.secure}}
		assert.Equal(t, tc.want, cfg.CookieSecure(), "%s/%s", tc.env, tc.secure)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"JWT.AccessTTL":     func(c *Config) { c.JWT.AccessTTL = 0 },
		"JWT.RefreshTTL":    func(c *Config) { c.JWT.RefreshTTL = time.Minute },
		"JWT.Leeway":        func(c *Config) { c.JWT.Leeway = 5 * time.Minute },
		"Cookie.Name":       func(c *Config) { c.Cookie.Name = " " },
		"Cookie.Path":       func(c *Config) { c.Cookie.Path = "admin" },
		"Cookie.SameSite":   func(c *Config) { c.Cookie.SameSite = "sometimes" },
		"Cookie.Secure":     func(c *Config) { c.Cookie.Secure = "maybe" },
		"Lockout.Threshold": func(c *Config) { c.Lockout.Threshold = -1 },
		"Lockout.Duration":  func(c *Config) { c.Lockout.Duration = 0 },
		"Audit.BufferSize":  func(c *Config) { c.Audit.BufferSize = 0 },
	}
	for field, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		err := cfg.Validate()

		var cfgErr *ConfigurationError
		require.True(t, errors.As(err, &cfgErr), field)
		assert.Equal(t, field, cfgErr.Field)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
}

func TestLockoutPolicy(t *testing.T) {
	p := LockoutConfig{Threshold: 3, Duration: time.Minute}.Policy()
	assert.True(t, p.Enabled)
	assert.Equal(t, 3, p.Threshold)

	assert.False(t, LockoutConfig{}.Policy().Enabled)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_JWT_ALGORITHM", "RS256")
	t.Setenv("ADMIN_JWT_ACCESS_TTL", "5m")
	t.Setenv("ADMIN_JWT_ISSUER", "backoffice")
	t.Setenv("ADMIN_COOKIE_SAMESITE", "lax")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_LOCKOUT_THRESHOLD", "3")
	t.Setenv("ADMIN_SESSION_REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig(writeEnvFile(t, "ADMIN_EMAIL=ops@example.com\nADMIN_JWT_ISSUER=from-file\n"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Unsetenv("ADMIN_EMAIL") })

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "RS256", cfg.JWT.Algorithm)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, "backoffice", cfg.JWT.Issuer, "process environment wins over .env")
	assert.Equal(t, "lax", cfg.Cookie.SameSite)
	assert.Equal(t, "root", cfg.Fallback.Username)
	assert.Equal(t, "ops@example.com", cfg.Fallback.Email)
	assert.Equal(t, 3, cfg.Lockout.Threshold)
	assert.Equal(t, "localhost:6379", cfg.Session.RedisAddr)
	assert.True(t, cfg.CookieSecure())
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("ADMIN_JWT_ACCESS_TTL", "soon")
	_, err := LoadConfig(writeEnvFile(t, ""))
	assert.ErrorIs(t, err, ErrConfiguration)

	t.Setenv("ADMIN_JWT_ACCESS_TTL", "1h")
	t.Setenv("ADMIN_JWT_REFRESH_TTL", "30m")
	_, err = LoadConfig(writeEnvFile(t, ""))
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "JWT.RefreshTTL", cfgErr.Field)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
