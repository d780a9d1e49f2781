package adminauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/adminauth/cookie"
	"github.com/MrEthical07/adminauth/internal/limiters"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// RuntimeMode classifies APP_ENV.
type RuntimeMode int

const (
	// ModeAmbiguous is any APP_ENV value that is neither production nor an
	// explicit development value, including an unset one.
	ModeAmbiguous RuntimeMode = iota
	ModeDevelopment
	ModeProduction
)

func (m RuntimeMode) String() string {
	switch m {
	case ModeProduction:
		return "production"
	case ModeDevelopment:
		return "development"
	default:
		return "ambiguous"
	}
}

// Config is the complete engine configuration. It is read once by
// [Builder.Build] and never re-read.
type Config struct {
	Environment string `env:"APP_ENV"`

	JWT      JWTConfig      `envPrefix:"ADMIN_JWT_"`
	Cookie   CookieConfig   `envPrefix:"ADMIN_COOKIE_"`
	Fallback FallbackConfig `envPrefix:"ADMIN_"`
	Lockout  LockoutConfig  `envPrefix:"ADMIN_LOCKOUT_"`
	Audit    AuditConfig    `envPrefix:"ADMIN_AUDIT_"`
	Session  SessionConfig  `envPrefix:"ADMIN_SESSION_"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds raw signing settings. Key fields may carry escaped
// newlines or base64-wrapped PEM.
type JWTConfig struct {
	Algorithm      string        `env:"ALGORITHM"`
	PrivateKey     string        `env:"PRIVATE_KEY"`
	PublicKey      string        `env:"PUBLIC_KEY"`
	Secret         string        `env:"SECRET"`
	AllowDevSecret bool          `env:"ALLOW_DEV_SECRET"`
	Issuer         string        `env:"ISSUER" envDefault:"adminauth"`
	Audience       string        `env:"AUDIENCE" envDefault:"adminauth-admin"`
	KeyID          string        `env:"KEY_ID"`
	AccessTTL      time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL     time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
	Leeway         time.Duration `env:"LEEWAY" envDefault:"30s"`
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the auth cookie pair. Secure is "auto", "true" or
// "false"; auto means secure in production.
type CookieConfig struct {
	Name     string `env:"NAME" envDefault:"admin_token"`
	Domain   string `env:"DOMAIN"`
	Path     string `env:"PATH" envDefault:"/"`
	SameSite string `env:"SAMESITE" envDefault:"strict"`
	Secure   string `env:"SECURE" envDefault:"auto"`
	HTTPOnly bool   `env:"HTTP_ONLY" envDefault:"true"`
}

/*
====================================
FALLBACK IDENTITY CONFIG
====================================
*/

// FallbackConfig defines the break-glass admin used when the identity store
// has no record for the username. DevPassword is ignored in production.
type FallbackConfig struct {
	Username     string `env:"USERNAME" envDefault:"admin"`
	PasswordHash string `env:"PASSWORD_HASH"`
	Email        string `env:"EMAIL"`
	DevPassword  string `env:"DEV_PASSWORD"`
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig is applied by the bundled identity stores when they count a
// failed attempt. A zero Threshold disables lockout.
type LockoutConfig struct {
	Threshold int           `env:"THRESHOLD" envDefault:"5"`
	Duration  time.Duration `env:"DURATION" envDefault:"15m"`
}

// LockoutPolicy is the store-side lockout rule.
type LockoutPolicy = limiters.LockoutPolicy

// Policy converts the config into the policy consumed by identity stores.
func (c LockoutConfig) Policy() LockoutPolicy {
	return LockoutPolicy{
		Enabled:   c.Threshold > 0,
		Threshold: c.Threshold,
		Duration:  c.Duration,
	}
}

/*
====================================
AUDIT / SESSION CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED" envDefault:"true"`
	BufferSize int  `env:"BUFFER_SIZE" envDefault:"256"`
	DropIfFull bool `env:"DROP_IF_FULL" envDefault:"true"`
}

// SessionConfig configures the Redis session store used by the daemon.
type SessionConfig struct {
	RedisAddr   string `env:"REDIS_ADDR"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"adm"`
}

// DefaultConfig returns the configuration produced by an empty environment.
func DefaultConfig() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("adminauth: default config: %v", err))
	}
	return cfg
}

// LoadConfig reads the given .env files (or ./.env best-effort when none are
// given) and then the process environment.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	} else {
		// a missing .env is normal
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Mode classifies Environment.
func (c Config) Mode() RuntimeMode {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "production", "prod":
		return ModeProduction
	case "development", "dev", "local", "test":
		return ModeDevelopment
	default:
		return ModeAmbiguous
	}
}

// IsProduction reports whether APP_ENV names production.
func (c Config) IsProduction() bool { return c.Mode() == ModeProduction }

// CookieSecure resolves the cookie Secure policy.
func (c Config) CookieSecure() bool {
	switch strings.ToLower(strings.TrimSpace(c.Cookie.Secure)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return c.IsProduction()
	}
}

// Validate checks value ranges. Key material is checked by Build.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return configError("JWT.AccessTTL", "must be > 0", nil)
	}
	if c.JWT.RefreshTTL <= 0 {
		return configError("JWT.RefreshTTL", "must be > 0", nil)
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return configError("JWT.RefreshTTL", "must not be shorter than AccessTTL", nil)
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return configError("JWT.Leeway", "must be within [0, 2m]", nil)
	}

	if strings.TrimSpace(c.Cookie.Name) == "" {
		return configError("Cookie.Name", "must not be empty", nil)
	}
	if c.Cookie.Path == "" || !strings.HasPrefix(c.Cookie.Path, "/") {
		return configError("Cookie.Path", "must start with /", nil)
	}
	if _, err := cookie.ParseSameSite(c.Cookie.SameSite); err != nil {
		return configError("Cookie.SameSite", "", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Cookie.Secure)) {
	case "", "auto", "true", "1", "yes", "false", "0", "no":
	default:
		return configError("Cookie.Secure", "must be auto, true or false", nil)
	}

	if c.Lockout.Threshold < 0 {
		return configError("Lockout.Threshold", "must be >= 0", nil)
	}
	if c.Lockout.Threshold > 0 && c.Lockout.Duration <= 0 {
		return configError("Lockout.Duration", "must be > 0 when lockout is enabled", nil)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit.BufferSize", "must be > 0 when audit is enabled", nil)
	}
	return nil
}

func (c Config) cookieConfig() (cookie.Config, error) {
	sameSite, err := cookie.ParseSameSite(c.Cookie.SameSite)
	if err != nil {
		return cookie.Config{}, err
	}
	return cookie.Config{
		Name:            c.Cookie.Name,
		Domain:          c.Cookie.Domain,
		Path:            c.Cookie.Path,
		SameSite:        sameSite,
		Secure:          c.CookieSecure(),
		DisableHTTPOnly: !c.Cookie.HTTPOnly,
		AccessMaxAge:    c.JWT.AccessTTL,
		RefreshMaxAge:   c.JWT.RefreshTTL,
	}, nil
}
