package adminauth

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/MrEthical07/adminauth/cookie"
	internalaudit "github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/password"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/prometheus/client_golang/prometheus"
)

// Builder assembles an [Engine]. It is single-use: configure it during
// initialization, call Build once, and discard it.
type Builder struct {
	config Config

	identities IdentityStore
	sessions   SessionStore
	hasher     PasswordHasher
	auditSink  AuditSink
	registerer prometheus.Registerer
	logger     *logr.Logger
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithIdentityStore sets the persisted identity collaborator. Without one,
// only the fallback identity can authenticate.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.identities = store
	return b
}

// WithSessionStore sets the session collaborator. Without one, tokens are
// issued without a session id and cannot be revoked.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

// WithPasswordHasher overrides the default argon2id/bcrypt hasher.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the structured logger. The default writes through the
// standard library logger to stderr.
func (b *Builder) WithLogger(logger logr.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink sets the audit destination. The default logs events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetrics registers the engine's collectors with reg.
func (b *Builder) WithMetrics(reg prometheus.Registerer) *Builder {
	b.registerer = reg
	return b
}

// WithClock overrides time.Now for token timestamps and lockout checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration, resolves key material, selects the
// signing algorithm and returns a ready Engine. Configuration that leaves
// the engine without a usable signing key fails with a [*ConfigurationError].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("adminauth")
	if b.logger != nil {
		logger = *b.logger
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	manager, signing, err := newTokenManager(cfg, logger, now)
	if err != nil {
		return nil, err
	}

	cookieCfg, err := cfg.cookieConfig()
	if err != nil {
		return nil, configError("Cookie", "", err)
	}
	transport, err := cookie.New(cookieCfg)
	if err != nil {
		return nil, configError("Cookie", "", err)
	}

	hasher := b.hasher
	if hasher == nil {
		multi, err := password.NewMulti(password.DefaultArgon2Config())
		if err != nil {
			return nil, configError("Password", "", err)
		}
		hasher = multi
	}

	metrics, err := NewMetrics(b.registerer)
	if err != nil {
		return nil, configError("Metrics", "register collectors", err)
	}

	sink := b.auditSink
	if sink == nil {
		sink = LogSink{Logger: logger.WithName("audit")}
	}
	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	e := &Engine{
		config:     cfg,
		jwt:        manager,
		transport:  transport,
		identities: b.identities,
		sessions:   b.sessions,
		hasher:     hasher,
		logger:     logger,
		metrics:    metrics,
		audit:      dispatcher,
		now:        now,
		signing:    signing,
	}
	e.flowDeps = e.buildFlowDeps()

	b.built = true
	return e, nil
}

// signingState records how the signing setup was decided.
type signingState struct {
	selection jwt.Selection
	devSecret bool
}

// newTokenManager runs the key material resolver and the algorithm selector
// and decides whether the development secret may be used.
func newTokenManager(cfg Config, logger logr.Logger, now func() time.Time) (*jwt.Manager, signingState, error) {
	privateKey := jwt.ResolveKeyMaterial(cfg.JWT.PrivateKey)
	publicKey := jwt.ResolveKeyMaterial(cfg.JWT.PublicKey)
	secret := jwt.ResolveKeyMaterial(cfg.JWT.Secret)

	sel := jwt.SelectAlgorithm(jwt.AlgorithmInput{
		Requested:  cfg.JWT.Algorithm,
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		Secret:     secret,
	})
	for _, w := range sel.Warnings {
		logger.Info("signing configuration warning", "warning", w, "rule", sel.Rule, "algorithm", sel.Algorithm)
	}

	allowDev := false
	if sel.Algorithm.IsSymmetric() && secret == "" {
		switch {
		case cfg.JWT.AllowDevSecret:
			allowDev = true
			logger.Error(jwt.ErrNoSigningKey, "signing tokens with the built-in development secret (explicit opt-in)", "mode", cfg.Mode())
		case cfg.Mode() == ModeDevelopment:
			allowDev = true
			logger.Info("signing tokens with the built-in development secret", "mode", cfg.Mode())
		default:
			return nil, signingState{}, configError("JWT.Secret",
				"no signing secret configured and APP_ENV is not development; set ADMIN_JWT_SECRET, RSA keys, or ADMIN_JWT_ALLOW_DEV_SECRET=true",
				jwt.ErrNoSigningKey)
		}
	}

	manager, err := jwt.NewManager(jwt.Config{
		Algorithm:              sel.Algorithm,
		PrivateKey:             privateKey,
		PublicKey:              publicKey,
		Secret:                 secret,
		AllowDevelopmentSecret: allowDev,
		Issuer:                 cfg.JWT.Issuer,
		Audience:               cfg.JWT.Audience,
		AccessTTL:              cfg.JWT.AccessTTL,
		RefreshTTL:             cfg.JWT.RefreshTTL,
		Leeway:                 cfg.JWT.Leeway,
		KeyID:                  cfg.JWT.KeyID,
		Now:                    now,
	})
	if err != nil {
		return nil, signingState{}, configError("JWT", "", err)
	}
	if !manager.CanSign() {
		logger.Info("no private key configured; engine is verify-only", "algorithm", sel.Algorithm)
	}
	return manager, signingState{selection: sel, devSecret: allowDev}, nil
}
