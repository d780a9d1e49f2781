package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DevelopmentSecret signs HMAC tokens when no secret is configured and the
// caller has explicitly allowed it. It must never sign production tokens.
const DevelopmentSecret = "adminauth-development-only-secret-do-not-use"

var (
	// ErrNoSigningKey is returned when the selected algorithm has no usable signing key.
	ErrNoSigningKey = errors.New("no usable signing key")
	// ErrUnsupportedAlgorithm is returned for algorithms outside the HMAC and RSA families.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrMissingToken is returned when an empty token string is presented.
	ErrMissingToken = errors.New("token missing")
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Config carries the resolved signing configuration.
//
// Key fields must already be normalized with [ResolveKeyMaterial].
type Config struct {
	Algorithm              Algorithm
	PrivateKey             string
	PublicKey              string
	Secret                 string
	AllowDevelopmentSecret bool
	Issuer                 string
	Audience               string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	Leeway                 time.Duration
	MaxFutureIAT           time.Duration
	KeyID                  string
	// Now overrides the clock used for iat, exp and validation. Nil means time.Now.
	Now func() time.Time
}

// Identity is the subject a token is minted for. Source is carried as the
// "src" claim so verifiers can tell persisted identities from the fallback.
type Identity struct {
	ID          string
	Username    string
	Role        string
	Email       string
	Permissions []string
	Source      string
}

// Claims is the decoded token payload. Subject, issuer and audience only come
// from the manager's configuration when signing.
type Claims struct {
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Email       string    `json:"email,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	SID         string    `json:"sid,omitempty"`
	Kind        TokenKind `json:"typ,omitempty"`
	Source      string    `json:"src,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and verifies tokens. It is immutable after construction and
// safe for concurrent use.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	now       func() time.Time
}

// NewManager validates cfg and prepares signing and verification keys.
//
// An RSA configuration with only a public key yields a verify-only manager:
// [Manager.Issue] then fails with [ErrNoSigningKey].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	method := cfg.Algorithm.Method()
	if method == nil || !cfg.Algorithm.known() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{config: cfg, method: method, now: now}

	switch {
	case cfg.Algorithm.IsSymmetric():
		secret := cfg.Secret
		if secret == "" {
			if !cfg.AllowDevelopmentSecret {
				return nil, fmt.Errorf("%w: %s requires a secret", ErrNoSigningKey, cfg.Algorithm)
			}
			secret = DevelopmentSecret
		}
		m.signKey = []byte(secret)
		m.verifyKey = []byte(secret)
	case cfg.Algorithm.IsAsymmetric():
		var pub *rsa.PublicKey
		if cfg.PrivateKey != "" {
			priv, err := parseRSAPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
			pub = &priv.PublicKey
		}
		if cfg.PublicKey != "" {
			parsed, err := parseRSAPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			pub = parsed
		}
		if pub == nil {
			return nil, fmt.Errorf("%w: %s requires an rsa key", ErrNoSigningKey, cfg.Algorithm)
		}
		m.verifyKey = pub
	}

	return m, nil
}

// Algorithm returns the algorithm tokens are signed and verified with.
func (j *Manager) Algorithm() Algorithm {
	return j.config.Algorithm
}

// CanSign reports whether the manager holds a signing key.
func (j *Manager) CanSign() bool {
	return j.signKey != nil
}

// TTL returns the configured lifetime for kind.
func (j *Manager) TTL(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return j.config.RefreshTTL
	}
	return j.config.AccessTTL
}

// Issue signs a token of the given kind for id. sid is embedded when non-empty.
func (j *Manager) Issue(kind TokenKind, id Identity, sid string) (string, error) {
	if j.signKey == nil {
		return "", ErrNoSigningKey
	}
	if kind != KindAccess && kind != KindRefresh {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	subject := id.ID
	if subject == "" {
		subject = id.Username
	}
	if subject == "" {
		return "", errors.New("token subject is empty")
	}

	now := j.now()
	claims := Claims{
		Username:    id.Username,
		Role:        id.Role,
		Email:       id.Email,
		Permissions: id.Permissions,
		SID:         sid,
		Kind:        kind,
		Source:      id.Source,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL(kind))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(j.method, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	return token.SignedString(j.signKey)
}

// Parse verifies signature, algorithm, expiry, issuer and audience and returns
// the decoded claims.
func (j *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}
	return j.parse(tokenStr, options...)
}

// ParseIgnoringExpiry verifies signature, algorithm, issuer and audience but
// accepts tokens whose exp has passed. It is meant for revocation only: a
// logout must still find the session of an access token that just expired.
func (j *Manager) ParseIgnoringExpiry(tokenStr string) (*Claims, error) {
	claims, err := j.parse(tokenStr, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, jwt.ErrTokenRequiredClaimMissing
	}
	if j.config.Issuer != "" && claims.Issuer != j.config.Issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	if j.config.Audience != "" && !containsAudience(claims.Audience, j.config.Audience) {
		return nil, jwt.ErrTokenInvalidAudience
	}
	return claims, nil
}

func (j *Manager) parse(tokenStr string, extra ...jwt.ParserOption) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	options := append([]jwt.ParserOption{jwt.WithValidMethods([]string{j.method.Alg()})}, extra...)
	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return j.verifyKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, errors.New("token subject missing")
	}
	if claims.IssuedAt != nil && j.config.MaxFutureIAT > 0 {
		maxAllowed := j.now().Add(j.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, errors.New("token iat too far in the future")
		}
	}

	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
