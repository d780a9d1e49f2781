package adminauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/session"
)

// Role is an identity's role. Only [RoleAdmin] grants access to the admin
// surface; other values are carried through tokens unchanged.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// Identity is a persisted identity record as returned by an [IdentityStore].
type Identity struct {
	ID             string
	Username       string
	PasswordHash   string
	Role           Role
	Email          string
	Permissions    []string
	Active         bool
	FailedAttempts int
	LockUntil      *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// Locked reports whether the identity is locked at now.
func (i *Identity) Locked(now time.Time) bool {
	return i != nil && i.LockUntil != nil && i.LockUntil.After(now)
}

// AdminIdentity is the authenticated projection used after login. ID is
// empty for the fallback identity.
type AdminIdentity struct {
	ID          string   `json:"id,omitempty"`
	Username    string   `json:"username"`
	Role        Role     `json:"role"`
	Email       string   `json:"email,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Subject is the token subject: ID when known, otherwise Username.
func (a AdminIdentity) Subject() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Username
}

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind = jwt.TokenKind

const (
	TokenAccess  = jwt.KindAccess
	TokenRefresh = jwt.KindRefresh
)

// TokenClaims is a verified token. Source comes from the "src" claim and is
// empty for tokens minted without one.
type TokenClaims struct {
	Identity  AdminIdentity
	Subject   string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	SessionID string
	Kind      TokenKind
	Source    CredentialSource
}

// CredentialSource names where a credential check was satisfied.
type CredentialSource string

const (
	SourceStore       CredentialSource = "store"
	SourceEnvironment CredentialSource = "environment"
)

// CredentialResult is a successful credential check. Record is nil for the
// fallback identity.
type CredentialResult struct {
	Identity AdminIdentity
	Record   *Identity
	Source   CredentialSource
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Identity     AdminIdentity
	Source       CredentialSource
	SessionID    string
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// IdentityStore is the persisted identity collaborator.
//
// FindByUsername returns [ErrIdentityNotFound] (or nil, nil) when no record
// matches. Any other error is treated as the store being unreachable.
type IdentityStore interface {
	FindByUsername(ctx context.Context, username string) (*Identity, error)
	IncrementFailedAttempts(ctx context.Context, id string) error
	ClearLockAndRecordLogin(ctx context.Context, id string, at time.Time) error
}

// SessionStore is the revocable session collaborator. Validate returns nil
// for a missing, expired or revoked session.
type SessionStore interface {
	Create(ctx context.Context, sess session.Session, ttl time.Duration) (*session.Session, error)
	Validate(ctx context.Context, sessionID string) (*session.Session, error)
	Revoke(ctx context.Context, sessionID string) error
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

// AuditEvent is an audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink writes audit events through a logr.Logger.
type LogSink = internalaudit.LogSink

// NewChannelSink returns a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
