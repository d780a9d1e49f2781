package adminauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminauth/cookie"
	internalaudit "github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/internal/flows"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/session"
	"github.com/go-logr/logr"
)

// Engine is the admin authentication core. It is immutable after
// [Builder.Build] and safe for concurrent use.
type Engine struct {
	config     Config
	jwt        *jwt.Manager
	transport  *cookie.Transport
	identities IdentityStore
	sessions   SessionStore
	hasher     PasswordHasher
	logger     logr.Logger
	metrics    *Metrics
	audit      *internalaudit.Dispatcher
	now        func() time.Time
	signing    signingState
	flowDeps   flows.Deps
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events that were dropped.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Transport returns the cookie transport.
func (e *Engine) Transport() *cookie.Transport { return e.transport }

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Logger returns the engine's logger.
func (e *Engine) Logger() logr.Logger { return e.logger }

// Config returns a copy of the resolved configuration.
func (e *Engine) Config() Config { return e.config }

// Algorithm returns the selected signing algorithm.
func (e *Engine) Algorithm() jwt.Algorithm { return e.jwt.Algorithm() }

// HashPassword hashes plain with the engine's password hasher.
func (e *Engine) HashPassword(plain string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plain)
}

/*
====================================
TOKENS
====================================
*/

// IssueAccessToken signs an access token for identity, bound to sessionID
// when it is non-empty. An identity with an ID is marked as a store identity.
func (e *Engine) IssueAccessToken(identity AdminIdentity, sessionID string) (string, error) {
	return e.issue(jwt.KindAccess, identity, identitySource(identity), sessionID)
}

// IssueRefreshToken signs a refresh token for identity.
func (e *Engine) IssueRefreshToken(identity AdminIdentity, sessionID string) (string, error) {
	return e.issue(jwt.KindRefresh, identity, identitySource(identity), sessionID)
}

func identitySource(identity AdminIdentity) CredentialSource {
	if identity.ID != "" {
		return SourceStore
	}
	return SourceEnvironment
}

func (e *Engine) issue(kind TokenKind, identity AdminIdentity, source CredentialSource, sessionID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if !e.jwt.CanSign() {
		return "", configError("JWT.PrivateKey", "engine is verify-only", jwt.ErrNoSigningKey)
	}

	token, err := e.jwt.Issue(kind, jwt.Identity{
		ID:          identity.ID,
		Username:    identity.Username,
		Role:        string(identity.Role),
		Email:       identity.Email,
		Permissions: identity.Permissions,
		Source:      string(source),
	}, sessionID)
	if err != nil {
		if errors.Is(err, jwt.ErrNoSigningKey) {
			return "", configError("JWT", "", err)
		}
		return "", err
	}

	e.metrics.tokenIssued(kind)
	return token, nil
}

// VerifyToken checks signature, algorithm, expiry, issuer and audience. Every
// failure is reported as [ErrInvalidToken].
func (e *Engine) VerifyToken(token string) (*TokenClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwt.Parse(token)
	if err != nil {
		e.metrics.tokenVerified("invalid")
		e.logger.V(1).Info("token rejected", "error", err.Error())
		return nil, ErrInvalidToken
	}
	e.metrics.tokenVerified("valid")
	return toTokenClaims(claims), nil
}

// Authenticate verifies an access token and, when it carries a session id,
// checks the session. It returns [ErrInvalidToken], [ErrSessionExpired], or
// an [ErrStoreUnavailable] error when the session backend fails.
func (e *Engine) Authenticate(ctx context.Context, token string) (*TokenClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res := flows.RunValidate(ctx, token, jwt.KindAccess, e.flowDeps.Validate)
	return e.mapValidate(res.Failure, res.Err, res.Claims)
}

func (e *Engine) mapValidate(failure flows.ValidateFailureKind, err error, claims *jwt.Claims) (*TokenClaims, error) {
	switch failure {
	case flows.ValidateFailureNone:
		e.metrics.tokenVerified("valid")
		return toTokenClaims(claims), nil
	case flows.ValidateFailureUnauthorized:
		e.metrics.tokenVerified("invalid")
		if err != nil {
			e.logger.V(1).Info("token rejected", "error", err.Error())
		}
		return nil, ErrInvalidToken
	case flows.ValidateFailureWrongKind:
		e.metrics.tokenVerified("wrong_kind")
		return nil, ErrInvalidToken
	case flows.ValidateFailureSessionNotFound:
		e.metrics.tokenVerified("session_expired")
		return nil, ErrSessionExpired
	default:
		e.metrics.tokenVerified("error")
		e.logger.Error(err, "session lookup failed")
		return nil, storeError("validate session", err)
	}
}

func toTokenClaims(c *jwt.Claims) *TokenClaims {
	out := &TokenClaims{
		Identity: AdminIdentity{
			Username:    c.Username,
			Role:        Role(c.Role),
			Email:       c.Email,
			Permissions: c.Permissions,
		},
		Subject:   c.Subject,
		Issuer:    c.Issuer,
		Audience:  []string(c.Audience),
		SessionID: c.SID,
		Kind:      c.Kind,
		Source:    CredentialSource(c.Source),
	}
	if out.Kind == "" {
		out.Kind = jwt.KindAccess
	}
	switch out.Source {
	case SourceStore:
		out.Identity.ID = c.Subject
	case SourceEnvironment:
	default:
		// tokens minted without a src claim
		if c.Subject != c.Username {
			out.Identity.ID = c.Subject
		}
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

/*
====================================
CREDENTIALS AND SESSIONS
====================================
*/

// ValidateCredentials checks username and password against the identity
// store, then against the fallback identity. Every rejection is
// [ErrInvalidCredentials].
func (e *Engine) ValidateCredentials(ctx context.Context, username, password string) (*CredentialResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	out, ok := flows.RunValidateCredentials(ctx, username, password, e.flowDeps.Credentials)
	e.recordCredentialCheck(out, ok)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return credentialResult(out), nil
}

// Login validates credentials, opens a session when a session store is
// configured, and issues an access and a refresh token.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, username, password, e.flowDeps.Login)
	e.recordCredentialCheck(res.Outcome, res.Authenticated)

	event := AuditEvent{
		Type:      internalaudit.EventLoginFailure,
		Username:  username,
		SessionID: res.SessionID,
		Source:    sourceLabel(res.Outcome.Source),
	}
	if res.Outcome.Record != nil {
		event.IdentityID = res.Outcome.Record.ID
	}

	if !res.Authenticated {
		event.Reason = res.Outcome.Reason
		e.emitAudit(ctx, event)
		return nil, ErrInvalidCredentials
	}
	if res.Err != nil {
		event.Reason = string(res.FailedStep)
		e.emitAudit(ctx, event)
		var cfgErr *ConfigurationError
		switch {
		case errors.As(res.Err, &cfgErr):
			return nil, res.Err
		case res.FailedStep == flows.StepCreateSession:
			return nil, storeError("create session", res.Err)
		default:
			return nil, fmt.Errorf("adminauth: %s: %w", res.FailedStep, res.Err)
		}
	}

	event.Type = internalaudit.EventLoginSuccess
	event.Success = true
	e.emitAudit(ctx, event)

	cred := credentialResult(res.Outcome)
	return &LoginResult{
		Identity:     cred.Identity,
		Source:       cred.Source,
		SessionID:    res.SessionID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		AccessTTL:    e.jwt.TTL(jwt.KindAccess),
		RefreshTTL:   e.jwt.TTL(jwt.KindRefresh),
	}, nil
}

// Refresh exchanges a refresh token for a new access token bound to the same
// session. Failures map like [Engine.Authenticate].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, *TokenClaims, error) {
	if e == nil {
		return "", nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flowDeps.Refresh)
	event := AuditEvent{Type: internalaudit.EventRefreshFailed}
	if res.Claims != nil {
		event.Username = res.Claims.Username
		event.IdentityID = res.Claims.Subject
		event.SessionID = res.Claims.SID
	}

	if res.Failure != flows.ValidateFailureNone {
		claims, err := e.mapValidate(res.Failure, res.Err, res.Claims)
		event.Reason = err.Error()
		e.emitAudit(ctx, event)
		return "", claims, err
	}
	if res.Err != nil {
		event.Reason = "issue_failed"
		e.emitAudit(ctx, event)
		return "", nil, res.Err
	}

	event.Type = internalaudit.EventTokenRefresh
	event.Success = true
	e.emitAudit(ctx, event)
	return res.AccessToken, toTokenClaims(res.Claims), nil
}

// Logout revokes the session referenced by token, which may be an access or a
// refresh token. Expired tokens are accepted as long as signature, issuer and
// audience verify, so a session can be ended after its access token lapsed.
// Any other invalid token yields [ErrInvalidToken]; a token without a session
// id is accepted as a no-op.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogout(ctx, token, e.flowDeps.Logout)
	if res.Err != nil && res.Subject == "" {
		return ErrInvalidToken
	}

	event := AuditEvent{
		Type:       internalaudit.EventLogout,
		Username:   res.Username,
		IdentityID: res.Subject,
		SessionID:  res.SessionID,
		Success:    res.Err == nil,
	}
	if res.Err != nil {
		event.Reason = "revoke_failed"
		e.emitAudit(ctx, event)
		e.metrics.bookkeepingFailed("revoke_session")
		e.logger.Error(res.Err, "session revoke failed", "sessionID", res.SessionID)
		return storeError("revoke session", res.Err)
	}
	e.emitAudit(ctx, event)
	return nil
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = e.now()
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) recordCredentialCheck(out flows.CredentialOutcome, ok bool) {
	result := "rejected"
	if ok {
		result = "accepted"
	}
	e.metrics.credentialCheck(result, sourceLabel(out.Source))
	if !ok {
		e.logger.V(1).Info("credential check rejected", "username", out.Username, "reason", out.Reason)
	}
}

func sourceLabel(s flows.CredentialSource) string {
	switch s {
	case flows.SourceStore:
		return string(SourceStore)
	case flows.SourceEnvironment:
		return string(SourceEnvironment)
	default:
		return ""
	}
}

func credentialResult(out flows.CredentialOutcome) *CredentialResult {
	res := &CredentialResult{
		Identity: AdminIdentity{
			Username: out.Username,
			Role:     Role(out.Role),
			Email:    out.Email,
		},
		Source: CredentialSource(sourceLabel(out.Source)),
	}
	if out.Record != nil {
		rec := fromCredentialRecord(out.Record)
		res.Record = rec
		res.Identity.ID = rec.ID
		res.Identity.Permissions = rec.Permissions
	}
	return res
}

/*
====================================
FLOW WIRING
====================================
*/

func (e *Engine) buildFlowDeps() flows.Deps {
	validate := flows.ValidateDeps{ParseToken: e.jwt.Parse}
	if e.sessions != nil {
		validate.SessionActive = func(ctx context.Context, sid string) (bool, error) {
			sess, err := e.sessions.Validate(ctx, sid)
			if err != nil {
				return false, err
			}
			return sess != nil, nil
		}
	}

	credentials := flows.CredentialDeps{
		Now:            e.now,
		VerifyPassword: e.hasher.Verify,
		IsNotFound:     func(err error) bool { return errors.Is(err, ErrIdentityNotFound) },
		Fallback: flows.FallbackIdentity{
			Username:           e.config.Fallback.Username,
			PasswordDigest:     e.config.Fallback.PasswordHash,
			Email:              e.config.Fallback.Email,
			Role:               string(RoleAdmin),
			DevPassword:        e.config.Fallback.DevPassword,
			DevPasswordAllowed: !e.config.IsProduction(),
		},
		BestEffortFailed: func(op string, err error) {
			e.metrics.bookkeepingFailed(op)
			e.logger.Error(err, "identity bookkeeping failed", "op", op)
		},
		LookupFailed: func(err error) {
			e.metrics.bookkeepingFailed("find_by_username")
			e.logger.Error(err, "identity store lookup failed, trying fallback identity")
		},
		DigestFailed: func(source flows.CredentialSource, err error) {
			e.logger.Error(err, "password digest could not be compared", "source", sourceLabel(source))
		},
	}
	if e.identities != nil {
		credentials.FindByUsername = func(ctx context.Context, username string) (*flows.CredentialRecord, error) {
			rec, err := e.identities.FindByUsername(ctx, username)
			if err != nil || rec == nil {
				return nil, err
			}
			return toCredentialRecord(rec), nil
		}
		credentials.IncrementFailedAttempts = e.identities.IncrementFailedAttempts
		credentials.ClearLockAndRecordLogin = e.identities.ClearLockAndRecordLogin
	}

	login := flows.LoginDeps{
		Credentials: credentials,
		Issue: func(kind jwt.TokenKind, out flows.CredentialOutcome, sid string) (string, error) {
			cred := credentialResult(out)
			return e.issue(kind, cred.Identity, cred.Source, sid)
		},
	}
	if e.sessions != nil {
		login.CreateSession = func(ctx context.Context, out flows.CredentialOutcome) (string, error) {
			identity := credentialResult(out).Identity
			sess, err := e.sessions.Create(ctx, session.Session{
				Subject:  identity.Subject(),
				Username: identity.Username,
				Role:     string(identity.Role),
				IP:       clientIPFromContext(ctx),
			}, e.jwt.TTL(jwt.KindRefresh))
			if err != nil {
				return "", err
			}
			return sess.SessionID, nil
		}
	}

	logout := flows.LogoutDeps{ParseToken: e.jwt.ParseIgnoringExpiry}
	if e.sessions != nil {
		logout.RevokeSession = e.sessions.Revoke
	}

	return flows.Deps{
		Credentials: credentials,
		Login:       login,
		Validate:    validate,
		Refresh: flows.RefreshDeps{
			Validate: validate,
			IssueAccess: func(c *jwt.Claims) (string, error) {
				tc := toTokenClaims(c)
				return e.issue(jwt.KindAccess, tc.Identity, tc.Source, c.SID)
			},
		},
		Logout: logout,
	}
}

func toCredentialRecord(rec *Identity) *flows.CredentialRecord {
	return &flows.CredentialRecord{
		ID:             rec.ID,
		Username:       rec.Username,
		PasswordDigest: rec.PasswordHash,
		Role:           string(rec.Role),
		Email:          rec.Email,
		Permissions:    rec.Permissions,
		Active:         rec.Active,
		FailedAttempts: rec.FailedAttempts,
		LockUntil:      rec.LockUntil,
		LastLoginAt:    rec.LastLoginAt,
		CreatedAt:      rec.CreatedAt,
	}
}

func fromCredentialRecord(rec *flows.CredentialRecord) *Identity {
	return &Identity{
		ID:             rec.ID,
		Username:       rec.Username,
		PasswordHash:   rec.PasswordDigest,
		Role:           Role(rec.Role),
		Email:          rec.Email,
		Permissions:    rec.Permissions,
		Active:         rec.Active,
		FailedAttempts: rec.FailedAttempts,
		LockUntil:      rec.LockUntil,
		LastLoginAt:    rec.LastLoginAt,
		CreatedAt:      rec.CreatedAt,
	}
}
