package flows

import (
	"context"

	"github.com/MrEthical07/adminauth/jwt"
)

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Credentials CredentialDeps
	// CreateSession returns the sid for a new server-side session. A nil func
	// issues stateless tokens.
	CreateSession func(context.Context, CredentialOutcome) (string, error)
	Issue         func(jwt.TokenKind, CredentialOutcome, string) (string, error)
}

// LoginStep names the post-authentication step that produced Err.
type LoginStep string

const (
	StepCreateSession LoginStep = "create_session"
	StepIssueAccess   LoginStep = "issue_access"
	StepIssueRefresh  LoginStep = "issue_refresh"
)

// LoginResult carries the token pair or the failure.
type LoginResult struct {
	Outcome       CredentialOutcome
	Authenticated bool
	SessionID     string
	AccessToken   string
	RefreshToken  string
	FailedStep    LoginStep
	Err           error
}

// RunLogin validates credentials and, on success, issues an access and a
// refresh token bound to a fresh session.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	outcome, ok := RunValidateCredentials(ctx, username, password, deps.Credentials)
	if !ok {
		return LoginResult{Outcome: outcome}
	}

	res := LoginResult{Outcome: outcome, Authenticated: true}
	if deps.CreateSession != nil {
		sid, err := deps.CreateSession(ctx, outcome)
		if err != nil {
			res.Err, res.FailedStep = err, StepCreateSession
			return res
		}
		res.SessionID = sid
	}

	access, err := deps.Issue(jwt.KindAccess, outcome, res.SessionID)
	if err != nil {
		res.Err, res.FailedStep = err, StepIssueAccess
		return res
	}
	refresh, err := deps.Issue(jwt.KindRefresh, outcome, res.SessionID)
	if err != nil {
		res.Err, res.FailedStep = err, StepIssueRefresh
		return res
	}

	res.AccessToken = access
	res.RefreshToken = refresh
	return res
}
