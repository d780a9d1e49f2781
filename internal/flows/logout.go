package flows

import (
	"context"

	"github.com/MrEthical07/adminauth/jwt"
)

// LogoutDeps captures logout flow dependencies. ParseToken should accept
// expired tokens of either kind; only their signature and audience matter for
// revocation.
type LogoutDeps struct {
	ParseToken    func(string) (*jwt.Claims, error)
	RevokeSession func(context.Context, string) error
}

// LogoutResult reports which session, if any, was revoked.
type LogoutResult struct {
	Subject   string
	Username  string
	SessionID string
	Err       error
}

// RunLogout revokes the session referenced by token. Tokens without a sid,
// or an engine without a session backend, make logout a no-op.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	claims, err := deps.ParseToken(token)
	if err != nil {
		return LogoutResult{Err: err}
	}

	res := LogoutResult{Subject: claims.Subject, Username: claims.Username, SessionID: claims.SID}
	if claims.SID == "" || deps.RevokeSession == nil {
		return res
	}
	res.Err = deps.RevokeSession(ctx, claims.SID)
	return res
}
