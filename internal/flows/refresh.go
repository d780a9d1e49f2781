package flows

import (
	"context"

	"github.com/MrEthical07/adminauth/jwt"
)

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Validate ValidateDeps
	// IssueAccess mints a new access token carrying the identity and sid of
	// the verified refresh claims.
	IssueAccess func(*jwt.Claims) (string, error)
}

// RefreshResult carries the new access token or a classified failure.
type RefreshResult struct {
	Failure     ValidateFailureKind
	Err         error
	Claims      *jwt.Claims
	AccessToken string
}

// RunRefresh exchanges a live refresh token for a new access token. The
// refresh token itself is not rotated.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	v := RunValidate(ctx, refreshToken, jwt.KindRefresh, deps.Validate)
	if v.Failure != ValidateFailureNone {
		return RefreshResult{Failure: v.Failure, Err: v.Err, Claims: v.Claims}
	}

	token, err := deps.IssueAccess(v.Claims)
	if err != nil {
		return RefreshResult{Err: err, Claims: v.Claims}
	}
	return RefreshResult{Claims: v.Claims, AccessToken: token}
}
