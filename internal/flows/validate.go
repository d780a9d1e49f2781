package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/adminauth/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureUnauthorized
	ValidateFailureWrongKind
	ValidateFailureSessionNotFound
	ValidateFailureSessionBackend
)

// ValidateResult returns either claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures token validation dependencies.
type ValidateDeps struct {
	ParseToken func(string) (*jwt.Claims, error)
	// SessionActive reports whether sid is live. A nil func means no session
	// backend is configured; tokens that carry a sid are then rejected.
	SessionActive func(context.Context, string) (bool, error)
}

var errNoSessionBackend = errors.New("token carries a session id but no session backend is configured")

// RunValidate verifies token, checks that it is of the wanted kind and, when
// it carries a session id, that the session is still live. Token validity and
// session validity are independent gates and both must pass.
func RunValidate(ctx context.Context, token string, want jwt.TokenKind, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Failure: ValidateFailureUnauthorized, Err: jwt.ErrMissingToken}
	}

	claims, err := deps.ParseToken(token)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureUnauthorized, Err: err}
	}

	if !kindMatches(claims.Kind, want) {
		return ValidateResult{Failure: ValidateFailureWrongKind, Claims: claims}
	}

	if claims.SID == "" {
		return ValidateResult{Claims: claims}
	}

	if deps.SessionActive == nil {
		return ValidateResult{Failure: ValidateFailureSessionNotFound, Err: errNoSessionBackend, Claims: claims}
	}

	active, err := deps.SessionActive(ctx, claims.SID)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureSessionBackend, Err: err, Claims: claims}
	}
	if !active {
		return ValidateResult{Failure: ValidateFailureSessionNotFound, Claims: claims}
	}
	return ValidateResult{Claims: claims}
}

// kindMatches treats tokens without a typ claim as access tokens.
func kindMatches(got, want jwt.TokenKind) bool {
	if got == "" {
		got = jwt.KindAccess
	}
	return got == want
}
