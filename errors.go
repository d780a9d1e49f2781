package adminauth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for every credential rejection: unknown
	// username, wrong password, locked or inactive account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for every token rejection: malformed,
	// expired, bad signature, issuer or audience mismatch, wrong kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionExpired is returned when a token verifies but the session it
	// references is gone.
	ErrSessionExpired = errors.New("session expired")
	// ErrStoreUnavailable wraps identity or session backend failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConfiguration is the sentinel behind [ConfigurationError].
	ErrConfiguration = errors.New("configuration error")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrIdentityNotFound is returned by [IdentityStore] implementations when
	// no record matches.
	ErrIdentityNotFound = errors.New("identity not found")
)

// ConfigurationError reports a setting that prevents the engine from signing
// or verifying tokens. It matches [ErrConfiguration] with errors.Is.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "adminauth: invalid configuration"
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

func configError(field, reason string, err error) error {
	return &ConfigurationError{Field: field, Reason: reason, Err: err}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
