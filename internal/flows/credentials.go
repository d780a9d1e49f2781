package flows

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/MrEthical07/adminauth/internal/limiters"
)

// CredentialRecord is the flow-local view of a persisted identity.
type CredentialRecord struct {
	ID             string
	Username       string
	PasswordDigest string
	Role           string
	Email          string
	Permissions    []string
	Active         bool
	FailedAttempts int
	LockUntil      *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// CredentialSource tags which credential source authenticated the caller.
type CredentialSource uint8

const (
	SourceNone CredentialSource = iota
	SourceStore
	SourceEnvironment
)

// Failure reasons reported on rejected outcomes. They feed audit and metrics
// only; callers always see one uniform rejection.
const (
	ReasonEmptyInput       = "empty_input"
	ReasonInactive         = "inactive"
	ReasonLocked           = "locked"
	ReasonBadPassword      = "bad_password"
	ReasonDigestError      = "digest_error"
	ReasonUnknownUser      = "unknown_user"
	ReasonFallbackDisabled = "fallback_disabled"
)

// CredentialOutcome is a tagged result: Record is set for [SourceStore],
// the fallback identity fields for [SourceEnvironment].
type CredentialOutcome struct {
	Source CredentialSource
	Record *CredentialRecord

	Username string
	Role     string
	Email    string

	Reason          string
	StoreLookupFail bool
}

// FallbackIdentity is the configuration-defined break-glass admin.
type FallbackIdentity struct {
	Username       string
	PasswordDigest string
	Email          string
	Role           string
	// DevPassword is only honored when DevPasswordAllowed is true, which the
	// engine sets outside production.
	DevPassword        string
	DevPasswordAllowed bool
}

// CredentialDeps captures credential validation dependencies.
type CredentialDeps struct {
	Now func() time.Time

	// FindByUsername returns (nil, nil) or an error satisfying IsNotFound when
	// no record exists.
	FindByUsername          func(context.Context, string) (*CredentialRecord, error)
	IsNotFound              func(error) bool
	IncrementFailedAttempts func(context.Context, string) error
	ClearLockAndRecordLogin func(context.Context, string, time.Time) error

	VerifyPassword func(plain, digest string) (bool, error)

	Fallback FallbackIdentity

	// BestEffortFailed observes swallowed bookkeeping errors.
	BestEffortFailed func(op string, err error)
	// LookupFailed observes primary lookup errors before falling through to
	// the fallback identity.
	LookupFailed func(err error)
	// DigestFailed observes digests that could not be compared.
	DigestFailed func(source CredentialSource, err error)
}

// bestEffort runs a bookkeeping write whose failure must never change the
// authentication decision.
type bestEffort func(context.Context) error

func (deps CredentialDeps) run(ctx context.Context, op string, fn bestEffort) {
	if fn == nil {
		return
	}
	if err := fn(ctx); err != nil {
		deps.BestEffortFailed(op, err)
	}
}

// RunValidateCredentials checks username/password against the store and then
// against the fallback identity. ok is false for every rejection.
func RunValidateCredentials(ctx context.Context, username, password string, deps CredentialDeps) (CredentialOutcome, bool) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.BestEffortFailed == nil {
		deps.BestEffortFailed = func(string, error) {}
	}
	if deps.LookupFailed == nil {
		deps.LookupFailed = func(error) {}
	}
	if deps.DigestFailed == nil {
		deps.DigestFailed = func(CredentialSource, error) {}
	}
	if deps.VerifyPassword == nil {
		return CredentialOutcome{Reason: ReasonDigestError}, false
	}

	if username == "" || password == "" {
		return CredentialOutcome{Reason: ReasonEmptyInput}, false
	}

	var (
		record     *CredentialRecord
		lookupFail bool
	)
	if deps.FindByUsername != nil {
		found, err := deps.FindByUsername(ctx, username)
		switch {
		case err == nil:
			record = found
		case deps.IsNotFound(err):
		default:
			lookupFail = true
			deps.LookupFailed(err)
		}
	}

	if record != nil {
		return validateStoreRecord(ctx, record, password, deps)
	}

	out, ok := validateFallback(password, username, deps)
	out.StoreLookupFail = lookupFail
	return out, ok
}

func validateStoreRecord(ctx context.Context, record *CredentialRecord, password string, deps CredentialDeps) (CredentialOutcome, bool) {
	reject := func(reason string) (CredentialOutcome, bool) {
		return CredentialOutcome{Source: SourceStore, Record: record, Username: record.Username, Reason: reason}, false
	}

	if !record.Active {
		return reject(ReasonInactive)
	}
	now := deps.Now()
	if limiters.Locked(record.LockUntil, now) {
		return reject(ReasonLocked)
	}

	match, err := deps.VerifyPassword(password, record.PasswordDigest)
	if err != nil {
		deps.DigestFailed(SourceStore, err)
		return reject(ReasonDigestError)
	}
	if !match {
		deps.run(ctx, "increment_failed_attempts", func(ctx context.Context) error {
			if deps.IncrementFailedAttempts == nil {
				return nil
			}
			return deps.IncrementFailedAttempts(ctx, record.ID)
		})
		return reject(ReasonBadPassword)
	}

	deps.run(ctx, "clear_lock_record_login", func(ctx context.Context) error {
		if deps.ClearLockAndRecordLogin == nil {
			return nil
		}
		return deps.ClearLockAndRecordLogin(ctx, record.ID, now)
	})

	return CredentialOutcome{
		Source:   SourceStore,
		Record:   record,
		Username: record.Username,
		Role:     record.Role,
		Email:    record.Email,
	}, true
}

func validateFallback(password, username string, deps CredentialDeps) (CredentialOutcome, bool) {
	fb := deps.Fallback
	if fb.Username == "" || username != fb.Username {
		return CredentialOutcome{Reason: ReasonUnknownUser}, false
	}

	reject := func(reason string) (CredentialOutcome, bool) {
		return CredentialOutcome{Source: SourceEnvironment, Username: fb.Username, Reason: reason}, false
	}

	switch {
	case fb.PasswordDigest != "":
		match, err := deps.VerifyPassword(password, fb.PasswordDigest)
		if err != nil {
			deps.DigestFailed(SourceEnvironment, err)
			return reject(ReasonDigestError)
		}
		if !match {
			return reject(ReasonBadPassword)
		}
	case fb.DevPasswordAllowed && fb.DevPassword != "":
		if subtle.ConstantTimeCompare([]byte(password), []byte(fb.DevPassword)) != 1 {
			return reject(ReasonBadPassword)
		}
	default:
		return reject(ReasonFallbackDisabled)
	}

	return CredentialOutcome{
		Source:   SourceEnvironment,
		Username: fb.Username,
		Role:     fb.Role,
		Email:    fb.Email,
	}, true
}
