package limiters

import "time"

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// LockoutPolicy decides when repeated failures lock an identity.
type LockoutPolicy struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy locks for 15 minutes after 5 consecutive failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Enabled:   true,
		Threshold: DefaultLockoutThreshold,
		Duration:  DefaultLockoutDuration,
	}
}

// Apply returns the lock-until timestamp an identity should carry after its
// failed-attempt counter reached failed. It returns nil while the counter is
// below the threshold or when the policy is disabled.
func (p LockoutPolicy) Apply(failed int, now time.Time) *time.Time {
	if !p.Enabled || p.Threshold <= 0 || p.Duration <= 0 || failed < p.Threshold {
		return nil
	}
	until := now.Add(p.Duration)
	return &until
}

// Locked reports whether lockUntil is still in the future at now.
func Locked(lockUntil *time.Time, now time.Time) bool {
	return lockUntil != nil && lockUntil.After(now)
}
