// Package limiters holds the account-level lockout policy.
//
// Lockout state itself lives in the identity store, never in process memory,
// so the policy is a pure function of (failed attempts, now). Stores call
// [LockoutPolicy.Apply] when they increment the failed-attempt counter.
//
// Network-level rate limiting is out of scope.
package limiters
