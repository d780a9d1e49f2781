// Package memory is a concurrency-safe in-process identity store for tests
// and development seeding.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/google/uuid"
)

// ErrUsernameTaken is returned by Create for a duplicate username.
var ErrUsernameTaken = errors.New("username already exists")

// Store keeps identities in memory. Lockout bookkeeping follows the policy
// given to New.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*adminauth.Identity
	byUsername map[string]string

	policy adminauth.LockoutPolicy
	now    func() time.Time
}

// New returns an empty store.
func New(policy adminauth.LockoutPolicy) *Store {
	return &Store{
		byID:       make(map[string]*adminauth.Identity),
		byUsername: make(map[string]string),
		policy:     policy,
		now:        time.Now,
	}
}

// SetClock overrides the clock used for lock-until timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Create stores a copy of identity. An empty ID is replaced with a UUID.
func (s *Store) Create(_ context.Context, identity adminauth.Identity) (*adminauth.Identity, error) {
	identity.Username = strings.TrimSpace(identity.Username)
	if identity.Username == "" {
		return nil, errors.New("username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[identity.Username]; ok {
		return nil, ErrUsernameTaken
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = s.now()
	}

	stored := clone(&identity)
	s.byID[stored.ID] = stored
	s.byUsername[stored.Username] = stored.ID
	return clone(stored), nil
}

// FindByUsername returns a copy of the record or [adminauth.ErrIdentityNotFound].
func (s *Store) FindByUsername(_ context.Context, username string) (*adminauth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, adminauth.ErrIdentityNotFound
	}
	return clone(s.byID[id]), nil
}

// FindByID returns a copy of the record or [adminauth.ErrIdentityNotFound].
func (s *Store) FindByID(_ context.Context, id string) (*adminauth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, adminauth.ErrIdentityNotFound
	}
	return clone(rec), nil
}

// IncrementFailedAttempts bumps the counter and locks the identity once the
// policy threshold is reached.
func (s *Store) IncrementFailedAttempts(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return adminauth.ErrIdentityNotFound
	}
	rec.FailedAttempts++
	if until := s.policy.Apply(rec.FailedAttempts, s.now()); until != nil {
		rec.LockUntil = until
	}
	return nil
}

// ClearLockAndRecordLogin resets lockout state and stamps the login time.
func (s *Store) ClearLockAndRecordLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return adminauth.ErrIdentityNotFound
	}
	rec.FailedAttempts = 0
	rec.LockUntil = nil
	rec.LastLoginAt = &at
	return nil
}

// SetActive enables or disables an identity.
func (s *Store) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return adminauth.ErrIdentityNotFound
	}
	rec.Active = active
	return nil
}

func clone(rec *adminauth.Identity) *adminauth.Identity {
	out := *rec
	if rec.Permissions != nil {
		out.Permissions = append([]string(nil), rec.Permissions...)
	}
	if rec.LockUntil != nil {
		t := *rec.LockUntil
		out.LockUntil = &t
	}
	if rec.LastLoginAt != nil {
		t := *rec.LastLoginAt
		out.LastLoginAt = &t
	}
	return &out
}
