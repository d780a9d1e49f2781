// Package postgres is an identity store backed by PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUsernameTaken is returned by Create on a unique violation.
var ErrUsernameTaken = errors.New("username already exists")

// DB is the subset of *pgxpool.Pool and *pgx.Conn the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS admin_identities (
	id              UUID PRIMARY KEY,
	username        TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT 'ADMIN',
	email           TEXT,
	permissions     TEXT[] NOT NULL DEFAULT '{}',
	active          BOOLEAN NOT NULL DEFAULT TRUE,
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	lock_until      TIMESTAMPTZ,
	last_login_at   TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertSQL = `
INSERT INTO admin_identities (id, username, password_hash, role, email, permissions, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`

const selectByUsernameSQL = `
SELECT id, username, password_hash, role, email, permissions, active,
       failed_attempts, lock_until, last_login_at, created_at
FROM admin_identities
WHERE username = $1`

// failed_attempts on the right-hand side is the pre-update value.
const incrementSQL = `
UPDATE admin_identities
SET failed_attempts = failed_attempts + 1,
    lock_until = CASE
        WHEN $2::int > 0 AND failed_attempts + 1 >= $2::int THEN $3::timestamptz
        ELSE lock_until
    END
WHERE id = $1`

const clearLockSQL = `
UPDATE admin_identities
SET failed_attempts = 0, lock_until = NULL, last_login_at = $2
WHERE id = $1`

const setActiveSQL = `UPDATE admin_identities SET active = $2 WHERE id = $1`

// Store implements [adminauth.IdentityStore].
type Store struct {
	db     DB
	policy adminauth.LockoutPolicy
	now    func() time.Time
}

// New returns a store over db applying policy on failed attempts.
func New(db DB, policy adminauth.LockoutPolicy) *Store {
	return &Store{db: db, policy: policy, now: time.Now}
}

// EnsureSchema creates the identity table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create inserts identity. An empty ID is replaced with a UUID.
func (s *Store) Create(ctx context.Context, identity adminauth.Identity) (*adminauth.Identity, error) {
	if identity.Username == "" || identity.PasswordHash == "" {
		return nil, errors.New("username and password hash are required")
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.Role == "" {
		identity.Role = adminauth.RoleAdmin
	}
	if identity.Permissions == nil {
		identity.Permissions = []string{}
	}

	err := s.db.QueryRow(ctx, insertSQL,
		identity.ID,
		identity.Username,
		identity.PasswordHash,
		string(identity.Role),
		nullableString(identity.Email),
		identity.Permissions,
		identity.Active,
	).Scan(&identity.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return &identity, nil
}

// FindByUsername returns the record or [adminauth.ErrIdentityNotFound].
func (s *Store) FindByUsername(ctx context.Context, username string) (*adminauth.Identity, error) {
	var (
		rec   adminauth.Identity
		role  string
		email *string
	)
	err := s.db.QueryRow(ctx, selectByUsernameSQL, username).Scan(
		&rec.ID,
		&rec.Username,
		&rec.PasswordHash,
		&role,
		&email,
		&rec.Permissions,
		&rec.Active,
		&rec.FailedAttempts,
		&rec.LockUntil,
		&rec.LastLoginAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, adminauth.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	rec.Role = adminauth.Role(role)
	if email != nil {
		rec.Email = *email
	}
	return &rec, nil
}

// IncrementFailedAttempts bumps the counter and sets lock_until in the same
// statement once the threshold is reached.
func (s *Store) IncrementFailedAttempts(ctx context.Context, id string) error {
	threshold := 0
	var until time.Time
	if s.policy.Enabled && s.policy.Duration > 0 {
		threshold = s.policy.Threshold
		until = s.now().Add(s.policy.Duration)
	}

	tag, err := s.db.Exec(ctx, incrementSQL, id, threshold, until)
	if err != nil {
		return fmt.Errorf("increment failed attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return adminauth.ErrIdentityNotFound
	}
	return nil
}

// ClearLockAndRecordLogin resets lockout state and stamps last_login_at.
func (s *Store) ClearLockAndRecordLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx, clearLockSQL, id, at)
	if err != nil {
		return fmt.Errorf("clear lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return adminauth.ErrIdentityNotFound
	}
	return nil
}

// SetActive enables or disables an identity.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.db.Exec(ctx, setActiveSQL, id, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return adminauth.ErrIdentityNotFound
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateKey detects unique constraint violations (SQLSTATE 23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
