package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes caps plaintext length so a single request cannot force an
// arbitrarily expensive hash.
const MaxPasswordBytes = 1024

// MinPasswordBytes is the shortest plaintext [Argon2.Hash] and [Bcrypt.Hash] accept.
const MinPasswordBytes = 8

var (
	// ErrMalformedDigest is returned when a stored digest cannot be parsed.
	ErrMalformedDigest = errors.New("malformed password digest")
	// ErrUnsupportedDigest is returned for digests of an unknown scheme or version.
	ErrUnsupportedDigest = errors.New("unsupported password digest")
	// ErrPasswordLength is returned when plaintext is outside the accepted length range.
	ErrPasswordLength = errors.New("password length out of range")
)

// Hasher is the password capability consumed by the credential validator.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

func checkLength(plain string) error {
	if len(plain) < MinPasswordBytes || len(plain) > MaxPasswordBytes {
		return ErrPasswordLength
	}
	return nil
}

// Bcrypt wraps golang.org/x/crypto/bcrypt. Break-glass admin digests are
// frequently generated with bcrypt tooling, so it is accepted for verification.
type Bcrypt struct {
	Cost int
}

// Hash produces a bcrypt digest at the configured cost (bcrypt.DefaultCost when zero).
func (b Bcrypt) Hash(plain string) (string, error) {
	if err := checkLength(plain); err != nil {
		return "", err
	}
	// bcrypt ignores everything past 72 bytes
	if len(plain) > 72 {
		return "", ErrPasswordLength
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify compares plain against a bcrypt digest.
func (Bcrypt) Verify(plain, digest string) (bool, error) {
	if len(plain) > MaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrHashTooShort):
		return false, ErrMalformedDigest
	default:
		return false, ErrUnsupportedDigest
	}
}

// IsBcrypt reports whether digest carries a bcrypt prefix.
func IsBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

// Multi hashes with argon2id and verifies argon2id or bcrypt digests,
// dispatching on the digest prefix.
type Multi struct {
	Argon2 *Argon2
	Bcrypt Bcrypt
}

// NewMulti builds a Multi with the given argon2 parameters.
func NewMulti(cfg Argon2Config) (*Multi, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Multi{Argon2: a}, nil
}

// Hash always produces an argon2id digest.
func (m *Multi) Hash(plain string) (string, error) {
	return m.Argon2.Hash(plain)
}

// Verify routes digest to the matching scheme.
func (m *Multi) Verify(plain, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, argon2Prefix):
		return m.Argon2.Verify(plain, digest)
	case IsBcrypt(digest):
		return m.Bcrypt.Verify(plain, digest)
	case digest == "":
		return false, ErrMalformedDigest
	default:
		return false, ErrUnsupportedDigest
	}
}
