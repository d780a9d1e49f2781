package adminauth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/password"
	"github.com/MrEthical07/adminauth/stores/memory"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func scenarioHasher(t *testing.T) *password.Multi {
	t.Helper()
	h, err := password.NewMulti(password.Argon2Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	return h
}

func scenarioConfig(env string) adminauth.Config {
	cfg := adminauth.DefaultConfig()
	cfg.Environment = env
	cfg.JWT.Secret = "scenario-secret-0123456789abcdef0123456789"
	cfg.Audit.Enabled = false
	return cfg
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := scenarioConfig("development")
	h := scenarioHasher(t)

	store := memory.New(cfg.Lockout.Policy())
	store.SetClock(clock.Now)
	digest, err := h.Hash("s3cret-alice")
	require.NoError(t, err)
	alice, err := store.Create(ctx, adminauth.Identity{
		Username:     "alice",
		PasswordHash: digest,
		Role:         adminauth.RoleAdmin,
		Active:       true,
	})
	require.NoError(t, err)

	e, err := adminauth.New().
		WithConfig(cfg).
		WithIdentityStore(store).
		WithPasswordHasher(h).
		WithLogger(logr.Discard()).
		WithClock(clock.Now).
		Build()
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < cfg.Lockout.Threshold; i++ {
		_, err := e.ValidateCredentials(ctx, "alice", "wrong-password")
		require.ErrorIs(t, err, adminauth.ErrInvalidCredentials)
	}

	rec, err := store.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.Lockout.Threshold, rec.FailedAttempts)
	require.NotNil(t, rec.LockUntil)
	assert.True(t, rec.Locked(clock.Now()))

	_, err = e.ValidateCredentials(ctx, "alice", "s3cret-alice")
	assert.ErrorIs(t, err, adminauth.ErrInvalidCredentials, "correct password must fail while locked")

	rec, err = store.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.Lockout.Threshold, rec.FailedAttempts, "locked attempts are not counted")

	clock.Advance(cfg.Lockout.Duration + time.Second)

	res, err := e.ValidateCredentials(ctx, "alice", "s3cret-alice")
	require.NoError(t, err)
	assert.Equal(t, adminauth.SourceStore, res.Source)
	assert.Equal(t, alice.ID, res.Identity.ID)

	rec, err = store.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, rec.FailedAttempts)
	assert.Nil(t, rec.LockUntil)
	require.NotNil(t, rec.LastLoginAt)
	assert.True(t, rec.LastLoginAt.Equal(clock.Now()))
}

func TestInactiveIdentityIsRejected(t *testing.T) {
	ctx := context.Background()
	cfg := scenarioConfig("development")
	h := scenarioHasher(t)
	store := memory.New(cfg.Lockout.Policy())
	digest, err := h.Hash("pw-bob")
	require.NoError(t, err)
	bob, err := store.Create(ctx, adminauth.Identity{Username: "bob", PasswordHash: digest, Role: adminauth.RoleEditor, Active: true})
	require.NoError(t, err)

	e, err := adminauth.New().WithConfig(cfg).WithIdentityStore(store).WithPasswordHasher(h).WithLogger(logr.Discard()).Build()
	require.NoError(t, err)
	defer e.Close()

	res, err := e.ValidateCredentials(ctx, "bob", "pw-bob")
	require.NoError(t, err)
	assert.Equal(t, adminauth.RoleEditor, res.Identity.Role)

	require.NoError(t, store.SetActive(ctx, bob.ID, false))
	_, err = e.ValidateCredentials(ctx, "bob", "pw-bob")
	assert.ErrorIs(t, err, adminauth.ErrInvalidCredentials)
}

func TestDevelopmentFallbackPassword(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		env    string
		wantOK bool
	}{
		{"development", true},
		{"staging", true},
		{"production", false},
	} {
		t.Run(tc.env, func(t *testing.T) {
			cfg := scenarioConfig(tc.env)
			cfg.Fallback.Username = "admin"
			cfg.Fallback.DevPassword = "admin123"

			e, err := adminauth.New().
				WithConfig(cfg).
				WithPasswordHasher(scenarioHasher(t)).
				WithLogger(logr.Discard()).
				Build()
			require.NoError(t, err)
			defer e.Close()

			res, err := e.Login(ctx, "admin", "admin123")
			if !tc.wantOK {
				assert.ErrorIs(t, err, adminauth.ErrInvalidCredentials)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, adminauth.SourceEnvironment, res.Source)
			assert.Equal(t, adminauth.RoleAdmin, res.Identity.Role)
			assert.Empty(t, res.SessionID)

			claims, err := e.Authenticate(ctx, res.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, "admin", claims.Subject)

			_, err = e.Login(ctx, "admin", "admin1234")
			assert.ErrorIs(t, err, adminauth.ErrInvalidCredentials)
		})
	}
}

func TestConfigurationErrorSurfacesFromBuild(t *testing.T) {
	cfg := adminauth.DefaultConfig()
	cfg.Environment = "production"

	_, err := adminauth.New().WithConfig(cfg).WithLogger(logr.Discard()).Build()
	var cfgErr *adminauth.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, adminauth.ErrConfiguration)
}
