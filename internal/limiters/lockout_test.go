package limiters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutPolicyApply(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := DefaultLockoutPolicy()

	for failed := 0; failed < DefaultLockoutThreshold; failed++ {
		assert.Nil(t, p.Apply(failed, now), "failed=%d", failed)
	}

	until := p.Apply(DefaultLockoutThreshold, now)
	require.NotNil(t, until)
	assert.Equal(t, now.Add(DefaultLockoutDuration), *until)

	assert.NotNil(t, p.Apply(DefaultLockoutThreshold+3, now))
}

func TestLockoutPolicyDisabled(t *testing.T) {
	now := time.Now()
	assert.Nil(t, LockoutPolicy{}.Apply(100, now))
	assert.Nil(t, LockoutPolicy{Enabled: true, Threshold: 3}.Apply(5, now))
}

func TestLocked(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.False(t, Locked(nil, now))
	assert.False(t, Locked(&past, now))
	assert.False(t, Locked(&now, now))
	assert.True(t, Locked(&future, now))
}
