package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeadlinePolicy(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		policy, err := NewDeadlinePolicy(2*time.Minute, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, policy.Default())
	})

	t.Run("invalid default timeout", func(t *testing.T) {
		policy, err := NewDeadlinePolicy(0, time.Hour)
		require.ErrorIs(t, err, ErrInvalidDefaultTimeout)
		assert.Nil(t, policy)
	})

	t.Run("max below default", func(t *testing.T) {
		policy, err := NewDeadlinePolicy(time.Minute, time.Second)
		require.ErrorIs(t, err, ErrInvalidMaxTimeout)
		assert.Nil(t, policy)
	})
}

func TestDeadlinePolicy_Resolve(t *testing.T) {
	policy, err := NewDeadlinePolicy(2*time.Minute, 10*time.Minute)
	require.NoError(t, err)

	t.Run("explicit in-range duration", func(t *testing.T) {
		decision := policy.Resolve(5 * time.Minute)
		assert.Equal(t, 5*time.Minute, decision.Timeout)
		assert.Equal(t, TimeoutSourceExplicit, decision.Source)
		assert.False(t, decision.Clamped())
	})

	t.Run("default when request is zero", func(t *testing.T) {
		decision := policy.Resolve(0)
		assert.Equal(t, 2*time.Minute, decision.Timeout)
		assert.True(t, decision.UsedDefault())
	})

	t.Run("sub-second duration clamps to minimum", func(t *testing.T) {
		decision := policy.Resolve(200 * time.Millisecond)
		assert.Equal(t, time.Second, decision.Timeout)
		assert.True(t, decision.Clamped())
	})

	t.Run("negative duration clamps to minimum", func(t *testing.T) {
		decision := policy.Resolve(-time.Minute)
		assert.Equal(t, time.Second, decision.Timeout)
		assert.True(t, decision.Clamped())
	})

	t.Run("over-max duration clamps to maximum", func(t *testing.T) {
		decision := policy.Resolve(time.Hour)
		assert.Equal(t, 10*time.Minute, decision.Timeout)
		assert.True(t, decision.Clamped())
	})
}

func TestDeadlinePolicy_Deadline(t *testing.T) {
	policy, err := NewDeadlinePolicy(2*time.Minute, 10*time.Minute)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	deadline, decision := policy.Deadline(now, 0)
	assert.Equal(t, now.Add(2*time.Minute), deadline)
	assert.True(t, decision.UsedDefault())
}
