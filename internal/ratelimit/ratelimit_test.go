package ratelimit_test

import (
	"testing"
	"time"

	"chronicle/internal/ratelimit"
	dErrors "chronicle/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(now *time.Time) *ratelimit.LoginLimiter {
	return ratelimit.NewLoginLimiter(
		ratelimit.WithConfig(ratelimit.Config{
			AttemptsPerWindow: 3,
			Window:            time.Minute,
			LockDuration:      5 * time.Minute,
		}),
		ratelimit.WithClock(func() time.Time { return *now }),
	)
}

func Test_LoginLimiter_LocksAfterBudget(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLimiter(&now)

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check("amina"))
		limiter.RecordFailure("amina")
	}

	err := limiter.Check("amina")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

	// Other keys are unaffected.
	assert.NoError(t, limiter.Check("bashir"))
}

func Test_LoginLimiter_UnlocksAfterLockDuration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLimiter(&now)

	for i := 0; i < 3; i++ {
		limiter.RecordFailure("amina")
	}
	require.Error(t, limiter.Check("amina"))

	now = now.Add(5*time.Minute + time.Second)
	assert.NoError(t, limiter.Check("amina"))
}

func Test_LoginLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLimiter(&now)

	limiter.RecordFailure("amina")
	limiter.RecordFailure("amina")

	// Old failures age out of the window before the third arrives.
	now = now.Add(2 * time.Minute)
	limiter.RecordFailure("amina")
	assert.NoError(t, limiter.Check("amina"))
}

func Test_LoginLimiter_ClearResets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLimiter(&now)

	for i := 0; i < 3; i++ {
		limiter.RecordFailure("amina")
	}
	require.Error(t, limiter.Check("amina"))

	limiter.Clear("amina")
	assert.NoError(t, limiter.Check("amina"))
}
