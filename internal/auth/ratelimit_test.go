package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, maxAttempts int, lockout time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     maxAttempts,
		WindowDuration:  time.Minute,
		LockoutDuration: lockout,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_LocksAfterMaxAttempts(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("192.168.1.1", "reader")
		require.True(t, allowed, "attempt %d", i+1)
		rl.RecordFailure("192.168.1.1", "reader")
	}

	allowed, retryAfter := rl.Allow("192.168.1.1", "reader")
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)
}

func TestRateLimiter_SuccessResetsCounter(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Minute)

	rl.RecordFailure("192.168.1.1", "reader")
	rl.RecordFailure("192.168.1.1", "reader")
	rl.RecordSuccess("192.168.1.1", "reader")

	locked, _ := rl.RecordFailure("192.168.1.1", "reader")
	assert.False(t, locked)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, time.Minute)

	rl.RecordFailure("192.168.1.1", "first")
	rl.RecordFailure("192.168.1.1", "first")

	allowed, _ := rl.Allow("192.168.1.1", "first")
	assert.False(t, allowed)

	allowed, _ = rl.Allow("192.168.1.1", "second")
	assert.True(t, allowed)

	allowed, _ = rl.Allow("10.0.0.9", "first")
	assert.True(t, allowed)
}

func TestRateLimiter_LockoutExpires(t *testing.T) {
	rl, now := newTestLimiter(t, 2, 10*time.Minute)

	rl.RecordFailure("10.0.0.1", "reader")
	locked, retryAfter := rl.RecordFailure("10.0.0.1", "reader")
	require.True(t, locked)
	require.Equal(t, 10*time.Minute, retryAfter)

	*now = now.Add(5 * time.Minute)
	allowed, wait := rl.Allow("10.0.0.1", "reader")
	assert.False(t, allowed)
	assert.Equal(t, 5*time.Minute, wait)

	*now = now.Add(6 * time.Minute)
	allowed, _ = rl.Allow("10.0.0.1", "reader")
	assert.True(t, allowed)
}

func TestRateLimiter_WindowForgetsOldFailures(t *testing.T) {
	rl, now := newTestLimiter(t, 2, time.Hour)

	rl.RecordFailure("10.0.0.1", "reader")
	*now = now.Add(2 * time.Minute)

	locked, _ := rl.RecordFailure("10.0.0.1", "reader")
	assert.False(t, locked)
}

func TestRateLimiter_SweepKeepsActiveLockouts(t *testing.T) {
	rl, now := newTestLimiter(t, 1, time.Hour)

	rl.RecordFailure("10.0.0.1", "locked")
	rl.RecordFailure("10.0.0.2", "stale")
	rl.failures[attemptKey("10.0.0.2", "stale")].lockedUntil = time.Time{}

	*now = now.Add(30 * time.Minute)
	rl.sweep()

	assert.Contains(t, rl.failures, attemptKey("10.0.0.1", "locked"))
	assert.Contains(t, rl.failures, attemptKey("10.0.0.2", "stale"))

	*now = now.Add(2 * time.Hour)
	rl.sweep()
	assert.Empty(t, rl.failures)
}

func TestRateLimiter_Check(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, _ := newTestLimiter(t, 1, time.Minute)

	router := gin.New()
	router.POST("/login", func(c *gin.Context) {
		if !rl.Check(c, "reader") {
			return
		}
		rl.RecordFailure(c.ClientIP(), "reader")
		c.Status(http.StatusUnauthorized)
	})

	for i, want := range []int{http.StatusUnauthorized, http.StatusTooManyRequests} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, want, rr.Code, "attempt %d", i+1)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.NotPanics(t, rl.Stop)
}
