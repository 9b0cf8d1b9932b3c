package auth

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter locks a (client IP, login) pair out after too many failed
// sign-ins inside a window.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu       sync.Mutex
	failures map[string]*failureWindow

	stop     chan struct{}
	stopOnce sync.Once
}

type failureWindow struct {
	count       int
	opened      time.Time
	lockedUntil time.Time
}

func (w *failureWindow) locked(now time.Time) bool {
	return now.Before(w.lockedUntil)
}

func (w *failureWindow) expired(now time.Time, window time.Duration) bool {
	return now.Sub(w.opened) > window
}

// RateLimitConfig tunes the lockout. Zero values take the defaults.
type RateLimitConfig struct {
	MaxAttempts     int           // failures before lockout (5)
	WindowDuration  time.Duration // failures older than this are forgotten (15m)
	LockoutDuration time.Duration // (30m)
	CleanupInterval time.Duration // (5m)
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	d := DefaultRateLimitConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = d.WindowDuration
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

// NewRateLimiter starts a limiter with a background sweep of stale entries.
// Call Stop to end it.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		failures: make(map[string]*failureWindow),
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func attemptKey(ip, login string) string {
	return ip + "|" + login
}

// Allow reports whether a sign-in may be attempted, and if not, how long
// until it may.
func (rl *RateLimiter) Allow(ip, login string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.failures[attemptKey(ip, login)]
	switch {
	case !ok:
		return true, 0
	case w.locked(now):
		return false, w.lockedUntil.Sub(now)
	case w.expired(now, rl.cfg.WindowDuration), w.count < rl.cfg.MaxAttempts:
		return true, 0
	}
	return false, rl.cfg.LockoutDuration
}

// RecordFailure counts a failed sign-in and reports whether it triggered a
// lockout.
func (rl *RateLimiter) RecordFailure(ip, login string) (bool, time.Duration) {
	now := rl.now()
	key := attemptKey(ip, login)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.failures[key]
	if !ok || w.expired(now, rl.cfg.WindowDuration) {
		w = &failureWindow{opened: now}
		rl.failures[key] = w
	}

	w.count++
	if w.count < rl.cfg.MaxAttempts {
		return false, 0
	}
	w.lockedUntil = now.Add(rl.cfg.LockoutDuration)
	return true, rl.cfg.LockoutDuration
}

// RecordSuccess forgets the failures of the pair.
func (rl *RateLimiter) RecordSuccess(ip, login string) {
	rl.mu.Lock()
	delete(rl.failures, attemptKey(ip, login))
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	now := rl.now()
	horizon := rl.cfg.WindowDuration + rl.cfg.LockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.failures {
		if now.Sub(w.opened) > horizon && !w.locked(now) {
			delete(rl.failures, key)
		}
	}
}

// Check lets the attempt through or answers 429 with Retry-After. The login
// handler calls it once the JSON body is decoded.
func (rl *RateLimiter) Check(c *gin.Context, login string) bool {
	allowed, retryAfter := rl.Allow(c.ClientIP(), login)
	if allowed {
		return true
	}
	tooManyRequests(c, "too many login attempts", retryAfter)
	return false
}

func tooManyRequests(c *gin.Context, msg string, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       msg,
		"retry_after": retryAfter.String(),
	})
}
