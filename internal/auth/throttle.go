package auth

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Throttle is a per-client-IP token bucket for endpoints that mint server
// state without credentials, such as guest sessions and registrations.
type Throttle struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// maxBuckets triggers a prune of idle IPs before a new one is added.
const maxBuckets = 4096

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows perMinute requests per IP with the given burst. A
// perMinute of zero or less disables throttling.
func NewThrottle(perMinute, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Throttle{
		limit:   limit,
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes a token for ip and returns how long to wait when none is left.
func (t *Throttle) Allow(ip string) (bool, time.Duration) {
	now := t.now()

	t.mu.Lock()
	b, ok := t.buckets[ip]
	if !ok {
		if len(t.buckets) >= maxBuckets {
			t.pruneLocked(now)
		}
		b = &bucket{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[ip] = b
	}
	b.lastSeen = now
	t.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Prune drops buckets of IPs not seen for a while and returns how many
// remain.
func (t *Throttle) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pruneLocked(t.now())
}

func (t *Throttle) pruneLocked(now time.Time) int {
	cutoff := now.Add(-t.idle)
	for ip, b := range t.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(t.buckets, ip)
		}
	}
	return len(t.buckets)
}

// Middleware answers 429 once the client IP runs out of tokens.
func (t *Throttle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, wait := t.Allow(c.ClientIP()); !ok {
			tooManyRequests(c, "too many requests", wait)
			return
		}
		c.Next()
	}
}
