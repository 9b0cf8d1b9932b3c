package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestThrottle_Allow(t *testing.T) {
	th := NewThrottle(60, 2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	ok, _ := th.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = th.Allow("10.0.0.1")
	assert.True(t, ok)

	ok, wait := th.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = th.Allow("10.0.0.2")
	assert.True(t, ok, "other IPs keep their own bucket")

	now = now.Add(time.Second)
	ok, _ = th.Allow("10.0.0.1")
	assert.True(t, ok, "one token refills per second")
}

func TestThrottle_Disabled(t *testing.T) {
	th := NewThrottle(0, 1)
	for i := 0; i < 100; i++ {
		ok, _ := th.Allow("10.0.0.1")
		assert.True(t, ok)
	}
}

func TestThrottle_Prune(t *testing.T) {
	th := NewThrottle(60, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	th.Allow("10.0.0.1")
	now = now.Add(time.Hour)
	th.Allow("10.0.0.2")

	assert.Equal(t, 1, th.Prune())
}

func TestThrottle_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	th := NewThrottle(1, 1)

	router := gin.New()
	router.POST("/guest", th.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/guest", nil))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/guest", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}
