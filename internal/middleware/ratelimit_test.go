package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiterFixture(t *testing.T, limit int, window time.Duration) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRateLimiter(rdb, limit, window), mr
}

func doRequest(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	limiter, _ := newLimiterFixture(t, 3, time.Minute)
	h := limiter.Limit(okHandler())

	for i := 0; i < 3; i++ {
		rec := doRequest(h, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	limiter, _ := newLimiterFixture(t, 2, time.Minute)
	h := limiter.Limit(okHandler())

	doRequest(h, "10.0.0.1:1234")
	doRequest(h, "10.0.0.1:1234")
	rec := doRequest(h, "10.0.0.1:1234")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// a different client is unaffected
	rec = doRequest(h, "10.0.0.2:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterWindowResets(t *testing.T) {
	limiter, mr := newLimiterFixture(t, 1, time.Minute)
	h := limiter.Limit(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1:1234").Code)

	mr.FastForward(time.Minute + time.Second)

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1234").Code)
}

func TestRateLimiterNilClientPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(nil, 1, time.Minute)
	h := limiter.Limit(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1234").Code)
	}
}

func TestRateLimiterRedisDownPassesThrough(t *testing.T) {
	limiter, mr := newLimiterFixture(t, 1, time.Minute)
	h := limiter.Limit(okHandler())
	mr.Close()

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1234").Code)
}
