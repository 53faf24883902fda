package httpmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// slow refill keeps the bucket from recovering during a test.
const slowRPS = 0.001

func do(h http.Handler, remote string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RPS: slowRPS, Burst: 5})(okHandler())

	for i := range 5 {
		w := do(h, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RPS: slowRPS, Burst: 2})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, do(h, "10.0.0.1:9999", nil).Code)
	}

	w := do(h, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "rate limit exceeded", body.Message)
	assert.Equal(t, "rate_limited", body.Error.Kind)
}

func TestRateLimit_Keys(t *testing.T) {
	tests := []struct {
		name   string
		cfg    RateLimitConfig
		first  func(h http.Handler) *httptest.ResponseRecorder
		second func(h http.Handler) *httptest.ResponseRecorder
		third  func(h http.Handler) *httptest.ResponseRecorder
	}{
		{
			name: "RemoteAddr",
			cfg:  RateLimitConfig{RPS: slowRPS, Burst: 1},
			first: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "10.0.0.1:1234", nil)
			},
			second: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "10.0.0.1:5678", nil)
			},
			third: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "10.0.0.2:1234", nil)
			},
		},
		{
			name: "XForwardedFor",
			cfg:  RateLimitConfig{RPS: slowRPS, Burst: 1},
			first: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "192.168.1.1:4444", map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"})
			},
			second: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "192.168.1.2:5555", map[string]string{"X-Forwarded-For": "203.0.113.50"})
			},
			third: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "192.168.1.1:4444", map[string]string{"X-Real-IP": "198.51.100.7"})
			},
		},
		{
			name: "CustomKeyFunc",
			cfg: RateLimitConfig{RPS: slowRPS, Burst: 1, KeyFunc: func(r *http.Request) string {
				return r.Header.Get("X-API-Key")
			}},
			first: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "10.0.0.1:1", map[string]string{"X-API-Key": "key-a"})
			},
			second: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "10.0.0.2:1", map[string]string{"X-API-Key": "key-a"})
			},
			third: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, "10.0.0.1:1", map[string]string{"X-API-Key": "key-b"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(tt.cfg)(okHandler())
			assert.Equal(t, http.StatusOK, tt.first(h).Code)
			assert.Equal(t, http.StatusTooManyRequests, tt.second(h).Code, "same key is limited")
			assert.Equal(t, http.StatusOK, tt.third(h).Code, "other key is independent")
		})
	}
}

func TestRateLimit_EvictIdle(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{RPS: slowRPS, Burst: 1, IdleTTL: time.Minute})
	now := time.Now()
	rl.limiter("a", now.Add(-2*time.Minute))
	rl.limiter("b", now)

	rl.evictIdle(now)

	assert.NotContains(t, rl.buckets, "a")
	assert.Contains(t, rl.buckets, "b")
}

func TestRateLimitWithCleanup_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := RateLimitWithCleanup(ctx, RateLimitConfig{RPS: 10, Burst: 1, IdleTTL: 10 * time.Millisecond})(okHandler())
	assert.Equal(t, http.StatusOK, do(h, "10.0.0.9:1", nil).Code)
	cancel()
}
