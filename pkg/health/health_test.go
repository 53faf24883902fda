package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func get(t *testing.T, fn http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

// toggle fails while down is set.
type toggle struct{ down atomic.Bool }

func (c *toggle) check(context.Context) error {
	if c.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestLiveEndpoint_Thresholds(t *testing.T) {
	h := New()
	c := &toggle{}
	c.down.Store(true)
	h.AddLivenessCheck("db", time.Second, c.check)
	p := h.probes[0]
	ctx := context.Background()

	code, body := get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "probes start healthy")
	assert.Equal(t, "ok", body.Status)

	p.evaluate(ctx)
	p.evaluate(ctx)
	code, _ = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "below failure threshold")

	p.evaluate(ctx)
	code, body = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])

	c.down.Store(false)
	p.evaluate(ctx)
	code, _ = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.Register(Probe{Name: "redis", Kind: Readiness, FailureThreshold: 1, Check: func(context.Context) error {
		return errors.New("timeout")
	}})
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(1_000_000))

	code, body := get(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service is not ready", body.Checks["_readiness"])

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.probes[0].evaluate(context.Background())
	assert.False(t, h.IsReady())
	code, body = get(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "timeout", body.Checks["redis"])
	assert.NotContains(t, body.Checks, "_readiness")

	code, _ = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "readiness failures do not affect liveness")
}

func TestStartStop(t *testing.T) {
	h := New()
	var calls atomic.Int32
	h.AddReadinessCheck("count", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, PingCheck("postgres", pinger{})(ctx))

	err := PingCheck("postgres", pinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping postgres")

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))
}
