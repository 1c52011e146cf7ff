package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(context.Context) error { return nil }

func errCheck(msg string) CheckFunc {
	return func(context.Context) error {
		return errors.New(msg)
	}
}

func getStatus(t *testing.T, endpoint http.HandlerFunc) (int, statusResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	endpoint(w, req)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("all passing", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, okCheck)
		h.AddLivenessCheck("gc", time.Second, okCheck)

		code, body := getStatus(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("no checks registered", func(t *testing.T) {
		code, body := getStatus(t, New().LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("failing past threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("db", time.Second, errCheck("connection refused"))

		ctx := context.Background()
		for range defaultFailureThreshold {
			h.livenessChecks[0].run(ctx)
		}

		code, body := getStatus(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "connection refused", body.Checks["db"])
	})

	t.Run("failing below threshold stays healthy", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("flaky", time.Second, errCheck("temporary"))

		ctx := context.Background()
		for range defaultFailureThreshold - 1 {
			h.livenessChecks[0].run(ctx)
		}

		code, _ := getStatus(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready and passing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("cache", time.Second, okCheck)
		h.SetReady(true)

		code, body := getStatus(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("not ready until SetReady", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("cache", time.Second, okCheck)

		code, body := getStatus(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body.Checks, "_readiness")
	})

	t.Run("SetReady false flips back", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("cache", time.Second, okCheck)
		h.SetReady(true)

		code, _ := getStatus(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)

		h.SetReady(false)
		code, _ = getStatus(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("one of several failing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("db", time.Second, okCheck)
		h.AddReadinessCheck("cache", time.Second, errCheck("cache miss"))
		h.SetReady(true)

		ctx := context.Background()
		for range defaultFailureThreshold {
			h.readinessChecks[1].run(ctx)
		}

		code, body := getStatus(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body.Checks, "cache")
		assert.NotContains(t, body.Checks, "db")
	})
}

func TestIsReady(t *testing.T) {
	h := New()
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheckRecovery(t *testing.T) {
	failing := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	c := h.livenessChecks[0]
	ctx := context.Background()

	for range defaultFailureThreshold {
		c.run(ctx)
	}
	assert.False(t, c.isHealthy())

	failing = false
	for range defaultSuccessThreshold {
		c.run(ctx)
	}
	assert.True(t, c.isHealthy(), "check should recover after consecutive passes")
}

func TestCheckLastErrorStored(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, errCheck("timeout"))
	c := h.livenessChecks[0]

	assert.Nil(t, c.getLastError())

	c.run(context.Background())
	assert.EqualError(t, c.getLastError(), "timeout")
}

func TestStopIdempotent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, okCheck)

	h.Start(context.Background(), 100*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("live", time.Second, errCheck("err"))
	h.AddReadinessCheck("ready", time.Second, okCheck)
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				getStatus(t, h.LiveEndpoint)
				getStatus(t, h.ReadyEndpoint)
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
