package httpmiddleware

import (
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

// hit sends one request through the handler, from the given remote address
// and with the given headers (key-value pairs).
func hit(t *testing.T, handler http.Handler, remoteAddr string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	require.Zero(t, len(headers)%2, "headers must be key-value pairs")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for i := 0; i < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := hit(t, handler, "192.168.1.1:12345")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		w := hit(t, handler, "10.0.0.1:9999")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := hit(t, handler, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, hit(t, handler, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, hit(t, handler, "10.0.0.2:1234").Code)

	// First IP again, different source port, same limit bucket.
	assert.Equal(t, http.StatusTooManyRequests, hit(t, handler, "10.0.0.1:5678").Code)
}

func TestRateLimit_KeyedByAPIKey(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	// Two callers behind the same address get independent buckets when they
	// present distinct API keys.
	assert.Equal(t, http.StatusOK, hit(t, handler, "10.0.0.1:1111", "X-API-Key", "key-a").Code)
	assert.Equal(t, http.StatusOK, hit(t, handler, "10.0.0.1:1111", "X-API-Key", "key-b").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(t, handler, "10.0.0.1:1111", "X-API-Key", "key-a").Code)

	// A keyless request from the same address still has its own IP bucket.
	assert.Equal(t, http.StatusOK, hit(t, handler, "10.0.0.1:1111").Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	cfg := RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Tenant")
		},
	}
	handler := RateLimit(cfg)(okHandler())

	assert.Equal(t, http.StatusOK, hit(t, handler, "10.0.0.1:1", "X-Tenant", "acme").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(t, handler, "10.0.0.2:2", "X-Tenant", "acme").Code)
	assert.Equal(t, http.StatusOK, hit(t, handler, "10.0.0.1:1", "X-Tenant", "globex").Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	w := hit(t, handler, "192.168.1.1:4444", "X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, http.StatusOK, w.Code)

	// Same forwarded client behind a different proxy address is still limited.
	w = hit(t, handler, "192.168.1.2:5555", "X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
