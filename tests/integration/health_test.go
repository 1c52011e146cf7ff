//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doRequest(t, http.MethodGet, path, nil, "")
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}

			var h healthResponse
			if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if h.Status != "ok" {
				t.Errorf("status: got %q, want ok (checks: %v)", h.Status, h.Checks)
			}
		})
	}
}
