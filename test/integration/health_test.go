package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/healthz")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp)
	if !strings.Contains(body, "ok") {
		t.Errorf("body = %q, want to contain 'ok'", body)
	}
}

func TestHealthEndpointIgnoresBadCredentials(t *testing.T) {
	resp := doJSON(t, http.MethodGet, testEnv.BaseURL()+"/readyz", "not-a-token", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with a bad token, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Generate at least one counted request.
	getURL(t, testEnv.BaseURL()+"/api/products").Body.Close()

	resp := getURL(t, testEnv.BaseURL()+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp)
	for _, name := range []string{"ecotrade_requests_total", "ecotrade_auth_attempts_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
