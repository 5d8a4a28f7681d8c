package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthReportsDependencies(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"archive": PingFunc(func(context.Context) error { return nil }),
		"redis":   PingFunc(func(context.Context) error { return errors.New("refused") }),
		"journal": nil,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Fatalf("overall status: %s", resp.Status)
	}
	want := map[string]string{"archive": "connected", "redis": "disconnected", "journal": "disabled"}
	for name, state := range want {
		if resp.Dependencies[name] != state {
			t.Fatalf("%s: got %s want %s", name, resp.Dependencies[name], state)
		}
	}
}
