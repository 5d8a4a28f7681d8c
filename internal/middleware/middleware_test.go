package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketsim-server/internal/auth"
	"marketsim-server/internal/shared/config"
	"marketsim-server/internal/shared/cookies"
)

type fixedGame string

func (g fixedGame) CurrentGameID() string { return string(g) }

func newSessions(t *testing.T) (*SessionMiddleware, *auth.Service) {
	t.Helper()
	tokens, err := auth.NewTokenManager(strings.Repeat("k", 32), time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc := auth.NewService(tokens, slog.New(slog.DiscardHandler))
	return NewSessionMiddleware(svc), svc
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaimsFromContext(r) == nil {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestGameAccess(t *testing.T) {
	sessions, authService := newSessions(t)
	current, _ := authService.IssueSession("g2", "Player")
	stale, _ := authService.IssueSession("g1", "Player")

	tests := []struct {
		name   string
		game   string
		token  string
		cookie bool
		want   int
	}{
		{"no credentials", "g2", "", false, http.StatusUnauthorized},
		{"garbage token", "g2", "nope", false, http.StatusUnauthorized},
		{"stale game", "g2", stale, false, http.StatusForbidden},
		{"no game running", "", current, false, http.StatusNotFound},
		{"bearer", "g2", current, false, http.StatusNoContent},
		{"cookie", "g2", current, true, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewGameAccessMiddleware(sessions, fixedGame(tt.game)).Require(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/api/games/current/turns", nil)
			switch {
			case tt.token != "" && tt.cookie:
				req.AddCookie(&http.Cookie{Name: cookies.SessionCookieName, Value: tt.token})
			case tt.token != "":
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status: got %d want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 2})
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := range 2 {
		if code := do("10.0.0.1:1000"); code != http.StatusOK {
			t.Fatalf("request %d: %d", i, code)
		}
	}
	if code := do("10.0.0.1:1001"); code != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %d", code)
	}
	if code := do("10.0.0.2:1000"); code != http.StatusOK {
		t.Fatalf("other clients keep their own bucket, got %d", code)
	}

	rl.evictIdle(time.Now().Add(time.Hour * 24 * 365))
	if len(rl.clients) != 0 {
		t.Fatalf("idle clients not evicted: %d", len(rl.clients))
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := getClientIP(req, false); got != "192.168.1.1" {
		t.Fatalf("untrusted proxy: %s", got)
	}
	if got := getClientIP(req, true); got != "203.0.113.9" {
		t.Fatalf("trusted proxy: %s", got)
	}
}
