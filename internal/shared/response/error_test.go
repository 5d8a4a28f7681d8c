package response

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketsim-server/internal/shared/errors"
)

func TestErrorMapsTypeToStatus(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	cases := []struct {
		err  error
		code int
	}{
		{errors.Validation("bad body"), http.StatusBadRequest},
		{errors.NotFoundf("report %d", 9), http.StatusNotFound},
		{errors.Conflict("game over"), http.StatusConflict},
		{errors.Unauthorized("no session"), http.StatusUnauthorized},
		{errors.Forbidden("other game"), http.StatusForbidden},
		{errors.MethodNotAllowed("PUT"), http.StatusMethodNotAllowed},
		{errors.External("redis down"), http.StatusServiceUnavailable},
		{errors.WrapInternal("boom", nil), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/games/current", nil)
		Error(rec, req, logger, tc.err)

		if rec.Code != tc.code {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.code)
		}
		var body ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Code != tc.code || body.Error != string(errors.GetType(tc.err)) {
			t.Errorf("%v: body %+v", tc.err, body)
		}
	}
}

func TestSuccessWritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, map[string]int{"turn": 1})

	if rec.Code != http.StatusCreated || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("status=%d content-type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["turn"] != 1 {
		t.Fatalf("body: %v %v", body, err)
	}
}

func TestErrorCarriesDomainReason(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	insufficientFunds := fmt.Errorf("insufficient funds")

	cases := []struct {
		name    string
		err     error
		reason  string
		message string
	}{
		{
			name:   "wrapped domain cause",
			err:    errors.WrapConflict("action cannot be applied", fmt.Errorf("buy factory in USA: %w", insufficientFunds)),
			reason: "insufficient funds",
		},
		{name: "no cause", err: errors.Conflict("game is over")},
		{
			name:    "internal detail hidden",
			err:     errors.WrapInternal("archive failed", fmt.Errorf("pq: connection refused")),
			message: internalMessage,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/games/current/factories", nil)
			Error(rec, req, logger, tc.err)

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Reason != tc.reason {
				t.Fatalf("reason: got %q want %q", body.Reason, tc.reason)
			}
			if tc.message != "" && body.Message != tc.message {
				t.Fatalf("message: got %q want %q", body.Message, tc.message)
			}
		})
	}
}
