package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"marketsim-server/internal/auth"
	"marketsim-server/internal/shared/cookies"
	"marketsim-server/internal/shared/errors"
	"marketsim-server/internal/shared/response"
)

type contextKey string

const SessionContextKey contextKey = "session"

// SessionMiddleware requires a valid session token from the cookie or bearer header.
type SessionMiddleware struct {
	auth *auth.Service
}

func NewSessionMiddleware(authService *auth.Service) *SessionMiddleware {
	return &SessionMiddleware{auth: authService}
}

func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "session",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing session authentication")

		token, ok := cookies.SessionToken(r)
		if !ok {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := m.auth.Authenticate(token)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, claims)
		logger.Debug("Session authentication successful",
			"game_id", claims.GameID,
			"company", claims.Company)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext returns the authenticated session, or nil.
func GetClaimsFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(SessionContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
