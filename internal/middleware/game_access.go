package middleware

import (
	"log/slog"
	"net/http"

	"marketsim-server/internal/shared/errors"
	"marketsim-server/internal/shared/response"
)

// GameLocator reports the id of the running game, "" when there is none.
type GameLocator interface {
	CurrentGameID() string
}

// GameAccessMiddleware admits only sessions issued for the running game. A token
// from a replaced game is rejected.
type GameAccessMiddleware struct {
	sessions *SessionMiddleware
	games    GameLocator
}

func NewGameAccessMiddleware(sessions *SessionMiddleware, games GameLocator) *GameAccessMiddleware {
	return &GameAccessMiddleware{sessions: sessions, games: games}
}

func (m *GameAccessMiddleware) Require(next http.Handler) http.Handler {
	return m.sessions.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "game_access",
			"method", r.Method,
			"path", r.URL.Path,
		)

		claims := GetClaimsFromContext(r)
		if claims == nil {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		current := m.games.CurrentGameID()
		if current == "" {
			response.Error(w, r, logger, errors.NotFoundf("no active game"))
			return
		}

		if claims.GameID != current {
			logger.Debug("Session belongs to another game",
				"session_game_id", claims.GameID,
				"current_game_id", current)
			response.Error(w, r, logger, errors.Forbidden("session belongs to a different game"))
			return
		}

		next.ServeHTTP(w, r)
	}))
}
