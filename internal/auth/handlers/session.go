package handlers

import (
	"log/slog"
	"net/http"

	"marketsim-server/internal/middleware"
	"marketsim-server/internal/shared/cookies"
	"marketsim-server/internal/shared/errors"
	"marketsim-server/internal/shared/response"
)

type SessionResponse struct {
	GameID    string `json:"game_id"`
	Company   string `json:"company"`
	ExpiresAt int64  `json:"expires_at"`
}

type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Me describes the authenticated session. Wrap it in the session middleware.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "session_me")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetClaimsFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	resp := SessionResponse{GameID: claims.GameID, Company: claims.Company}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}

	response.Success(w, http.StatusOK, resp)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "logout")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	cookies.ClearSessionCookie(w)
	logger.Debug("Session cookie cleared")

	response.Success(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
