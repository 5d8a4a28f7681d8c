package handlers

import (
	"log/slog"
	"net/http"

	"marketsim-server/internal/game"
	"marketsim-server/internal/shared/errors"
	"marketsim-server/internal/shared/response"
)

type GameStatusResponse struct {
	Game       string `json:"game"`
	Active     bool   `json:"active"`
	Turn       int    `json:"turn"`
	TotalTurns int    `json:"total_turns"`
	GameOver   bool   `json:"game_over"`
	Spectators int    `json:"spectators"`
}

// SpectatorCounter reports the number of live event subscribers.
type SpectatorCounter interface {
	Clients() int
}

type GameStatusHandler struct {
	service    *game.Service
	spectators SpectatorCounter
}

func NewGameStatusHandler(service *game.Service, spectators SpectatorCounter) *GameStatusHandler {
	return &GameStatusHandler{service: service, spectators: spectators}
}

func (h *GameStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "game_status")

	resp := GameStatusResponse{Game: "marketsim"}
	if h.spectators != nil {
		resp.Spectators = h.spectators.Clients()
	}

	state, err := h.service.State()
	switch {
	case err == nil:
		resp.Active = true
		resp.Turn = state.Turn
		resp.TotalTurns = state.TotalTurns
		resp.GameOver = state.GameOver
	case errors.GetType(err) != errors.ErrorTypeNotFound:
		response.Error(w, r, logger, errors.WrapInternal("failed to get game state", err))
		return
	}

	response.Success(w, http.StatusOK, resp)
}
