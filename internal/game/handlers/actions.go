package handlers

import (
	"log/slog"
	"net/http"

	"marketsim-server/internal/game"
	"marketsim-server/internal/shared/errors"
	"marketsim-server/internal/shared/response"
)

// Player actions. The routes are wrapped in the session and game access middleware.

func (h *GameHandler) BuyFactory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "buy_factory")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req game.BuyFactoryRequest
	if err := h.decode(w, r, game.SchemaBuyFactory, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	factory, err := h.service.BuyFactory(ctx, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, factory)
}

func (h *GameHandler) SetLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "set_lines")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req game.LinesRequest
	if err := h.decode(w, r, game.SchemaSetLines, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.SetLines(ctx, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *GameHandler) SetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "set_decision")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req game.DecisionRequest
	if err := h.decode(w, r, game.SchemaSetDecision, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	decision, err := h.service.SetDecision(ctx, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, decision)
}

func (h *GameHandler) ResolveTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "resolve_turn")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	report, err := h.service.ResolveTurn(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, report)
}
