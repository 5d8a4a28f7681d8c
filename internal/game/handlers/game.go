package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"marketsim-server/internal/game"
	"marketsim-server/internal/shared/cookies"
	"marketsim-server/internal/shared/errors"
	"marketsim-server/internal/shared/response"
)

const maxBodyBytes = 1 << 20

type GameHandler struct {
	service   *game.Service
	validator *game.Validator
}

func NewGameHandler(service *game.Service, validator *game.Validator) *GameHandler {
	return &GameHandler{service: service, validator: validator}
}

func (h *GameHandler) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.WrapValidation("failed to read request body", err)
	}
	return h.validator.Decode(schema, raw, dst)
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req game.CreateGameRequest
	if err := h.decode(w, r, game.SchemaCreateGame, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	session, err := h.service.CreateGame(ctx, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	cookies.SetSessionCookie(w, session.Token)
	response.Success(w, http.StatusCreated, session)
}

func (h *GameHandler) GetCurrentGame(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_current_game")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	state, err := h.service.State()
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, state)
}

func (h *GameHandler) GetParameters(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_parameters")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	turn := 0
	if raw := r.URL.Query().Get("turn"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(w, r, logger, errors.Validationf("invalid turn %q", raw))
			return
		}
		turn = parsed
	}

	snap, err := h.service.Parameters(turn)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, snap)
}

func (h *GameHandler) GetCompanies(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_companies")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	companies, err := h.service.Companies()
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, companies)
}

func (h *GameHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_ranking")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	ranking, err := h.service.Ranking()
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, ranking)
}

func (h *GameHandler) GetSales(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_sales")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	sales, err := h.service.LastSales()
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, sales)
}

func (h *GameHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_report")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	turnStr := r.PathValue("turn")
	turn, err := strconv.Atoi(turnStr)
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid turn format", err))
		return
	}

	report, err := h.service.Report(turn)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, report)
}

func (h *GameHandler) GetEconomy(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_economy")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	response.Success(w, http.StatusOK, h.service.Catalog())
}
