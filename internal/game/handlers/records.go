package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"marketsim-server/internal/archive"
	"marketsim-server/internal/leaderboard"
	"marketsim-server/internal/shared/errors"
	"marketsim-server/internal/shared/response"
	"marketsim-server/internal/world"
)

// ArchiveReader is the read side of the turn archive.
type ArchiveReader interface {
	Games(ctx context.Context) ([]archive.GameRecord, error)
	Chain(ctx context.Context, gameID string) ([]archive.Record, error)
	LoadTurn(ctx context.Context, gameID string, turn int) (*world.TurnReport, *archive.Record, error)
	Verify(ctx context.Context, gameID string) error
}

// RecordsHandler serves archived games and the leaderboard. archive may be nil
// when archiving is disabled.
type RecordsHandler struct {
	archive ArchiveReader
	board   leaderboard.Store
}

func NewRecordsHandler(archive ArchiveReader, board leaderboard.Store) *RecordsHandler {
	return &RecordsHandler{archive: archive, board: board}
}

type ChainResponse struct {
	GameID   string           `json:"game_id"`
	Verified bool             `json:"verified"`
	Records  []archive.Record `json:"records"`
}

type ArchivedTurnResponse struct {
	Record archive.Record    `json:"record"`
	Report *world.TurnReport `json:"report"`
}

func (h *RecordsHandler) requireArchive() error {
	if h.archive == nil {
		return errors.NotFoundf("turn archive is disabled")
	}
	return nil
}

func (h *RecordsHandler) GetArchivedGames(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_archived_games")

	if err := h.requireArchive(); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	games, err := h.archive.Games(r.Context())
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to list archived games", err))
		return
	}
	if games == nil {
		games = []archive.GameRecord{}
	}

	response.Success(w, http.StatusOK, games)
}

func (h *RecordsHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_chain")

	if err := h.requireArchive(); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	gameID := r.PathValue("id")
	records, err := h.archive.Chain(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to read chain", err))
		return
	}
	if len(records) == 0 {
		response.Error(w, r, logger, errors.NotFoundf("no archived turns for game %s", gameID))
		return
	}

	resp := ChainResponse{GameID: gameID, Records: records}
	switch err := h.archive.Verify(ctx, gameID); {
	case err == nil:
		resp.Verified = true
	case !stderrors.Is(err, archive.ErrBrokenChain):
		response.Error(w, r, logger, errors.WrapInternal("failed to verify chain", err))
		return
	}

	response.Success(w, http.StatusOK, resp)
}

func (h *RecordsHandler) GetArchivedTurn(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_archived_turn")

	if err := h.requireArchive(); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	turn, err := strconv.Atoi(r.PathValue("turn"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid turn format", err))
		return
	}

	report, record, err := h.archive.LoadTurn(r.Context(), r.PathValue("id"), turn)
	if stderrors.Is(err, archive.ErrNotFound) {
		response.Error(w, r, logger, errors.WrapNotFound("archived turn not found", err))
		return
	}
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to load archived turn", err))
		return
	}

	response.Success(w, http.StatusOK, ArchivedTurnResponse{Record: *record, Report: report})
}

func (h *RecordsHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_standings")

	standings, err := h.board.Standings(r.Context(), r.PathValue("id"))
	if stderrors.Is(err, leaderboard.ErrNoStandings) {
		response.Error(w, r, logger, errors.WrapNotFound("no standings", err))
		return
	}
	if err != nil {
		response.Error(w, r, logger, errors.WrapExternal("failed to read standings", err))
		return
	}

	response.Success(w, http.StatusOK, standings)
}

func (h *RecordsHandler) GetHallOfFame(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_hall_of_fame")

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			response.Error(w, r, logger, errors.Validation("limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	entries, err := h.board.HallOfFame(r.Context(), limit)
	if err != nil {
		response.Error(w, r, logger, errors.WrapExternal("failed to read hall of fame", err))
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}

	response.Success(w, http.StatusOK, entries)
}
