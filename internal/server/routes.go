package server

import (
	"log/slog"
	"net/http"

	"marketsim-server/internal/auth"
	authHandlers "marketsim-server/internal/auth/handlers"
	"marketsim-server/internal/game"
	gameHandlers "marketsim-server/internal/game/handlers"
	"marketsim-server/internal/hub"
	"marketsim-server/internal/leaderboard"
	"marketsim-server/internal/middleware"
	serverHandlers "marketsim-server/internal/server/handlers"
)

type Routes struct {
	gameService *game.Service
	validator   *game.Validator
	authService *auth.Service
	archive     gameHandlers.ArchiveReader
	board       leaderboard.Store
	hub         *hub.Hub
	health      map[string]serverHandlers.Pinger
	logger      *slog.Logger
}

// NewRoutes wires the HTTP surface. archive may be nil when archiving is disabled.
func NewRoutes(
	gameService *game.Service,
	validator *game.Validator,
	authService *auth.Service,
	archive gameHandlers.ArchiveReader,
	board leaderboard.Store,
	eventHub *hub.Hub,
	health map[string]serverHandlers.Pinger,
	logger *slog.Logger,
) *Routes {
	return &Routes{
		gameService: gameService,
		validator:   validator,
		authService: authService,
		archive:     archive,
		board:       board,
		hub:         eventHub,
		health:      health,
		logger:      logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	sessions := middleware.NewSessionMiddleware(r.authService)
	gameAccess := middleware.NewGameAccessMiddleware(sessions, r.gameService)

	healthHandler := serverHandlers.NewHealthHandler(r.health)
	gameStatusHandler := gameHandlers.NewGameStatusHandler(r.gameService, r.hub)
	gameHandler := gameHandlers.NewGameHandler(r.gameService, r.validator)
	recordsHandler := gameHandlers.NewRecordsHandler(r.archive, r.board)
	sessionHandler := authHandlers.NewSessionHandler()

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.Handle("/api/game/status", gameStatusHandler)
	mux.HandleFunc("/api/economy", gameHandler.GetEconomy)
	mux.HandleFunc("/api/games", gameHandler.CreateGame)
	mux.HandleFunc("/api/games/current", gameHandler.GetCurrentGame)
	mux.HandleFunc("/api/games/current/parameters", gameHandler.GetParameters)
	mux.HandleFunc("/api/games/current/companies", gameHandler.GetCompanies)
	mux.HandleFunc("/api/games/current/ranking", gameHandler.GetRanking)
	mux.HandleFunc("/api/games/current/sales", gameHandler.GetSales)
	mux.HandleFunc("/api/games/current/reports/{turn}", gameHandler.GetReport)
	mux.HandleFunc("GET /api/leaderboard", recordsHandler.GetHallOfFame)
	mux.HandleFunc("GET /api/leaderboard/{id}", recordsHandler.GetStandings)
	mux.HandleFunc("GET /api/archive/games", recordsHandler.GetArchivedGames)
	mux.HandleFunc("GET /api/archive/games/{id}/chain", recordsHandler.GetChain)
	mux.HandleFunc("GET /api/archive/games/{id}/turns/{turn}", recordsHandler.GetArchivedTurn)
	mux.HandleFunc("/ws", r.hub.ServeWS)

	// Session endpoints
	mux.Handle("/api/session", sessions.Authenticate(http.HandlerFunc(sessionHandler.Me)))
	mux.HandleFunc("/api/session/logout", sessionHandler.Logout)

	// Player actions (session must belong to the running game)
	mux.Handle("/api/games/current/factories", gameAccess.Require(http.HandlerFunc(gameHandler.BuyFactory)))
	mux.Handle("/api/games/current/lines", gameAccess.Require(http.HandlerFunc(gameHandler.SetLines)))
	mux.Handle("/api/games/current/decisions", gameAccess.Require(http.HandlerFunc(gameHandler.SetDecision)))
	mux.Handle("/api/games/current/turns", gameAccess.Require(http.HandlerFunc(gameHandler.ResolveTurn)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/game/status", "/api/economy", "/api/games", "/api/games/current/*", "/api/leaderboard", "/api/archive/*", "/ws"},
		"session_endpoints", []string{"/api/session", "/api/session/logout"},
		"player_endpoints", []string{"/api/games/current/factories", "/api/games/current/lines", "/api/games/current/decisions", "/api/games/current/turns"},
	)

	return mux
}
