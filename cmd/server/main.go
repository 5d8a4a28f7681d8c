package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketsim-server/internal/archive"
	"marketsim-server/internal/auth"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/game"
	gameHandlers "marketsim-server/internal/game/handlers"
	"marketsim-server/internal/hub"
	"marketsim-server/internal/journal"
	"marketsim-server/internal/leaderboard"
	"marketsim-server/internal/middleware"
	"marketsim-server/internal/server"
	serverHandlers "marketsim-server/internal/server/handlers"
	"marketsim-server/internal/shared/config"
	"marketsim-server/internal/shared/database"
	"marketsim-server/internal/shared/logger"
	"marketsim-server/internal/shared/redis"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.Init()
	if err := run(appLogger); err != nil {
		appLogger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appLogger *slog.Logger) error {
	cfg := config.GlobalConfig
	logger := appLogger.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting marketsim server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"archive_driver", cfg.Archive.Driver,
		"redis_enabled", cfg.Redis.Enabled,
		"journal_enabled", cfg.Journal.Enabled)

	catalog, err := economy.Load(cfg.Game.EconomyProfile)
	if err != nil {
		return fmt.Errorf("failed to load economy profile: %w", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
	if err != nil {
		return err
	}
	authService := auth.NewService(tokens, appLogger)

	validator, err := game.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to compile request schemas: %w", err)
	}

	var observers []game.Observer
	health := map[string]serverHandlers.Pinger{"archive": nil, "redis": nil}

	var archiveReader gameHandlers.ArchiveReader
	if db, err := openArchiveDB(cfg.Archive); err != nil {
		return err
	} else if db != nil {
		defer db.Close()

		repo := archive.NewRepository(db, appLogger)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate archive: %w", err)
		}
		archiveReader = repo
		observers = append(observers, repo)
		health["archive"] = repo
	}

	if cfg.Journal.Enabled {
		recorder := journal.NewRecorder(cfg.Journal.Dir, appLogger)
		defer recorder.Close()
		observers = append(observers, recorder)
	}

	rdb, err := redis.Connect(ctx)
	if err != nil {
		return err
	}
	var board leaderboard.Store = leaderboard.NewMemoryStore()
	if rdb != nil {
		defer rdb.Close()
		board = leaderboard.NewRedisStore(rdb, appLogger)
		health["redis"] = serverHandlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	observers = append(observers, board)

	eventHub := hub.NewHub(cfg.Frontend.Origins(), appLogger)
	go eventHub.Run(ctx)
	observers = append(observers, eventHub)

	gameService := game.NewService(catalog, cfg.Game, authService, appLogger, observers...)

	routes := server.NewRoutes(gameService, validator, authService, archiveReader, board, eventHub, health, appLogger)
	mux := routes.Setup()

	rateLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimit)
	corsMiddleware := middleware.NewCORS(cfg.Frontend)
	handler := rateLimiter.Middleware(corsMiddleware.Middleware(mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "url", cfg.Server.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// openArchiveDB returns nil, nil when archiving is disabled.
func openArchiveDB(cfg config.ArchiveConfig) (*database.DB, error) {
	switch cfg.Driver {
	case config.ArchiveDriverPostgres:
		return database.Connect()
	case config.ArchiveDriverSQLite:
		return database.OpenSQLite(cfg.SQLitePath)
	case config.ArchiveDriverMySQL:
		return database.OpenMySQL(cfg.MySQLDSN)
	default:
		return nil, nil
	}
}
