package archive

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"marketsim-server/internal/shared/database"
	"marketsim-server/internal/world"
)

//go:embed migrations
var migrationFiles embed.FS

// GameRecord describes an archived game.
type GameRecord struct {
	ID              string `json:"id"`
	PlayerName      string `json:"player_name"`
	TotalTurns      int    `json:"total_turns"`
	ComputerPlayers int    `json:"computer_players"`
	Seed            uint64 `json:"seed"`
	ArchivedTurns   int    `json:"archived_turns"`
}

// Repository stores resolved turns as lz4-compressed reports linked by a blake3
// hash chain. It works against Postgres and SQLite.
type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing archive repository", "driver", db.Driver)

	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate applies the schema for the connection's dialect.
func (r *Repository) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationFiles, "migrations/"+r.db.Driver)
	if err != nil {
		return fmt.Errorf("no migrations for driver %s: %w", r.db.Driver, err)
	}
	return r.db.RunMigrations(ctx, sub)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// bind rewrites ? markers into the dialect's placeholders.
func (r *Repository) bind(query string) string {
	if r.db.Driver != database.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString(r.db.Placeholder(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *Repository) SaveGame(ctx context.Context, gameID string, cfg world.Config) error {
	logger := r.logger.With(
		"component", "archive_repository",
		"operation", "save_game",
		"game_id", gameID,
	)
	logger.Debug("Archiving game")

	query := r.bind(`
		INSERT INTO games (id, player_name, total_turns, computer_players, seed)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query, gameID, cfg.PlayerName, cfg.TotalTurns, cfg.ComputerPlayers, strconv.FormatUint(cfg.Seed, 10)); err != nil {
		logger.Error("Failed to archive game", "error", err)
		return fmt.Errorf("failed to archive game: %w", err)
	}

	logger.Info("Game archived")
	return nil
}

// SaveTurn compresses report and appends it to the game's hash chain.
func (r *Repository) SaveTurn(ctx context.Context, gameID string, report *world.TurnReport) (*Record, error) {
	logger := r.logger.With(
		"component", "archive_repository",
		"operation", "save_turn",
		"game_id", gameID,
		"turn", report.Turn,
	)

	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	payload, err := compressLZ4(raw)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	prevHash := GenesisHash
	if report.Turn > 1 {
		query := r.bind(`SELECT final_hash FROM turn_reports WHERE game_id = ? AND turn = ?`)
		err := tx.QueryRowContext(ctx, query, gameID, report.Turn-1).Scan(&prevHash)
		if errors.Is(err, sql.ErrNoRows) {
			logger.Error("Previous turn missing from archive")
			return nil, fmt.Errorf("turn %d has no archived predecessor: %w", report.Turn, ErrBrokenChain)
		}
		if err != nil {
			logger.Error("Failed to read previous hash", "error", err)
			return nil, fmt.Errorf("database error: %w", err)
		}
	}

	rec := &Record{
		GameID:    gameID,
		Turn:      report.Turn,
		Digest:    report.Digest,
		PrevHash:  prevHash,
		FinalHash: linkHash(gameID, report.Turn, prevHash, report.Digest, payload),
		RawSize:   len(raw),
		Stored:    len(payload),
	}

	insert := r.bind(`
		INSERT INTO turn_reports (game_id, turn, digest, prev_hash, final_hash, raw_size, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := tx.ExecContext(ctx, insert, rec.GameID, rec.Turn, rec.Digest, rec.PrevHash, rec.FinalHash, rec.RawSize, payload); err != nil {
		logger.Error("Failed to archive turn", "error", err)
		return nil, fmt.Errorf("failed to archive turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit archived turn", "error", err)
		return nil, fmt.Errorf("failed to commit archived turn: %w", err)
	}

	logger.Debug("Turn archived", "raw_size", rec.RawSize, "stored_size", rec.Stored, "final_hash", rec.FinalHash)
	return rec, nil
}

// LoadTurn returns the archived report of one turn.
func (r *Repository) LoadTurn(ctx context.Context, gameID string, turn int) (*world.TurnReport, *Record, error) {
	logger := r.logger.With(
		"component", "archive_repository",
		"operation", "load_turn",
		"game_id", gameID,
		"turn", turn,
	)

	query := r.bind(`
		SELECT digest, prev_hash, final_hash, raw_size, report
		FROM turn_reports
		WHERE game_id = ? AND turn = ?
	`)

	rec := &Record{GameID: gameID, Turn: turn}
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, gameID, turn).Scan(&rec.Digest, &rec.PrevHash, &rec.FinalHash, &rec.RawSize, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug("Archived turn not found")
		return nil, nil, ErrNotFound
	}
	if err != nil {
		logger.Error("Database error loading turn", "error", err)
		return nil, nil, fmt.Errorf("database error: %w", err)
	}
	rec.Stored = len(payload)

	raw, err := decompressLZ4(payload)
	if err != nil {
		return nil, nil, err
	}
	var report world.TurnReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, nil, fmt.Errorf("failed to decode archived report: %w", err)
	}

	return &report, rec, nil
}

// Chain lists the archived turns of a game in turn order.
func (r *Repository) Chain(ctx context.Context, gameID string) ([]Record, error) {
	logger := r.logger.With("component", "archive_repository", "operation", "chain", "game_id", gameID)

	query := r.bind(`
		SELECT turn, digest, prev_hash, final_hash, raw_size, LENGTH(report)
		FROM turn_reports
		WHERE game_id = ?
		ORDER BY turn
	`)
	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		logger.Error("Failed to query chain", "error", err)
		return nil, fmt.Errorf("failed to query chain: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var records []Record
	for rows.Next() {
		rec := Record{GameID: gameID}
		if err := rows.Scan(&rec.Turn, &rec.Digest, &rec.PrevHash, &rec.FinalHash, &rec.RawSize, &rec.Stored); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Verify recomputes every link of the game's chain from the stored payloads.
func (r *Repository) Verify(ctx context.Context, gameID string) error {
	logger := r.logger.With("component", "archive_repository", "operation", "verify", "game_id", gameID)

	query := r.bind(`
		SELECT turn, digest, prev_hash, final_hash, report
		FROM turn_reports
		WHERE game_id = ?
		ORDER BY turn
	`)
	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return fmt.Errorf("failed to query chain: %w", err)
	}
	defer rows.Close()

	expectedPrev := GenesisHash
	expectedTurn := 1
	for rows.Next() {
		var (
			turn                        int
			digest, prevHash, finalHash string
			payload                     []byte
		)
		if err := rows.Scan(&turn, &digest, &prevHash, &finalHash, &payload); err != nil {
			return fmt.Errorf("failed to scan record: %w", err)
		}
		if turn != expectedTurn || prevHash != expectedPrev {
			logger.Warn("Chain link mismatch", "turn", turn)
			return fmt.Errorf("turn %d: %w", turn, ErrBrokenChain)
		}
		if linkHash(gameID, turn, prevHash, digest, payload) != finalHash {
			logger.Warn("Chain hash mismatch", "turn", turn)
			return fmt.Errorf("turn %d: %w", turn, ErrBrokenChain)
		}
		expectedPrev = finalHash
		expectedTurn++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	logger.Debug("Chain verified", "turns", expectedTurn-1)
	return nil
}

// Games lists archived games, newest first.
func (r *Repository) Games(ctx context.Context) ([]GameRecord, error) {
	logger := r.logger.With("component", "archive_repository", "operation", "games")

	query := `
		SELECT g.id, g.player_name, g.total_turns, g.computer_players, g.seed, COUNT(t.turn)
		FROM games g
		LEFT JOIN turn_reports t ON t.game_id = g.id
		GROUP BY g.id, g.player_name, g.total_turns, g.computer_players, g.seed, g.created_at
		ORDER BY g.created_at DESC, g.id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query games", "error", err)
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		var seed string
		if err := rows.Scan(&g.ID, &g.PlayerName, &g.TotalTurns, &g.ComputerPlayers, &seed, &g.ArchivedTurns); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		if g.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("corrupt seed for game %s: %w", g.ID, err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (r *Repository) Name() string { return "archive" }

func (r *Repository) GameCreated(ctx context.Context, gameID string, cfg world.Config) error {
	return r.SaveGame(ctx, gameID, cfg)
}

func (r *Repository) TurnResolved(ctx context.Context, gameID string, report *world.TurnReport) error {
	_, err := r.SaveTurn(ctx, gameID, report)
	return err
}
