package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"marketsim-server/internal/world"
)

// Recorder journals every game to its own file in dir.
type Recorder struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	gameID string
	writer *Writer
}

func NewRecorder(dir string, logger *slog.Logger) *Recorder {
	return &Recorder{dir: dir, logger: logger}
}

func (r *Recorder) Name() string { return "journal" }

// GameCreated closes the previous game's journal and starts a new one.
func (r *Recorder) GameCreated(ctx context.Context, gameID string, cfg world.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer != nil {
		if err := r.writer.Close(); err != nil {
			r.logger.Warn("Failed to close previous journal", "component", "journal", "game_id", r.gameID, "error", err)
		}
		r.writer = nil
	}

	w, err := Open(r.dir, gameID)
	if err != nil {
		return err
	}
	r.writer = w
	r.gameID = gameID

	r.logger.Info("Journal opened", "component", "journal", "game_id", gameID, "path", w.Path())
	return w.WriteValue(EntryGameCreated, gameID, 0, cfg)
}

func (r *Recorder) TurnResolved(ctx context.Context, gameID string, report *world.TurnReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil || r.gameID != gameID {
		return fmt.Errorf("no journal open for game %s", gameID)
	}
	return r.writer.WriteValue(EntryTurnResolved, gameID, report.Turn, report)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	return err
}
