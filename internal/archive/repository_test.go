package archive

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"testing"

	"marketsim-server/internal/economy"
	"marketsim-server/internal/shared/database"
	"marketsim-server/internal/world"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, slog.New(slog.DiscardHandler))
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func playTurns(t *testing.T, cfg world.Config, turns int) []*world.TurnReport {
	t.Helper()
	catalog, err := economy.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	w, err := world.New(cfg, catalog, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	var reports []*world.TurnReport
	for range turns {
		report, err := w.ResolveTurn()
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		reports = append(reports, report)
	}
	return reports
}

func TestCompressRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte(`{"turn":1,"sales":[]}`), 200)
	packed, err := compressLZ4(src)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(packed) >= len(src) {
		t.Fatalf("repetitive input did not shrink: %d >= %d", len(packed), len(src))
	}
	out, err := decompressLZ4(packed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSaveAndLoadTurns(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	cfg := world.Config{TotalTurns: 5, ComputerPlayers: 3, PlayerName: "Acme", Seed: 42}
	if err := repo.GameCreated(ctx, "g1", cfg); err != nil {
		t.Fatalf("game created: %v", err)
	}

	reports := playTurns(t, cfg, 3)
	for _, r := range reports {
		if err := repo.TurnResolved(ctx, "g1", r); err != nil {
			t.Fatalf("turn %d: %v", r.Turn, err)
		}
	}

	got, rec, err := repo.LoadTurn(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Turn != 2 || got.Digest != reports[1].Digest || len(got.Sales) != len(reports[1].Sales) {
		t.Fatalf("loaded report differs: turn=%d digest=%s", got.Turn, got.Digest)
	}
	if rec.Stored == 0 || rec.RawSize == 0 {
		t.Fatalf("sizes not recorded: %+v", rec)
	}

	chain, err := repo.Chain(ctx, "g1")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length %d", len(chain))
	}
	if chain[0].PrevHash != GenesisHash {
		t.Fatalf("first link should start from genesis, got %s", chain[0].PrevHash)
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].PrevHash != chain[i-1].FinalHash {
			t.Fatalf("turn %d not linked to turn %d", chain[i].Turn, chain[i-1].Turn)
		}
	}
	if err := repo.Verify(ctx, "g1"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	games, err := repo.Games(ctx)
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	if len(games) != 1 || games[0].Seed != 42 || games[0].ArchivedTurns != 3 || games[0].PlayerName != "Acme" {
		t.Fatalf("games: %+v", games)
	}

	if _, _, err := repo.LoadTurn(ctx, "g1", 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing turn: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	cfg := world.Config{TotalTurns: 3, ComputerPlayers: 1, Seed: 7}
	if err := repo.SaveGame(ctx, "g1", cfg); err != nil {
		t.Fatalf("save game: %v", err)
	}
	for _, r := range playTurns(t, cfg, 3) {
		if _, err := repo.SaveTurn(ctx, "g1", r); err != nil {
			t.Fatalf("save turn: %v", err)
		}
	}

	if _, err := repo.db.ExecContext(ctx, `UPDATE turn_reports SET digest = 'forged' WHERE turn = 2`); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := repo.Verify(ctx, "g1"); !errors.Is(err, ErrBrokenChain) {
		t.Fatalf("expected broken chain, got %v", err)
	}
}

func TestSaveTurnRequiresPredecessor(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	cfg := world.Config{TotalTurns: 3, ComputerPlayers: 0, Seed: 1}
	if err := repo.SaveGame(ctx, "g1", cfg); err != nil {
		t.Fatalf("save game: %v", err)
	}
	reports := playTurns(t, cfg, 2)
	if _, err := repo.SaveTurn(ctx, "g1", reports[1]); !errors.Is(err, ErrBrokenChain) {
		t.Fatalf("expected broken chain, got %v", err)
	}
}

func TestMigrationsForEveryDialect(t *testing.T) {
	for _, driver := range []string{database.DriverPostgres, database.DriverSQLite, database.DriverMySQL} {
		sub, err := fs.Sub(migrationFiles, "migrations/"+driver)
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		content, err := fs.ReadFile(sub, "001_create_archive.sql")
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		if !bytes.Contains(content, []byte("turn_reports")) {
			t.Fatalf("%s: migration does not create turn_reports", driver)
		}
	}
}
