// Command simulate plays a full game headless: the human company stays idle and
// the computer players compete. It prints the final ranking.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"marketsim-server/internal/archive"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/journal"
	"marketsim-server/internal/shared/config"
	"marketsim-server/internal/shared/database"
	"marketsim-server/internal/shared/logger"
	"marketsim-server/internal/world"
)

type options struct {
	turns      int
	computers  int
	seed       uint64
	profile    string
	journalDir string
	archiveDB  string
	logLevel   string
	verbose    bool
}

func main() {
	var opts options
	flag.IntVar(&opts.turns, "turns", 20, "number of turns (1-50)")
	flag.IntVar(&opts.computers, "computers", 5, "number of computer players (0-10)")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flag.StringVar(&opts.profile, "profile", "", "economy profile YAML (default: built-in)")
	flag.StringVar(&opts.journalDir, "journal", "", "write a zstd turn journal to this directory")
	flag.StringVar(&opts.archiveDB, "archive", "", "archive turns to this SQLite file")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flag.BoolVar(&opts.verbose, "v", false, "print the ranking after every turn")
	flag.Parse()

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	log := logger.New(os.Stderr, config.LoggingConfig{Level: opts.logLevel})
	slog.SetDefault(log)

	catalog, err := economy.Load(opts.profile)
	if err != nil {
		return err
	}

	cfg := world.Config{
		TotalTurns:      opts.turns,
		ComputerPlayers: opts.computers,
		PlayerName:      world.DefaultPlayerName,
		Seed:            opts.seed,
	}
	w, err := world.New(cfg, catalog, log)
	if err != nil {
		return err
	}
	gameID := uuid.NewString()

	var recorder *journal.Recorder
	if opts.journalDir != "" {
		recorder = journal.NewRecorder(opts.journalDir, log)
		defer recorder.Close()
		if err := recorder.GameCreated(ctx, gameID, cfg); err != nil {
			return err
		}
	}

	var repo *archive.Repository
	if opts.archiveDB != "" {
		db, err := database.OpenSQLite(opts.archiveDB)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = archive.NewRepository(db, log)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		if err := repo.SaveGame(ctx, gameID, cfg); err != nil {
			return err
		}
	}

	for !w.IsGameOver() {
		report, err := w.ResolveTurn()
		if err != nil {
			return err
		}
		if recorder != nil {
			if err := recorder.TurnResolved(ctx, gameID, report); err != nil {
				return err
			}
		}
		if repo != nil {
			if _, err := repo.SaveTurn(ctx, gameID, report); err != nil {
				return err
			}
		}
		if opts.verbose {
			fmt.Fprintf(out, "Turn %d (%s)\n", report.Turn, report.Climate.Event)
			printRanking(out, report.Ranking)
		}
	}

	last := w.LastReport()
	fmt.Fprintf(out, "Game %s: %d turns, %d computer players, seed %d\n", gameID, cfg.TotalTurns, cfg.ComputerPlayers, cfg.Seed)
	fmt.Fprintf(out, "Final digest %s\n", last.Digest)
	printRanking(out, last.Ranking)
	return nil
}

func printRanking(out io.Writer, ranking []world.RankEntry) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Rank\tCompany\tCash\t")
	for _, r := range ranking {
		name := r.Name
		if r.IsPlayer {
			name += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", r.Rank, name, humanize.Comma(r.Cash))
	}
	tw.Flush()
}
