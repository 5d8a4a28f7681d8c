/*
Package world runs the turn-based market simulation.

A World owns the roster of companies and the turn counter. Each call to
ResolveTurn runs the computer players, production, maintenance and sales
clearing, then records a TurnReport and advances the turn. A World is not
safe for concurrent use.
*/
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"marketsim-server/internal/ai"
	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/market"
)

const (
	MinTurns = 1
	MaxTurns = 50

	DefaultPlayerName = "Player"
)

var (
	ErrGameOver        = errors.New("game is over")
	ErrTurnOutOfRange  = errors.New("turn out of range")
	ErrInvalidConfig   = errors.New("invalid game configuration")
	ErrCompanyNotFound = errors.New("company not found")
)

type Config struct {
	TotalTurns      int
	ComputerPlayers int
	PlayerName      string
	Seed            uint64
}

func (c Config) validate() error {
	if c.TotalTurns < MinTurns || c.TotalTurns > MaxTurns {
		return fmt.Errorf("total turns must be within [%d,%d], got %d: %w", MinTurns, MaxTurns, c.TotalTurns, ErrInvalidConfig)
	}
	if c.ComputerPlayers < 0 || c.ComputerPlayers > ai.MaxComputerPlayers {
		return fmt.Errorf("computer players must be within [0,%d], got %d: %w", ai.MaxComputerPlayers, c.ComputerPlayers, ErrInvalidConfig)
	}
	return nil
}

type World struct {
	catalog *economy.Catalog
	params  *market.Parameters
	logger  *slog.Logger

	turn       int
	totalTurns int

	companies []*company.Company // roster order: the player, then computer players
	player    *company.Company
	policies  map[string]*ai.Policy

	history []*TurnReport
}

// New creates a world at turn 1. The seed drives both market generation and the
// computer players, on separate streams. Market snapshots are derived per turn, so
// looking at a future turn's parameters does not change the game.
func New(cfg Config, catalog *economy.Catalog, logger *slog.Logger) (*World, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.PlayerName == "" {
		cfg.PlayerName = DefaultPlayerName
	}

	policyRNG := rand.New(rand.NewPCG(cfg.Seed, 2))

	generator := market.NewGenerator(catalog, cfg.TotalTurns, cfg.Seed)
	w := &World{
		catalog:    catalog,
		params:     market.NewParameters(generator, logger),
		logger:     logger,
		turn:       1,
		totalTurns: cfg.TotalTurns,
		policies:   make(map[string]*ai.Policy),
	}

	products := catalog.ProductKeys()

	w.player = company.New(cfg.PlayerName, true, catalog.StartingCash)
	w.player.EnsureProducts(products)
	w.companies = append(w.companies, w.player)

	for _, policy := range ai.NewRoster(cfg.ComputerPlayers, catalog, policyRNG, logger) {
		if policy.Company == cfg.PlayerName {
			return nil, fmt.Errorf("player name %q is reserved for a computer player: %w", cfg.PlayerName, ErrInvalidConfig)
		}
		c := company.New(policy.Company, false, catalog.StartingCash)
		c.EnsureProducts(products)
		w.companies = append(w.companies, c)
		w.policies[c.Name] = policy
	}

	logger.Info("World created",
		"component", "world",
		"total_turns", cfg.TotalTurns,
		"computer_players", len(w.policies),
		"player", cfg.PlayerName,
		"seed", cfg.Seed)

	return w, nil
}

// ResolveTurn plays the current turn and advances the counter. It refuses to run
// once the game is over.
func (w *World) ResolveTurn() (*TurnReport, error) {
	if w.IsGameOver() {
		return nil, fmt.Errorf("resolve turn %d of %d: %w", w.turn, w.totalTurns, ErrGameOver)
	}

	logger := w.logger.With("component", "world", "operation", "resolve_turn", "turn", w.turn)
	snap := w.params.Turn(w.turn)

	actions := w.applyComputerDecisions(snap)
	logger.Debug("Computer decisions applied", "companies", len(actions))

	produced := w.produce()
	logger.Debug("Production complete")

	w.chargeMaintenance()
	logger.Debug("Maintenance charged")

	sales := w.clearSales(snap)
	logger.Debug("Sales cleared", "sales", len(sales))

	report := w.buildReport(snap, actions, produced, sales)
	for _, c := range w.companies {
		c.ResetTurnAccumulators()
	}
	w.history = append(w.history, report)
	w.turn++

	logger.Info("Turn resolved",
		"event", snap.Climate.Event,
		"economic_index", snap.Climate.Multiplier,
		"sales", len(sales),
		"leader", report.Ranking[0].Name,
		"game_over", w.IsGameOver())

	return report, nil
}

func (w *World) applyComputerDecisions(snap *market.TurnSnapshot) []ai.Actions {
	var actions []ai.Actions
	for _, c := range w.companies {
		if c.IsPlayer {
			continue
		}
		policy, ok := w.policies[c.Name]
		if !ok {
			continue
		}
		actions = append(actions, policy.Act(c, w.turn, snap, w.catalog))
	}
	return actions
}

// produce adds every factory's output to its owner's stock.
func (w *World) produce() map[string]map[economy.Product]int64 {
	produced := make(map[string]map[economy.Product]int64, len(w.companies))
	for _, c := range w.companies {
		out := make(map[economy.Product]int64)
		for _, f := range c.AllFactories() {
			for _, product := range f.Products() {
				units := f.Production(product)
				c.AddStock(product, units)
				out[product] += units
			}
		}
		produced[c.Name] = out
	}
	return produced
}

func (w *World) chargeMaintenance() {
	for _, c := range w.companies {
		c.ChargeMaintenance()
	}
}

// clearSales runs one independent market per (product, country), products and
// countries in profile order.
func (w *World) clearSales(snap *market.TurnSnapshot) []Sale {
	var sales []Sale
	for _, product := range w.catalog.ProductKeys() {
		offers := collectOffers(product, w.companies, snap, w.catalog)
		for _, country := range w.catalog.CountryNames() {
			group := offers[country]
			if len(group) == 0 {
				continue
			}
			demand := int64(snap.BaseDemand(country, product))
			sales = append(sales, clearMarket(w.turn, country, product, demand, group)...)
		}
	}
	return sales
}

func (w *World) Turn() int       { return w.turn }
func (w *World) TotalTurns() int { return w.totalTurns }

// IsGameOver reports whether every turn has been played.
func (w *World) IsGameOver() bool {
	return w.turn > w.totalTurns
}

func (w *World) Catalog() *economy.Catalog {
	return w.catalog
}

// CurrentParameters returns the market of the turn about to be played, or of the
// last turn once the game is over.
func (w *World) CurrentParameters() *market.TurnSnapshot {
	return w.params.Turn(min(w.turn, w.totalTurns))
}

func (w *World) Parameters(turn int) (*market.TurnSnapshot, error) {
	if turn < 1 || turn > w.totalTurns {
		return nil, fmt.Errorf("turn %d not in [1,%d]: %w", turn, w.totalTurns, ErrTurnOutOfRange)
	}
	return w.params.Turn(turn), nil
}

// Companies returns snapshots of every company in roster order.
func (w *World) Companies() []company.Snapshot {
	out := make([]company.Snapshot, len(w.companies))
	for i, c := range w.companies {
		out[i] = c.Snapshot()
	}
	return out
}

func (w *World) Company(name string) (company.Snapshot, error) {
	for _, c := range w.companies {
		if c.Name == name {
			return c.Snapshot(), nil
		}
	}
	return company.Snapshot{}, fmt.Errorf("company %q: %w", name, ErrCompanyNotFound)
}

func (w *World) Player() company.Snapshot {
	return w.player.Snapshot()
}

// LastReport returns the report of the most recently resolved turn, or nil before turn 1 is played.
func (w *World) LastReport() *TurnReport {
	if len(w.history) == 0 {
		return nil
	}
	return w.history[len(w.history)-1]
}

func (w *World) Report(turn int) (*TurnReport, error) {
	if turn < 1 || turn > len(w.history) {
		return nil, fmt.Errorf("no report for turn %d: %w", turn, ErrTurnOutOfRange)
	}
	return w.history[turn-1], nil
}

// History returns every resolved turn's report, oldest first.
func (w *World) History() []*TurnReport {
	return append([]*TurnReport(nil), w.history...)
}
