package game

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"marketsim-server/internal/auth"
	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/market"
	"marketsim-server/internal/shared/config"
	"marketsim-server/internal/shared/errors"
	"marketsim-server/internal/world"
)

// Observer receives game lifecycle events after the service lock is released.
type Observer interface {
	Name() string
	GameCreated(ctx context.Context, gameID string, cfg world.Config) error
	TurnResolved(ctx context.Context, gameID string, report *world.TurnReport) error
}

type session struct {
	id     string
	config world.Config
	world  *world.World
}

// Service owns the single active game. Creating a game replaces the previous one.
//
// notifyMu is taken while mu is still held and kept through delivery, so observers
// see events in the order the game produced them. Lock order is mu, then notifyMu.
type Service struct {
	mu       sync.RWMutex
	notifyMu sync.Mutex
	current  *session

	catalog   *economy.Catalog
	defaults  config.GameConfig
	auth      *auth.Service
	observers []Observer
	logger    *slog.Logger
}

func NewService(
	catalog *economy.Catalog,
	defaults config.GameConfig,
	authService *auth.Service,
	logger *slog.Logger,
	observers ...Observer,
) *Service {
	return &Service{
		catalog:   catalog,
		defaults:  defaults,
		auth:      authService,
		observers: observers,
		logger:    logger,
	}
}

// CreateGame starts a new game and issues the player's session token.
func (s *Service) CreateGame(ctx context.Context, req CreateGameRequest) (*Session, error) {
	cfg := world.Config{
		TotalTurns:      s.defaults.TotalTurns,
		ComputerPlayers: s.defaults.ComputerPlayers,
		PlayerName:      s.defaults.PlayerName,
		Seed:            s.defaults.Seed,
	}
	if req.PlayerName != "" {
		cfg.PlayerName = req.PlayerName
	}
	if req.TotalTurns != nil {
		cfg.TotalTurns = *req.TotalTurns
	}
	if req.ComputerPlayers != nil {
		cfg.ComputerPlayers = *req.ComputerPlayers
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}

	logger := s.logger.With(
		"component", "game_service",
		"operation", "create_game",
		"player", cfg.PlayerName,
		"total_turns", cfg.TotalTurns,
		"computer_players", cfg.ComputerPlayers,
	)
	logger.Info("Creating new game")

	w, err := world.New(cfg, s.catalog, s.logger)
	if err != nil {
		return nil, translate(err)
	}

	gameID := uuid.NewString()
	token, err := s.auth.IssueSession(gameID, cfg.PlayerName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.current != nil {
		logger.Info("Replacing active game", "previous_game_id", s.current.id)
	}
	s.current = &session{id: gameID, config: cfg, world: w}
	state := s.stateLocked()
	player := w.Player()
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(ctx, "game_created", func(o Observer) error {
		return o.GameCreated(ctx, gameID, cfg)
	})
	s.notifyMu.Unlock()

	logger.Info("Game created successfully", "game_id", gameID, "seed", cfg.Seed)
	return &Session{Token: token, State: state, Player: player}, nil
}

// notify runs fn for every observer; failures are logged, never returned.
// Callers hold notifyMu.
func (s *Service) notify(ctx context.Context, event string, fn func(Observer) error) {
	for _, o := range s.observers {
		if err := fn(o); err != nil {
			s.logger.Error("Observer failed",
				"component", "game_service",
				"observer", o.Name(),
				"event", event,
				"error", err)
		}
	}
}

func (s *Service) active() (*session, error) {
	if s.current == nil {
		return nil, errors.NotFoundf("no active game")
	}
	return s.current, nil
}

func (s *Service) stateLocked() State {
	g := s.current
	return State{
		GameID:          g.id,
		Turn:            g.world.Turn(),
		TotalTurns:      g.world.TotalTurns(),
		GameOver:        g.world.IsGameOver(),
		PlayerName:      g.config.PlayerName,
		ComputerPlayers: g.config.ComputerPlayers,
		Seed:            g.config.Seed,
	}
}

// CurrentGameID returns the active game's id, or "" when none is running.
func (s *Service) CurrentGameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.id
}

func (s *Service) State() (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.active(); err != nil {
		return State{}, err
	}
	return s.stateLocked(), nil
}

// Parameters returns the market of turn, or of the current turn when turn is 0.
func (s *Service) Parameters(turn int) (*market.TurnSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := s.active()
	if err != nil {
		return nil, err
	}
	if turn == 0 {
		return g.world.CurrentParameters(), nil
	}
	snap, err := g.world.Parameters(turn)
	if err != nil {
		return nil, translate(err)
	}
	return snap, nil
}

func (s *Service) Companies() ([]company.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := s.active()
	if err != nil {
		return nil, err
	}
	return g.world.Companies(), nil
}

func (s *Service) Company(name string) (company.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := s.active()
	if err != nil {
		return company.Snapshot{}, err
	}
	snap, err := g.world.Company(name)
	if err != nil {
		return company.Snapshot{}, translate(err)
	}
	return snap, nil
}

func (s *Service) Ranking() ([]world.RankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := s.active()
	if err != nil {
		return nil, err
	}
	return g.world.Ranking(), nil
}

// LastSales returns the sales of the most recently resolved turn; empty before turn 1.
func (s *Service) LastSales() ([]world.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := s.active()
	if err != nil {
		return nil, err
	}
	report := g.world.LastReport()
	if report == nil {
		return []world.Sale{}, nil
	}
	return append([]world.Sale{}, report.Sales...), nil
}

// Report returns a resolved turn's report. Reports are immutable once built.
func (s *Service) Report(turn int) (*world.TurnReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := s.active()
	if err != nil {
		return nil, err
	}
	report, err := g.world.Report(turn)
	if err != nil {
		return nil, translate(err)
	}
	return report, nil
}

// Catalog exposes the economy profile games are created with.
func (s *Service) Catalog() *economy.Catalog {
	return s.catalog
}

func (s *Service) BuyFactory(ctx context.Context, req BuyFactoryRequest) (company.FactorySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.active()
	if err != nil {
		return company.FactorySnapshot{}, err
	}

	f, err := g.world.BuyFactory(req.Country)
	if err != nil {
		return company.FactorySnapshot{}, translate(err)
	}

	s.logger.Info("Factory bought",
		"component", "game_service",
		"operation", "buy_factory",
		"game_id", g.id,
		"country", req.Country,
		"factory_id", f.ID)
	return f, nil
}

// SetLines applies a delta or a target. A partial allocation is a result, not an
// error; only an allocation that changed nothing is reported as a conflict.
func (s *Service) SetLines(ctx context.Context, req LinesRequest) (company.AllocationResult, error) {
	if (req.Delta == nil) == (req.Target == nil) {
		return company.AllocationResult{}, errors.Validation("exactly one of delta or target is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.active()
	if err != nil {
		return company.AllocationResult{}, err
	}

	var result company.AllocationResult
	if req.Delta != nil {
		result, err = g.world.ModifyLines(req.Country, req.Product, *req.Delta)
	} else {
		result, err = g.world.SetLines(req.Country, req.Product, *req.Target)
	}
	if err != nil {
		return company.AllocationResult{}, translate(err)
	}

	s.logger.Debug("Lines allocated",
		"component", "game_service",
		"operation", "set_lines",
		"game_id", g.id,
		"country", result.Country,
		"product", result.Product,
		"before", result.Before,
		"after", result.After,
		"status", result.Status)

	if result.After == result.Before {
		if err := result.Err(); err != nil {
			return result, translate(err)
		}
	}
	return result, nil
}

func (s *Service) SetDecision(ctx context.Context, req DecisionRequest) (company.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.active()
	if err != nil {
		return company.Decision{}, err
	}

	var d company.Decision
	switch req.Field {
	case DecisionFieldCountry:
		var country economy.Country
		if err := json.Unmarshal(req.Value, &country); err != nil {
			return company.Decision{}, errors.WrapValidation("country must be a string", err)
		}
		d, err = g.world.SetSalesCountry(req.Product, country)
	case DecisionFieldPrice:
		var price int
		if err := json.Unmarshal(req.Value, &price); err != nil {
			return company.Decision{}, errors.WrapValidation("price must be an integer", err)
		}
		d, err = g.world.SetSalesPrice(req.Product, price)
	default:
		return company.Decision{}, errors.Validationf("unknown decision field %q", req.Field)
	}
	if err != nil {
		return company.Decision{}, translate(err)
	}
	return d, nil
}

// ResolveTurn plays the current turn and hands the report to the observers.
func (s *Service) ResolveTurn(ctx context.Context) (*world.TurnReport, error) {
	s.mu.Lock()
	g, err := s.active()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	report, err := g.world.ResolveTurn()
	gameID := g.id
	if err != nil {
		s.mu.Unlock()
		return nil, translate(err)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.notify(ctx, "turn_resolved", func(o Observer) error {
		return o.TurnResolved(ctx, gameID, report)
	})
	return report, nil
}

// translate maps domain errors onto the application error taxonomy.
func translate(err error) error {
	switch {
	case stderrors.Is(err, world.ErrGameOver):
		return errors.WrapConflict("game is over", err)
	case stderrors.Is(err, company.ErrInsufficientFunds),
		stderrors.Is(err, company.ErrInsufficientCapacity),
		stderrors.Is(err, company.ErrNoFactories),
		stderrors.Is(err, company.ErrInsufficientStock):
		return errors.WrapConflict("action cannot be applied", err)
	case stderrors.Is(err, company.ErrUnknownCountry),
		stderrors.Is(err, company.ErrUnknownProduct),
		stderrors.Is(err, company.ErrInvalidDecision),
		stderrors.Is(err, company.ErrNegativeLines),
		stderrors.Is(err, world.ErrInvalidConfig):
		return errors.WrapValidation("invalid request", err)
	case stderrors.Is(err, world.ErrTurnOutOfRange),
		stderrors.Is(err, world.ErrCompanyNotFound):
		return errors.WrapNotFound("not found", err)
	}
	return errors.WrapInternal("unexpected game error", err)
}
