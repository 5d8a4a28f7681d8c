package leaderboard

import (
	"context"
	"sort"
	"sync"

	"marketsim-server/internal/world"
)

// MemoryStore keeps the board in process when Redis is disabled.
type MemoryStore struct {
	mu         sync.RWMutex
	totalTurns map[string]int
	standings  map[string]*Standings
	fame       []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		totalTurns: make(map[string]int),
		standings:  make(map[string]*Standings),
	}
}

func (m *MemoryStore) Name() string { return "leaderboard_memory" }

func (m *MemoryStore) GameCreated(ctx context.Context, gameID string, cfg world.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalTurns[gameID] = cfg.TotalTurns
	delete(m.standings, gameID)
	return nil
}

func (m *MemoryStore) TurnResolved(ctx context.Context, gameID string, report *world.TurnReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := standingsFrom(gameID, m.totalTurns[gameID], report)
	m.standings[gameID] = s
	if s.Final {
		for _, r := range s.Ranking {
			m.fame = append(m.fame, Entry{GameID: gameID, Company: r.Name, Cash: r.Cash})
		}
		sort.SliceStable(m.fame, func(i, j int) bool { return m.fame[i].Cash > m.fame[j].Cash })
	}
	return nil
}

func (m *MemoryStore) Standings(ctx context.Context, gameID string) (*Standings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.standings[gameID]
	if !ok {
		return nil, ErrNoStandings
	}
	out := *s
	out.Ranking = append([]world.RankEntry(nil), s.Ranking...)
	return &out, nil
}

func (m *MemoryStore) HallOfFame(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.fame)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]Entry(nil), m.fame[:n]...), nil
}
