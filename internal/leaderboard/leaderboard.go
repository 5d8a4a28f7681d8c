// Package leaderboard publishes the latest standings of the running game and
// keeps a hall of fame of final cash positions across finished games.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketsim-server/internal/world"
)

var ErrNoStandings = errors.New("no standings recorded for game")

// Standings is the ranking after the most recently resolved turn.
type Standings struct {
	GameID     string            `json:"game_id"`
	Turn       int               `json:"turn"`
	TotalTurns int               `json:"total_turns"`
	Final      bool              `json:"final"`
	Ranking    []world.RankEntry `json:"ranking"`
}

// Entry is one company's final result in the hall of fame.
type Entry struct {
	GameID  string `json:"game_id"`
	Company string `json:"company"`
	Cash    int64  `json:"cash"`
}

func (e Entry) member() string {
	return e.GameID + "/" + e.Company
}

func parseMember(member string) (gameID, company string, err error) {
	gameID, company, ok := strings.Cut(member, "/")
	if !ok || gameID == "" || company == "" {
		return "", "", fmt.Errorf("malformed hall of fame member %q", member)
	}
	return gameID, company, nil
}

// Store is implemented by the Redis and in-memory boards.
type Store interface {
	Name() string
	GameCreated(ctx context.Context, gameID string, cfg world.Config) error
	TurnResolved(ctx context.Context, gameID string, report *world.TurnReport) error
	Standings(ctx context.Context, gameID string) (*Standings, error)
	HallOfFame(ctx context.Context, limit int) ([]Entry, error)
}

func standingsFrom(gameID string, totalTurns int, report *world.TurnReport) *Standings {
	return &Standings{
		GameID:     gameID,
		Turn:       report.Turn,
		TotalTurns: totalTurns,
		Final:      totalTurns > 0 && report.Turn >= totalTurns,
		Ranking:    append([]world.RankEntry(nil), report.Ranking...),
	}
}
