package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "marketsim-server/internal/shared/redis"
	"marketsim-server/internal/world"
)

const standingsTTL = 7 * 24 * time.Hour

// RedisStore keeps standings as JSON strings and the hall of fame as a sorted set.
type RedisStore struct {
	client *redisclient.Client
	logger *slog.Logger
}

func NewRedisStore(client *redisclient.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Name() string { return "leaderboard_redis" }

func (s *RedisStore) gameKey(gameID string) string {
	return s.client.Key("game", gameID, "total_turns")
}

func (s *RedisStore) standingsKey(gameID string) string {
	return s.client.Key("game", gameID, "standings")
}

func (s *RedisStore) fameKey() string {
	return s.client.Key("hall_of_fame")
}

func (s *RedisStore) GameCreated(ctx context.Context, gameID string, cfg world.Config) error {
	logger := s.logger.With("component", "leaderboard", "operation", "game_created", "game_id", gameID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.gameKey(gameID), cfg.TotalTurns, standingsTTL)
	pipe.Del(ctx, s.standingsKey(gameID))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Failed to register game", "error", err)
		return fmt.Errorf("failed to register game: %w", err)
	}
	return nil
}

func (s *RedisStore) TurnResolved(ctx context.Context, gameID string, report *world.TurnReport) error {
	logger := s.logger.With("component", "leaderboard", "operation", "turn_resolved", "game_id", gameID, "turn", report.Turn)

	totalTurns, err := s.client.Get(ctx, s.gameKey(gameID)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error("Failed to read game length", "error", err)
		return fmt.Errorf("failed to read game length: %w", err)
	}

	standings := standingsFrom(gameID, totalTurns, report)
	payload, err := json.Marshal(standings)
	if err != nil {
		return fmt.Errorf("failed to encode standings: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.standingsKey(gameID), payload, standingsTTL)
	if standings.Final {
		members := make([]redis.Z, len(standings.Ranking))
		for i, r := range standings.Ranking {
			members[i] = redis.Z{
				Score:  float64(r.Cash),
				Member: Entry{GameID: gameID, Company: r.Name}.member(),
			}
		}
		pipe.ZAdd(ctx, s.fameKey(), members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Failed to publish standings", "error", err)
		return fmt.Errorf("failed to publish standings: %w", err)
	}

	logger.Debug("Standings published", "final", standings.Final)
	return nil
}

func (s *RedisStore) Standings(ctx context.Context, gameID string) (*Standings, error) {
	raw, err := s.client.Get(ctx, s.standingsKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoStandings
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read standings: %w", err)
	}

	var standings Standings
	if err := json.Unmarshal(raw, &standings); err != nil {
		return nil, fmt.Errorf("failed to decode standings: %w", err)
	}
	return &standings, nil
}

func (s *RedisStore) HallOfFame(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	members, err := s.client.ZRevRangeWithScores(ctx, s.fameKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hall of fame: %w", err)
	}

	entries := make([]Entry, 0, len(members))
	for _, z := range members {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		gameID, company, err := parseMember(member)
		if err != nil {
			s.logger.Warn("Skipping hall of fame member", "component", "leaderboard", "member", member, "error", err)
			continue
		}
		entries = append(entries, Entry{GameID: gameID, Company: company, Cash: int64(z.Score)})
	}
	return entries, nil
}
