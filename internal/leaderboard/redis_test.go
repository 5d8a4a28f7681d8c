package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "marketsim-server/internal/shared/redis"
	"marketsim-server/internal/world"
)

// newLiveRedisStore connects to TEST_REDIS_URL under a prefix private to the test.
func newLiveRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := &redisclient.Client{
		Client: redis.NewClient(opts),
		Prefix: fmt.Sprintf("marketsim_test_%d", time.Now().UnixNano()),
	}

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, client.Prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return NewRedisStore(client, slog.New(slog.DiscardHandler))
}

func TestRedisStoreStandingsAndHallOfFame(t *testing.T) {
	store := newLiveRedisStore(t)
	ctx := context.Background()

	if _, err := store.Standings(ctx, "g1"); !errors.Is(err, ErrNoStandings) {
		t.Fatalf("expected no standings, got %v", err)
	}

	if err := store.GameCreated(ctx, "g1", world.Config{TotalTurns: 2}); err != nil {
		t.Fatalf("created: %v", err)
	}
	if err := store.TurnResolved(ctx, "g1", report(1,
		world.RankEntry{Rank: 1, Name: "AI_Alpha", Cash: 90000},
		world.RankEntry{Rank: 2, Name: "Player", IsPlayer: true, Cash: 80000},
	)); err != nil {
		t.Fatalf("turn 1: %v", err)
	}

	s, err := store.Standings(ctx, "g1")
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if s.Turn != 1 || s.TotalTurns != 2 || s.Final || len(s.Ranking) != 2 || s.Ranking[0].Name != "AI_Alpha" {
		t.Fatalf("standings after turn 1: %+v", s)
	}
	if fame, err := store.HallOfFame(ctx, 10); err != nil || len(fame) != 0 {
		t.Fatalf("hall of fame before the final turn: %v %v", fame, err)
	}

	// Tied cash keeps the engine's ranking order in the stored standings.
	if err := store.TurnResolved(ctx, "g1", report(2,
		world.RankEntry{Rank: 1, Name: "Player", IsPlayer: true, Cash: 120000},
		world.RankEntry{Rank: 2, Name: "AI_Alpha", Cash: 120000},
	)); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	s, err = store.Standings(ctx, "g1")
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if !s.Final || s.Ranking[0].Name != "Player" || s.Ranking[1].Name != "AI_Alpha" {
		t.Fatalf("final standings: %+v", s)
	}

	fame, err := store.HallOfFame(ctx, 10)
	if err != nil {
		t.Fatalf("hall of fame: %v", err)
	}
	if len(fame) != 2 {
		t.Fatalf("hall of fame: %+v", fame)
	}
	for _, e := range fame {
		if e.GameID != "g1" || e.Cash != 120000 {
			t.Fatalf("hall of fame entry: %+v", e)
		}
	}

	if top, err := store.HallOfFame(ctx, 1); err != nil || len(top) != 1 {
		t.Fatalf("limited hall of fame: %v %v", top, err)
	}
}
