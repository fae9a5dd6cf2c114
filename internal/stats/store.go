// Package stats persists win/loss counters and quiz high scores in
// Redis. Every caller treats writes as best-effort: failures are logged
// at the call site and never surfaced to participants.
package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
}

func NewStore(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for stats store")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// RecordMatchResult increments the winner's win counter and the loser's
// loss counter.
func (s *Store) RecordMatchResult(ctx context.Context, winnerID, loserID string) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, statsKey(winnerID), "wins", 1)
	pipe.HIncrBy(ctx, statsKey(loserID), "losses", 1)
	_, err := pipe.Exec(ctx)
	return err
}

// RecordMatchDraw increments both players' draw counters.
func (s *Store) RecordMatchDraw(ctx context.Context, whiteID, blackID string) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, statsKey(whiteID), "draws", 1)
	pipe.HIncrBy(ctx, statsKey(blackID), "draws", 1)
	_, err := pipe.Exec(ctx)
	return err
}

// RecordQuizScore keeps the player's best score on the global
// leaderboard (only raised, never lowered) and remembers the display
// name used when it was set.
func (s *Store) RecordQuizScore(ctx context.Context, userID, username string, score int) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	pipe := s.rdb.Pipeline()
	pipe.ZAddGT(ctx, leaderboardKey, redis.Z{Score: float64(score), Member: userID})
	pipe.HSet(ctx, namesKey, userID, username)
	_, err := pipe.Exec(ctx)
	return err
}

type LeaderboardEntry struct {
	UserID   string
	Username string
	Score    int
}

// TopQuizScores returns up to n leaderboard entries, best first.
func (s *Store) TopQuizScores(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if s == nil || s.rdb == nil {
		return nil, nil
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		name, _ := s.rdb.HGet(ctx, namesKey, id).Result()
		if name == "" {
			name = id
		}
		out = append(out, LeaderboardEntry{UserID: id, Username: name, Score: int(z.Score)})
	}
	return out, nil
}

const (
	leaderboardKey = "quizspire:leaderboard"
	namesKey       = "quizspire:leaderboard:names"
)

func statsKey(userID string) string { return "chess:stats:" + strings.TrimSpace(userID) }
