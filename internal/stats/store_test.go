package stats

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := NewStore(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("stats.NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRecordMatchResult(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordMatchResult(ctx, "alice", "bob"); err != nil {
		t.Fatalf("RecordMatchResult: %v", err)
	}
	if err := s.RecordMatchResult(ctx, "alice", "bob"); err != nil {
		t.Fatalf("RecordMatchResult: %v", err)
	}
	if got := mr.HGet("chess:stats:alice", "wins"); got != "2" {
		t.Fatalf("alice wins = %q, want 2", got)
	}
	if got := mr.HGet("chess:stats:bob", "losses"); got != "2" {
		t.Fatalf("bob losses = %q, want 2", got)
	}
}

func TestRecordMatchDraw(t *testing.T) {
	s, mr := newTestStore(t)
	if err := s.RecordMatchDraw(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("RecordMatchDraw: %v", err)
	}
	if mr.HGet("chess:stats:alice", "draws") != "1" || mr.HGet("chess:stats:bob", "draws") != "1" {
		t.Fatalf("both players should record a draw")
	}
}

func TestQuizScoreKeepsBest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordQuizScore(ctx, "u1", "Hana", 300); err != nil {
		t.Fatalf("RecordQuizScore: %v", err)
	}
	if err := s.RecordQuizScore(ctx, "u1", "Hana", 150); err != nil {
		t.Fatalf("RecordQuizScore: %v", err)
	}
	if err := s.RecordQuizScore(ctx, "u2", "Momo", 200); err != nil {
		t.Fatalf("RecordQuizScore: %v", err)
	}

	top, err := s.TopQuizScores(ctx, 10)
	if err != nil {
		t.Fatalf("TopQuizScores: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].UserID != "u1" || top[0].Score != 300 {
		t.Fatalf("lower score must not overwrite the best: %+v", top[0])
	}
	if top[1].Username != "Momo" {
		t.Fatalf("display name missing: %+v", top[1])
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	ctx := context.Background()
	if err := s.RecordMatchResult(ctx, "a", "b"); err != nil {
		t.Fatalf("nil store should no-op: %v", err)
	}
	if err := s.RecordQuizScore(ctx, "a", "n", 1); err != nil {
		t.Fatalf("nil store should no-op: %v", err)
	}
	if _, err := s.TopQuizScores(ctx, 5); err != nil {
		t.Fatalf("nil store should no-op: %v", err)
	}
}
