package memory

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryStoreSaveAndRecent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 7; i++ {
		rec := TurnRecord{
			SessionID: "s1",
			Role:      RoleUser,
			Content:   fmt.Sprintf("turn %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.SaveTurn(ctx, rec); err != nil {
			t.Fatalf("SaveTurn() error = %v", err)
		}
	}

	got, err := store.RecentTurns(ctx, "s1", 6)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("len(RecentTurns()) = %d, want 6", len(got))
	}
	if got[0].Content != "turn 1" || got[5].Content != "turn 6" {
		t.Fatalf("RecentTurns() order wrong: first=%q last=%q", got[0].Content, got[5].Content)
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatalf("RecentTurns() not chronological at index %d", i)
		}
	}
}

func TestInMemoryStoreFillsIDAndTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.SaveTurn(ctx, TurnRecord{SessionID: "s1", Role: RoleAssistant, Content: "hi"}); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	got, err := store.RecentTurns(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(RecentTurns()) = %d, want 1", len(got))
	}
	if got[0].ID == "" {
		t.Fatalf("SaveTurn() left ID empty")
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatalf("SaveTurn() left CreatedAt zero")
	}
}

func TestInMemoryStoreSessionsIsolated(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.SaveTurn(ctx, TurnRecord{SessionID: "a", Role: RoleUser, Content: "for a"})
	_ = store.SaveTurn(ctx, TurnRecord{SessionID: "b", Role: RoleUser, Content: "for b"})

	got, err := store.RecentTurns(ctx, "a", 10)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(got) != 1 || got[0].Content != "for a" {
		t.Fatalf("RecentTurns(a) = %+v, want the single turn for a", got)
	}
}

func TestInMemoryStoreReset(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.SaveTurn(ctx, TurnRecord{SessionID: "s1", Role: RoleUser, Content: "hello"})
	if err := store.Reset(ctx, "s1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	got, err := store.RecentTurns(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(RecentTurns()) after Reset = %d, want 0", len(got))
	}
}

func TestInMemoryStoreLimitZero(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.SaveTurn(ctx, TurnRecord{SessionID: "s1", Role: RoleUser, Content: "hello"})

	got, err := store.RecentTurns(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if got != nil {
		t.Fatalf("RecentTurns(limit=0) = %v, want nil", got)
	}
}
