package warnings

import (
	"context"
	"errors"
	"testing"

	"oblivion/internal/storage"

	"go.uber.org/zap"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(store, zap.NewNop())
}

func TestAddReturnsTotal(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for i := 1; i <= 3; i++ {
		total, err := s.Add(ctx, "g1", "u1", "m1", "rude")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if total != i {
			t.Fatalf("expected total %d, got %d", i, total)
		}
	}
	if count, _ := s.Count(ctx, "g1", "u2"); count != 0 {
		t.Fatalf("other users unaffected, got %d", count)
	}
}

func TestRemoveNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, reason := range []string{"first", "second", "third"} {
		if _, err := s.Add(ctx, "g1", "u1", "m1", reason); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	removed, err := s.Remove(ctx, "g1", "u1", 2)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	left, err := s.List(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 1 || left[0].Reason != "first" {
		t.Fatalf("unexpected remaining warnings %+v", left)
	}

	removed, err = s.Remove(ctx, "g1", "u1", 5)
	if err != nil || removed != 1 {
		t.Fatalf("expected to remove the last warning, got %d %v", removed, err)
	}
}

func TestRemoveZeroClearsAll(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for i := 0; i < 4; i++ {
		if _, err := s.Add(ctx, "g1", "u1", "m1", "spam"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	removed, err := s.Remove(ctx, "g1", "u1", 0)
	if err != nil || removed != 4 {
		t.Fatalf("expected 4 cleared, got %d %v", removed, err)
	}
	if err := s.DeleteOne(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
