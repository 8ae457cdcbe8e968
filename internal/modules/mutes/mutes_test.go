package mutes

import (
	"context"
	"errors"
	"testing"
	"time"

	"oblivion/internal/clock"
	"oblivion/internal/storage"

	"go.uber.org/zap"
)

type fakePresence map[string]bool

func (p fakePresence) IsMember(_ context.Context, guildID, userID string) (bool, error) {
	return p[guildID+":"+userID], nil
}

func newRegistry(t *testing.T, now time.Time) (*Registry, *clock.Fake) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fake := clock.NewFake(now)
	reg := New(store, zap.NewNop())
	reg.WithClock(fake)
	return reg, fake
}

func TestSweepBoundaryInclusive(t *testing.T) {
	ctx := context.Background()
	start := time.UnixMilli(1_700_000_000_000)
	reg, _ := newRegistry(t, start)
	reg.SetPresence(fakePresence{"g1:u1": true})

	expires, err := reg.Upsert(ctx, "g1", "u1", 10*time.Minute, "spam")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := reg.Upsert(ctx, "g1", "u2", time.Hour, "spam"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	removed, err := reg.Sweep(ctx, expires.Add(-time.Millisecond))
	if err != nil || len(removed) != 0 {
		t.Fatalf("nothing should expire yet, got %d %v", len(removed), err)
	}
	removed, err = reg.Sweep(ctx, expires)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(removed) != 1 || removed[0].UserID != "u1" {
		t.Fatalf("expected u1 removed, got %+v", removed)
	}
	if _, err := reg.Get(ctx, "g1", "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected row gone, got %v", err)
	}
	if _, err := reg.Get(ctx, "g1", "u2"); err != nil {
		t.Fatalf("u2 should remain: %v", err)
	}
}

func TestSweepRemovesDepartedMembers(t *testing.T) {
	ctx := context.Background()
	start := time.UnixMilli(1_700_000_000_000)
	reg, fake := newRegistry(t, start)
	reg.SetPresence(fakePresence{})

	if _, err := reg.Upsert(ctx, "g1", "gone", time.Minute, ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	fake.Advance(2 * time.Minute)
	removed, err := reg.Sweep(ctx, fake.Now())
	if err != nil || len(removed) != 1 {
		t.Fatalf("expected departed member row removed, got %d %v", len(removed), err)
	}
}

func TestUpsertOverwritesAndCaps(t *testing.T) {
	ctx := context.Background()
	start := time.UnixMilli(1_700_000_000_000)
	reg, fake := newRegistry(t, start)

	if _, err := reg.Upsert(ctx, "g1", "u1", MaxDuration+time.Second, ""); err == nil {
		t.Fatalf("expected duration cap error")
	}
	if _, err := reg.Upsert(ctx, "g1", "u1", time.Minute, "first"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := reg.Upsert(ctx, "g1", "u1", time.Hour, "second"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	m, active, err := reg.Active(ctx, "g1", "u1")
	if err != nil || !active || m.Reason != "second" {
		t.Fatalf("unexpected mute %+v active=%v err=%v", m, active, err)
	}
	fake.Advance(time.Hour)
	if _, active, _ := reg.Active(ctx, "g1", "u1"); active {
		t.Fatalf("mute should read as expired")
	}
}
