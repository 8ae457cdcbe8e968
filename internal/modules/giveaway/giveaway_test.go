package giveaway

import (
	"errors"
	"testing"
	"time"

	"oblivion/internal/clock"

	"go.uber.org/zap"
)

func newRegistry(t *testing.T) (*Registry, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Unix(1_700_000_000, 0))
	reg := New(zap.NewNop())
	reg.WithClock(fake)
	reg.WithRand(func(int) int { return 0 })
	t.Cleanup(reg.Close)
	return reg, fake
}

func TestEnterDeduplicates(t *testing.T) {
	reg, fake := newRegistry(t)
	if err := reg.Start(Giveaway{MessageID: "m1", Prize: "Nitro", Winners: 1, EndsAt: fake.Now().Add(time.Hour)}, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if entered, err := reg.Enter("m1", "u1"); err != nil || !entered {
		t.Fatalf("first entry should succeed, got %v %v", entered, err)
	}
	if entered, err := reg.Enter("m1", "u1"); err != nil || entered {
		t.Fatalf("second entry should be reported as already entered")
	}
	if _, err := reg.Enter("missing", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTimerEndsGiveaway(t *testing.T) {
	reg, fake := newRegistry(t)
	var outcomes []Outcome
	err := reg.Start(Giveaway{MessageID: "m1", Prize: "Nitro", Winners: 2, EndsAt: fake.Now().Add(10 * time.Minute)}, func(o Outcome) {
		outcomes = append(outcomes, o)
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, u := range []string{"u1", "u2", "u3"} {
		if _, err := reg.Enter("m1", u); err != nil {
			t.Fatalf("enter: %v", err)
		}
	}

	fake.Advance(9 * time.Minute)
	if len(outcomes) != 0 {
		t.Fatalf("ended too early")
	}
	fake.Advance(time.Minute)
	if len(outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(outcomes))
	}
	got := outcomes[0]
	if got.Entries != 3 || len(got.Winners) != 2 || got.Winners[0] != "u1" || got.Winners[1] != "u2" {
		t.Fatalf("winners should be drawn without replacement: %+v", got)
	}
	if _, err := reg.Enter("m1", "u4"); !errors.Is(err, ErrEnded) {
		t.Fatalf("expected ErrEnded, got %v", err)
	}
	if reg.Active() != 0 {
		t.Fatalf("no giveaways should be active")
	}
}

func TestEndEarlyStopsTimer(t *testing.T) {
	reg, fake := newRegistry(t)
	calls := 0
	if err := reg.Start(Giveaway{MessageID: "m1", Winners: 3, EndsAt: fake.Now().Add(time.Hour)}, func(Outcome) { calls++ }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := reg.Enter("m1", "u1"); err != nil {
		t.Fatalf("enter: %v", err)
	}

	outcome, err := reg.End("m1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(outcome.Winners) != 1 {
		t.Fatalf("winner count is capped by entries: %+v", outcome)
	}
	if fake.Pending() != 1 {
		t.Fatalf("end timer should be replaced by the eviction timer, pending %d", fake.Pending())
	}
	fake.Advance(2 * time.Hour)
	if calls != 1 {
		t.Fatalf("callback should run once, ran %d times", calls)
	}
	if _, err := reg.End("m1"); !errors.Is(err, ErrEnded) {
		t.Fatalf("expected ErrEnded, got %v", err)
	}
}

func TestReroll(t *testing.T) {
	reg, fake := newRegistry(t)
	if err := reg.Start(Giveaway{MessageID: "m1", Winners: 1, EndsAt: fake.Now().Add(time.Hour)}, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := reg.Reroll("m1"); !errors.Is(err, ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
	_, _ = reg.Enter("m1", "u1")
	_, _ = reg.Enter("m1", "u2")
	reg.WithRand(func(n int) int { return n - 1 })
	if _, err := reg.End("m1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	winner, err := reg.Reroll("m1")
	if err != nil || winner != "u2" {
		t.Fatalf("unexpected reroll %q %v", winner, err)
	}
}

func TestEndedGiveawayEvictedAfterRerollWindow(t *testing.T) {
	reg, fake := newRegistry(t)
	reg.WithRerollWindow(time.Hour)
	if err := reg.Start(Giveaway{MessageID: "m1", Winners: 1, EndsAt: fake.Now().Add(time.Minute)}, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _ = reg.Enter("m1", "u1")
	fake.Advance(time.Minute)

	fake.Advance(59 * time.Minute)
	if winner, err := reg.Reroll("m1"); err != nil || winner != "u1" {
		t.Fatalf("reroll inside the window should work, got %q %v", winner, err)
	}
	fake.Advance(time.Minute)
	if _, err := reg.Reroll("m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after eviction, got %v", err)
	}
	if _, _, ok := reg.Get("m1"); ok {
		t.Fatalf("evicted giveaway should be gone")
	}
	if fake.Pending() != 0 {
		t.Fatalf("no timers should remain, got %d", fake.Pending())
	}

	if err := reg.Start(Giveaway{MessageID: "m1", Winners: 1, EndsAt: fake.Now().Add(time.Hour)}, nil); err != nil {
		t.Fatalf("message id should be reusable after eviction: %v", err)
	}
}

func TestNoWinnerEmbed(t *testing.T) {
	embed := EndEmbed(Outcome{Giveaway: Giveaway{Prize: "Nitro"}}, time.Unix(0, 0))
	if embed.Description != "**Prize:** Nitro\n\nNo valid entries! Nobody won." {
		t.Fatalf("unexpected description %q", embed.Description)
	}
	if Congratulations(Outcome{}) != "" {
		t.Fatalf("no announcement without winners")
	}
	msg := Congratulations(Outcome{Giveaway: Giveaway{Prize: "Nitro"}, Winners: []string{"a", "b"}})
	if msg != "🎉 Congratulations <@a>, <@b>! You won **Nitro**!" {
		t.Fatalf("unexpected announcement %q", msg)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	reg, fake := newRegistry(t)
	_ = reg.Start(Giveaway{MessageID: "m1", Winners: 1, EndsAt: fake.Now().Add(time.Hour)}, nil)
	_ = reg.Start(Giveaway{MessageID: "m2", Winners: 1, EndsAt: fake.Now().Add(time.Hour)}, nil)
	reg.Close()
	if fake.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", fake.Pending())
	}
	if _, _, ok := reg.Get("m1"); ok {
		t.Fatalf("closed registry should forget giveaways")
	}
}
