package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrateTwice(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.GetGuildSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if settings.Prefix != "!" || !settings.LevelUpMessages || settings.AntiSpam {
		t.Fatalf("unexpected defaults: %+v", settings)
	}

	settings.ModLogChannel = "c1"
	settings.AntiInvite = true
	settings.AntiInviteAction = ActionBoth
	settings.BannedWords = []string{"Foo", "bar", "foo", " "}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.ModLogChannel = "c2"
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err := store.GetGuildSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.ModLogChannel != "c2" {
		t.Fatalf("expected channel c2, got %q", got.ModLogChannel)
	}
	if !got.AntiInvite || got.AntiInviteAction != ActionBoth {
		t.Fatalf("expected anti invite with both, got %v %q", got.AntiInvite, got.AntiInviteAction)
	}
	if len(got.BannedWords) != 2 || got.BannedWords[0] != "foo" || got.BannedWords[1] != "bar" {
		t.Fatalf("unexpected banned words %v", got.BannedWords)
	}
}

func TestSetAutomodFeature(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetAutomodFeature(ctx, "g1", FeatureAntiLink, true, ActionWarn); err != nil {
		t.Fatalf("set anti link: %v", err)
	}
	if _, err := store.AddBannedWord(ctx, "g1", "Spoiler"); err != nil {
		t.Fatalf("add banned word: %v", err)
	}
	got, err := store.GetGuildSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if on, mode := got.Feature(FeatureAntiLink); !on || mode != ActionWarn {
		t.Fatalf("expected anti link warn, got %v %q", on, mode)
	}
	if on, _ := got.Feature(FeatureBannedWords); !on {
		t.Fatalf("expected banned words active")
	}

	if err := store.SetAutomodFeature(ctx, "g1", FeatureBannedWords, false, ActionDelete); err != nil {
		t.Fatalf("disable banned words: %v", err)
	}
	got, _ = store.GetGuildSettings(ctx, "g1")
	if len(got.BannedWords) != 0 {
		t.Fatalf("expected banned words cleared, got %v", got.BannedWords)
	}
	if !got.AntiLink {
		t.Fatalf("anti link should be untouched")
	}

	if err := store.SetAutomodFeature(ctx, "g1", Feature(99), true, ActionWarn); err == nil {
		t.Fatalf("expected error for unknown feature")
	}
}

func TestBannedWordsDeduplicated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if added, err := store.AddBannedWord(ctx, "g1", "word"); err != nil || !added {
		t.Fatalf("first add: %v %v", added, err)
	}
	if added, err := store.AddBannedWord(ctx, "g1", "WORD"); err != nil || added {
		t.Fatalf("duplicate add: %v %v", added, err)
	}
	if removed, err := store.RemoveBannedWord(ctx, "g1", "Word"); err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if removed, err := store.RemoveBannedWord(ctx, "g1", "word"); err != nil || removed {
		t.Fatalf("second remove: %v %v", removed, err)
	}
}

func TestCaseNumbersAreSequential(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		c, err := store.CreateModCase(ctx, ModCase{GuildID: "g1", UserID: "u1", ModeratorID: "m1", Action: "Warn"})
		if err != nil {
			t.Fatalf("create case %d: %v", i, err)
		}
		if c.CaseNumber != int64(i) {
			t.Fatalf("expected case %d, got %d", i, c.CaseNumber)
		}
	}
	other, err := store.CreateModCase(ctx, ModCase{GuildID: "g2", UserID: "u1", ModeratorID: "m1", Action: "Ban"})
	if err != nil {
		t.Fatalf("create other guild case: %v", err)
	}
	if other.CaseNumber != 1 {
		t.Fatalf("expected guild g2 to start at 1, got %d", other.CaseNumber)
	}
}

func TestDeletedCaseNumberIsNotReused(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.CreateModCase(ctx, ModCase{GuildID: "g1", UserID: "u1", ModeratorID: "m1", Action: "Kick"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := store.DeleteModCase(ctx, "g1", 2); err != nil {
		t.Fatalf("delete middle: %v", err)
	}
	next, err := store.CreateModCase(ctx, ModCase{GuildID: "g1", UserID: "u1", ModeratorID: "m1", Action: "Kick"})
	if err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	if next.CaseNumber != 4 {
		t.Fatalf("expected 4, got %d", next.CaseNumber)
	}

	if err := store.DeleteModCase(ctx, "g1", 4); err != nil {
		t.Fatalf("delete latest: %v", err)
	}
	next, err = store.CreateModCase(ctx, ModCase{GuildID: "g1", UserID: "u1", ModeratorID: "m1", Action: "Kick"})
	if err != nil {
		t.Fatalf("create after deleting latest: %v", err)
	}
	if next.CaseNumber != 5 {
		t.Fatalf("expected 5 after deleting the latest case, got %d", next.CaseNumber)
	}

	if _, err := store.GetModCase(ctx, "g1", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for deleted case, got %v", err)
	}
	if err := store.DeleteModCase(ctx, "g1", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}
}

func TestListUserModCasesNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"u1", "u2", "u1"} {
		if _, err := store.CreateModCase(ctx, ModCase{GuildID: "g1", UserID: user, ModeratorID: "m1", Action: "Warn"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	cases, err := store.ListUserModCases(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cases) != 2 || cases[0].CaseNumber != 3 || cases[1].CaseNumber != 1 {
		t.Fatalf("unexpected cases %+v", cases)
	}
}

func TestWarnings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	for i := 0; i < 3; i++ {
		w := Warning{GuildID: "g1", UserID: "u1", ModeratorID: "m1", Reason: "r", CreatedAt: base.Add(time.Duration(i) * time.Minute).UnixMilli()}
		if _, err := store.AddWarning(ctx, w); err != nil {
			t.Fatalf("add warning: %v", err)
		}
	}
	list, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].CreatedAt < list[2].CreatedAt {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if err := store.DeleteWarning(ctx, list[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteWarning(ctx, list[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	count, _ := store.CountWarnings(ctx, "g1", "u1")
	if count != 2 {
		t.Fatalf("expected 2 warnings, got %d", count)
	}
	cleared, err := store.ClearWarnings(ctx, "g1", "u1")
	if err != nil || cleared != 2 {
		t.Fatalf("clear: %d %v", cleared, err)
	}
}

func TestExpiredMutesBoundaryInclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	exact := now
	later := now.Add(time.Millisecond)
	if err := store.UpsertMute(ctx, "g1", "exact", &exact, "r"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertMute(ctx, "g1", "later", &later, "r"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertMute(ctx, "g1", "forever", nil, "r"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	expired, err := store.ListExpiredMutes(ctx, now)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].UserID != "exact" {
		t.Fatalf("expected only the exact row, got %+v", expired)
	}

	forever, err := store.GetMute(ctx, "g1", "forever")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := forever.Expires(); ok {
		t.Fatalf("expected indefinite mute")
	}
}

func TestAddXPWeeklyReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	week := int64(604_800_000)

	row, err := store.AddXP(ctx, "g1", "u1", 20, week)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	row, err = store.AddXP(ctx, "g1", "u1", 15, week)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if row.XP != 35 || row.WeeklyXP != 35 || row.Messages != 2 {
		t.Fatalf("unexpected row %+v", row)
	}

	row, err = store.AddXP(ctx, "g1", "u1", 10, 2*week)
	if err != nil {
		t.Fatalf("add next week: %v", err)
	}
	if row.XP != 45 || row.WeeklyXP != 10 || row.WeekStart != 2*week {
		t.Fatalf("expected weekly reset, got %+v", row)
	}

	row, err = store.AddXP(ctx, "g1", "u1", -45, 2*week)
	if err != nil {
		t.Fatalf("add negative: %v", err)
	}
	if row.XP != 0 {
		t.Fatalf("expected 0 xp, got %d", row.XP)
	}
}

func TestAchievementUnlockNoDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if added, err := store.AddUnlockedAchievement(ctx, "g1", "u1", "msg_100"); err != nil || !added {
		t.Fatalf("first unlock: %v %v", added, err)
	}
	if added, err := store.AddUnlockedAchievement(ctx, "g1", "u1", "msg_100"); err != nil || added {
		t.Fatalf("duplicate unlock: %v %v", added, err)
	}
	if _, err := store.AddUnlockedAchievement(ctx, "g1", "u1", "vc_30"); err != nil {
		t.Fatalf("second key: %v", err)
	}
	row, err := store.GetUserAchievements(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.Achievements != "msg_100,vc_30" {
		t.Fatalf("unexpected achievements %q", row.Achievements)
	}
}

func TestIncrementCounter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.IncrementCounter(ctx, "g1", "u1", CounterReactionsGiven, 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	row, err := store.IncrementCounter(ctx, "g1", "u1", CounterVoiceMinutes, 42)
	if err != nil {
		t.Fatalf("increment voice: %v", err)
	}
	if row.ReactionsGiven != 3 || row.VoiceMinutes != 42 || row.Messages != 0 {
		t.Fatalf("unexpected row %+v", row)
	}

	joined := int64(1000)
	if err := store.SetVoiceJoinedAt(ctx, "g1", "u1", &joined); err != nil {
		t.Fatalf("set joined: %v", err)
	}
	row, _ = store.GetUserAchievements(ctx, "g1", "u1")
	if row.VoiceJoinedAt == nil || *row.VoiceJoinedAt != 1000 {
		t.Fatalf("expected joined at 1000, got %v", row.VoiceJoinedAt)
	}
	if err := store.SetVoiceJoinedAt(ctx, "g1", "u1", nil); err != nil {
		t.Fatalf("clear joined: %v", err)
	}
	row, _ = store.GetUserAchievements(ctx, "g1", "u1")
	if row.VoiceJoinedAt != nil {
		t.Fatalf("expected joined cleared")
	}
}

func TestAchievementSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetAchievementRole(ctx, "g1", "msg_500", "r500"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetAchievementRole(ctx, "g1", "msg_1000", "r1000"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetAchievementRole(ctx, "g1", "msg_1000", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.SetAchievementRole(ctx, "g1", "msg_7", "x"); err == nil {
		t.Fatalf("expected unknown tier error")
	}
	settings, err := store.GetAchievementSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settings.Role("msg_500") != "r500" || settings.Role("msg_1000") != "" {
		t.Fatalf("unexpected roles %v", settings.Roles)
	}
}
