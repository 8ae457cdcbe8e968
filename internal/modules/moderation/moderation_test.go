package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"oblivion/internal/clock"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/modules/mutes"
	"oblivion/internal/modules/warnings"
	"oblivion/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakePlatform struct {
	bans     []string
	kicks    []string
	timeouts map[string]*time.Time
	dms      int
	banned   map[string]modlog.Actor
	purged   int
	after    time.Time
}

func (p *fakePlatform) Ban(_ context.Context, _, userID, _ string, _ int) error {
	p.bans = append(p.bans, userID)
	return nil
}

func (p *fakePlatform) Unban(_ context.Context, _, userID, _ string) error {
	delete(p.banned, userID)
	return nil
}

func (p *fakePlatform) BannedUser(_ context.Context, _, userID string) (modlog.Actor, bool, error) {
	actor, ok := p.banned[userID]
	return actor, ok, nil
}

func (p *fakePlatform) Kick(_ context.Context, _, userID, _ string) error {
	p.kicks = append(p.kicks, userID)
	return nil
}

func (p *fakePlatform) Timeout(_ context.Context, _, userID string, until *time.Time, _ string) error {
	if p.timeouts == nil {
		p.timeouts = map[string]*time.Time{}
	}
	p.timeouts[userID] = until
	return nil
}

func (p *fakePlatform) DirectMessage(context.Context, string, *discordgo.MessageEmbed) error {
	p.dms++
	return errors.New("cannot send messages to this user")
}

func (p *fakePlatform) PurgeMessages(_ context.Context, _ string, _ int, _ string, after time.Time) (int, error) {
	p.after = after
	return p.purged, nil
}

type fixture struct {
	svc      *Service
	store    *storage.Store
	platform *fakePlatform
	clock    *clock.Fake
	guild    Guild
	owner    Member
	mod      Member
	user     Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logger := zap.NewNop()
	fake := clock.NewFake(time.UnixMilli(1_700_000_000_000))
	registry := mutes.New(store, logger)
	registry.WithClock(fake)
	platform := &fakePlatform{banned: map[string]modlog.Actor{}}
	svc := NewService(modlog.NewLedger(store, logger), warnings.New(store, logger), registry, platform, logger)
	svc.WithClock(fake)

	return &fixture{
		svc:      svc,
		store:    store,
		platform: platform,
		clock:    fake,
		guild: Guild{
			ID:            "g1",
			Name:          "Guild",
			OwnerID:       "owner",
			RolePositions: map[string]int{"admin": 10, "mod": 5, "member": 1},
		},
		owner: Member{UserID: "owner", Tag: "owner#0001", Present: true},
		mod:   Member{UserID: "mod", Tag: "mod#0001", Roles: []string{"mod"}, Present: true},
		user:  Member{UserID: "user", Tag: "user#0001", Roles: []string{"member"}, Present: true},
	}
}

func (f *fixture) request(executor, target Member, reason string) Request {
	return Request{Guild: f.guild, Executor: executor, Target: target, Reason: reason}
}

func (f *fixture) caseCount(t *testing.T) int {
	t.Helper()
	n, err := f.store.CountModCases(context.Background(), f.guild.ID)
	if err != nil {
		t.Fatalf("count cases: %v", err)
	}
	return n
}

func TestBanOwnerRefusedWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ban(context.Background(), f.request(f.mod, f.owner, "nope"), 0)
	var refusal *RefusalError
	if !errors.As(err, &refusal) || refusal.Reason != "You cannot moderate the server owner!" {
		t.Fatalf("expected owner refusal, got %v", err)
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("refusal should match ErrPermissionDenied")
	}
	if len(f.platform.bans) != 0 || f.caseCount(t) != 0 {
		t.Fatalf("refused ban must not act or record")
	}
}

func TestCanModerateRefusals(t *testing.T) {
	f := newFixture(t)
	bot := Member{UserID: "bot", Tag: "bot#0001", Bot: true, Present: true}
	admin := Member{UserID: "admin", Tag: "admin#0001", Roles: []string{"admin"}, Present: true}
	peer := Member{UserID: "peer", Tag: "peer#0001", Roles: []string{"mod"}, Present: true}

	cases := []struct {
		name     string
		executor Member
		target   Member
		want     string
	}{
		{"self", f.mod, f.mod, "You cannot moderate yourself!"},
		{"owner", f.mod, f.owner, "You cannot moderate the server owner!"},
		{"bot", f.mod, bot, "You cannot moderate bots!"},
		{"higher role", f.mod, admin, "You cannot moderate someone with an equal or higher role!"},
		{"equal role", f.mod, peer, "You cannot moderate someone with an equal or higher role!"},
	}
	for _, tc := range cases {
		err := CanModerate(tc.executor, tc.target, f.guild)
		if err == nil || err.Error() != tc.want {
			t.Fatalf("%s: got %v, want %q", tc.name, err, tc.want)
		}
	}

	if err := CanModerate(f.mod, f.user, f.guild); err != nil {
		t.Fatalf("mod should moderate member: %v", err)
	}
	if err := CanModerate(f.owner, admin, f.guild); err != nil {
		t.Fatalf("owner bypasses hierarchy: %v", err)
	}
	adminExec := admin
	adminExec.Permissions = discordgo.PermissionAdministrator
	if err := CanModerate(adminExec, bot, f.guild); err != nil {
		t.Fatalf("administrators may moderate bots: %v", err)
	}
	absent := admin
	absent.Present = false
	if err := CanModerate(f.mod, absent, f.guild); err != nil {
		t.Fatalf("absent targets skip member checks: %v", err)
	}
}

func TestBanRecordsCase(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Ban(context.Background(), f.request(f.mod, f.user, ""), 1)
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if len(f.platform.bans) != 1 || f.platform.dms != 1 {
		t.Fatalf("expected ban and DM attempt, got %+v", f.platform)
	}
	if res.Case.CaseNumber != 1 || res.Case.Action != string(modlog.ActionBan) || res.Case.Reason != modlog.DefaultReason {
		t.Fatalf("unexpected case %+v", res.Case)
	}
}

func TestKickRequiresMembership(t *testing.T) {
	f := newFixture(t)
	gone := f.user
	gone.Present = false
	if _, err := f.svc.Kick(context.Background(), f.request(f.mod, gone, "bye")); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if f.caseCount(t) != 0 {
		t.Fatalf("no case expected")
	}
}

func TestMuteWritesRegistryAndCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Mute(ctx, f.request(f.mod, f.user, "spam"), 29*24*time.Hour); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	res, err := f.svc.Mute(ctx, f.request(f.mod, f.user, "spam"), 2*time.Hour)
	if err != nil {
		t.Fatalf("mute: %v", err)
	}
	want := f.clock.Now().Add(2 * time.Hour)
	if until := f.platform.timeouts["user"]; until == nil || !until.Equal(want) {
		t.Fatalf("unexpected timeout %v", until)
	}
	if !res.Expires.Equal(want) || res.Duration != "2 hours" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Case.Duration != "2 hours" {
		t.Fatalf("case should carry the duration: %+v", res.Case)
	}
	mute, err := f.store.GetMute(ctx, "g1", "user")
	if err != nil {
		t.Fatalf("get mute: %v", err)
	}
	if expires, ok := mute.Expires(); !ok || !expires.Equal(want) {
		t.Fatalf("unexpected mute row %+v", mute)
	}
}

func TestUnmute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.svc.Unmute(ctx, f.request(f.mod, f.user, "")); !errors.Is(err, ErrNotTimedOut) {
		t.Fatalf("expected ErrNotTimedOut, got %v", err)
	}

	if _, err := f.svc.Mute(ctx, f.request(f.mod, f.user, "spam"), time.Hour); err != nil {
		t.Fatalf("mute: %v", err)
	}
	muted := f.user
	until := f.clock.Now().Add(time.Hour)
	muted.TimedOutUntil = &until
	res, err := f.svc.Unmute(ctx, f.request(f.mod, muted, "appeal"))
	if err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if f.platform.timeouts["user"] != nil {
		t.Fatalf("timeout should be cleared")
	}
	if _, err := f.store.GetMute(ctx, "g1", "user"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("mute row should be gone, got %v", err)
	}
	if res.Case.CaseNumber != 2 || res.Case.Action != string(modlog.ActionUnmute) {
		t.Fatalf("unexpected case %+v", res.Case)
	}
}

func TestWarnAndUnwarn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Unwarn(ctx, f.request(f.mod, f.user, ""), 1); !errors.Is(err, ErrNoWarnings) {
		t.Fatalf("expected ErrNoWarnings, got %v", err)
	}
	for i := 1; i <= 3; i++ {
		res, err := f.svc.Warn(ctx, f.request(f.mod, f.user, "rude"))
		if err != nil {
			t.Fatalf("warn: %v", err)
		}
		if res.Warnings != i {
			t.Fatalf("expected total %d, got %d", i, res.Warnings)
		}
	}

	res, err := f.svc.Unwarn(ctx, f.request(f.mod, f.user, "forgiven"), 2)
	if err != nil {
		t.Fatalf("unwarn: %v", err)
	}
	if res.Removed != 2 || res.Remaining != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Case.Reason != "Removed 2 warning(s): forgiven" {
		t.Fatalf("unexpected reason %q", res.Case.Reason)
	}

	res, err = f.svc.Unwarn(ctx, f.request(f.mod, f.user, ""), 0)
	if err != nil {
		t.Fatalf("unwarn all: %v", err)
	}
	if res.Removed != 1 || res.Remaining != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUnban(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := Member{UserID: "gone"}
	if _, err := f.svc.Unban(ctx, f.request(f.mod, target, "")); !errors.Is(err, ErrNotBanned) {
		t.Fatalf("expected ErrNotBanned, got %v", err)
	}
	f.platform.banned["gone"] = modlog.Actor{ID: "gone", Tag: "gone#0001"}
	res, err := f.svc.Unban(ctx, f.request(f.mod, target, "second chance"))
	if err != nil {
		t.Fatalf("unban: %v", err)
	}
	if res.Case.UserTag != "gone#0001" || res.Target.Tag != "gone#0001" {
		t.Fatalf("unexpected case %+v", res.Case)
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Purge(ctx, f.request(f.mod, Member{}, ""), "c1", 101); err == nil {
		t.Fatalf("expected limit error")
	}
	if _, err := f.svc.Purge(ctx, f.request(f.mod, Member{}, ""), "c1", 10); !errors.Is(err, ErrNothingToPurge) {
		t.Fatalf("expected ErrNothingToPurge, got %v", err)
	}

	f.platform.purged = 7
	res, err := f.svc.Purge(ctx, f.request(f.mod, f.user, ""), "c1", 50)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if res.Deleted != 7 || res.Case.Reason != "Purged 7 message(s) in <#c1> from user#0001" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !f.platform.after.Equal(f.clock.Now().Add(-14 * 24 * time.Hour)) {
		t.Fatalf("purge should stop at the bulk delete horizon")
	}

	res, err = f.svc.Purge(ctx, f.request(f.mod, Member{}, ""), "c1", 50)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !strings.HasSuffix(res.Case.Reason, "in <#c1>") || res.Case.UserID != "mod" {
		t.Fatalf("unexpected case %+v", res.Case)
	}
}
