package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"oblivion/internal/config"
	"oblivion/internal/modules/giveaway"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type recordingSurface struct {
	mu      sync.Mutex
	deleted []string
}

func (s *recordingSurface) DeleteMessage(_ context.Context, _, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *recordingSurface) SendMessage(context.Context, string, string) (string, error) {
	return "notice", nil
}

func (s *recordingSurface) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// newTestBot builds a bot over an in-memory store. The gateway is never
// opened, so handlers can be driven directly.
func newTestBot(t *testing.T) (*Bot, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.DiscordToken = "test"
	b, err := New(cfg, zap.NewNop(), store)
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	t.Cleanup(func() { b.Close(context.Background()) })
	return b, store
}

func TestFlaggedMessageStillCounts(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBot(t)
	surface := &recordingSurface{}
	b.AutoMod.SetPlatform(surface, modlog.Actor{ID: "bot", Tag: "Oblivion#0001"})

	settings := storage.DefaultGuildSettings("g1")
	settings.BannedWords = []string{"heck"}
	settings.BannedWordsAction = storage.ActionDelete
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("settings: %v", err)
	}

	b.onMessageCreate(b.session, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   "what the heck",
		Author:    &discordgo.User{ID: "u1", Username: "user"},
	}})

	if got := surface.Deleted(); len(got) != 1 || got[0] != "m1" {
		t.Fatalf("flagged message should be deleted, got %v", got)
	}
	if total, err := store.CountModCases(ctx, "g1"); err != nil || total != 1 {
		t.Fatalf("expected one AutoMod case, got %d %v", total, err)
	}
	row, err := store.GetUserXP(ctx, "g1", "u1")
	if err != nil || row.XP <= 0 {
		t.Fatalf("flagged message should still earn XP, got %+v %v", row, err)
	}
	counts, err := store.GetUserAchievements(ctx, "g1", "u1")
	if err != nil || counts.Messages != 1 {
		t.Fatalf("flagged message should still count, got %+v %v", counts, err)
	}
}

func TestLogChannelSkipsItself(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBot(t)
	settings := storage.DefaultGuildSettings("g1")
	settings.EventLogChannel = "log"
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("settings: %v", err)
	}

	if got := b.logChannel(ctx, "g1", "c1"); got != "log" {
		t.Fatalf("messages elsewhere should be logged to %q, got %q", "log", got)
	}
	if got := b.logChannel(ctx, "g1", "log"); got != "" {
		t.Fatalf("messages in the log channel must not be logged, got %q", got)
	}
	if got := b.logChannel(ctx, "g2", "c1"); got != "" {
		t.Fatalf("guild without a log channel should log nothing, got %q", got)
	}
}

func TestCloseRespectsContext(t *testing.T) {
	b, _ := newTestBot(t)
	err := b.Giveaways.Start(giveaway.Giveaway{MessageID: "m1", Winners: 1, EndsAt: time.Now().Add(time.Hour)}, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		b.Close(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("close should return once its context is done")
	}
	if b.Giveaways.Active() != 0 {
		t.Fatalf("close should stop running giveaways")
	}
}
