package modlog

import (
	"context"
	"errors"
	"testing"

	"oblivion/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type recordingSender struct {
	channels []string
	embeds   []*discordgo.MessageEmbed
	err      error
}

func (s *recordingSender) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	s.channels = append(s.channels, channelID)
	s.embeds = append(s.embeds, embed)
	return s.err
}

func newLedger(t *testing.T) (*Ledger, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLedger(store, zap.NewNop()), store
}

func TestRecordPersistsWhenDeliveryFails(t *testing.T) {
	ctx := context.Background()
	ledger, store := newLedger(t)
	settings := storage.DefaultGuildSettings("g1")
	settings.ModLogChannel = "modlog"
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("settings: %v", err)
	}
	sender := &recordingSender{err: errors.New("missing access")}
	ledger.SetSender(sender)

	modCase, err := ledger.Record(ctx, Entry{
		GuildID:   "g1",
		Action:    ActionBan,
		User:      Actor{ID: "u1", Tag: "user#0001"},
		Moderator: Actor{ID: "m1", Tag: "mod#0001"},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if modCase.CaseNumber != 1 || modCase.Reason != DefaultReason {
		t.Fatalf("unexpected case %+v", modCase)
	}
	if len(sender.channels) != 1 || sender.channels[0] != "modlog" {
		t.Fatalf("expected one delivery to modlog, got %v", sender.channels)
	}
	if sender.embeds[0].Title != "🔨 Case #1 | Ban" {
		t.Fatalf("unexpected title %q", sender.embeds[0].Title)
	}

	stored, err := ledger.View(ctx, "g1", 1)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if stored.UserTag != "user#0001" {
		t.Fatalf("unexpected stored case %+v", stored)
	}
}

func TestRecordWithoutLogChannel(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)
	sender := &recordingSender{}
	ledger.SetSender(sender)

	if _, err := ledger.Record(ctx, Entry{GuildID: "g1", Action: ActionKick, User: Actor{ID: "u1"}, Moderator: Actor{ID: "m1"}, Reason: "rude"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(sender.channels) != 0 {
		t.Fatalf("expected no delivery without a mod log channel")
	}
}

func TestDeleteLeavesGap(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)
	for i := 0; i < 3; i++ {
		if _, err := ledger.Record(ctx, Entry{GuildID: "g1", Action: ActionWarn, User: Actor{ID: "u1"}, Moderator: Actor{ID: "m1"}}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := ledger.Delete(ctx, "g1", 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ledger.View(ctx, "g1", 3); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	next, err := ledger.Record(ctx, Entry{GuildID: "g1", Action: ActionWarn, User: Actor{ID: "u1"}, Moderator: Actor{ID: "m1"}})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if next.CaseNumber != 4 {
		t.Fatalf("expected case 4, got %d", next.CaseNumber)
	}
	cases, err := ledger.ListForUser(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cases) != 3 || cases[0].CaseNumber != 4 || cases[2].CaseNumber != 1 {
		t.Fatalf("unexpected order %+v", cases)
	}
}

func TestCaseEmbedDuration(t *testing.T) {
	embed := CaseEmbed(storage.ModCase{CaseNumber: 7, Action: string(ActionMute), Reason: "spam", Duration: "10 minutes"})
	if embed.Color != 0xFFFF00 {
		t.Fatalf("unexpected color %x", embed.Color)
	}
	if len(embed.Fields) != 4 || embed.Fields[3].Value != "10 minutes" {
		t.Fatalf("expected duration field, got %+v", embed.Fields)
	}
	if ActionPurge.Emoji() != "📋" || ActionPurge.Color() != 0x3498DB {
		t.Fatalf("unexpected default style")
	}
}
