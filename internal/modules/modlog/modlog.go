package modlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oblivion/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Action string

const (
	ActionBan     Action = "Ban"
	ActionKick    Action = "Kick"
	ActionMute    Action = "Mute"
	ActionUnmute  Action = "Unmute"
	ActionWarn    Action = "Warn"
	ActionUnwarn  Action = "Unwarn"
	ActionUnban   Action = "Unban"
	ActionPurge   Action = "Purge"
	ActionAutoMod Action = "AutoMod"
)

const DefaultReason = "No reason provided"

func (a Action) Emoji() string {
	switch a {
	case ActionBan:
		return "🔨"
	case ActionUnban:
		return "🔓"
	case ActionKick:
		return "👢"
	case ActionMute:
		return "🔇"
	case ActionUnmute:
		return "🔊"
	case ActionWarn:
		return "⚠️"
	case ActionUnwarn:
		return "✅"
	default:
		return "📋"
	}
}

func (a Action) Color() int {
	switch a {
	case ActionBan:
		return 0xFF0000
	case ActionUnban, ActionUnwarn:
		return 0x00FF00
	case ActionKick:
		return 0xFF6600
	case ActionMute:
		return 0xFFFF00
	case ActionUnmute:
		return 0x00FFFF
	case ActionWarn:
		return 0xFFCC00
	default:
		return 0x3498DB
	}
}

// Actor is a user snapshot taken when the case is written.
type Actor struct {
	ID  string
	Tag string
}

type Entry struct {
	GuildID   string
	Action    Action
	User      Actor
	Moderator Actor
	Reason    string
	Duration  string
}

// Sender delivers an embed to a channel.
type Sender interface {
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

type Ledger struct {
	store  *storage.Store
	logger *zap.Logger
	sender Sender
}

func NewLedger(store *storage.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

func (l *Ledger) SetSender(sender Sender) {
	l.sender = sender
}

// Record persists the case and then posts it to the guild's mod-log channel.
// Delivery problems are logged and never undo or fail the write.
func (l *Ledger) Record(ctx context.Context, entry Entry) (storage.ModCase, error) {
	reason := strings.TrimSpace(entry.Reason)
	if reason == "" {
		reason = DefaultReason
	}

	modCase, err := l.store.CreateModCase(ctx, storage.ModCase{
		GuildID:      entry.GuildID,
		UserID:       entry.User.ID,
		UserTag:      entry.User.Tag,
		ModeratorID:  entry.Moderator.ID,
		ModeratorTag: entry.Moderator.Tag,
		Action:       string(entry.Action),
		Reason:       reason,
		Duration:     entry.Duration,
	})
	if err != nil {
		return storage.ModCase{}, fmt.Errorf("record %s case: %w", entry.Action, err)
	}

	l.logger.Info("case recorded",
		zap.String("guild_id", modCase.GuildID),
		zap.Int64("case", modCase.CaseNumber),
		zap.String("action", modCase.Action),
		zap.String("user_id", modCase.UserID),
		zap.String("moderator_id", modCase.ModeratorID),
	)
	l.notify(ctx, modCase)
	return modCase, nil
}

func (l *Ledger) notify(ctx context.Context, modCase storage.ModCase) {
	if l.sender == nil {
		return
	}
	settings, err := l.store.GetGuildSettings(ctx, modCase.GuildID)
	if err != nil {
		l.logger.Warn("mod log settings lookup failed", zap.String("guild_id", modCase.GuildID), zap.Error(err))
		return
	}
	if settings.ModLogChannel == "" {
		return
	}
	if err := l.sender.SendEmbed(ctx, settings.ModLogChannel, CaseEmbed(modCase)); err != nil {
		l.logger.Warn("mod log delivery failed",
			zap.String("guild_id", modCase.GuildID),
			zap.String("channel_id", settings.ModLogChannel),
			zap.Int64("case", modCase.CaseNumber),
			zap.Error(err),
		)
	}
}

func (l *Ledger) View(ctx context.Context, guildID string, number int64) (storage.ModCase, error) {
	return l.store.GetModCase(ctx, guildID, number)
}

// ListForUser returns the user's cases, most recent first.
func (l *Ledger) ListForUser(ctx context.Context, guildID, userID string) ([]storage.ModCase, error) {
	return l.store.ListUserModCases(ctx, guildID, userID)
}

func (l *Ledger) List(ctx context.Context, guildID string, limit int) ([]storage.ModCase, error) {
	return l.store.ListModCases(ctx, guildID, limit)
}

// Delete removes a case. Its number stays retired.
func (l *Ledger) Delete(ctx context.Context, guildID string, number int64) error {
	if err := l.store.DeleteModCase(ctx, guildID, number); err != nil {
		return err
	}
	l.logger.Info("case deleted", zap.String("guild_id", guildID), zap.Int64("case", number))
	return nil
}

func (l *Ledger) Count(ctx context.Context, guildID string) (int, error) {
	return l.store.CountModCases(ctx, guildID)
}

func CaseEmbed(c storage.ModCase) *discordgo.MessageEmbed {
	action := Action(c.Action)
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s Case #%d | %s", action.Emoji(), c.CaseNumber, c.Action),
		Color: action.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: fmt.Sprintf("%s (%s)", c.UserTag, c.UserID), Inline: true},
			{Name: "👮 Moderator", Value: fmt.Sprintf("%s (%s)", c.ModeratorTag, c.ModeratorID), Inline: true},
			{Name: "📝 Reason", Value: c.Reason},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case %d", c.CaseNumber)},
		Timestamp: c.Created().UTC().Format(time.RFC3339),
	}
	if c.Duration != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "⏱️ Duration", Value: c.Duration})
	}
	return embed
}
