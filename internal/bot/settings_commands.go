package bot

import (
	"context"
	"fmt"
	"strings"

	"oblivion/internal/storage"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func onOff(enabled bool) string {
	if enabled {
		return "✅ On"
	}
	return "❌ Off"
}

func channelOrNone(id string) string {
	if id == "" {
		return "Not set"
	}
	return "<#" + id + ">"
}

func settingsEmbed(s storage.GuildSettings) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "📋 Mod Log", Value: channelOrNone(s.ModLogChannel), Inline: true},
		{Name: "📜 Event Log", Value: channelOrNone(s.EventLogChannel), Inline: true},
	}
	for _, f := range storage.Features {
		enabled, mode := s.Feature(f)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "🛡️ " + f.String(),
			Value:  fmt.Sprintf("%s (%s)", onOff(enabled), mode),
			Inline: true,
		})
	}
	words := "None"
	if len(s.BannedWords) > 0 {
		words = utils.Truncate("||"+strings.Join(s.BannedWords, ", ")+"||", 1024)
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: "🚫 Banned Words", Value: words},
		&discordgo.MessageEmbedField{Name: "🎉 Level Up Messages", Value: onOff(s.LevelUpMessages), Inline: true},
		&discordgo.MessageEmbedField{Name: "🏆 Achievement Messages", Value: onOff(s.AchievementMessages), Inline: true},
	)
	return &discordgo.MessageEmbed{Title: "⚙️ Server Settings", Color: utils.ColorInfo, Fields: fields}
}

// updateSettings applies change to the stored settings of guildID.
func (b *Bot) updateSettings(ctx context.Context, guildID string, change func(*storage.GuildSettings)) error {
	settings, err := b.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		return err
	}
	change(&settings)
	return b.store.UpsertGuildSettings(ctx, settings)
}

func (b *Bot) cmdSettings(ctx context.Context, r *reply, sub string, opts options) {
	guildID := r.interaction.GuildID
	var (
		message string
		err     error
	)
	switch sub {
	case "view":
		r.embed(settingsEmbed(b.guildSettings(ctx, guildID)), true)
		return
	case "modlog":
		channelID := opts.id("channel")
		err = b.updateSettings(ctx, guildID, func(s *storage.GuildSettings) { s.ModLogChannel = channelID })
		message = "Mod log channel set to " + channelOrNone(channelID) + "."
	case "eventlog":
		channelID := opts.id("channel")
		err = b.updateSettings(ctx, guildID, func(s *storage.GuildSettings) { s.EventLogChannel = channelID })
		message = "Event log channel set to " + channelOrNone(channelID) + "."
	case "automod":
		feature, perr := storage.ParseFeature(opts.str("feature"))
		if perr != nil {
			r.fail("Unknown AutoMod feature.")
			return
		}
		_, mode := b.guildSettings(ctx, guildID).Feature(feature)
		if opts.has("action") {
			if mode, perr = storage.ParseActionMode(opts.str("action")); perr != nil {
				r.fail("Action must be delete, warn or both.")
				return
			}
		}
		enabled := opts.boolean("enabled")
		err = b.store.SetAutomodFeature(ctx, guildID, feature, enabled, mode)
		message = fmt.Sprintf("**%s** is now %s with action **%s**.", feature, strings.ToLower(onOff(enabled)), mode)
	case "bannedword":
		word := opts.str("word")
		var changed bool
		if opts.str("action") == "remove" {
			changed, err = b.store.RemoveBannedWord(ctx, guildID, word)
			message = "Removed ||" + word + "|| from the banned words."
			if err == nil && !changed {
				r.fail("That word is not banned.")
				return
			}
		} else {
			changed, err = b.store.AddBannedWord(ctx, guildID, word)
			message = "Added ||" + word + "|| to the banned words."
			if err == nil && !changed {
				r.fail("That word is already banned.")
				return
			}
		}
	case "levelup":
		enabled := opts.boolean("enabled")
		err = b.updateSettings(ctx, guildID, func(s *storage.GuildSettings) { s.LevelUpMessages = enabled })
		message = "Level up messages: " + onOff(enabled)
	case "achievementmessages":
		enabled := opts.boolean("enabled")
		err = b.updateSettings(ctx, guildID, func(s *storage.GuildSettings) { s.AchievementMessages = enabled })
		message = "Achievement announcements: " + onOff(enabled)
	default:
		return
	}
	if err != nil {
		b.logger.Warn("settings update failed", zap.String("guild_id", guildID), zap.String("setting", sub), zap.Error(err))
		r.fail("Failed to update settings.")
		return
	}
	r.embed(utils.SuccessEmbed(message), true)
}

func (b *Bot) cmdWelcome(ctx context.Context, r *reply, sub string, opts options) {
	guildID := r.interaction.GuildID
	current, err := b.store.GetWelcomeSettings(ctx, guildID)
	if err != nil {
		b.logger.Warn("welcome settings failed", zap.String("guild_id", guildID), zap.Error(err))
		r.fail("Failed to load welcome settings.")
		return
	}

	switch sub {
	case "enable":
		current.Enabled = 1
		current.Channel = opts.id("channel")
		if opts.has("message") {
			current.Message = opts.str("message")
		}
	case "disable":
		current.Enabled = 0
	case "test":
		guild, gerr := r.session.State.Guild(guildID)
		if gerr != nil {
			r.fail("Server information is unavailable, try again shortly.")
			return
		}
		user := r.invoker()
		r.embed(welcomeEmbed(user, renderWelcome(current.Message, user.ID, guild.Name, guild.MemberCount)), true)
		return
	default:
		return
	}

	current.GuildID = guildID
	if err := b.store.UpsertWelcomeSettings(ctx, current); err != nil {
		b.logger.Warn("welcome update failed", zap.String("guild_id", guildID), zap.Error(err))
		r.fail("Failed to update welcome settings.")
		return
	}
	if current.Enabled == 1 {
		message := current.Message
		if message == "" {
			message = defaultWelcome
		}
		r.embed(utils.SuccessEmbed(fmt.Sprintf("Welcome messages enabled in <#%s>.\n**Message:** %s", current.Channel, message)), true)
		return
	}
	r.embed(utils.SuccessEmbed("Welcome messages disabled."), true)
}
