package bot

import (
	"context"
	"runtime/debug"

	"oblivion/internal/modules/giveaway"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const genericFailure = "An error occurred while executing this command!"

// reply answers one interaction at most once.
type reply struct {
	session     *discordgo.Session
	interaction *discordgo.InteractionCreate
	logger      *zap.Logger
	sent        bool
}

func (r *reply) send(data *discordgo.InteractionResponseData, ephemeral bool) {
	if r.sent {
		return
	}
	r.sent = true
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := r.session.InteractionRespond(r.interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		r.logger.Warn("interaction response failed", zap.String("interaction_id", r.interaction.ID), zap.Error(err))
	}
}

func (r *reply) text(content string, ephemeral bool) {
	r.send(&discordgo.InteractionResponseData{Content: content}, ephemeral)
}

func (r *reply) embed(embed *discordgo.MessageEmbed, ephemeral bool) {
	r.send(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}, ephemeral)
}

func (r *reply) success(description string) {
	r.embed(utils.SuccessEmbed(description), false)
}

func (r *reply) fail(description string) {
	r.embed(utils.ErrorEmbed(description), true)
}

// options indexes command options by name.
type options struct {
	session  *discordgo.Session
	resolved *discordgo.ApplicationCommandInteractionDataResolved
	values   map[string]*discordgo.ApplicationCommandInteractionDataOption
}

func newOptions(session *discordgo.Session, data discordgo.ApplicationCommandInteractionData, list []*discordgo.ApplicationCommandInteractionDataOption) options {
	o := options{session: session, resolved: data.Resolved, values: make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(list))}
	for _, opt := range list {
		o.values[opt.Name] = opt
	}
	return o
}

func (o options) has(name string) bool {
	_, ok := o.values[name]
	return ok
}

func (o options) str(name string) string {
	if opt, ok := o.values[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) integer(name string, fallback int64) int64 {
	if opt, ok := o.values[name]; ok {
		return opt.IntValue()
	}
	return fallback
}

func (o options) boolean(name string) bool {
	if opt, ok := o.values[name]; ok {
		return opt.BoolValue()
	}
	return false
}

// id returns the snowflake of a user, channel or role option.
func (o options) id(name string) string {
	if opt, ok := o.values[name]; ok {
		if id, ok := opt.Value.(string); ok {
			return id
		}
	}
	return ""
}

func (o options) user(name string) *discordgo.User {
	id := o.id(name)
	if id == "" {
		return nil
	}
	if o.resolved != nil {
		if user, ok := o.resolved.Users[id]; ok {
			return user
		}
	}
	return o.values[name].UserValue(o.session)
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	r := &reply{session: session, interaction: interaction, logger: b.logger}
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("interaction handler panic",
				zap.Any("panic", rec),
				zap.String("guild_id", interaction.GuildID),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		r.fail(genericFailure)
	}()

	ctx := context.Background()
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		if interaction.GuildID == "" || interaction.Member == nil {
			r.fail("This command can only be used in a server.")
			return
		}
		b.handleCommand(ctx, r)
	case discordgo.InteractionMessageComponent:
		if interaction.MessageComponentData().CustomID == giveaway.EnterButtonID {
			b.handleGiveawayEntry(r)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, r *reply) {
	data := r.interaction.ApplicationCommandData()
	opts := newOptions(r.session, data, data.Options)
	b.logger.Debug("command received",
		zap.String("command", data.Name),
		zap.String("guild_id", r.interaction.GuildID),
		zap.String("user_id", r.interaction.Member.User.ID),
	)

	switch data.Name {
	case "ban":
		b.cmdBan(ctx, r, opts)
	case "kick":
		b.cmdKick(ctx, r, opts)
	case "mute":
		b.cmdMute(ctx, r, opts)
	case "unmute":
		b.cmdUnmute(ctx, r, opts)
	case "warn":
		b.cmdWarn(ctx, r, opts)
	case "unwarn":
		b.cmdUnwarn(ctx, r, opts)
	case "warnings":
		b.cmdWarnings(ctx, r, opts)
	case "unban":
		b.cmdUnban(ctx, r, opts)
	case "purge":
		b.cmdPurge(ctx, r, opts)
	case "case":
		b.cmdCase(ctx, r, opts)
	case "cases":
		b.cmdCases(ctx, r, opts)
	case "removecase":
		b.cmdRemoveCase(ctx, r, opts)
	case "settings", "giveaway", "welcome":
		if len(data.Options) == 0 {
			return
		}
		sub := data.Options[0]
		subOpts := newOptions(r.session, data, sub.Options)
		switch data.Name {
		case "settings":
			b.cmdSettings(ctx, r, sub.Name, subOpts)
		case "giveaway":
			b.cmdGiveaway(ctx, r, sub.Name, subOpts)
		case "welcome":
			b.cmdWelcome(ctx, r, sub.Name, subOpts)
		}
	case "rank":
		b.cmdRank(ctx, r, opts)
	case "leaderboard":
		b.cmdLeaderboard(ctx, r, opts)
	case "achievements":
		b.cmdAchievements(ctx, r, opts)
	case "achsetup":
		b.cmdAchSetup(ctx, r, opts)
	case "setxp":
		b.cmdSetXP(ctx, r, opts)
	case "userinfo":
		b.cmdUserInfo(ctx, r, opts)
	case "stats":
		b.cmdStats(ctx, r)
	}
}

// invoker is the user running the command.
func (r *reply) invoker() *discordgo.User {
	return r.interaction.Member.User
}
