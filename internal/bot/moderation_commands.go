package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"oblivion/internal/modules/moderation"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/storage"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const listLimit = 10

// moderationRequest builds the request for a command whose target is the
// "user" option.
func (b *Bot) moderationRequest(r *reply, opts options) (moderation.Request, bool) {
	guild, err := r.session.State.Guild(r.interaction.GuildID)
	if err != nil {
		r.fail("Server information is unavailable, try again shortly.")
		return moderation.Request{}, false
	}
	member := r.interaction.Member
	executor := moderation.Member{
		UserID:      member.User.ID,
		Tag:         member.User.String(),
		Roles:       member.Roles,
		Permissions: member.Permissions,
		Present:     true,
	}
	req := moderation.Request{Guild: moderationGuild(guild), Executor: executor, Reason: opts.str("reason")}
	if user := opts.user("user"); user != nil {
		req.Target = b.moderationMember(guild, user)
	}
	return req, true
}

// moderationFailed reports err to the invoker.
func (b *Bot) moderationFailed(r *reply, action string, err error) {
	var refusal *moderation.RefusalError
	switch {
	case errors.As(err, &refusal):
		r.fail(refusal.Reason)
	case errors.Is(err, moderation.ErrNotMember):
		r.fail("That user is not a member of this server.")
	case errors.Is(err, moderation.ErrNotBanned):
		r.fail("This user is not banned.")
	case errors.Is(err, moderation.ErrNotTimedOut):
		r.fail("This user is not timed out.")
	case errors.Is(err, moderation.ErrNoWarnings):
		r.fail("This user has no warnings.")
	case errors.Is(err, moderation.ErrInvalidDuration):
		r.fail("Duration must be between 1 second and 28 days.")
	case errors.Is(err, moderation.ErrNothingToPurge):
		r.fail("No messages found to delete. Messages older than 14 days cannot be bulk deleted.")
	default:
		b.logger.Warn("moderation action failed", zap.String("action", action), zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail(fmt.Sprintf("Failed to %s the user.", action))
	}
}

func caseSummary(res moderation.Result, lines ...string) string {
	text := strings.Join(lines, "\n")
	return fmt.Sprintf("%s\n**Reason:** %s\n**Case:** #%d", text, res.Case.Reason, res.Case.CaseNumber)
}

func (b *Bot) cmdBan(ctx context.Context, r *reply, opts options) {
	req, ok := b.moderationRequest(r, opts)
	if !ok {
		return
	}
	res, err := b.Moderation.Ban(ctx, req, int(opts.integer("delete_days", 0)))
	if err != nil {
		b.moderationFailed(r, "ban", err)
		return
	}
	r.success(caseSummary(res, fmt.Sprintf("🔨 **%s** has been banned.", req.Target.Tag)))
}

func (b *Bot) cmdKick(ctx context.Context, r *reply, opts options) {
	req, ok := b.moderationRequest(r, opts)
	if !ok {
		return
	}
	res, err := b.Moderation.Kick(ctx, req)
	if err != nil {
		b.moderationFailed(r, "kick", err)
		return
	}
	r.success(caseSummary(res, fmt.Sprintf("👢 **%s** has been kicked.", req.Target.Tag)))
}

func (b *Bot) cmdMute(ctx context.Context, r *reply, opts options) {
	d, err := utils.ParseDuration(opts.str("duration"))
	if err != nil {
		r.fail("Invalid duration. Use a format like 10m, 1h or 2d.")
		return
	}
	req, ok := b.moderationRequest(r, opts)
	if !ok {
		return
	}
	res, err := b.Moderation.Mute(ctx, req, d)
	if err != nil {
		b.moderationFailed(r, "mute", err)
		return
	}
	r.success(caseSummary(res,
		fmt.Sprintf("🔇 **%s** has been timed out for %s.", req.Target.Tag, res.Duration),
		fmt.Sprintf("**Expires:** <t:%d:R>", res.Expires.Unix()),
	))
}

func (b *Bot) cmdUnmute(ctx context.Context, r *reply, opts options) {
	req, ok := b.moderationRequest(r, opts)
	if !ok {
		return
	}
	res, err := b.Moderation.Unmute(ctx, req)
	if err != nil {
		b.moderationFailed(r, "unmute", err)
		return
	}
	r.success(caseSummary(res, fmt.Sprintf("🔊 **%s** is no longer timed out.", req.Target.Tag)))
}

func (b *Bot) cmdWarn(ctx context.Context, r *reply, opts options) {
	req, ok := b.moderationRequest(r, opts)
	if !ok {
		return
	}
	res, err := b.Moderation.Warn(ctx, req)
	if err != nil {
		b.moderationFailed(r, "warn", err)
		return
	}
	r.success(caseSummary(res,
		fmt.Sprintf("⚠️ **%s** has been warned.", req.Target.Tag),
		fmt.Sprintf("**Total Warnings:** %d", res.Warnings),
	))
}

func (b *Bot) cmdUnwarn(ctx context.Context, r *reply, opts options) {
	req, ok := b.moderationRequest(r, opts)
	if !ok {
		return
	}
	res, err := b.Moderation.Unwarn(ctx, req, int(opts.integer("amount", 1)))
	if err != nil {
		b.moderationFailed(r, "unwarn", err)
		return
	}
	r.success(fmt.Sprintf("✅ Removed %d warning(s) from **%s**.\n**Remaining:** %d\n**Case:** #%d",
		res.Removed, req.Target.Tag, res.Remaining, res.Case.CaseNumber))
}

func (b *Bot) cmdWarnings(ctx context.Context, r *reply, opts options) {
	user := opts.user("user")
	list, err := b.Warnings.List(ctx, r.interaction.GuildID, user.ID)
	if err != nil {
		b.logger.Warn("list warnings failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail("Failed to fetch warnings.")
		return
	}
	if len(list) == 0 {
		r.embed(utils.InfoEmbed(fmt.Sprintf("**%s** has no warnings.", user.String())), true)
		return
	}
	var lines []string
	for i, w := range list {
		if i == listLimit {
			lines = append(lines, fmt.Sprintf("*...and %d more*", len(list)-listLimit))
			break
		}
		lines = append(lines, fmt.Sprintf("**%d.** %s\nBy <@%s> <t:%d:R>", i+1, utils.Truncate(w.Reason, 200), w.ModeratorID, w.Created().Unix()))
	}
	r.embed(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("⚠️ Warnings for %s", user.String()),
		Description: strings.Join(lines, "\n\n"),
		Color:       utils.ColorWarning,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Total: %d", len(list))},
	}, true)
}

func (b *Bot) cmdUnban(ctx context.Context, r *reply, opts options) {
	req, ok := b.moderationRequest(r, opts)
	if !ok {
		return
	}
	req.Target = moderation.Member{UserID: strings.TrimSpace(opts.str("user_id"))}
	res, err := b.Moderation.Unban(ctx, req)
	if err != nil {
		b.moderationFailed(r, "unban", err)
		return
	}
	r.success(caseSummary(res, fmt.Sprintf("🔓 **%s** has been unbanned.", res.Target.Tag)))
}

func (b *Bot) cmdPurge(ctx context.Context, r *reply, opts options) {
	req, ok := b.moderationRequest(r, opts)
	if !ok {
		return
	}
	res, err := b.Moderation.Purge(ctx, req, r.interaction.ChannelID, int(opts.integer("amount", 0)))
	if err != nil {
		b.moderationFailed(r, "purge messages for", err)
		return
	}
	r.embed(utils.SuccessEmbed(fmt.Sprintf("🗑️ Deleted %d message(s).\n**Case:** #%d", res.Deleted, res.Case.CaseNumber)), true)
}

func (b *Bot) cmdCase(ctx context.Context, r *reply, opts options) {
	number := opts.integer("number", 0)
	modCase, err := b.Cases.View(ctx, r.interaction.GuildID, number)
	if errors.Is(err, storage.ErrNotFound) {
		r.fail(fmt.Sprintf("Case #%d not found.", number))
		return
	}
	if err != nil {
		b.logger.Warn("view case failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail("Failed to fetch the case.")
		return
	}
	r.embed(modlog.CaseEmbed(modCase), false)
}

func (b *Bot) cmdCases(ctx context.Context, r *reply, opts options) {
	guildID := r.interaction.GuildID
	title := "📋 Recent Cases"
	var (
		cases []storage.ModCase
		err   error
	)
	if user := opts.user("user"); user != nil {
		title = "📋 Cases for " + user.String()
		cases, err = b.Cases.ListForUser(ctx, guildID, user.ID)
	} else {
		cases, err = b.Cases.List(ctx, guildID, listLimit)
	}
	if err != nil {
		b.logger.Warn("list cases failed", zap.String("guild_id", guildID), zap.Error(err))
		r.fail("Failed to fetch cases.")
		return
	}
	if len(cases) == 0 {
		r.embed(utils.InfoEmbed("No cases found."), true)
		return
	}
	var lines []string
	for i, c := range cases {
		if i == listLimit {
			lines = append(lines, fmt.Sprintf("*...and %d more*", len(cases)-listLimit))
			break
		}
		action := modlog.Action(c.Action)
		lines = append(lines, fmt.Sprintf("`#%d` %s **%s** | %s | %s", c.CaseNumber, action.Emoji(), c.Action, c.UserTag, utils.Truncate(c.Reason, 50)))
	}
	r.embed(&discordgo.MessageEmbed{Title: title, Description: strings.Join(lines, "\n"), Color: utils.ColorInfo}, true)
}

func (b *Bot) cmdRemoveCase(ctx context.Context, r *reply, opts options) {
	number := opts.integer("number", 0)
	err := b.Cases.Delete(ctx, r.interaction.GuildID, number)
	if errors.Is(err, storage.ErrNotFound) {
		r.fail(fmt.Sprintf("Case #%d not found.", number))
		return
	}
	if err != nil {
		b.logger.Warn("delete case failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail("Failed to delete the case.")
		return
	}
	r.success(fmt.Sprintf("Case #%d has been deleted.", number))
}
