package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oblivion/internal/modules/achievements"
	"oblivion/internal/modules/giveaway"
	"oblivion/internal/modules/xp"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	leaderboardSize = 10
	statsWindow     = 7 * 24 * time.Hour
	maxGiveaway     = 30 * 24 * time.Hour
)

var medals = []string{"🥇", "🥈", "🥉"}

// target returns the "user" option, or the invoker when it is absent.
func (r *reply) target(opts options) *discordgo.User {
	if user := opts.user("user"); user != nil {
		return user
	}
	return r.invoker()
}

func (b *Bot) cmdRank(ctx context.Context, r *reply, opts options) {
	user := r.target(opts)
	if user.Bot {
		r.fail("Bots don't earn XP.")
		return
	}
	rank, row, err := b.XP.Rank(ctx, r.interaction.GuildID, user.ID)
	if err != nil {
		b.logger.Warn("rank lookup failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail("Failed to fetch rank.")
		return
	}
	progress := xp.ProgressFor(row.XP)
	r.embed(&discordgo.MessageEmbed{
		Title:     fmt.Sprintf("📊 %s's Rank", user.Username),
		Color:     utils.ColorInfo,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🏆 Rank", Value: fmt.Sprintf("#%d", rank), Inline: true},
			{Name: "⭐ Level", Value: fmt.Sprintf("%d", progress.Level), Inline: true},
			{Name: "✨ Total XP", Value: utils.FormatNumber(row.XP), Inline: true},
			{Name: "💬 Messages", Value: utils.FormatNumber(row.Messages), Inline: true},
			{Name: "📈 Progress", Value: fmt.Sprintf("%s\n%s / %s XP (%d%%)",
				progress.Bar, utils.FormatNumber(progress.Current), utils.FormatNumber(progress.Needed), progress.Percent)},
		},
	}, false)
}

func (b *Bot) cmdLeaderboard(ctx context.Context, r *reply, opts options) {
	tf := xp.ParseTimeframe(opts.str("timeframe"))
	rows, err := b.XP.Leaderboard(ctx, r.interaction.GuildID, tf, leaderboardSize)
	if err != nil {
		b.logger.Warn("leaderboard failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail("Failed to fetch the leaderboard.")
		return
	}
	title := "🏆 XP Leaderboard"
	if tf == xp.TimeframeWeekly {
		title = "🏆 Weekly XP Leaderboard"
	}
	if len(rows) == 0 {
		r.embed(utils.Embed(title, "No one has earned XP yet.", utils.ColorInfo), false)
		return
	}
	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		place := fmt.Sprintf("**%d.**", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		amount := row.XP
		if tf == xp.TimeframeWeekly {
			amount = row.WeeklyXP
		}
		lines = append(lines, fmt.Sprintf("%s <@%s> · Level %d · %s XP", place, row.UserID, xp.Level(row.XP), utils.FormatNumber(amount)))
	}
	r.embed(utils.Embed(title, strings.Join(lines, "\n"), 0xFFD700), false)
}

func standingLine(s achievements.Standing) string {
	current := "None yet"
	if s.Current != nil {
		current = s.Current.Emoji + " " + s.Current.Name
	}
	line := fmt.Sprintf("**%s**\nCurrent: %s", utils.FormatNumber(s.Value), current)
	if s.Next != nil {
		line += fmt.Sprintf("\nNext: %s %s (%s/%s)", s.Next.Emoji, s.Next.Name, utils.FormatNumber(s.Value), utils.FormatNumber(s.Next.Threshold))
	} else {
		line += "\nAll tiers unlocked!"
	}
	return line
}

func (b *Bot) cmdAchievements(ctx context.Context, r *reply, opts options) {
	user := r.target(opts)
	row, standings, err := b.Achievements.Standings(ctx, r.interaction.GuildID, user.ID)
	if err != nil {
		b.logger.Warn("achievement standings failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail("Failed to fetch achievements.")
		return
	}
	fields := make([]*discordgo.MessageEmbedField, 0, len(standings))
	for _, s := range standings {
		fields = append(fields, &discordgo.MessageEmbedField{Name: s.Category.String(), Value: standingLine(s), Inline: true})
	}
	r.embed(&discordgo.MessageEmbed{
		Title:     fmt.Sprintf("🏆 %s's Achievements", user.Username),
		Color:     0xFFD700,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")},
		Fields:    fields,
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d achievements unlocked", len(row.Unlocked()))},
	}, false)
}

func (b *Bot) cmdAchSetup(ctx context.Context, r *reply, opts options) {
	key := opts.str("tier")
	tier, ok := achievements.LookupTier(key)
	if !ok {
		r.fail("Unknown achievement tier.")
		return
	}
	roleID := opts.id("role")
	if err := b.store.SetAchievementRole(ctx, r.interaction.GuildID, key, roleID); err != nil {
		b.logger.Warn("achievement role update failed", zap.String("guild_id", r.interaction.GuildID), zap.String("tier", key), zap.Error(err))
		r.fail("Failed to update the achievement role.")
		return
	}
	if roleID == "" {
		r.embed(utils.SuccessEmbed(fmt.Sprintf("%s **%s** no longer grants a role.", tier.Emoji, tier.Name)), true)
		return
	}
	r.embed(utils.SuccessEmbed(fmt.Sprintf("%s **%s** now grants <@&%s>.", tier.Emoji, tier.Name, roleID)), true)
}

// cmdSetXP is reserved to the bot owner, or the server owner when no bot
// owner is configured.
func (b *Bot) cmdSetXP(ctx context.Context, r *reply, opts options) {
	owner := b.cfg.OwnerID
	if owner == "" {
		if guild, err := r.session.State.Guild(r.interaction.GuildID); err == nil {
			owner = guild.OwnerID
		}
	}
	if r.invoker().ID != owner {
		r.fail("Only the bot owner can use this command.")
		return
	}
	user := opts.user("user")
	if user == nil {
		return
	}
	row, err := b.XP.Set(ctx, r.interaction.GuildID, user.ID, opts.integer("xp", 0))
	if err != nil {
		b.logger.Warn("set xp failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail("Failed to set XP.")
		return
	}
	r.embed(utils.SuccessEmbed(fmt.Sprintf("Set <@%s>'s XP to **%s** (Level %d).", user.ID, utils.FormatNumber(row.XP), xp.Level(row.XP))), true)
}

func (b *Bot) cmdGiveaway(ctx context.Context, r *reply, sub string, opts options) {
	switch sub {
	case "start":
		b.startGiveaway(r, opts)
	case "end":
		messageID := strings.TrimSpace(opts.str("message_id"))
		if _, err := b.Giveaways.End(messageID); err != nil {
			b.giveawayFailed(r, err)
			return
		}
		r.embed(utils.SuccessEmbed("Giveaway ended."), true)
	case "reroll":
		messageID := strings.TrimSpace(opts.str("message_id"))
		winner, err := b.Giveaways.Reroll(messageID)
		if err != nil {
			b.giveawayFailed(r, err)
			return
		}
		r.text(fmt.Sprintf("🎉 The new winner is <@%s>! Congratulations!", winner), false)
	}
}

func (b *Bot) giveawayFailed(r *reply, err error) {
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		r.fail("Giveaway not found.")
	case errors.Is(err, giveaway.ErrEnded):
		r.fail("That giveaway has already ended.")
	case errors.Is(err, giveaway.ErrNoEntries):
		r.fail("No valid entries to pick from.")
	default:
		b.logger.Warn("giveaway failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail(genericFailure)
	}
}

func (b *Bot) startGiveaway(r *reply, opts options) {
	d, err := utils.ParseDuration(opts.str("duration"))
	if err != nil || d < time.Second || d > maxGiveaway {
		r.fail("Invalid duration. Use a format like 1h or 2d (max 30 days).")
		return
	}
	g := giveaway.Giveaway{
		ChannelID: r.interaction.ChannelID,
		GuildID:   r.interaction.GuildID,
		HostID:    r.invoker().ID,
		Prize:     opts.str("prize"),
		Winners:   int(opts.integer("winners", 1)),
		EndsAt:    time.Now().Add(d),
	}
	msg, err := r.session.ChannelMessageSendComplex(g.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{giveaway.StartEmbed(g)},
		Components: giveaway.EnterButton(),
	})
	if err != nil {
		b.logger.Warn("giveaway message failed", zap.String("channel_id", g.ChannelID), zap.Error(err))
		r.fail("Failed to post the giveaway. Check my permissions in this channel.")
		return
	}
	g.MessageID = msg.ID
	if err := b.Giveaways.Start(g, b.finishGiveaway); err != nil {
		b.giveawayFailed(r, err)
		return
	}
	r.embed(utils.SuccessEmbed(fmt.Sprintf("Giveaway started! Ends <t:%d:R>.", g.EndsAt.Unix())), true)
}

// finishGiveaway closes the giveaway message and announces the winners.
func (b *Bot) finishGiveaway(o giveaway.Outcome) {
	g := o.Giveaway
	embeds := []*discordgo.MessageEmbed{giveaway.EndEmbed(o, time.Now())}
	components := []discordgo.MessageComponent{}
	if _, err := b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         g.MessageID,
		Channel:    g.ChannelID,
		Embeds:     embeds,
		Components: components,
	}); err != nil {
		b.logger.Warn("giveaway edit failed", zap.String("message_id", g.MessageID), zap.Error(err))
	}
	if len(o.Winners) == 0 {
		return
	}
	if _, err := b.session.ChannelMessageSend(g.ChannelID, giveaway.Congratulations(o)); err != nil {
		b.logger.Warn("giveaway announcement failed", zap.String("message_id", g.MessageID), zap.Error(err))
	}
}

func (b *Bot) handleGiveawayEntry(r *reply) {
	user := r.interaction.User
	if r.interaction.Member != nil {
		user = r.interaction.Member.User
	}
	added, err := b.Giveaways.Enter(r.interaction.Message.ID, user.ID)
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		r.fail("This giveaway is no longer active.")
	case errors.Is(err, giveaway.ErrEnded):
		r.fail("This giveaway has ended.")
	case err != nil:
		b.giveawayFailed(r, err)
	case !added:
		r.embed(utils.InfoEmbed("You have already entered this giveaway!"), true)
	default:
		r.embed(utils.SuccessEmbed("🎉 You have entered the giveaway! Good luck!"), true)
	}
}

func (b *Bot) cmdUserInfo(ctx context.Context, r *reply, opts options) {
	user := r.target(opts)
	created, _ := discordgo.SnowflakeTimestamp(user.ID)
	yesNo := "No"
	if user.Bot {
		yesNo = "Yes"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "🆔 User ID", Value: user.ID, Inline: true},
		{Name: "📛 Username", Value: user.String(), Inline: true},
		{Name: "🤖 Bot", Value: yesNo, Inline: true},
		{Name: "📅 Account Created", Value: relativeTime(created), Inline: true},
	}
	if member := b.memberForUser(r.interaction.GuildID, user.ID); member != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "📥 Joined Server", Value: relativeTime(member.JoinedAt), Inline: true})
		roles := "None"
		if guild, err := r.session.State.Guild(r.interaction.GuildID); err == nil && len(member.Roles) > 0 {
			roles = utils.Truncate(strings.Join(roleMentions(guild, member.Roles), " "), 1024)
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: fmt.Sprintf("🎭 Roles [%d]", len(member.Roles)), Value: roles})
	}
	r.embed(&discordgo.MessageEmbed{
		Title:     "👤 " + user.String(),
		Color:     utils.ColorInfo,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("256")},
		Fields:    fields,
	}, false)
}

func (b *Bot) cmdStats(ctx context.Context, r *reply) {
	guildName := r.interaction.GuildID
	if guild, err := r.session.State.Guild(r.interaction.GuildID); err == nil {
		guildName = guild.Name
	}
	now := time.Now()
	report, err := b.Analytics.Report(ctx, r.interaction.GuildID, now.Add(-statsWindow), now)
	if err != nil {
		b.logger.Warn("stats report failed", zap.String("guild_id", r.interaction.GuildID), zap.Error(err))
		r.fail("Failed to build statistics.")
		return
	}
	r.embed(report.Embed(guildName), false)
}
