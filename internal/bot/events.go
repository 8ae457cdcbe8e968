package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"oblivion/internal/modules/automod"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/modules/xp"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	defaultWelcome = "Welcome {user} to {server}!"
	logFieldLimit  = 1024

	colorJoin   = 0x00FF00
	colorLeave  = 0xFF6600
	colorDelete  = 0xFF0000
	colorEdit    = 0xFFA500
	colorMessage = 0x5865F2

	messageLogLimit = 2048

	// auditFreshness bounds how old a matching audit entry may be. Older
	// entries belong to an earlier action on the same target.
	auditFreshness = 30 * time.Second
	auditLookback  = 5

	stickerCDN = "https://media.discordapp.net/stickers/"
)

var channelTypeLabels = map[discordgo.ChannelType]string{
	discordgo.ChannelTypeGuildText:       "💬 Text Channel",
	discordgo.ChannelTypeGuildVoice:      "🔊 Voice Channel",
	discordgo.ChannelTypeGuildCategory:   "📁 Category",
	discordgo.ChannelTypeGuildNews:       "📢 Announcement Channel",
	discordgo.ChannelTypeGuildStageVoice: "🎭 Stage Channel",
	discordgo.ChannelTypeGuildForum:      "💭 Forum Channel",
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	ctx := context.Background()

	// AutoMod does not gate counting: flagged messages still earn XP and
	// count toward achievements.
	category, mode, err := b.AutoMod.Check(ctx, automod.Message{
		ID:        msg.ID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Content:   msg.Content,
		Author:    modlog.Actor{ID: msg.Author.ID, Tag: msg.Author.String()},
	})
	if err != nil {
		b.logger.Warn("automod check failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
	deleted := category != automod.CategoryNone && mode.Deletes()

	b.awardMessageXP(ctx, msg)

	var roles []string
	if msg.Member != nil {
		roles = msg.Member.Roles
	}
	if _, err := b.Achievements.MessageSent(ctx, achievementMember(msg.GuildID, msg.Author, roles), msg.ChannelID); err != nil {
		b.logger.Warn("message achievement failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
	}

	if !deleted && session.State.User != nil && mentionsUser(msg.Message, session.State.User.ID) {
		b.replyToMention(msg)
	}

	if channelID := b.logChannel(ctx, msg.GuildID, msg.ChannelID); channelID != "" {
		b.sendLog(msg.GuildID, channelID, messageLoggedEmbed(msg.Message))
	}
}

func (b *Bot) awardMessageXP(ctx context.Context, msg *discordgo.MessageCreate) {
	result, err := b.XP.AwardMessage(ctx, msg.GuildID, msg.Author.ID)
	if err != nil {
		b.logger.Warn("xp award failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
		return
	}
	if !result.LeveledUp || !b.guildSettings(ctx, msg.GuildID).LevelUpMessages {
		return
	}
	embed := xp.LevelUpEmbed(msg.Author.ID, result.NewLevel, result.Record.XP, time.Now())
	if _, err := b.session.ChannelMessageSendEmbed(msg.ChannelID, embed); err != nil {
		b.logger.Debug("level up message failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func mentionsUser(msg *discordgo.Message, userID string) bool {
	for _, user := range msg.Mentions {
		if user.ID == userID {
			return true
		}
	}
	return false
}

func (b *Bot) onReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	if event.GuildID == "" || event.Member == nil || event.Member.User == nil {
		return
	}
	ctx := context.Background()
	reactor := achievementMember(event.GuildID, event.Member.User, event.Member.Roles)

	msg, err := session.State.Message(event.ChannelID, event.MessageID)
	if err != nil {
		msg, err = session.ChannelMessage(event.ChannelID, event.MessageID)
	}
	if err != nil || msg.Author == nil {
		if _, err := b.Achievements.ReactionAdded(ctx, reactor, nil); err != nil {
			b.logger.Warn("reaction achievement failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		}
		return
	}

	var authorRoles []string
	if member := b.memberForUser(event.GuildID, msg.Author.ID); member != nil {
		authorRoles = member.Roles
	}
	author := achievementMember(event.GuildID, msg.Author, authorRoles)
	if _, err := b.Achievements.ReactionAdded(ctx, reactor, author); err != nil {
		b.logger.Warn("reaction achievement failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

// onVoiceStateUpdate tracks joins and leaves. Moving between channels keeps
// the first join time.
func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.GuildID == "" || (event.Member != nil && event.Member.User != nil && event.Member.User.Bot) {
		return
	}
	ctx := context.Background()
	wasIn := event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID != ""
	isIn := event.ChannelID != ""

	switch {
	case !wasIn && isIn:
		if err := b.Achievements.VoiceJoin(ctx, event.GuildID, event.UserID); err != nil {
			b.logger.Warn("voice join failed", zap.String("guild_id", event.GuildID), zap.String("user_id", event.UserID), zap.Error(err))
		}
	case wasIn && !isIn:
		var roles []string
		if event.Member != nil {
			roles = event.Member.Roles
		}
		member := achievementMember(event.GuildID, &discordgo.User{ID: event.UserID}, roles)
		if _, _, err := b.Achievements.VoiceLeave(ctx, member); err != nil {
			b.logger.Warn("voice leave failed", zap.String("guild_id", event.GuildID), zap.String("user_id", event.UserID), zap.Error(err))
		}
	}
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.User == nil {
		return
	}
	ctx := context.Background()
	count := 0
	serverName := event.GuildID
	if guild, err := session.State.Guild(event.GuildID); err == nil {
		count = guild.MemberCount
		serverName = guild.Name
	}

	if !event.User.Bot {
		if _, err := b.Achievements.RestoreOnRejoin(ctx, achievementMember(event.GuildID, event.User, event.Roles)); err != nil {
			b.logger.Warn("restore achievement roles failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		}
	}

	welcome, err := b.store.GetWelcomeSettings(ctx, event.GuildID)
	if err != nil {
		b.logger.Warn("welcome settings failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	} else if welcome.IsEnabled() {
		embed := welcomeEmbed(event.User, renderWelcome(welcome.Message, event.User.ID, serverName, count))
		if _, err := session.ChannelMessageSendEmbed(welcome.Channel, embed); err != nil {
			b.logger.Debug("welcome message failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		}
	}

	b.eventLog(ctx, event.GuildID, memberJoinedEmbed(event.User, count))
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.User == nil {
		return
	}
	count := 0
	if guild, err := session.State.Guild(event.GuildID); err == nil {
		count = guild.MemberCount
	}
	b.eventLog(context.Background(), event.GuildID, memberLeftEmbed(event.Member, count))
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	before := event.BeforeDelete
	if event.GuildID == "" || before == nil || before.Author == nil || before.Author.Bot {
		return
	}
	b.eventLog(context.Background(), event.GuildID, messageDeletedEmbed(before))
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, event *discordgo.MessageUpdate) {
	before := event.BeforeUpdate
	if event.GuildID == "" || before == nil || before.Author == nil || before.Author.Bot {
		return
	}
	if before.Content == event.Content {
		return
	}
	b.eventLog(context.Background(), event.GuildID, messageEditedEmbed(before, event.Message))
}

func (b *Bot) onChannelCreate(session *discordgo.Session, event *discordgo.ChannelCreate) {
	if event.Channel == nil || event.Channel.GuildID == "" {
		return
	}
	channel := event.Channel
	b.auditedLog(channel.GuildID, discordgo.AuditLogActionChannelCreate, channel.ID, func(executor *discordgo.User) *discordgo.MessageEmbed {
		return channelCreatedEmbed(channel, executor)
	})
}

func (b *Bot) onChannelDelete(session *discordgo.Session, event *discordgo.ChannelDelete) {
	if event.Channel == nil || event.Channel.GuildID == "" {
		return
	}
	channel := event.Channel
	b.auditedLog(channel.GuildID, discordgo.AuditLogActionChannelDelete, channel.ID, func(executor *discordgo.User) *discordgo.MessageEmbed {
		return channelDeletedEmbed(channel, executor)
	})
}

func (b *Bot) onRoleCreate(session *discordgo.Session, event *discordgo.GuildRoleCreate) {
	if event.GuildRole == nil || event.Role == nil || event.GuildID == "" {
		return
	}
	role := event.Role
	b.assets.putRole(event.GuildID, role)
	b.auditedLog(event.GuildID, discordgo.AuditLogActionRoleCreate, role.ID, func(executor *discordgo.User) *discordgo.MessageEmbed {
		return roleCreatedEmbed(role, executor)
	})
}

func (b *Bot) onRoleUpdate(session *discordgo.Session, event *discordgo.GuildRoleUpdate) {
	if event.GuildRole == nil || event.Role == nil {
		return
	}
	b.assets.putRole(event.GuildID, event.Role)
}

func (b *Bot) onRoleDelete(session *discordgo.Session, event *discordgo.GuildRoleDelete) {
	if event.GuildID == "" || event.RoleID == "" {
		return
	}
	info, known := b.assets.dropRole(event.GuildID, event.RoleID)
	roleID := event.RoleID
	b.auditedLog(event.GuildID, discordgo.AuditLogActionRoleDelete, roleID, func(executor *discordgo.User) *discordgo.MessageEmbed {
		return roleDeletedEmbed(roleID, info, known, executor)
	})
}

func (b *Bot) onEmojisUpdate(session *discordgo.Session, event *discordgo.GuildEmojisUpdate) {
	if event.GuildID == "" {
		return
	}
	added, removed := b.assets.swapEmojis(event.GuildID, event.Emojis)
	for _, emoji := range added {
		b.auditedLog(event.GuildID, discordgo.AuditLogActionEmojiCreate, emoji.ID, func(executor *discordgo.User) *discordgo.MessageEmbed {
			return emojiCreatedEmbed(emoji, executor)
		})
	}
	for _, emoji := range removed {
		b.auditedLog(event.GuildID, discordgo.AuditLogActionEmojiDelete, emoji.ID, func(executor *discordgo.User) *discordgo.MessageEmbed {
			return emojiDeletedEmbed(emoji, executor)
		})
	}
}

type stickersUpdate struct {
	GuildID  string               `json:"guild_id"`
	Stickers []*discordgo.Sticker `json:"stickers"`
}

// onRawEvent picks up sticker updates, which have no typed event.
func (b *Bot) onRawEvent(session *discordgo.Session, event *discordgo.Event) {
	if event.Type != "GUILD_STICKERS_UPDATE" {
		return
	}
	var update stickersUpdate
	if err := json.Unmarshal(event.RawData, &update); err != nil {
		b.logger.Warn("sticker update decode failed", zap.Error(err))
		return
	}
	if update.GuildID == "" {
		return
	}
	added, _ := b.assets.swapStickers(update.GuildID, update.Stickers)
	for _, sticker := range added {
		b.auditedLog(update.GuildID, discordgo.AuditLogActionStickerCreate, sticker.ID, func(executor *discordgo.User) *discordgo.MessageEmbed {
			return stickerCreatedEmbed(sticker, executor)
		})
	}
}

// auditedLog looks up who performed action on targetID and posts the embed
// built for them. Nothing is fetched when the guild has no log channel.
func (b *Bot) auditedLog(guildID string, action discordgo.AuditLogAction, targetID string, build func(executor *discordgo.User) *discordgo.MessageEmbed) {
	channelID := b.logChannel(context.Background(), guildID, "")
	if channelID == "" {
		return
	}
	b.sendLog(guildID, channelID, build(b.resolveAuditActor(guildID, action, targetID)))
}

// resolveAuditActor returns the user behind the latest action on targetID,
// or nil when the audit log is unreadable or has no fresh match.
func (b *Bot) resolveAuditActor(guildID string, action discordgo.AuditLogAction, targetID string) *discordgo.User {
	logs, err := b.session.GuildAuditLog(guildID, "", "", int(action), auditLookback)
	if err != nil {
		b.logger.Debug("audit log lookup failed", zap.String("guild_id", guildID), zap.Int("action", int(action)), zap.Error(err))
		return nil
	}
	return auditExecutor(logs, targetID, time.Now())
}

func auditExecutor(logs *discordgo.GuildAuditLog, targetID string, now time.Time) *discordgo.User {
	if logs == nil {
		return nil
	}
	for _, entry := range logs.AuditLogEntries {
		if entry == nil || entry.UserID == "" {
			continue
		}
		if targetID != "" && entry.TargetID != targetID {
			continue
		}
		if ts, err := discordgo.SnowflakeTimestamp(entry.ID); err == nil && now.Sub(ts) > auditFreshness {
			continue
		}
		for _, user := range logs.Users {
			if user != nil && user.ID == entry.UserID {
				return user
			}
		}
		return &discordgo.User{ID: entry.UserID}
	}
	return nil
}

// logChannel returns the guild's event log channel. It is empty when none is
// set or when sourceChannelID is the log channel itself.
func (b *Bot) logChannel(ctx context.Context, guildID, sourceChannelID string) string {
	channelID := b.guildSettings(ctx, guildID).EventLogChannel
	if channelID == sourceChannelID {
		return ""
	}
	return channelID
}

// eventLog posts embed to the guild's event log channel, if one is set.
func (b *Bot) eventLog(ctx context.Context, guildID string, embed *discordgo.MessageEmbed) {
	if channelID := b.logChannel(ctx, guildID, ""); channelID != "" {
		b.sendLog(guildID, channelID, embed)
	}
}

func (b *Bot) sendLog(guildID, channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Debug("event log failed", zap.String("guild_id", guildID), zap.String("channel_id", channelID), zap.Error(err))
	}
}

func renderWelcome(template, userID, server string, memberCount int) string {
	if strings.TrimSpace(template) == "" {
		template = defaultWelcome
	}
	return strings.NewReplacer(
		"{user}", "<@"+userID+">",
		"{server}", server,
		"{memberCount}", strconv.Itoa(memberCount),
	).Replace(template)
}

func welcomeEmbed(user *discordgo.User, text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "👋 Welcome!",
		Description: text,
		Color:       colorJoin,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func userField(user *discordgo.User) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: "👤 User", Value: fmt.Sprintf("%s (%s)", user.String(), user.ID), Inline: true}
}

func memberJoinedEmbed(user *discordgo.User, count int) *discordgo.MessageEmbed {
	created, _ := discordgo.SnowflakeTimestamp(user.ID)
	return &discordgo.MessageEmbed{
		Title:     "📥 Member Joined",
		Color:     colorJoin,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			userField(user),
			{Name: "📅 Account Created", Value: relativeTime(created), Inline: true},
			{Name: "👥 Member Count", Value: utils.FormatNumber(int64(count)), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func memberLeftEmbed(member *discordgo.Member, count int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     "📤 Member Left",
		Color:     colorLeave,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: member.User.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			userField(member.User),
			{Name: "📅 Joined Server", Value: relativeTime(member.JoinedAt), Inline: true},
			{Name: "👥 Member Count", Value: utils.FormatNumber(int64(count)), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func contentField(name, content string) *discordgo.MessageEmbedField {
	if content == "" {
		content = "*No text content*"
	}
	return &discordgo.MessageEmbedField{Name: name, Value: utils.Truncate(content, logFieldLimit)}
}

func messageDeletedEmbed(msg *discordgo.Message) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🗑️ Message Deleted",
		Color: colorDelete,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 Author", Value: fmt.Sprintf("%s (%s)", msg.Author.String(), msg.Author.ID), Inline: true},
			{Name: "📍 Channel", Value: "<#" + msg.ChannelID + ">", Inline: true},
			contentField("📝 Content", msg.Content),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func messageEditedEmbed(before, after *discordgo.Message) *discordgo.MessageEmbed {
	jump := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", after.GuildID, after.ChannelID, after.ID)
	return &discordgo.MessageEmbed{
		Title: "✏️ Message Edited",
		Color: colorEdit,
		Fields: []*discordgo.MessageEmbedField{
			userField(before.Author),
			{Name: "📍 Channel", Value: "<#" + after.ChannelID + ">", Inline: true},
			{Name: "🔗 Jump", Value: "[Go to message](" + jump + ")", Inline: true},
			contentField("📝 Before", before.Content),
			contentField("📝 After", after.Content),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func messageLoggedEmbed(msg *discordgo.Message) *discordgo.MessageEmbed {
	content := msg.Content
	if content == "" {
		content = "*No text content*"
	}
	jump := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", msg.GuildID, msg.ChannelID, msg.ID)
	embed := &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: msg.Author.String(), IconURL: msg.Author.AvatarURL("")},
		Description: utils.Truncate(content, messageLogLimit),
		Color:       colorMessage,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: fmt.Sprintf("<@%s> (%s)", msg.Author.ID, msg.Author.ID), Inline: true},
			{Name: "📍 Channel", Value: "<#" + msg.ChannelID + ">", Inline: true},
			{Name: "🔗 Jump", Value: "[Go to Message](" + jump + ")", Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Message ID: " + msg.ID},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(msg.Attachments) > 0 {
		links := make([]string, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			links = append(links, fmt.Sprintf("[%s](%s)", a.Filename, a.URL))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "📎 Attachments", Value: utils.Truncate(strings.Join(links, "\n"), logFieldLimit)})
	}
	if len(msg.StickerItems) > 0 {
		names := make([]string, 0, len(msg.StickerItems))
		for _, s := range msg.StickerItems {
			names = append(names, s.Name)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🎨 Stickers", Value: strings.Join(names, ", ")})
	}
	return embed
}

func executorField(label string, user *discordgo.User) *discordgo.MessageEmbedField {
	name := user.String()
	if user.Username == "" {
		name = "<@" + user.ID + ">"
	}
	return &discordgo.MessageEmbedField{Name: label, Value: fmt.Sprintf("%s (%s)", name, user.ID)}
}

// withExecutor appends the "by" field when the audit log named someone.
func withExecutor(embed *discordgo.MessageEmbed, label string, executor *discordgo.User) *discordgo.MessageEmbed {
	if executor != nil {
		embed.Fields = append(embed.Fields, executorField(label, executor))
	}
	return embed
}

func channelTypeLabel(t discordgo.ChannelType) string {
	if label, ok := channelTypeLabels[t]; ok {
		return label
	}
	return "Unknown"
}

func channelCreatedEmbed(channel *discordgo.Channel, executor *discordgo.User) *discordgo.MessageEmbed {
	return withExecutor(&discordgo.MessageEmbed{
		Title: "➕ Channel Created",
		Color: colorJoin,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📍 Channel", Value: fmt.Sprintf("<#%s> (%s)", channel.ID, channel.Name), Inline: true},
			{Name: "🆔 ID", Value: channel.ID, Inline: true},
			{Name: "📝 Type", Value: channelTypeLabel(channel.Type), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "👤 Created By", executor)
}

func channelDeletedEmbed(channel *discordgo.Channel, executor *discordgo.User) *discordgo.MessageEmbed {
	return withExecutor(&discordgo.MessageEmbed{
		Title: "➖ Channel Deleted",
		Color: colorDelete,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📍 Channel Name", Value: channel.Name, Inline: true},
			{Name: "🆔 ID", Value: channel.ID, Inline: true},
			{Name: "📝 Type", Value: channelTypeLabel(channel.Type), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "👤 Deleted By", executor)
}

func hexColor(color int) string {
	return fmt.Sprintf("#%06x", color)
}

func roleCreatedEmbed(role *discordgo.Role, executor *discordgo.User) *discordgo.MessageEmbed {
	color := role.Color
	if color == 0 {
		color = colorJoin
	}
	return withExecutor(&discordgo.MessageEmbed{
		Title: "🎨 Role Created",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📝 Role", Value: fmt.Sprintf("<@&%s> (%s)", role.ID, role.Name), Inline: true},
			{Name: "🆔 ID", Value: role.ID, Inline: true},
			{Name: "🎨 Color", Value: hexColor(role.Color), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "👤 Created By", executor)
}

// roleDeletedEmbed describes a deleted role. known is false when the role was
// never seen, in which case only its ID is shown.
func roleDeletedEmbed(roleID string, info roleInfo, known bool, executor *discordgo.User) *discordgo.MessageEmbed {
	name, color := "Unknown", "Unknown"
	if known {
		name, color = info.Name, hexColor(info.Color)
	}
	return withExecutor(&discordgo.MessageEmbed{
		Title: "🗑️ Role Deleted",
		Color: colorDelete,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📝 Role Name", Value: name, Inline: true},
			{Name: "🆔 ID", Value: roleID, Inline: true},
			{Name: "🎨 Color", Value: color, Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "👤 Deleted By", executor)
}

func emojiURL(emoji *discordgo.Emoji) string {
	if emoji.Animated {
		return discordgo.EndpointEmojiAnimated(emoji.ID)
	}
	return discordgo.EndpointEmoji(emoji.ID)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func emojiCreatedEmbed(emoji *discordgo.Emoji, executor *discordgo.User) *discordgo.MessageEmbed {
	url := emojiURL(emoji)
	return withExecutor(&discordgo.MessageEmbed{
		Title:     "😀 Emoji Created",
		Color:     colorJoin,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: url},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📝 Name", Value: emoji.Name, Inline: true},
			{Name: "🆔 ID", Value: emoji.ID, Inline: true},
			{Name: "🔗 URL", Value: "[Image Link](" + url + ")", Inline: true},
			{Name: "📊 Animated", Value: yesNo(emoji.Animated), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "👤 Created By", executor)
}

func emojiDeletedEmbed(emoji *discordgo.Emoji, executor *discordgo.User) *discordgo.MessageEmbed {
	return withExecutor(&discordgo.MessageEmbed{
		Title:     "🗑️ Emoji Deleted",
		Color:     colorDelete,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: emojiURL(emoji)},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📝 Name", Value: emoji.Name, Inline: true},
			{Name: "🆔 ID", Value: emoji.ID, Inline: true},
			{Name: "📊 Animated", Value: yesNo(emoji.Animated), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "👤 Deleted By", executor)
}

func stickerCreatedEmbed(sticker *discordgo.Sticker, executor *discordgo.User) *discordgo.MessageEmbed {
	description := sticker.Description
	if description == "" {
		description = "No description"
	}
	tags := sticker.Tags
	if tags == "" {
		tags = "None"
	}
	return withExecutor(&discordgo.MessageEmbed{
		Title:     "🎨 Sticker Created",
		Color:     colorJoin,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: stickerCDN + sticker.ID + ".png"},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📝 Name", Value: sticker.Name, Inline: true},
			{Name: "🆔 ID", Value: sticker.ID, Inline: true},
			{Name: "📄 Description", Value: description},
			{Name: "🏷️ Tags", Value: tags, Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "👤 Created By", executor)
}
