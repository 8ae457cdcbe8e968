package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"oblivion/internal/dashboard"
	"oblivion/internal/modules/modlog"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// platform adapts the discordgo session to the small interfaces the modules
// depend on. discordgo calls are not context aware, so ctx is unused.
type platform struct {
	session *discordgo.Session
	logger  *zap.Logger
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func (p *platform) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := p.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func (p *platform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return p.session.ChannelMessageDelete(channelID, messageID)
}

func (p *platform) SendMessage(_ context.Context, channelID, content string) (string, error) {
	msg, err := p.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (p *platform) AddRole(_ context.Context, guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (p *platform) RemoveRole(_ context.Context, guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

// Announce posts to channelID, or to the guild's system channel (falling back
// to the first text channel) when channelID is empty.
func (p *platform) Announce(ctx context.Context, guildID, channelID string, embed *discordgo.MessageEmbed) error {
	if channelID == "" {
		channelID = p.announceChannel(guildID)
	}
	if channelID == "" {
		return fmt.Errorf("guild %s has no text channel", guildID)
	}
	return p.SendEmbed(ctx, channelID, embed)
}

func (p *platform) announceChannel(guildID string) string {
	guild, err := p.session.State.Guild(guildID)
	if err != nil {
		return ""
	}
	if guild.SystemChannelID != "" {
		return guild.SystemChannelID
	}
	channels := textChannels(guild.Channels)
	if len(channels) == 0 {
		return ""
	}
	return channels[0].ID
}

func textChannels(channels []*discordgo.Channel) []*discordgo.Channel {
	text := make([]*discordgo.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText {
			text = append(text, ch)
		}
	}
	sort.SliceStable(text, func(i, j int) bool { return text[i].Position < text[j].Position })
	return text
}

func (p *platform) IsMember(_ context.Context, guildID, userID string) (bool, error) {
	if _, err := p.session.State.Member(guildID, userID); err == nil {
		return true, nil
	}
	if _, err := p.session.GuildMember(guildID, userID); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *platform) Ban(_ context.Context, guildID, userID, reason string, deleteDays int) error {
	return p.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays)
}

func (p *platform) Unban(_ context.Context, guildID, userID, _ string) error {
	return p.session.GuildBanDelete(guildID, userID)
}

func (p *platform) BannedUser(_ context.Context, guildID, userID string) (modlog.Actor, bool, error) {
	ban, err := p.session.GuildBan(guildID, userID)
	if err != nil {
		if isNotFound(err) {
			return modlog.Actor{}, false, nil
		}
		return modlog.Actor{}, false, err
	}
	if ban.User == nil {
		return modlog.Actor{ID: userID, Tag: userID}, true, nil
	}
	return modlog.Actor{ID: ban.User.ID, Tag: ban.User.String()}, true, nil
}

func (p *platform) Kick(_ context.Context, guildID, userID, reason string) error {
	return p.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (p *platform) Timeout(_ context.Context, guildID, userID string, until *time.Time, _ string) error {
	return p.session.GuildMemberTimeout(guildID, userID, until)
}

func (p *platform) DirectMessage(_ context.Context, userID string, embed *discordgo.MessageEmbed) error {
	channel, err := p.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = p.session.ChannelMessageSendEmbed(channel.ID, embed)
	return err
}

// PurgeMessages deletes up to limit of the channel's latest 100 messages that
// are newer than after, optionally only those written by authorID.
func (p *platform) PurgeMessages(_ context.Context, channelID string, limit int, authorID string, after time.Time) (int, error) {
	messages, err := p.session.ChannelMessages(channelID, 100, "", "", "")
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, limit)
	for _, msg := range messages {
		if len(ids) == limit {
			break
		}
		if authorID != "" && (msg.Author == nil || msg.Author.ID != authorID) {
			continue
		}
		if !msg.Timestamp.After(after) {
			continue
		}
		ids = append(ids, msg.ID)
	}
	switch len(ids) {
	case 0:
		return 0, nil
	case 1:
		return 1, p.session.ChannelMessageDelete(channelID, ids[0])
	default:
		return len(ids), p.session.ChannelMessagesBulkDelete(channelID, ids)
	}
}

// Directory methods serve the dashboard from the state cache.

func (p *platform) Channels(guildID string) ([]dashboard.Channel, error) {
	guild, err := p.session.State.Guild(guildID)
	if err != nil {
		return nil, err
	}
	var channels []dashboard.Channel
	for _, ch := range textChannels(guild.Channels) {
		channels = append(channels, dashboard.Channel{ID: ch.ID, Name: ch.Name})
	}
	return channels, nil
}

func (p *platform) Roles(guildID string) ([]dashboard.Role, error) {
	guild, err := p.session.State.Guild(guildID)
	if err != nil {
		return nil, err
	}
	var roles []dashboard.Role
	for _, role := range guild.Roles {
		if role.ID == guild.ID {
			continue
		}
		roles = append(roles, dashboard.Role{ID: role.ID, Name: role.Name})
	}
	return roles, nil
}

func (p *platform) MemberCount(guildID string) (int, bool) {
	guild, err := p.session.State.Guild(guildID)
	if err != nil {
		return 0, false
	}
	return guild.MemberCount, true
}
