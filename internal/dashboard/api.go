package dashboard

import (
	"net/http"
	"time"

	"oblivion/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const casePageSize = 50

type settingsView struct {
	ModLogChannel       string   `json:"modLogChannel"`
	EventLogChannel     string   `json:"eventLogChannel"`
	AntiSpam            bool     `json:"antiSpam"`
	AntiSpamAction      string   `json:"antiSpamAction"`
	AntiInvite          bool     `json:"antiInvite"`
	AntiInviteAction    string   `json:"antiInviteAction"`
	AntiLink            bool     `json:"antiLink"`
	AntiLinkAction      string   `json:"antiLinkAction"`
	BannedWords         []string `json:"bannedWords"`
	BannedWordsAction   string   `json:"bannedWordsAction"`
	LevelUpMessages     bool     `json:"levelUpMessages"`
	AchievementMessages bool     `json:"achievementMessages"`
}

func viewOf(g storage.GuildSettings) settingsView {
	words := g.BannedWords
	if words == nil {
		words = []string{}
	}
	return settingsView{
		ModLogChannel:       g.ModLogChannel,
		EventLogChannel:     g.EventLogChannel,
		AntiSpam:            g.AntiSpam,
		AntiSpamAction:      string(g.AntiSpamAction),
		AntiInvite:          g.AntiInvite,
		AntiInviteAction:    string(g.AntiInviteAction),
		AntiLink:            g.AntiLink,
		AntiLinkAction:      string(g.AntiLinkAction),
		BannedWords:         words,
		BannedWordsAction:   string(g.BannedWordsAction),
		LevelUpMessages:     g.LevelUpMessages,
		AchievementMessages: g.AchievementMessages,
	}
}

// settingsUpdate is a partial update: absent fields keep their value.
type settingsUpdate struct {
	ModLogChannel       *string  `json:"modLogChannel"`
	EventLogChannel     *string  `json:"eventLogChannel"`
	AntiSpam            *bool    `json:"antiSpam"`
	AntiSpamAction      *string  `json:"antiSpamAction"`
	AntiInvite          *bool    `json:"antiInvite"`
	AntiInviteAction    *string  `json:"antiInviteAction"`
	AntiLink            *bool    `json:"antiLink"`
	AntiLinkAction      *string  `json:"antiLinkAction"`
	BannedWords         []string `json:"bannedWords"`
	BannedWordsAction   *string  `json:"bannedWordsAction"`
	LevelUpMessages     *bool    `json:"levelUpMessages"`
	AchievementMessages *bool    `json:"achievementMessages"`
}

func (u settingsUpdate) apply(g *storage.GuildSettings) error {
	setString(&g.ModLogChannel, u.ModLogChannel)
	setString(&g.EventLogChannel, u.EventLogChannel)
	setBool(&g.AntiSpam, u.AntiSpam)
	setBool(&g.AntiInvite, u.AntiInvite)
	setBool(&g.AntiLink, u.AntiLink)
	setBool(&g.LevelUpMessages, u.LevelUpMessages)
	setBool(&g.AchievementMessages, u.AchievementMessages)
	if u.BannedWords != nil {
		g.BannedWords = u.BannedWords
	}
	for _, action := range []struct {
		dst   *storage.ActionMode
		value *string
	}{
		{&g.AntiSpamAction, u.AntiSpamAction},
		{&g.AntiInviteAction, u.AntiInviteAction},
		{&g.AntiLinkAction, u.AntiLinkAction},
		{&g.BannedWordsAction, u.BannedWordsAction},
	} {
		if action.value == nil {
			continue
		}
		mode, err := storage.ParseActionMode(*action.value)
		if err != nil {
			return err
		}
		*action.dst = mode
	}
	return nil
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

func (s *Server) handleMe(c *gin.Context) {
	session := c.MustGet("session").(*Session)
	guilds := make([]GuildAccess, 0, len(session.Guilds))
	for _, g := range session.Guilds {
		if g.CanManage() {
			guilds = append(guilds, g)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": session.UserID, "username": session.Username, "guilds": guilds})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := s.store.GetGuildSettings(c.Request.Context(), c.Param("guild"))
	if err != nil {
		s.fail(c, "Failed to load settings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": viewOf(settings)})
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var update settingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	ctx := c.Request.Context()
	guildID := c.Param("guild")
	settings, err := s.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		s.fail(c, "Failed to load settings", err)
		return
	}
	if err := update.apply(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := s.store.UpsertGuildSettings(ctx, settings); err != nil {
		s.fail(c, "Failed to update settings", err)
		return
	}
	session := c.MustGet("session").(*Session)
	s.logger.Info("dashboard settings updated", zap.String("guild_id", guildID), zap.String("user_id", session.UserID))

	saved, err := s.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		s.fail(c, "Failed to load settings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": viewOf(saved)})
}

func (s *Server) handleStats(c *gin.Context) {
	guildID := c.Param("guild")
	now := s.clock.Now()
	report, err := s.analytics.Report(c.Request.Context(), guildID, now.Add(-7*24*time.Hour), now)
	if err != nil {
		s.fail(c, "Failed to fetch stats", err)
		return
	}
	body := gin.H{"success": true, "stats": report}
	if members, ok := s.directory.MemberCount(guildID); ok {
		body["memberCount"] = members
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleCases(c *gin.Context) {
	cases, err := s.cases.List(c.Request.Context(), c.Param("guild"), casePageSize)
	if err != nil {
		s.fail(c, "Failed to fetch cases", err)
		return
	}
	if cases == nil {
		cases = []storage.ModCase{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cases": cases})
}

func (s *Server) handleChannels(c *gin.Context) {
	channels, err := s.directory.Channels(c.Param("guild"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Guild not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "channels": channels})
}

func (s *Server) handleRoles(c *gin.Context) {
	roles, err := s.directory.Roles(c.Param("guild"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Guild not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "roles": roles})
}

func (s *Server) fail(c *gin.Context, message string, err error) {
	s.logger.Error("dashboard request failed", zap.String("reason", message), zap.String("guild_id", c.Param("guild")), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": message})
}
