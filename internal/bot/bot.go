package bot

import (
	"context"
	"sort"

	"oblivion/internal/analytics"
	"oblivion/internal/config"
	"oblivion/internal/dashboard"
	"oblivion/internal/modules/achievements"
	"oblivion/internal/modules/automod"
	"oblivion/internal/modules/giveaway"
	"oblivion/internal/modules/moderation"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/modules/mutes"
	"oblivion/internal/modules/warnings"
	"oblivion/internal/modules/xp"
	"oblivion/internal/storage"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// messageCacheSize keeps recent messages in state so delete and edit events
// can show the previous content.
const messageCacheSize = 200

// Services are the domain modules behind the bot. The dashboard and the
// background loops in main share them.
type Services struct {
	Cases        *modlog.Ledger
	Warnings     *warnings.Store
	Mutes        *mutes.Registry
	XP           *xp.Ledger
	Achievements *achievements.Tracker
	AutoMod      *automod.Filter
	Moderation   *moderation.Service
	Giveaways    *giveaway.Registry
	Analytics    *analytics.Service
}

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *storage.Store
	session  *discordgo.Session
	platform *platform
	mentions *utils.Cooldown
	assets   *guildAssets
	Services
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildEmojis
	session.State.MaxMessageCount = messageCacheSize

	p := &platform{session: session, logger: logger}

	cases := modlog.NewLedger(store, logger)
	cases.SetSender(p)
	warningStore := warnings.New(store, logger)
	muteRegistry := mutes.New(store, logger)
	muteRegistry.SetPresence(p)

	filter := automod.New(automod.Config{
		SpamLimit:       cfg.AutoMod.SpamMessages,
		SpamWindow:      cfg.AutoMod.SpamWindow(),
		IdleAfter:       cfg.AutoMod.IdleAfter(),
		NoticeTTL:       cfg.AutoMod.NoticeTTL(),
		CleanupInterval: cfg.AutoMod.Cleanup(),
	}, store, warningStore, cases, logger)
	// The bot's own identity is filled in once the gateway session is up.
	filter.SetPlatform(p, modlog.Actor{})

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		session:  session,
		platform: p,
		mentions: utils.NewCooldown(cfg.Mentions.Cooldown()),
		assets:   newGuildAssets(),
		Services: Services{
			Cases:    cases,
			Warnings: warningStore,
			Mutes:    muteRegistry,
			XP: xp.New(store, logger, xp.Config{
				MinGain:  cfg.XP.MinGain,
				MaxGain:  cfg.XP.MaxGain,
				Cooldown: cfg.XP.Cooldown(),
			}),
			Achievements: achievements.New(store, logger, p),
			AutoMod:      filter,
			Moderation:   moderation.NewService(cases, warningStore, muteRegistry, p, logger),
			Giveaways:    giveaway.New(logger),
			Analytics:    analytics.New(store),
		},
	}
	return b, nil
}

// Directory exposes the guild cache to the dashboard.
func (b *Bot) Directory() dashboard.Directory {
	return b.platform
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onChannelCreate)
	b.session.AddHandler(b.onChannelDelete)
	b.session.AddHandler(b.onRoleCreate)
	b.session.AddHandler(b.onRoleUpdate)
	b.session.AddHandler(b.onRoleDelete)
	b.session.AddHandler(b.onEmojisUpdate)
	b.session.AddHandler(b.onRawEvent)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	// Open has processed READY by now; handlers may still be queued behind it.
	b.setIdentity(b.session.State.User)
	return b.registerCommands()
}

// Close stops pending giveaways and disconnects. Giveaways still running are
// lost: they live in memory only. The gateway close is abandoned when ctx
// ends first.
func (b *Bot) Close(ctx context.Context) {
	b.Giveaways.Close()
	b.AutoMod.Close()
	b.XP.Close()
	b.mentions.Close()
	if b.session == nil {
		return
	}
	done := make(chan error, 1)
	go func() { done <- b.session.Close() }()
	select {
	case err := <-done:
		if err != nil {
			b.logger.Warn("discord close failed", zap.Error(err))
		}
	case <-ctx.Done():
		b.logger.Warn("discord close abandoned", zap.Error(ctx.Err()))
	}
}

// setIdentity records the bot user as the moderator behind AutoMod actions.
func (b *Bot) setIdentity(user *discordgo.User) {
	if user == nil {
		return
	}
	b.AutoMod.SetPlatform(b.platform, modlog.Actor{ID: user.ID, Tag: user.String()})
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.setIdentity(event.User)
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	b.assets.seed(event.Guild)
	if err := b.store.EnsureGuildSettings(context.Background(), event.ID); err != nil {
		b.logger.Warn("ensure guild settings failed", zap.String("guild_id", event.ID), zap.Error(err))
	}
}

func (b *Bot) onGuildDelete(session *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil || event.Unavailable {
		return
	}
	b.assets.forget(event.ID)
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	settings, err := b.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return storage.DefaultGuildSettings(guildID)
	}
	return settings
}

func (b *Bot) memberForUser(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

// memberPermissions ORs the @everyone role with every role the member holds.
func memberPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
	}
	var perms int64
	if everyone := roleMap[guild.ID]; everyone != nil {
		perms |= everyone.Permissions
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms
}

func moderationGuild(guild *discordgo.Guild) moderation.Guild {
	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}
	return moderation.Guild{ID: guild.ID, Name: guild.Name, OwnerID: guild.OwnerID, RolePositions: positions}
}

// moderationMember describes user in guild. Present is false when the user
// is not (or no longer) a member.
func (b *Bot) moderationMember(guild *discordgo.Guild, user *discordgo.User) moderation.Member {
	m := moderation.Member{UserID: user.ID, Tag: user.String(), Bot: user.Bot}
	member := b.memberForUser(guild.ID, user.ID)
	if member == nil {
		return m
	}
	m.Present = true
	m.Roles = member.Roles
	m.Permissions = memberPermissions(guild, member)
	m.TimedOutUntil = member.CommunicationDisabledUntil
	return m
}

func achievementMember(guildID string, user *discordgo.User, roles []string) *achievements.Member {
	return &achievements.Member{GuildID: guildID, UserID: user.ID, Bot: user.Bot, Roles: append([]string(nil), roles...)}
}

func roleMentions(guild *discordgo.Guild, roleIDs []string) []string {
	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}
	ids := append([]string(nil), roleIDs...)
	sort.SliceStable(ids, func(i, j int) bool { return positions[ids[i]] > positions[ids[j]] })
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, "<@&"+id+">")
	}
	return mentions
}
