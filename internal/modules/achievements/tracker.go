package achievements

import (
	"context"
	"fmt"
	"time"

	"oblivion/internal/clock"
	"oblivion/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Member is a guild member as seen when the event arrived.
type Member struct {
	GuildID string
	UserID  string
	Bot     bool
	Roles   []string
}

func (m *Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

func (m *Member) dropRole(roleID string) {
	kept := m.Roles[:0]
	for _, r := range m.Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	m.Roles = kept
}

// Platform grants and revokes roles and posts announcements. An empty
// channelID lets the platform choose a channel.
type Platform interface {
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	Announce(ctx context.Context, guildID, channelID string, embed *discordgo.MessageEmbed) error
}

type Tracker struct {
	store    *storage.Store
	logger   *zap.Logger
	clock    clock.Clock
	platform Platform
}

func New(store *storage.Store, logger *zap.Logger, platform Platform) *Tracker {
	return &Tracker{store: store, logger: logger, clock: clock.Real(), platform: platform}
}

func (t *Tracker) WithClock(c clock.Clock) {
	t.clock = c
}

// Unlock is a tier reached for the first time.
type Unlock struct {
	Tier   Tier
	UserID string
}

// MessageSent counts one message and processes the messages category.
func (t *Tracker) MessageSent(ctx context.Context, member *Member, channelID string) ([]Unlock, error) {
	return t.increment(ctx, member, CategoryMessages, 1, channelID)
}

func (t *Tracker) AddVoiceMinutes(ctx context.Context, member *Member, minutes int64) ([]Unlock, error) {
	if minutes <= 0 {
		return nil, nil
	}
	return t.increment(ctx, member, CategoryVoice, minutes, "")
}

// ReactionAdded credits the reactor and, when it is someone else's message
// written by a human, the author. Bot reactors are ignored.
func (t *Tracker) ReactionAdded(ctx context.Context, reactor *Member, author *Member) ([]Unlock, error) {
	if reactor.Bot {
		return nil, nil
	}
	unlocks, err := t.increment(ctx, reactor, CategoryReactionsGiven, 1, "")
	if err != nil {
		return unlocks, err
	}
	if author == nil || author.Bot || author.UserID == reactor.UserID {
		return unlocks, nil
	}
	received, err := t.increment(ctx, author, CategoryReactionsReceived, 1, "")
	return append(unlocks, received...), err
}

// VoiceJoin stamps the time the member entered voice.
func (t *Tracker) VoiceJoin(ctx context.Context, guildID, userID string) error {
	joined := t.clock.Now().UnixMilli()
	return t.store.SetVoiceJoinedAt(ctx, guildID, userID, &joined)
}

// VoiceLeave clears the join stamp and credits whole minutes spent in voice.
func (t *Tracker) VoiceLeave(ctx context.Context, member *Member) (int64, []Unlock, error) {
	row, err := t.store.GetUserAchievements(ctx, member.GuildID, member.UserID)
	if err != nil {
		return 0, nil, err
	}
	if row.VoiceJoinedAt == nil {
		return 0, nil, nil
	}
	if err := t.store.SetVoiceJoinedAt(ctx, member.GuildID, member.UserID, nil); err != nil {
		return 0, nil, err
	}
	minutes := (t.clock.Now().UnixMilli() - *row.VoiceJoinedAt) / time.Minute.Milliseconds()
	if minutes <= 0 {
		return 0, nil, nil
	}
	unlocks, err := t.AddVoiceMinutes(ctx, member, minutes)
	return minutes, unlocks, err
}

func (t *Tracker) increment(ctx context.Context, member *Member, c Category, delta int64, channelID string) ([]Unlock, error) {
	row, err := t.store.IncrementCounter(ctx, member.GuildID, member.UserID, c.Counter(), delta)
	if err != nil {
		return nil, fmt.Errorf("increment %s: %w", c, err)
	}
	return t.evaluate(ctx, member, c, row.Value(c.Counter()), channelID)
}

// evaluate records newly reached tiers, announces the highest of them and
// reconciles the category role. Role changes never block the unlock.
func (t *Tracker) evaluate(ctx context.Context, member *Member, c Category, value int64, channelID string) ([]Unlock, error) {
	var unlocks []Unlock
	for _, tier := range reached(value, c) {
		added, err := t.store.AddUnlockedAchievement(ctx, member.GuildID, member.UserID, tier.Key)
		if err != nil {
			return unlocks, fmt.Errorf("unlock %s: %w", tier.Key, err)
		}
		if added {
			unlocks = append(unlocks, Unlock{Tier: tier, UserID: member.UserID})
		}
	}

	if tier, ok := TierFor(value, c); ok {
		settings, err := t.store.GetAchievementSettings(ctx, member.GuildID)
		if err != nil {
			return unlocks, err
		}
		if err := t.Reconcile(ctx, member, tier, settings); err != nil {
			t.logger.Warn("achievement role reconcile failed",
				zap.String("guild_id", member.GuildID),
				zap.String("user_id", member.UserID),
				zap.String("tier", tier.Key),
				zap.Error(err),
			)
		}
	}

	if len(unlocks) > 0 {
		t.announce(ctx, member, unlocks[len(unlocks)-1].Tier, channelID)
	}
	return unlocks, nil
}

func (t *Tracker) announce(ctx context.Context, member *Member, tier Tier, channelID string) {
	if t.platform == nil {
		return
	}
	settings, err := t.store.GetGuildSettings(ctx, member.GuildID)
	if err != nil || !settings.AchievementMessages {
		return
	}
	if err := t.platform.Announce(ctx, member.GuildID, channelID, UnlockEmbed(member.UserID, tier, t.clock.Now())); err != nil {
		t.logger.Warn("achievement announcement failed", zap.String("guild_id", member.GuildID), zap.String("tier", tier.Key), zap.Error(err))
	}
}

// Reconcile makes the member hold the role of tier and none of the lower
// tiers of the same category. Nothing changes when tier has no role set.
func (t *Tracker) Reconcile(ctx context.Context, member *Member, tier Tier, settings storage.AchievementSettings) error {
	roleID := settings.Role(tier.Key)
	if roleID == "" || t.platform == nil {
		return nil
	}

	if !member.HasRole(roleID) {
		if err := t.platform.AddRole(ctx, member.GuildID, member.UserID, roleID); err != nil {
			return fmt.Errorf("grant %s: %w", tier.Key, err)
		}
		member.Roles = append(member.Roles, roleID)
		if err := t.store.AddAchievementRole(ctx, member.GuildID, member.UserID, roleID, tier.Key); err != nil {
			return err
		}
	}

	for _, lower := range lowerTiers(tier) {
		lowerRole := settings.Role(lower.Key)
		if lowerRole == "" || lowerRole == roleID || !member.HasRole(lowerRole) {
			continue
		}
		if err := t.platform.RemoveRole(ctx, member.GuildID, member.UserID, lowerRole); err != nil {
			return fmt.Errorf("revoke %s: %w", lower.Key, err)
		}
		member.dropRole(lowerRole)
		if err := t.store.RemoveAchievementRole(ctx, member.GuildID, member.UserID, lowerRole); err != nil {
			return err
		}
	}
	return nil
}

// Sync reconciles every category from the stored counters.
func (t *Tracker) Sync(ctx context.Context, member *Member) error {
	row, err := t.store.GetUserAchievements(ctx, member.GuildID, member.UserID)
	if err != nil {
		return err
	}
	settings, err := t.store.GetAchievementSettings(ctx, member.GuildID)
	if err != nil {
		return err
	}
	for _, c := range Categories {
		tier, ok := TierFor(row.Value(c.Counter()), c)
		if !ok {
			continue
		}
		if err := t.Reconcile(ctx, member, tier, settings); err != nil {
			return err
		}
	}
	return nil
}

// RestoreOnRejoin grants back stored achievement roles the member lost when
// leaving. It returns how many roles were granted.
func (t *Tracker) RestoreOnRejoin(ctx context.Context, member *Member) (int, error) {
	rows, err := t.store.ListAchievementRoles(ctx, member.GuildID, member.UserID)
	if err != nil {
		return 0, err
	}
	if t.platform == nil {
		return 0, nil
	}
	restored := 0
	for _, row := range rows {
		if member.HasRole(row.RoleID) {
			continue
		}
		if err := t.platform.AddRole(ctx, member.GuildID, member.UserID, row.RoleID); err != nil {
			t.logger.Warn("achievement role restore failed",
				zap.String("guild_id", member.GuildID),
				zap.String("user_id", member.UserID),
				zap.String("role_id", row.RoleID),
				zap.Error(err),
			)
			continue
		}
		member.Roles = append(member.Roles, row.RoleID)
		restored++
	}
	if restored > 0 {
		t.logger.Info("achievement roles restored", zap.String("guild_id", member.GuildID), zap.String("user_id", member.UserID), zap.Int("count", restored))
	}
	return restored, nil
}

// Standing is a user's position in one category.
type Standing struct {
	Category Category
	Value    int64
	Current  *Tier
	Next     *Tier
}

func (t *Tracker) Standings(ctx context.Context, guildID, userID string) (storage.UserAchievements, []Standing, error) {
	row, err := t.store.GetUserAchievements(ctx, guildID, userID)
	if err != nil {
		return storage.UserAchievements{}, nil, err
	}
	standings := make([]Standing, 0, len(Categories))
	for _, c := range Categories {
		value := row.Value(c.Counter())
		s := Standing{Category: c, Value: value}
		if tier, ok := TierFor(value, c); ok {
			s.Current = &tier
		}
		if tier, ok := NextTier(value, c); ok {
			s.Next = &tier
		}
		standings = append(standings, s)
	}
	return row, standings, nil
}

func UnlockEmbed(userID string, tier Tier, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🏆 Achievement Unlocked!",
		Description: fmt.Sprintf("<@%s> earned the **%s** achievement!\n%s %s", userID, tier.Name, tier.Emoji, tier.Description()),
		Color:       tier.Color,
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
}
