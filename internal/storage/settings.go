package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ActionMode says what AutoMod does with a flagged message.
type ActionMode string

const (
	ActionDelete ActionMode = "delete"
	ActionWarn   ActionMode = "warn"
	ActionBoth   ActionMode = "both"
)

func ParseActionMode(value string) (ActionMode, error) {
	switch ActionMode(strings.ToLower(strings.TrimSpace(value))) {
	case ActionDelete:
		return ActionDelete, nil
	case ActionWarn:
		return ActionWarn, nil
	case ActionBoth:
		return ActionBoth, nil
	default:
		return "", fmt.Errorf("unknown action mode %q", value)
	}
}

func (m ActionMode) Deletes() bool { return m == ActionDelete || m == ActionBoth }

func (m ActionMode) Warns() bool { return m == ActionWarn || m == ActionBoth }

// Feature is an AutoMod filter that can be toggled per guild.
type Feature int

const (
	FeatureAntiSpam Feature = iota + 1
	FeatureAntiInvite
	FeatureAntiLink
	FeatureBannedWords
)

var Features = []Feature{FeatureAntiSpam, FeatureAntiInvite, FeatureAntiLink, FeatureBannedWords}

func ParseFeature(value string) (Feature, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "anti_spam", "antispam", "spam":
		return FeatureAntiSpam, nil
	case "anti_invite", "antiinvite", "invite":
		return FeatureAntiInvite, nil
	case "anti_link", "antilink", "link":
		return FeatureAntiLink, nil
	case "banned_words", "bannedwords", "words":
		return FeatureBannedWords, nil
	default:
		return 0, fmt.Errorf("unknown automod feature %q", value)
	}
}

func (f Feature) String() string {
	switch f {
	case FeatureAntiSpam:
		return "anti_spam"
	case FeatureAntiInvite:
		return "anti_invite"
	case FeatureAntiLink:
		return "anti_link"
	case FeatureBannedWords:
		return "banned_words"
	default:
		return fmt.Sprintf("feature(%d)", int(f))
	}
}

// columns returns the toggle and action columns for f. Banned words have no
// toggle column: the filter is on whenever the list is non-empty.
func (f Feature) columns() (toggle, action string, err error) {
	switch f {
	case FeatureAntiSpam:
		return "automod_anti_spam", "automod_anti_spam_action", nil
	case FeatureAntiInvite:
		return "automod_anti_invite", "automod_anti_invite_action", nil
	case FeatureAntiLink:
		return "automod_anti_link", "automod_anti_link_action", nil
	case FeatureBannedWords:
		return "", "automod_banned_words_action", nil
	default:
		return "", "", fmt.Errorf("unknown automod feature %d", int(f))
	}
}

type GuildSettings struct {
	GuildID             string
	Prefix              string
	ModLogChannel       string
	EventLogChannel     string
	MuteRole            string
	AntiSpam            bool
	AntiSpamAction      ActionMode
	AntiInvite          bool
	AntiInviteAction    ActionMode
	AntiLink            bool
	AntiLinkAction      ActionMode
	BannedWords         []string
	BannedWordsAction   ActionMode
	LevelUpMessages     bool
	AchievementMessages bool
}

func DefaultGuildSettings(guildID string) GuildSettings {
	return GuildSettings{
		GuildID:             guildID,
		Prefix:              "!",
		AntiSpamAction:      ActionDelete,
		AntiInviteAction:    ActionDelete,
		AntiLinkAction:      ActionDelete,
		BannedWordsAction:   ActionDelete,
		LevelUpMessages:     true,
		AchievementMessages: true,
	}
}

// Feature reports whether f is active and which action it takes.
func (g GuildSettings) Feature(f Feature) (bool, ActionMode) {
	switch f {
	case FeatureAntiSpam:
		return g.AntiSpam, g.AntiSpamAction
	case FeatureAntiInvite:
		return g.AntiInvite, g.AntiInviteAction
	case FeatureAntiLink:
		return g.AntiLink, g.AntiLinkAction
	case FeatureBannedWords:
		return len(g.BannedWords) > 0, g.BannedWordsAction
	default:
		return false, ActionDelete
	}
}

type settingsRow struct {
	GuildID             string `db:"guild_id"`
	Prefix              string `db:"prefix"`
	ModLogChannel       string `db:"mod_log_channel"`
	EventLogChannel     string `db:"oblivion_log_channel"`
	MuteRole            string `db:"mute_role"`
	AntiSpam            int    `db:"automod_anti_spam"`
	AntiSpamAction      string `db:"automod_anti_spam_action"`
	AntiInvite          int    `db:"automod_anti_invite"`
	AntiInviteAction    string `db:"automod_anti_invite_action"`
	AntiLink            int    `db:"automod_anti_link"`
	AntiLinkAction      string `db:"automod_anti_link_action"`
	BannedWords         string `db:"automod_banned_words"`
	BannedWordsAction   string `db:"automod_banned_words_action"`
	LevelUpMessages     int    `db:"level_up_messages"`
	AchievementMessages int    `db:"achievement_messages"`
}

func (r settingsRow) settings() GuildSettings {
	result := GuildSettings{
		GuildID:             r.GuildID,
		Prefix:              r.Prefix,
		ModLogChannel:       r.ModLogChannel,
		EventLogChannel:     r.EventLogChannel,
		MuteRole:            r.MuteRole,
		AntiSpam:            r.AntiSpam == 1,
		AntiSpamAction:      actionOrDefault(r.AntiSpamAction),
		AntiInvite:          r.AntiInvite == 1,
		AntiInviteAction:    actionOrDefault(r.AntiInviteAction),
		AntiLink:            r.AntiLink == 1,
		AntiLinkAction:      actionOrDefault(r.AntiLinkAction),
		BannedWordsAction:   actionOrDefault(r.BannedWordsAction),
		LevelUpMessages:     r.LevelUpMessages == 1,
		AchievementMessages: r.AchievementMessages == 1,
	}
	if r.BannedWords != "" {
		_ = json.Unmarshal([]byte(r.BannedWords), &result.BannedWords)
	}
	return result
}

func actionOrDefault(value string) ActionMode {
	mode, err := ParseActionMode(value)
	if err != nil {
		return ActionDelete
	}
	return mode
}

// GetGuildSettings returns the stored settings, or the defaults when the guild
// has never been configured.
func (s *Store) GetGuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	var row settingsRow
	err := s.get(ctx, &row, `
		SELECT guild_id, prefix, mod_log_channel, oblivion_log_channel, mute_role,
		automod_anti_spam, automod_anti_spam_action, automod_anti_invite, automod_anti_invite_action,
		automod_anti_link, automod_anti_link_action, automod_banned_words, automod_banned_words_action,
		level_up_messages, achievement_messages
		FROM guild_settings WHERE guild_id = ?`, guildID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DefaultGuildSettings(guildID), nil
		}
		return GuildSettings{}, err
	}
	return row.settings(), nil
}

// EnsureGuildSettings creates the default row for a guild if it is missing.
func (s *Store) EnsureGuildSettings(ctx context.Context, guildID string) error {
	now := s.nowMillis()
	_, err := s.exec(ctx, `
		INSERT INTO guild_settings (guild_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO NOTHING`, guildID, now, now)
	return err
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	words := normalizeWords(settings.BannedWords)
	encoded, err := json.Marshal(words)
	if err != nil {
		return err
	}
	prefix := settings.Prefix
	if prefix == "" {
		prefix = "!"
	}
	now := s.nowMillis()
	_, err = s.exec(ctx, `
		INSERT INTO guild_settings (
			guild_id, prefix, mod_log_channel, oblivion_log_channel, mute_role,
			automod_anti_spam, automod_anti_spam_action, automod_anti_invite, automod_anti_invite_action,
			automod_anti_link, automod_anti_link_action, automod_banned_words, automod_banned_words_action,
			level_up_messages, achievement_messages, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			prefix = excluded.prefix,
			mod_log_channel = excluded.mod_log_channel,
			oblivion_log_channel = excluded.oblivion_log_channel,
			mute_role = excluded.mute_role,
			automod_anti_spam = excluded.automod_anti_spam,
			automod_anti_spam_action = excluded.automod_anti_spam_action,
			automod_anti_invite = excluded.automod_anti_invite,
			automod_anti_invite_action = excluded.automod_anti_invite_action,
			automod_anti_link = excluded.automod_anti_link,
			automod_anti_link_action = excluded.automod_anti_link_action,
			automod_banned_words = excluded.automod_banned_words,
			automod_banned_words_action = excluded.automod_banned_words_action,
			level_up_messages = excluded.level_up_messages,
			achievement_messages = excluded.achievement_messages,
			updated_at = excluded.updated_at
	`,
		settings.GuildID,
		prefix,
		settings.ModLogChannel,
		settings.EventLogChannel,
		settings.MuteRole,
		boolToInt(settings.AntiSpam),
		string(actionOrDefault(string(settings.AntiSpamAction))),
		boolToInt(settings.AntiInvite),
		string(actionOrDefault(string(settings.AntiInviteAction))),
		boolToInt(settings.AntiLink),
		string(actionOrDefault(string(settings.AntiLinkAction))),
		string(encoded),
		string(actionOrDefault(string(settings.BannedWordsAction))),
		boolToInt(settings.LevelUpMessages),
		boolToInt(settings.AchievementMessages),
		now,
		now,
	)
	return err
}

// SetAutomodFeature updates one feature's toggle and action without touching the
// rest of the row. Disabling banned words clears the word list.
func (s *Store) SetAutomodFeature(ctx context.Context, guildID string, feature Feature, enabled bool, mode ActionMode) error {
	toggle, action, err := feature.columns()
	if err != nil {
		return err
	}
	mode = actionOrDefault(string(mode))
	now := s.nowMillis()

	if toggle == "" {
		words := "[]"
		if enabled {
			_, err = s.exec(ctx, `
				INSERT INTO guild_settings (guild_id, `+action+`, created_at, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT(guild_id) DO UPDATE SET `+action+` = excluded.`+action+`, updated_at = excluded.updated_at`,
				guildID, string(mode), now, now)
			return err
		}
		_, err = s.exec(ctx, `
			INSERT INTO guild_settings (guild_id, automod_banned_words, `+action+`, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(guild_id) DO UPDATE SET automod_banned_words = excluded.automod_banned_words,
				`+action+` = excluded.`+action+`, updated_at = excluded.updated_at`,
			guildID, words, string(mode), now, now)
		return err
	}

	_, err = s.exec(ctx, `
		INSERT INTO guild_settings (guild_id, `+toggle+`, `+action+`, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET `+toggle+` = excluded.`+toggle+`,
			`+action+` = excluded.`+action+`, updated_at = excluded.updated_at`,
		guildID, boolToInt(enabled), string(mode), now, now)
	return err
}

// AddBannedWord appends word to the guild list. It reports false when the word
// was already present.
func (s *Store) AddBannedWord(ctx context.Context, guildID, word string) (bool, error) {
	settings, err := s.GetGuildSettings(ctx, guildID)
	if err != nil {
		return false, err
	}
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false, errors.New("banned word is empty")
	}
	for _, existing := range settings.BannedWords {
		if existing == word {
			return false, nil
		}
	}
	settings.BannedWords = append(settings.BannedWords, word)
	return true, s.UpsertGuildSettings(ctx, settings)
}

// RemoveBannedWord reports false when the word was not in the list.
func (s *Store) RemoveBannedWord(ctx context.Context, guildID, word string) (bool, error) {
	settings, err := s.GetGuildSettings(ctx, guildID)
	if err != nil {
		return false, err
	}
	word = strings.ToLower(strings.TrimSpace(word))
	kept := settings.BannedWords[:0]
	removed := false
	for _, existing := range settings.BannedWords {
		if existing == word {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return false, nil
	}
	settings.BannedWords = kept
	return true, s.UpsertGuildSettings(ctx, settings)
}

func normalizeWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	result := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		result = append(result, word)
	}
	return result
}

type WelcomeSettings struct {
	GuildID string `db:"guild_id"`
	Enabled int    `db:"welcome_enabled"`
	Channel string `db:"welcome_channel"`
	Message string `db:"welcome_message"`
}

func (w WelcomeSettings) IsEnabled() bool { return w.Enabled == 1 && w.Channel != "" }

func (s *Store) GetWelcomeSettings(ctx context.Context, guildID string) (WelcomeSettings, error) {
	var row WelcomeSettings
	err := s.get(ctx, &row, `
		SELECT guild_id, welcome_enabled, welcome_channel, welcome_message
		FROM welcome_settings WHERE guild_id = ?`, guildID)
	if errors.Is(err, ErrNotFound) {
		return WelcomeSettings{GuildID: guildID}, nil
	}
	return row, err
}

func (s *Store) UpsertWelcomeSettings(ctx context.Context, settings WelcomeSettings) error {
	_, err := s.exec(ctx, `
		INSERT INTO welcome_settings (guild_id, welcome_enabled, welcome_channel, welcome_message)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			welcome_enabled = excluded.welcome_enabled,
			welcome_channel = excluded.welcome_channel,
			welcome_message = excluded.welcome_message`,
		settings.GuildID, settings.Enabled, settings.Channel, settings.Message)
	return err
}
