package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// AchievementRoleKeys lists every tier that can carry a role, in column order.
var AchievementRoleKeys = []string{
	"msg_100", "msg_500", "msg_1000", "msg_5000", "msg_10000",
	"vc_30", "vc_60", "vc_500", "vc_1000", "vc_5000",
	"react_50", "react_250", "react_1000",
	"popular_100", "popular_500",
}

func isAchievementRoleKey(key string) bool {
	for _, k := range AchievementRoleKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Counter names one of the per-user achievement counters.
type Counter int

const (
	CounterMessages Counter = iota + 1
	CounterVoiceMinutes
	CounterReactionsGiven
	CounterReactionsReceived
)

func (c Counter) column() (string, error) {
	switch c {
	case CounterMessages:
		return "messages", nil
	case CounterVoiceMinutes:
		return "voice_minutes", nil
	case CounterReactionsGiven:
		return "reactions_given", nil
	case CounterReactionsReceived:
		return "reactions_received", nil
	default:
		return "", fmt.Errorf("unknown achievement counter %d", int(c))
	}
}

type UserAchievements struct {
	GuildID           string `db:"guild_id"`
	UserID            string `db:"user_id"`
	Messages          int64  `db:"messages"`
	VoiceMinutes      int64  `db:"voice_minutes"`
	VoiceJoinedAt     *int64 `db:"voice_joined_at"`
	ReactionsGiven    int64  `db:"reactions_given"`
	ReactionsReceived int64  `db:"reactions_received"`
	Achievements      string `db:"achievements"`
}

// Value returns the counter c.
func (u UserAchievements) Value(c Counter) int64 {
	switch c {
	case CounterMessages:
		return u.Messages
	case CounterVoiceMinutes:
		return u.VoiceMinutes
	case CounterReactionsGiven:
		return u.ReactionsGiven
	case CounterReactionsReceived:
		return u.ReactionsReceived
	default:
		return 0
	}
}

// Unlocked returns the set of unlocked achievement keys.
func (u UserAchievements) Unlocked() []string {
	return splitKeys(u.Achievements)
}

func (u UserAchievements) HasUnlocked(key string) bool {
	for _, k := range splitKeys(u.Achievements) {
		if k == key {
			return true
		}
	}
	return false
}

func splitKeys(value string) []string {
	if value == "" {
		return nil
	}
	var keys []string
	for _, key := range strings.Split(value, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

const achievementColumns = `guild_id, user_id, messages, voice_minutes, voice_joined_at, reactions_given, reactions_received, achievements`

func (s *Store) GetUserAchievements(ctx context.Context, guildID, userID string) (UserAchievements, error) {
	var row UserAchievements
	err := s.get(ctx, &row, `SELECT `+achievementColumns+` FROM user_achievements WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if errors.Is(err, ErrNotFound) {
		return UserAchievements{GuildID: guildID, UserID: userID}, nil
	}
	return row, err
}

// IncrementCounter adds delta to counter c and returns the updated row.
func (s *Store) IncrementCounter(ctx context.Context, guildID, userID string, c Counter, delta int64) (UserAchievements, error) {
	column, err := c.column()
	if err != nil {
		return UserAchievements{}, err
	}
	var row UserAchievements
	err = s.db.QueryRowxContext(ctx, s.rebind(`
		INSERT INTO user_achievements (guild_id, user_id, `+column+`)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET `+column+` = user_achievements.`+column+` + excluded.`+column+`
		RETURNING `+achievementColumns),
		guildID, userID, delta,
	).StructScan(&row)
	return row, err
}

// SetVoiceJoinedAt records when the user entered voice; nil clears it.
func (s *Store) SetVoiceJoinedAt(ctx context.Context, guildID, userID string, joinedAt *int64) error {
	var value any
	if joinedAt != nil {
		value = *joinedAt
	}
	_, err := s.exec(ctx, `
		INSERT INTO user_achievements (guild_id, user_id, voice_joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET voice_joined_at = excluded.voice_joined_at`,
		guildID, userID, value)
	return err
}

// AddUnlockedAchievement appends key to the unlocked set. It reports false when
// the key was already there.
func (s *Store) AddUnlockedAchievement(ctx context.Context, guildID, userID, key string) (bool, error) {
	added := false
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var current sql.NullString
		err := tx.GetContext(ctx, &current, tx.Rebind(`SELECT achievements FROM user_achievements WHERE guild_id = ? AND user_id = ?`), guildID, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		keys := splitKeys(current.String)
		for _, k := range keys {
			if k == key {
				return nil
			}
		}
		keys = append(keys, key)
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO user_achievements (guild_id, user_id, achievements)
			VALUES (?, ?, ?)
			ON CONFLICT(guild_id, user_id) DO UPDATE SET achievements = excluded.achievements`),
			guildID, userID, strings.Join(keys, ","))
		if err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

// AchievementSettings maps tier keys to role IDs. Unconfigured tiers are absent.
type AchievementSettings struct {
	GuildID string
	Roles   map[string]string
}

func (a AchievementSettings) Role(key string) string {
	return a.Roles[key]
}

func achievementRoleColumns() string {
	columns := make([]string, 0, len(AchievementRoleKeys))
	for _, key := range AchievementRoleKeys {
		columns = append(columns, key+"_role")
	}
	return strings.Join(columns, ", ")
}

func (s *Store) GetAchievementSettings(ctx context.Context, guildID string) (AchievementSettings, error) {
	result := AchievementSettings{GuildID: guildID, Roles: make(map[string]string)}
	values := make([]sql.NullString, len(AchievementRoleKeys))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+achievementRoleColumns()+` FROM achievement_settings WHERE guild_id = ?`), guildID).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return AchievementSettings{}, err
	}
	for i, key := range AchievementRoleKeys {
		if values[i].Valid && values[i].String != "" {
			result.Roles[key] = values[i].String
		}
	}
	return result, nil
}

// SetAchievementRole binds roleID to the tier key; an empty roleID clears it.
func (s *Store) SetAchievementRole(ctx context.Context, guildID, key, roleID string) error {
	if !isAchievementRoleKey(key) {
		return fmt.Errorf("unknown achievement tier %q", key)
	}
	column := key + "_role"
	var value any
	if roleID != "" {
		value = roleID
	}
	_, err := s.exec(ctx, `
		INSERT INTO achievement_settings (guild_id, `+column+`) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET `+column+` = excluded.`+column, guildID, value)
	return err
}

type AchievementRole struct {
	GuildID        string `db:"guild_id"`
	UserID         string `db:"user_id"`
	RoleID         string `db:"role_id"`
	AchievementKey string `db:"achievement_key"`
	GrantedAt      int64  `db:"granted_at"`
}

func (s *Store) AddAchievementRole(ctx context.Context, guildID, userID, roleID, key string) error {
	_, err := s.exec(ctx, `
		INSERT INTO user_achievement_roles (guild_id, user_id, role_id, achievement_key, granted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, role_id) DO UPDATE SET
			achievement_key = excluded.achievement_key,
			granted_at = excluded.granted_at`,
		guildID, userID, roleID, key, s.nowMillis())
	return err
}

func (s *Store) RemoveAchievementRole(ctx context.Context, guildID, userID, roleID string) error {
	_, err := s.exec(ctx, `DELETE FROM user_achievement_roles WHERE guild_id = ? AND user_id = ? AND role_id = ?`, guildID, userID, roleID)
	return err
}

func (s *Store) ListAchievementRoles(ctx context.Context, guildID, userID string) ([]AchievementRole, error) {
	var roles []AchievementRole
	err := s.selectAll(ctx, &roles, `
		SELECT guild_id, user_id, role_id, achievement_key, granted_at
		FROM user_achievement_roles
		WHERE guild_id = ? AND user_id = ?
		ORDER BY granted_at`, guildID, userID)
	return roles, err
}
