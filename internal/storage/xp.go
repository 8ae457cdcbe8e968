package storage

import (
	"context"
	"errors"
)

type UserXP struct {
	GuildID   string `db:"guild_id"`
	UserID    string `db:"user_id"`
	XP        int64  `db:"xp"`
	Messages  int64  `db:"messages"`
	WeeklyXP  int64  `db:"weekly_xp"`
	WeekStart int64  `db:"week_start"`
}

const xpColumns = `guild_id, user_id, xp, messages, weekly_xp, week_start`

// AddXP adds amount to the user's totals and bumps the message count. weekStart
// is the current week boundary in Unix milliseconds: a row from an older week
// has its weekly counter restarted at amount instead of incremented.
func (s *Store) AddXP(ctx context.Context, guildID, userID string, amount, weekStart int64) (UserXP, error) {
	var row UserXP
	err := s.db.QueryRowxContext(ctx, s.rebind(`
		INSERT INTO user_xp (guild_id, user_id, xp, messages, weekly_xp, week_start)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			xp = user_xp.xp + excluded.xp,
			messages = user_xp.messages + 1,
			weekly_xp = CASE WHEN user_xp.week_start < excluded.week_start
				THEN excluded.weekly_xp ELSE user_xp.weekly_xp + excluded.weekly_xp END,
			week_start = CASE WHEN user_xp.week_start < excluded.week_start
				THEN excluded.week_start ELSE user_xp.week_start END
		RETURNING `+xpColumns),
		guildID, userID, amount, amount, weekStart,
	).StructScan(&row)
	return row, err
}

// GetUserXP returns a zero row for users that never earned XP.
func (s *Store) GetUserXP(ctx context.Context, guildID, userID string) (UserXP, error) {
	var row UserXP
	err := s.get(ctx, &row, `SELECT `+xpColumns+` FROM user_xp WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if errors.Is(err, ErrNotFound) {
		return UserXP{GuildID: guildID, UserID: userID}, nil
	}
	return row, err
}

// RankAbove counts users in the guild with strictly more XP than xp.
func (s *Store) RankAbove(ctx context.Context, guildID string, xp int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.rebind(`SELECT COUNT(*) FROM user_xp WHERE guild_id = ? AND xp > ?`), guildID, xp)
	return count, err
}

func (s *Store) TopXP(ctx context.Context, guildID string, limit int) ([]UserXP, error) {
	var rows []UserXP
	err := s.selectAll(ctx, &rows, `
		SELECT `+xpColumns+` FROM user_xp
		WHERE guild_id = ?
		ORDER BY xp DESC
		LIMIT ?`, guildID, limit)
	return rows, err
}

// TopWeeklyXP only considers rows of the week starting at weekStart.
func (s *Store) TopWeeklyXP(ctx context.Context, guildID string, weekStart int64, limit int) ([]UserXP, error) {
	var rows []UserXP
	err := s.selectAll(ctx, &rows, `
		SELECT `+xpColumns+` FROM user_xp
		WHERE guild_id = ? AND weekly_xp > 0 AND week_start >= ?
		ORDER BY weekly_xp DESC
		LIMIT ?`, guildID, weekStart, limit)
	return rows, err
}

func (s *Store) CountXPUsers(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.rebind(`SELECT COUNT(*) FROM user_xp WHERE guild_id = ?`), guildID)
	return count, err
}
