package storage

import (
	"context"
	"time"
)

type Warning struct {
	ID          int64  `db:"id"`
	GuildID     string `db:"guild_id"`
	UserID      string `db:"user_id"`
	ModeratorID string `db:"moderator_id"`
	Reason      string `db:"reason"`
	CreatedAt   int64  `db:"created_at"`
}

func (w Warning) Created() time.Time {
	return time.UnixMilli(w.CreatedAt)
}

func (s *Store) AddWarning(ctx context.Context, w Warning) (Warning, error) {
	if w.CreatedAt == 0 {
		w.CreatedAt = s.nowMillis()
	}
	err := s.db.QueryRowxContext(ctx, s.rebind(`
		INSERT INTO warnings (guild_id, user_id, moderator_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`), w.GuildID, w.UserID, w.ModeratorID, w.Reason, w.CreatedAt).Scan(&w.ID)
	if err != nil {
		return Warning{}, err
	}
	return w, nil
}

// ListWarnings returns the user's warnings, newest first.
func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	var warnings []Warning
	err := s.selectAll(ctx, &warnings, `
		SELECT id, guild_id, user_id, moderator_id, reason, created_at FROM warnings
		WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC`, guildID, userID)
	return warnings, err
}

func (s *Store) CountWarnings(ctx context.Context, guildID, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.rebind(`SELECT COUNT(*) FROM warnings WHERE guild_id = ? AND user_id = ?`), guildID, userID)
	return count, err
}

func (s *Store) CountGuildWarnings(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.rebind(`SELECT COUNT(*) FROM warnings WHERE guild_id = ?`), guildID)
	return count, err
}

func (s *Store) DeleteWarning(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM warnings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// ClearWarnings removes every warning of the user and returns how many went.
func (s *Store) ClearWarnings(ctx context.Context, guildID, userID string) (int, error) {
	res, err := s.exec(ctx, `DELETE FROM warnings WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
