package storage

import (
	"context"
	"time"
)

// Mute mirrors a platform timeout for display. The platform enforces the timeout.
type Mute struct {
	GuildID   string `db:"guild_id"`
	UserID    string `db:"user_id"`
	ExpiresAt *int64 `db:"expires_at"`
	Reason    string `db:"reason"`
	CreatedAt int64  `db:"created_at"`
}

// Expires returns the expiry time and false for an indefinite mute.
func (m Mute) Expires() (time.Time, bool) {
	if m.ExpiresAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*m.ExpiresAt), true
}

func (s *Store) UpsertMute(ctx context.Context, guildID, userID string, expiresAt *time.Time, reason string) error {
	var expires any
	if expiresAt != nil {
		expires = expiresAt.UnixMilli()
	}
	_, err := s.exec(ctx, `
		INSERT INTO mutes (guild_id, user_id, expires_at, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			expires_at = excluded.expires_at,
			reason = excluded.reason,
			created_at = excluded.created_at`,
		guildID, userID, expires, reason, s.nowMillis())
	return err
}

func (s *Store) GetMute(ctx context.Context, guildID, userID string) (Mute, error) {
	var m Mute
	err := s.get(ctx, &m, `
		SELECT guild_id, user_id, expires_at, reason, created_at
		FROM mutes WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	return m, err
}

func (s *Store) DeleteMute(ctx context.Context, guildID, userID string) error {
	res, err := s.exec(ctx, `DELETE FROM mutes WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// ListExpiredMutes returns rows whose expiry is at or before now.
func (s *Store) ListExpiredMutes(ctx context.Context, now time.Time) ([]Mute, error) {
	var mutes []Mute
	err := s.selectAll(ctx, &mutes, `
		SELECT guild_id, user_id, expires_at, reason, created_at
		FROM mutes
		WHERE expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at`, now.UnixMilli())
	return mutes, err
}

// DeleteExpiredMute removes the row only if it is still expired at now, so a
// mute re-applied between listing and deletion survives.
func (s *Store) DeleteExpiredMute(ctx context.Context, guildID, userID string, now time.Time) (bool, error) {
	res, err := s.exec(ctx, `
		DELETE FROM mutes
		WHERE guild_id = ? AND user_id = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		guildID, userID, now.UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) CountActiveMutes(ctx context.Context, guildID string, now time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.rebind(`
		SELECT COUNT(*) FROM mutes
		WHERE guild_id = ? AND (expires_at IS NULL OR expires_at > ?)`), guildID, now.UnixMilli())
	return count, err
}
