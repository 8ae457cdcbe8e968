package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type ModCase struct {
	ID           int64  `db:"id" json:"-"`
	GuildID      string `db:"guild_id" json:"guildId"`
	CaseNumber   int64  `db:"case_number" json:"caseNumber"`
	UserID       string `db:"user_id" json:"userId"`
	UserTag      string `db:"user_tag" json:"userTag"`
	ModeratorID  string `db:"moderator_id" json:"moderatorId"`
	ModeratorTag string `db:"moderator_tag" json:"moderatorTag"`
	Action       string `db:"action" json:"action"`
	Reason       string `db:"reason" json:"reason"`
	Duration     string `db:"duration" json:"duration,omitempty"`
	CreatedAt    int64  `db:"created_at" json:"createdAt"`
}

func (c ModCase) Created() time.Time {
	return time.UnixMilli(c.CreatedAt)
}

const caseColumns = `id, guild_id, case_number, user_id, user_tag, moderator_id, moderator_tag, action, reason, duration, created_at`

// nextCaseNumber bumps the guild counter and returns the new value. The first
// call for a guild seeds the counter from rows written before counters existed.
// Counters only move forward, so numbers of deleted cases are never handed out again.
func nextCaseNumber(ctx context.Context, tx *sqlx.Tx, guildID string, now int64) (int64, error) {
	var number int64
	err := tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO case_counters (guild_id, last, last_updated)
		VALUES (?, (SELECT COALESCE(MAX(case_number), 0) FROM mod_cases WHERE guild_id = ?) + 1, ?)
		ON CONFLICT (guild_id) DO UPDATE SET last = case_counters.last + 1, last_updated = excluded.last_updated
		RETURNING last`), guildID, guildID, now).Scan(&number)
	return number, err
}

// CreateModCase assigns the next case number and inserts the row in a single
// transaction. The stored case is returned with its number and timestamp.
func (s *Store) CreateModCase(ctx context.Context, c ModCase) (ModCase, error) {
	now := s.nowMillis()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		number, err := nextCaseNumber(ctx, tx, c.GuildID, now)
		if err != nil {
			return err
		}
		c.CaseNumber = number
		return tx.QueryRowxContext(ctx, tx.Rebind(`
			INSERT INTO mod_cases (guild_id, case_number, user_id, user_tag, moderator_id, moderator_tag, action, reason, duration, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			c.GuildID, c.CaseNumber, c.UserID, c.UserTag, c.ModeratorID, c.ModeratorTag, c.Action, c.Reason, c.Duration, c.CreatedAt,
		).Scan(&c.ID)
	})
	if err != nil {
		return ModCase{}, err
	}
	return c, nil
}

func (s *Store) GetModCase(ctx context.Context, guildID string, caseNumber int64) (ModCase, error) {
	var c ModCase
	err := s.get(ctx, &c, `SELECT `+caseColumns+` FROM mod_cases WHERE guild_id = ? AND case_number = ?`, guildID, caseNumber)
	return c, err
}

func (s *Store) ListUserModCases(ctx context.Context, guildID, userID string) ([]ModCase, error) {
	var cases []ModCase
	err := s.selectAll(ctx, &cases, `
		SELECT `+caseColumns+` FROM mod_cases
		WHERE guild_id = ? AND user_id = ?
		ORDER BY case_number DESC`, guildID, userID)
	return cases, err
}

func (s *Store) ListModCases(ctx context.Context, guildID string, limit int) ([]ModCase, error) {
	if limit <= 0 {
		limit = 50
	}
	var cases []ModCase
	err := s.selectAll(ctx, &cases, `
		SELECT `+caseColumns+` FROM mod_cases
		WHERE guild_id = ?
		ORDER BY case_number DESC
		LIMIT ?`, guildID, limit)
	return cases, err
}

func (s *Store) DeleteModCase(ctx context.Context, guildID string, caseNumber int64) error {
	res, err := s.exec(ctx, `DELETE FROM mod_cases WHERE guild_id = ? AND case_number = ?`, guildID, caseNumber)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *Store) CountModCases(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.rebind(`SELECT COUNT(*) FROM mod_cases WHERE guild_id = ?`), guildID)
	return count, err
}

type ActionCount struct {
	Action string `db:"action"`
	Count  int    `db:"total"`
}

// CountModCasesByAction groups cases created at or after since by action kind.
func (s *Store) CountModCasesByAction(ctx context.Context, guildID string, since time.Time) ([]ActionCount, error) {
	var counts []ActionCount
	err := s.selectAll(ctx, &counts, `
		SELECT action, COUNT(*) AS total FROM mod_cases
		WHERE guild_id = ? AND created_at >= ?
		GROUP BY action
		ORDER BY action`, guildID, since.UnixMilli())
	return counts, err
}
