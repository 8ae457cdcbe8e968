package warnings

import (
	"context"
	"fmt"

	"oblivion/internal/storage"

	"go.uber.org/zap"
)

// Store keeps per-user warnings. Counts are informational only; nothing
// escalates automatically.
type Store struct {
	store  *storage.Store
	logger *zap.Logger
}

func New(store *storage.Store, logger *zap.Logger) *Store {
	return &Store{store: store, logger: logger}
}

// Add records a warning and returns the user's new total.
func (s *Store) Add(ctx context.Context, guildID, userID, moderatorID, reason string) (int, error) {
	if _, err := s.store.AddWarning(ctx, storage.Warning{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Reason:      reason,
	}); err != nil {
		return 0, fmt.Errorf("add warning: %w", err)
	}
	return s.Count(ctx, guildID, userID)
}

func (s *Store) Count(ctx context.Context, guildID, userID string) (int, error) {
	return s.store.CountWarnings(ctx, guildID, userID)
}

// List returns the user's warnings, newest first.
func (s *Store) List(ctx context.Context, guildID, userID string) ([]storage.Warning, error) {
	return s.store.ListWarnings(ctx, guildID, userID)
}

func (s *Store) Clear(ctx context.Context, guildID, userID string) (int, error) {
	return s.store.ClearWarnings(ctx, guildID, userID)
}

func (s *Store) DeleteOne(ctx context.Context, id int64) error {
	return s.store.DeleteWarning(ctx, id)
}

// Remove deletes up to n of the user's most recent warnings one row at a time.
// n <= 0 clears them all.
func (s *Store) Remove(ctx context.Context, guildID, userID string, n int) (int, error) {
	if n <= 0 {
		return s.Clear(ctx, guildID, userID)
	}

	list, err := s.List(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, w := range list {
		if removed == n {
			break
		}
		if err := s.DeleteOne(ctx, w.ID); err != nil {
			s.logger.Warn("warning delete failed", zap.Int64("warning_id", w.ID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
