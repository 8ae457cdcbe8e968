package mutes

import (
	"context"
	"fmt"
	"time"

	"oblivion/internal/clock"
	"oblivion/internal/storage"

	"go.uber.org/zap"
)

// MaxDuration is the longest timeout the platform accepts.
const MaxDuration = 28 * 24 * time.Hour

const DefaultSweepInterval = 30 * time.Second

// Presence reports whether a user is still a member of a guild.
type Presence interface {
	IsMember(ctx context.Context, guildID, userID string) (bool, error)
}

// Registry is a display copy of platform timeouts. Removing a row never lifts
// a timeout; the platform expires those on its own.
type Registry struct {
	store    *storage.Store
	logger   *zap.Logger
	clock    clock.Clock
	presence Presence
}

func New(store *storage.Store, logger *zap.Logger) *Registry {
	return &Registry{store: store, logger: logger, clock: clock.Real()}
}

func (r *Registry) WithClock(c clock.Clock) {
	r.clock = c
}

func (r *Registry) SetPresence(p Presence) {
	r.presence = p
}

// Upsert records a mute lasting d from now. Repeat mutes overwrite the row.
func (r *Registry) Upsert(ctx context.Context, guildID, userID string, d time.Duration, reason string) (time.Time, error) {
	if d <= 0 || d > MaxDuration {
		return time.Time{}, fmt.Errorf("mute duration must be between 1s and 28 days")
	}
	expires := r.clock.Now().Add(d)
	if err := r.store.UpsertMute(ctx, guildID, userID, &expires, reason); err != nil {
		return time.Time{}, fmt.Errorf("upsert mute: %w", err)
	}
	return expires, nil
}

func (r *Registry) Remove(ctx context.Context, guildID, userID string) error {
	return r.store.DeleteMute(ctx, guildID, userID)
}

func (r *Registry) Get(ctx context.Context, guildID, userID string) (storage.Mute, error) {
	return r.store.GetMute(ctx, guildID, userID)
}

// Active returns the mute if it has not expired yet.
func (r *Registry) Active(ctx context.Context, guildID, userID string) (storage.Mute, bool, error) {
	m, err := r.Get(ctx, guildID, userID)
	if err != nil {
		return storage.Mute{}, false, err
	}
	if expires, ok := m.Expires(); ok && !expires.After(r.clock.Now()) {
		return m, false, nil
	}
	return m, true, nil
}

// Sweep deletes every row that expired at or before now and returns them.
func (r *Registry) Sweep(ctx context.Context, now time.Time) ([]storage.Mute, error) {
	expired, err := r.store.ListExpiredMutes(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list expired mutes: %w", err)
	}

	var removed []storage.Mute
	for _, m := range expired {
		present := r.isMember(ctx, m.GuildID, m.UserID)
		ok, err := r.store.DeleteExpiredMute(ctx, m.GuildID, m.UserID, now)
		if err != nil {
			r.logger.Warn("expired mute delete failed", zap.String("guild_id", m.GuildID), zap.String("user_id", m.UserID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		removed = append(removed, m)
		if present {
			r.logger.Info("mute expired", zap.String("guild_id", m.GuildID), zap.String("user_id", m.UserID))
		} else {
			r.logger.Info("mute expired for departed member", zap.String("guild_id", m.GuildID), zap.String("user_id", m.UserID))
		}
	}
	return removed, nil
}

func (r *Registry) isMember(ctx context.Context, guildID, userID string) bool {
	if r.presence == nil {
		return true
	}
	present, err := r.presence.IsMember(ctx, guildID, userID)
	if err != nil {
		return true
	}
	return present
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx, r.clock.Now()); err != nil {
				r.logger.Warn("mute sweep failed", zap.Error(err))
			}
		}
	}
}
