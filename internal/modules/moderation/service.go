package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oblivion/internal/clock"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/modules/mutes"
	"oblivion/internal/modules/warnings"
	"oblivion/internal/storage"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	ErrNotMember       = errors.New("user is not a member")
	ErrNotBanned       = errors.New("user is not banned")
	ErrNotTimedOut     = errors.New("user is not timed out")
	ErrNoWarnings      = errors.New("user has no warnings")
	ErrNothingToPurge  = errors.New("no messages to purge")
	ErrInvalidDuration = errors.New("invalid duration")
)

// purgeHorizon is how far back bulk deletion can reach.
const purgeHorizon = 14 * 24 * time.Hour

// Platform performs the actions on the chat platform.
type Platform interface {
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Unban(ctx context.Context, guildID, userID, reason string) error
	BannedUser(ctx context.Context, guildID, userID string) (modlog.Actor, bool, error)
	Kick(ctx context.Context, guildID, userID, reason string) error
	Timeout(ctx context.Context, guildID, userID string, until *time.Time, reason string) error
	DirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	PurgeMessages(ctx context.Context, channelID string, limit int, authorID string, after time.Time) (int, error)
}

type Service struct {
	cases    *modlog.Ledger
	warnings *warnings.Store
	mutes    *mutes.Registry
	platform Platform
	clock    clock.Clock
	logger   *zap.Logger
}

func NewService(cases *modlog.Ledger, warningStore *warnings.Store, muteRegistry *mutes.Registry, platform Platform, logger *zap.Logger) *Service {
	return &Service{
		cases:    cases,
		warnings: warningStore,
		mutes:    muteRegistry,
		platform: platform,
		clock:    clock.Real(),
		logger:   logger,
	}
}

func (s *Service) WithClock(c clock.Clock) {
	s.clock = c
}

// Request is a moderation action invoked by Executor against Target.
type Request struct {
	Guild    Guild
	Executor Member
	Target   Member
	Reason   string
}

func (r Request) reason() string {
	if r.Reason == "" {
		return modlog.DefaultReason
	}
	return r.Reason
}

func (r Request) entry(action modlog.Action, reason, duration string) modlog.Entry {
	return modlog.Entry{
		GuildID:   r.Guild.ID,
		Action:    action,
		User:      modlog.Actor{ID: r.Target.UserID, Tag: r.Target.Tag},
		Moderator: modlog.Actor{ID: r.Executor.UserID, Tag: r.Executor.Tag},
		Reason:    reason,
		Duration:  duration,
	}
}

type Result struct {
	Case      storage.ModCase
	Warnings  int
	Removed   int
	Remaining int
	Deleted   int
	Expires   time.Time
	Duration  string
	Target    modlog.Actor
}

func (s *Service) Ban(ctx context.Context, req Request, deleteDays int) (Result, error) {
	if err := CanModerate(req.Executor, req.Target, req.Guild); err != nil {
		return Result{}, err
	}
	if deleteDays < 0 || deleteDays > 7 {
		deleteDays = 0
	}
	reason := req.reason()
	s.dm(ctx, req.Target.UserID, utils.WarningEmbed(fmt.Sprintf(
		"You have been banned from **%s**\n**Reason:** %s\n**Moderator:** %s", req.Guild.Name, reason, req.Executor.Tag)))

	if err := s.platform.Ban(ctx, req.Guild.ID, req.Target.UserID, fmt.Sprintf("%s | Banned by %s", reason, req.Executor.Tag), deleteDays); err != nil {
		return Result{}, fmt.Errorf("ban: %w", err)
	}
	return s.record(ctx, req.entry(modlog.ActionBan, reason, ""))
}

func (s *Service) Kick(ctx context.Context, req Request) (Result, error) {
	if err := CanModerate(req.Executor, req.Target, req.Guild); err != nil {
		return Result{}, err
	}
	if !req.Target.Present {
		return Result{}, ErrNotMember
	}
	reason := req.reason()
	s.dm(ctx, req.Target.UserID, utils.WarningEmbed(fmt.Sprintf(
		"You have been kicked from **%s**\n**Reason:** %s\n**Moderator:** %s", req.Guild.Name, reason, req.Executor.Tag)))

	if err := s.platform.Kick(ctx, req.Guild.ID, req.Target.UserID, fmt.Sprintf("%s | Kicked by %s", reason, req.Executor.Tag)); err != nil {
		return Result{}, fmt.Errorf("kick: %w", err)
	}
	return s.record(ctx, req.entry(modlog.ActionKick, reason, ""))
}

// Mute applies a platform timeout and mirrors it in the mute registry.
func (s *Service) Mute(ctx context.Context, req Request, d time.Duration) (Result, error) {
	if err := CanModerate(req.Executor, req.Target, req.Guild); err != nil {
		return Result{}, err
	}
	if !req.Target.Present {
		return Result{}, ErrNotMember
	}
	if d <= 0 || d > mutes.MaxDuration {
		return Result{}, ErrInvalidDuration
	}
	reason := req.reason()
	durationText := utils.FormatDuration(d)
	until := s.clock.Now().Add(d)

	if err := s.platform.Timeout(ctx, req.Guild.ID, req.Target.UserID, &until, fmt.Sprintf("%s | By %s", reason, req.Executor.Tag)); err != nil {
		return Result{}, fmt.Errorf("timeout: %w", err)
	}
	expires, err := s.mutes.Upsert(ctx, req.Guild.ID, req.Target.UserID, d, reason)
	if err != nil {
		return Result{}, err
	}
	s.dm(ctx, req.Target.UserID, utils.WarningEmbed(fmt.Sprintf(
		"You have been timed out in **%s**\n**Duration:** %s\n**Reason:** %s\n**Moderator:** %s", req.Guild.Name, durationText, reason, req.Executor.Tag)))

	res, err := s.record(ctx, req.entry(modlog.ActionMute, reason, durationText))
	res.Expires = expires
	res.Duration = durationText
	return res, err
}

func (s *Service) Unmute(ctx context.Context, req Request) (Result, error) {
	if err := CanModerate(req.Executor, req.Target, req.Guild); err != nil {
		return Result{}, err
	}
	if !req.Target.Present {
		return Result{}, ErrNotMember
	}
	if req.Target.TimedOutUntil == nil || !req.Target.TimedOutUntil.After(s.clock.Now()) {
		return Result{}, ErrNotTimedOut
	}
	reason := req.reason()
	if err := s.platform.Timeout(ctx, req.Guild.ID, req.Target.UserID, nil, fmt.Sprintf("%s | By %s", reason, req.Executor.Tag)); err != nil {
		return Result{}, fmt.Errorf("remove timeout: %w", err)
	}
	if err := s.mutes.Remove(ctx, req.Guild.ID, req.Target.UserID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Result{}, err
	}
	s.dm(ctx, req.Target.UserID, utils.SuccessEmbed(fmt.Sprintf(
		"Your timeout has been removed in **%s**\n**Reason:** %s\n**Moderator:** %s", req.Guild.Name, reason, req.Executor.Tag)))
	return s.record(ctx, req.entry(modlog.ActionUnmute, reason, ""))
}

func (s *Service) Warn(ctx context.Context, req Request) (Result, error) {
	if err := CanModerate(req.Executor, req.Target, req.Guild); err != nil {
		return Result{}, err
	}
	reason := req.reason()
	total, err := s.warnings.Add(ctx, req.Guild.ID, req.Target.UserID, req.Executor.UserID, reason)
	if err != nil {
		return Result{}, err
	}
	s.dm(ctx, req.Target.UserID, utils.WarningEmbed(fmt.Sprintf(
		"You have been warned in **%s**\n**Reason:** %s\n**Moderator:** %s\n**Total Warnings:** %d", req.Guild.Name, reason, req.Executor.Tag, total)))

	res, err := s.record(ctx, req.entry(modlog.ActionWarn, reason, ""))
	res.Warnings = total
	return res, err
}

// Unwarn removes the target's n newest warnings, or all of them when n is 0.
func (s *Service) Unwarn(ctx context.Context, req Request, n int) (Result, error) {
	before, err := s.warnings.Count(ctx, req.Guild.ID, req.Target.UserID)
	if err != nil {
		return Result{}, err
	}
	if before == 0 {
		return Result{}, ErrNoWarnings
	}
	removed, err := s.warnings.Remove(ctx, req.Guild.ID, req.Target.UserID, n)
	if err != nil {
		return Result{}, err
	}
	res, err := s.record(ctx, req.entry(modlog.ActionUnwarn, fmt.Sprintf("Removed %d warning(s): %s", removed, req.reason()), ""))
	res.Removed = removed
	res.Remaining = before - removed
	return res, err
}

// Unban lifts a ban. Only the target's ID needs to be known.
func (s *Service) Unban(ctx context.Context, req Request) (Result, error) {
	banned, ok, err := s.platform.BannedUser(ctx, req.Guild.ID, req.Target.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch ban: %w", err)
	}
	if !ok {
		return Result{}, ErrNotBanned
	}
	reason := req.reason()
	if err := s.platform.Unban(ctx, req.Guild.ID, req.Target.UserID, fmt.Sprintf("%s | Unbanned by %s", reason, req.Executor.Tag)); err != nil {
		return Result{}, fmt.Errorf("unban: %w", err)
	}
	req.Target.Tag = banned.Tag
	res, err := s.record(ctx, req.entry(modlog.ActionUnban, reason, ""))
	res.Target = banned
	return res, err
}

// Purge bulk-deletes up to limit recent messages in channelID, optionally
// only those by req.Target. Without a target the case is filed against the
// executor.
func (s *Service) Purge(ctx context.Context, req Request, channelID string, limit int) (Result, error) {
	if limit < 1 || limit > 100 {
		return Result{}, fmt.Errorf("purge amount must be between 1 and 100")
	}
	deleted, err := s.platform.PurgeMessages(ctx, channelID, limit, req.Target.UserID, s.clock.Now().Add(-purgeHorizon))
	if err != nil {
		return Result{}, fmt.Errorf("purge: %w", err)
	}
	if deleted == 0 {
		return Result{}, ErrNothingToPurge
	}
	reason := fmt.Sprintf("Purged %d message(s) in <#%s>", deleted, channelID)
	if req.Target.UserID != "" {
		reason += " from " + req.Target.Tag
	} else {
		req.Target = req.Executor
	}
	res, err := s.record(ctx, req.entry(modlog.ActionPurge, reason, ""))
	res.Deleted = deleted
	return res, err
}

func (s *Service) record(ctx context.Context, entry modlog.Entry) (Result, error) {
	modCase, err := s.cases.Record(ctx, entry)
	if err != nil {
		return Result{}, err
	}
	return Result{Case: modCase, Target: entry.User}, nil
}

// dm is best-effort; closed DMs are expected.
func (s *Service) dm(ctx context.Context, userID string, embed *discordgo.MessageEmbed) {
	if err := s.platform.DirectMessage(ctx, userID, embed); err != nil {
		s.logger.Debug("direct message failed", zap.String("user_id", userID), zap.Error(err))
	}
}
