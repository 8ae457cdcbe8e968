package xp

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"oblivion/internal/clock"
	"oblivion/internal/storage"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const week = 7 * 24 * time.Hour

const barSegments = 20

type Timeframe int

const (
	TimeframeAllTime Timeframe = iota
	TimeframeWeekly
)

func ParseTimeframe(value string) Timeframe {
	if strings.EqualFold(value, "weekly") {
		return TimeframeWeekly
	}
	return TimeframeAllTime
}

type Config struct {
	MinGain  int
	MaxGain  int
	Cooldown time.Duration
}

func DefaultConfig() Config {
	return Config{MinGain: 15, MaxGain: 25, Cooldown: time.Minute}
}

// Ledger tracks cumulative and weekly XP. Award itself never deduplicates;
// AwardMessage applies the per-user message cooldown.
type Ledger struct {
	store    *storage.Store
	logger   *zap.Logger
	cfg      Config
	clock    clock.Clock
	cooldown *utils.Cooldown
	intn     func(n int) int
}

func New(store *storage.Store, logger *zap.Logger, cfg Config) *Ledger {
	if cfg.MinGain <= 0 {
		cfg.MinGain = DefaultConfig().MinGain
	}
	if cfg.MaxGain < cfg.MinGain {
		cfg.MaxGain = cfg.MinGain
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	return &Ledger{
		store:    store,
		logger:   logger,
		cfg:      cfg,
		clock:    clock.Real(),
		cooldown: utils.NewCooldown(cfg.Cooldown),
		intn:     rand.Intn,
	}
}

func (l *Ledger) WithClock(c clock.Clock) {
	l.clock = c
}

// WithRand replaces the gain source; intn must return a value in [0, n).
func (l *Ledger) WithRand(intn func(n int) int) {
	l.intn = intn
}

func (l *Ledger) Close() {
	l.cooldown.Close()
}

// WeekStart returns the week boundary containing now in Unix milliseconds.
func WeekStart(now time.Time) int64 {
	ms := now.UnixMilli()
	return ms - ms%week.Milliseconds()
}

func (l *Ledger) Award(ctx context.Context, guildID, userID string, amount int64) (storage.UserXP, error) {
	row, err := l.store.AddXP(ctx, guildID, userID, amount, WeekStart(l.clock.Now()))
	if err != nil {
		return storage.UserXP{}, fmt.Errorf("award xp: %w", err)
	}
	return row, nil
}

// Set moves the user's XP to target by awarding the signed difference.
func (l *Ledger) Set(ctx context.Context, guildID, userID string, target int64) (storage.UserXP, error) {
	current, err := l.store.GetUserXP(ctx, guildID, userID)
	if err != nil {
		return storage.UserXP{}, err
	}
	delta := target - current.XP
	if delta == 0 {
		return current, nil
	}
	return l.Award(ctx, guildID, userID, delta)
}

func (l *Ledger) Get(ctx context.Context, guildID, userID string) (storage.UserXP, error) {
	return l.store.GetUserXP(ctx, guildID, userID)
}

// Rank is one plus the number of users with strictly more XP.
func (l *Ledger) Rank(ctx context.Context, guildID, userID string) (int, storage.UserXP, error) {
	row, err := l.store.GetUserXP(ctx, guildID, userID)
	if err != nil {
		return 0, storage.UserXP{}, err
	}
	above, err := l.store.RankAbove(ctx, guildID, row.XP)
	if err != nil {
		return 0, storage.UserXP{}, err
	}
	return above + 1, row, nil
}

func (l *Ledger) Leaderboard(ctx context.Context, guildID string, tf Timeframe, limit int) ([]storage.UserXP, error) {
	if limit <= 0 {
		limit = 10
	}
	if tf == TimeframeWeekly {
		return l.store.TopWeeklyXP(ctx, guildID, WeekStart(l.clock.Now()), limit)
	}
	return l.store.TopXP(ctx, guildID, limit)
}

type MessageResult struct {
	Awarded   bool
	Gain      int64
	Record    storage.UserXP
	OldLevel  int
	NewLevel  int
	LeveledUp bool
}

// AwardMessage grants a random gain for a chat message unless the user is on
// cooldown.
func (l *Ledger) AwardMessage(ctx context.Context, guildID, userID string) (MessageResult, error) {
	if !l.cooldown.Allow(guildID + ":" + userID) {
		return MessageResult{}, nil
	}
	gain := int64(l.cfg.MinGain + l.intn(l.cfg.MaxGain-l.cfg.MinGain+1))
	row, err := l.Award(ctx, guildID, userID, gain)
	if err != nil {
		return MessageResult{}, err
	}
	oldLevel := Level(row.XP - gain)
	newLevel := Level(row.XP)
	return MessageResult{
		Awarded:   true,
		Gain:      gain,
		Record:    row,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		LeveledUp: newLevel > oldLevel,
	}, nil
}

// Level is floor(0.1 * sqrt(xp)), computed on integers.
func Level(xp int64) int {
	if xp <= 0 {
		return 0
	}
	return int(isqrt(xp) / 10)
}

func isqrt(n int64) int64 {
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// XPForLevel is the total XP at which level starts.
func XPForLevel(level int) int64 {
	base := int64(level) * 10
	return base * base
}

type Progress struct {
	Level   int
	Current int64
	Needed  int64
	Percent int
	Bar     string
}

func ProgressFor(xp int64) Progress {
	level := Level(xp)
	floor := XPForLevel(level)
	needed := XPForLevel(level+1) - floor
	current := xp - floor
	if current < 0 {
		current = 0
	}
	percent := int(current * 100 / needed)
	filled := percent / 5
	if filled > barSegments {
		filled = barSegments
	}
	return Progress{
		Level:   level,
		Current: current,
		Needed:  needed,
		Percent: percent,
		Bar:     strings.Repeat("█", filled) + strings.Repeat("░", barSegments-filled),
	}
}

func LevelUpEmbed(userID string, level int, total int64, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎉 Level Up!",
		Description: fmt.Sprintf("<@%s> reached **Level %d**!", userID, level),
		Color:       0xFFD700,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total XP", Value: utils.FormatNumber(total), Inline: true},
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
