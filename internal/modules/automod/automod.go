package automod

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"oblivion/internal/clock"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/modules/warnings"
	"oblivion/internal/storage"
	"oblivion/internal/utils"

	"go.uber.org/zap"
)

type Category int

const (
	CategoryNone Category = iota
	CategorySpam
	CategoryInvite
	CategoryLink
	CategoryBannedWord
)

func (c Category) String() string {
	switch c {
	case CategorySpam:
		return "spam"
	case CategoryInvite:
		return "invite"
	case CategoryLink:
		return "link"
	case CategoryBannedWord:
		return "banned word"
	default:
		return "none"
	}
}

func (c Category) Feature() storage.Feature {
	switch c {
	case CategorySpam:
		return storage.FeatureAntiSpam
	case CategoryInvite:
		return storage.FeatureAntiInvite
	case CategoryLink:
		return storage.FeatureAntiLink
	default:
		return storage.FeatureBannedWords
	}
}

type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	Content   string
	Author    modlog.Actor
}

// Platform is the chat surface the filter acts on.
type Platform interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendMessage(ctx context.Context, channelID, content string) (string, error)
}

type Config struct {
	SpamLimit       int
	SpamWindow      time.Duration
	IdleAfter       time.Duration
	NoticeTTL       time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		SpamLimit:       5,
		SpamWindow:      5 * time.Second,
		IdleAfter:       10 * time.Second,
		NoticeTTL:       5 * time.Second,
		CleanupInterval: time.Minute,
	}
}

// Filter classifies guild messages and applies the configured action. Spam
// windows live in this process only, so a restart or a second instance starts
// them from scratch.
type Filter struct {
	mu      sync.Mutex
	windows map[string]*utils.SlidingWindow
	notices map[string]clock.Timer

	cfg      Config
	clock    clock.Clock
	store    *storage.Store
	warnings *warnings.Store
	cases    *modlog.Ledger
	logger   *zap.Logger
	platform Platform
	bot      modlog.Actor
}

func New(cfg Config, store *storage.Store, warningStore *warnings.Store, cases *modlog.Ledger, logger *zap.Logger) *Filter {
	def := DefaultConfig()
	if cfg.SpamLimit <= 0 {
		cfg.SpamLimit = def.SpamLimit
	}
	if cfg.SpamWindow <= 0 {
		cfg.SpamWindow = def.SpamWindow
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = def.NoticeTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	return &Filter{
		windows:  make(map[string]*utils.SlidingWindow),
		notices:  make(map[string]clock.Timer),
		cfg:      cfg,
		clock:    clock.Real(),
		store:    store,
		warnings: warningStore,
		cases:    cases,
		logger:   logger,
	}
}

func (f *Filter) WithClock(c clock.Clock) {
	f.clock = c
}

// SetPlatform wires the chat surface and the bot identity used as moderator.
// It may be called again while messages are being checked.
func (f *Filter) SetPlatform(p Platform, bot modlog.Actor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.platform = p
	f.bot = bot
}

func (f *Filter) surface() (Platform, modlog.Actor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.platform, f.bot
}

// Check classifies msg against the guild's settings and applies the action.
func (f *Filter) Check(ctx context.Context, msg Message) (Category, storage.ActionMode, error) {
	settings, err := f.store.GetGuildSettings(ctx, msg.GuildID)
	if err != nil {
		return CategoryNone, "", err
	}
	category := f.Classify(settings, msg, f.clock.Now())
	if category == CategoryNone {
		return CategoryNone, "", nil
	}
	_, mode := settings.Feature(category.Feature())
	return category, mode, f.Apply(ctx, msg, category, mode)
}

// Classify returns the first matching category in the order spam, invite,
// link, banned word. Only enabled checks run.
func (f *Filter) Classify(settings storage.GuildSettings, msg Message, now time.Time) Category {
	if settings.AntiSpam && f.spamHit(msg.GuildID+":"+msg.Author.ID, now) {
		return CategorySpam
	}
	if settings.AntiInvite && utils.ContainsInvite(msg.Content) {
		return CategoryInvite
	}
	if settings.AntiLink && utils.ContainsLink(msg.Content) {
		return CategoryLink
	}
	if containsBannedWord(msg.Content, settings.BannedWords) {
		return CategoryBannedWord
	}
	return CategoryNone
}

// spamHit records a message for key. The hit is counted under f.mu so a
// concurrent Cleanup cannot evict the window between lookup and Add.
func (f *Filter) spamHit(key string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	window := f.windows[key]
	if window == nil {
		window = utils.NewSlidingWindow(f.cfg.SpamWindow)
		f.windows[key] = window
	}
	if window.Add(now) > f.cfg.SpamLimit {
		window.Reset()
		return true
	}
	return false
}

func containsBannedWord(content string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	lower := strings.ToLower(content)
	for _, word := range words {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// Apply carries out mode for a flagged message. Platform failures are logged
// and swallowed; storage failures are returned.
func (f *Filter) Apply(ctx context.Context, msg Message, category Category, mode storage.ActionMode) error {
	f.logViolation(msg, category, mode)
	platform, bot := f.surface()

	if mode.Deletes() && platform != nil {
		if err := platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			f.logger.Warn("automod delete failed", zap.String("guild_id", msg.GuildID), zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	reason := "AutoMod violation: " + category.String()
	content := "\nContent: " + truncate(msg.Content, 100)
	if mode.Warns() {
		total, err := f.warnings.Add(ctx, msg.GuildID, msg.Author.ID, bot.ID, reason)
		if err != nil {
			return err
		}
		if _, err := f.cases.Record(ctx, modlog.Entry{
			GuildID:   msg.GuildID,
			Action:    modlog.ActionWarn,
			User:      msg.Author,
			Moderator: bot,
			Reason:    fmt.Sprintf("%s%s\nTotal Warnings: %d", reason, content, total),
		}); err != nil {
			return err
		}
	}

	f.notify(ctx, platform, msg, category, mode)

	if !mode.Warns() {
		if _, err := f.cases.Record(ctx, modlog.Entry{
			GuildID:   msg.GuildID,
			Action:    modlog.ActionAutoMod,
			User:      msg.Author,
			Moderator: bot,
			Reason:    reason + content,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filter) logViolation(msg Message, category Category, mode storage.ActionMode) {
	fields := []zap.Field{
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.Author.ID),
		zap.String("category", category.String()),
		zap.String("mode", string(mode)),
	}
	switch category {
	case CategoryInvite:
		fields = append(fields, zap.String("invite", utils.FindInvite(msg.Content)))
	case CategoryLink:
		fields = append(fields, zap.Strings("hosts", utils.LinkHosts(msg.Content)))
	}
	f.logger.Info("automod violation", fields...)
}

// NoticeText is the in-channel notice for a violation.
func NoticeText(userID string, category Category, mode storage.ActionMode) string {
	var outcome string
	switch mode {
	case storage.ActionBoth:
		outcome = "your message was deleted and you have been warned"
	case storage.ActionWarn:
		outcome = "you have been warned"
	default:
		outcome = "your message was deleted"
	}
	return fmt.Sprintf("<@%s>, %s for violating automod rules: **%s**", userID, outcome, category)
}

// notify posts the notice and removes it after NoticeTTL.
func (f *Filter) notify(ctx context.Context, platform Platform, msg Message, category Category, mode storage.ActionMode) {
	if platform == nil {
		return
	}
	noticeID, err := platform.SendMessage(ctx, msg.ChannelID, NoticeText(msg.Author.ID, category, mode))
	if err != nil {
		f.logger.Warn("automod notice failed", zap.String("guild_id", msg.GuildID), zap.String("channel_id", msg.ChannelID), zap.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices[noticeID] = f.clock.AfterFunc(f.cfg.NoticeTTL, func() {
		f.mu.Lock()
		delete(f.notices, noticeID)
		f.mu.Unlock()
		_ = platform.DeleteMessage(context.Background(), msg.ChannelID, noticeID)
	})
}

// Cleanup drops windows whose last hit is older than IdleAfter.
func (f *Filter) Cleanup(now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for key, window := range f.windows {
		last := window.Last()
		if last.IsZero() || now.Sub(last) > f.cfg.IdleAfter {
			delete(f.windows, key)
			removed++
		}
	}
	return removed
}

func (f *Filter) TrackedWindows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

// Run evicts idle windows every CleanupInterval until ctx is done.
func (f *Filter) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := f.Cleanup(f.clock.Now()); n > 0 {
				f.logger.Debug("spam windows evicted", zap.Int("count", n))
			}
		}
	}
}

// Close stops pending notice removals and forgets all windows.
func (f *Filter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, timer := range f.notices {
		timer.Stop()
		delete(f.notices, id)
	}
	f.windows = make(map[string]*utils.SlidingWindow)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
