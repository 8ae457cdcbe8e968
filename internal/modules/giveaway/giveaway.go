package giveaway

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"oblivion/internal/clock"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	// EnterButtonID is the custom ID of the entry button.
	EnterButtonID = "giveaway_enter"

	// DefaultRerollWindow is how long an ended giveaway can still be rerolled.
	DefaultRerollWindow = 24 * time.Hour

	colorActive = 0xFF69B4
)

var (
	ErrNotFound  = errors.New("giveaway not found")
	ErrEnded     = errors.New("giveaway already ended")
	ErrNoEntries = errors.New("giveaway has no entries")
)

type Giveaway struct {
	MessageID string
	ChannelID string
	GuildID   string
	HostID    string
	Prize     string
	Winners   int
	EndsAt    time.Time
}

// Outcome is delivered once a giveaway ends.
type Outcome struct {
	Giveaway Giveaway
	Winners  []string
	Entries  int
}

type entry struct {
	giveaway Giveaway
	entrants []string
	seen     map[string]struct{}
	timer    clock.Timer
	ended    bool
	onEnd    func(Outcome)
}

// Registry tracks running giveaways in memory. Ended giveaways stay
// available for rerolls for the reroll window, then are forgotten.
type Registry struct {
	mu           sync.Mutex
	giveaways    map[string]*entry
	clock        clock.Clock
	intn         func(int) int
	rerollWindow time.Duration
	logger       *zap.Logger
}

func New(logger *zap.Logger) *Registry {
	return &Registry{
		giveaways:    make(map[string]*entry),
		clock:        clock.Real(),
		intn:         rand.Intn,
		rerollWindow: DefaultRerollWindow,
		logger:       logger,
	}
}

func (r *Registry) WithRerollWindow(d time.Duration) {
	if d > 0 {
		r.rerollWindow = d
	}
}

func (r *Registry) WithClock(c clock.Clock) {
	r.clock = c
}

func (r *Registry) WithRand(intn func(int) int) {
	r.intn = intn
}

// Start schedules g to end at g.EndsAt. onEnd runs on the timer goroutine,
// or on the caller's goroutine when End is called early.
func (r *Registry) Start(g Giveaway, onEnd func(Outcome)) error {
	if g.MessageID == "" {
		return fmt.Errorf("giveaway message id is required")
	}
	if g.Winners < 1 {
		return fmt.Errorf("winner count must be at least 1")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.giveaways[g.MessageID]; exists {
		return fmt.Errorf("giveaway %s already running", g.MessageID)
	}
	e := &entry{giveaway: g, seen: make(map[string]struct{}), onEnd: onEnd}
	r.giveaways[g.MessageID] = e

	delay := g.EndsAt.Sub(r.clock.Now())
	if delay < 0 {
		delay = 0
	}
	messageID := g.MessageID
	e.timer = r.clock.AfterFunc(delay, func() {
		if _, err := r.End(messageID); err != nil && !errors.Is(err, ErrEnded) {
			r.logger.Warn("giveaway end failed", zap.String("message_id", messageID), zap.Error(err))
		}
	})
	r.logger.Info("giveaway started",
		zap.String("guild_id", g.GuildID),
		zap.String("message_id", g.MessageID),
		zap.Int("winners", g.Winners),
		zap.Time("ends_at", g.EndsAt),
	)
	return nil
}

// Enter adds userID to the giveaway. It reports false when the user had
// already entered.
func (r *Registry) Enter(messageID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.giveaways[messageID]
	if !ok {
		return false, ErrNotFound
	}
	if e.ended {
		return false, ErrEnded
	}
	if _, dup := e.seen[userID]; dup {
		return false, nil
	}
	e.seen[userID] = struct{}{}
	e.entrants = append(e.entrants, userID)
	return true, nil
}

// End closes the giveaway, draws winners and runs its callback.
func (r *Registry) End(messageID string) (Outcome, error) {
	r.mu.Lock()
	e, ok := r.giveaways[messageID]
	if !ok {
		r.mu.Unlock()
		return Outcome{}, ErrNotFound
	}
	if e.ended {
		r.mu.Unlock()
		return Outcome{}, ErrEnded
	}
	e.ended = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = r.clock.AfterFunc(r.rerollWindow, func() { r.evict(messageID, e) })
	outcome := Outcome{
		Giveaway: e.giveaway,
		Winners:  r.draw(e.entrants, e.giveaway.Winners),
		Entries:  len(e.entrants),
	}
	onEnd := e.onEnd
	r.mu.Unlock()

	r.logger.Info("giveaway ended",
		zap.String("message_id", messageID),
		zap.Int("entries", outcome.Entries),
		zap.Strings("winners", outcome.Winners),
	)
	if onEnd != nil {
		onEnd(outcome)
	}
	return outcome, nil
}

// Reroll draws a single new winner from an ended or running giveaway.
func (r *Registry) Reroll(messageID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.giveaways[messageID]
	if !ok {
		return "", ErrNotFound
	}
	if len(e.entrants) == 0 {
		return "", ErrNoEntries
	}
	return e.entrants[r.intn(len(e.entrants))], nil
}

// evict forgets e unless the slot has been reused since.
func (r *Registry) evict(messageID string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.giveaways[messageID] == e {
		delete(r.giveaways, messageID)
	}
}

func (r *Registry) Get(messageID string) (Giveaway, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.giveaways[messageID]
	if !ok {
		return Giveaway{}, 0, false
	}
	return e.giveaway, len(e.entrants), true
}

// Active returns the number of giveaways that have not ended.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.giveaways {
		if !e.ended {
			n++
		}
	}
	return n
}

// Close stops every pending end or eviction timer and forgets all giveaways.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.giveaways {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(r.giveaways, id)
	}
}

// draw picks up to n distinct entrants. Callers hold r.mu.
func (r *Registry) draw(entrants []string, n int) []string {
	pool := append([]string(nil), entrants...)
	if n > len(pool) {
		n = len(pool)
	}
	winners := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := r.intn(len(pool))
		winners = append(winners, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return winners
}

func mentions(ids []string, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "<@" + id + ">"
	}
	return strings.Join(parts, sep)
}

func StartEmbed(g Giveaway) *discordgo.MessageEmbed {
	ends := g.EndsAt.Unix()
	return &discordgo.MessageEmbed{
		Title: "🎉 GIVEAWAY 🎉",
		Description: fmt.Sprintf("**Prize:** %s\n**Winners:** %d\n**Ends:** <t:%d:R> (<t:%d:F>)\n\nClick the button below to enter!",
			g.Prize, g.Winners, ends, ends),
		Color:     colorActive,
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d winner(s) | Ends at", g.Winners)},
		Timestamp: g.EndsAt.Format(time.RFC3339),
	}
}

func EnterButton() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{CustomID: EnterButtonID, Label: "🎉 Enter Giveaway", Style: discordgo.PrimaryButton},
		}},
	}
}

// EndEmbed replaces the giveaway message once it ends.
func EndEmbed(o Outcome, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "🎉 GIVEAWAY ENDED 🎉",
		Footer:    &discordgo.MessageEmbedFooter{Text: "Giveaway ended"},
		Timestamp: now.Format(time.RFC3339),
	}
	if len(o.Winners) == 0 {
		embed.Description = fmt.Sprintf("**Prize:** %s\n\nNo valid entries! Nobody won.", o.Giveaway.Prize)
		embed.Color = utils.ColorError
		return embed
	}
	embed.Description = fmt.Sprintf("**Prize:** %s\n\n**Winner(s):**\n%s", o.Giveaway.Prize, mentions(o.Winners, "\n"))
	embed.Color = utils.ColorSuccess
	return embed
}

// Congratulations is the channel announcement for o, empty when nobody won.
func Congratulations(o Outcome) string {
	if len(o.Winners) == 0 {
		return ""
	}
	return fmt.Sprintf("🎉 Congratulations %s! You won **%s**!", mentions(o.Winners, ", "), o.Giveaway.Prize)
}
