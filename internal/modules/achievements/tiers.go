package achievements

import (
	"fmt"

	"oblivion/internal/storage"
	"oblivion/internal/utils"
)

// Category groups tiers that compete for a single held role.
type Category int

const (
	CategoryMessages Category = iota
	CategoryVoice
	CategoryReactionsGiven
	CategoryReactionsReceived
)

var Categories = []Category{CategoryMessages, CategoryVoice, CategoryReactionsGiven, CategoryReactionsReceived}

func (c Category) String() string {
	switch c {
	case CategoryMessages:
		return "Messages"
	case CategoryVoice:
		return "Voice"
	case CategoryReactionsGiven:
		return "Reactions Given"
	case CategoryReactionsReceived:
		return "Reactions Received"
	default:
		return "Unknown"
	}
}

func (c Category) Counter() storage.Counter {
	switch c {
	case CategoryVoice:
		return storage.CounterVoiceMinutes
	case CategoryReactionsGiven:
		return storage.CounterReactionsGiven
	case CategoryReactionsReceived:
		return storage.CounterReactionsReceived
	default:
		return storage.CounterMessages
	}
}

type Tier struct {
	Key       string
	Category  Category
	Threshold int64
	Name      string
	Emoji     string
	Color     int
}

func (t Tier) Description() string {
	n := utils.FormatNumber(t.Threshold)
	switch t.Category {
	case CategoryVoice:
		return fmt.Sprintf("Spent %s minutes in voice", n)
	case CategoryReactionsGiven:
		return fmt.Sprintf("Gave %s reactions", n)
	case CategoryReactionsReceived:
		return fmt.Sprintf("Received %s reactions", n)
	default:
		return fmt.Sprintf("Sent %s messages", n)
	}
}

// ladders hold the role-bearing tiers of each category in ascending order.
var ladders = map[Category][]Tier{
	CategoryMessages: {
		{Key: "msg_100", Threshold: 100, Name: "Active Chatter", Emoji: "📨", Color: 0x95A5A6},
		{Key: "msg_500", Threshold: 500, Name: "Dedicated Chatter", Emoji: "📬", Color: 0xCD7F32},
		{Key: "msg_1000", Threshold: 1000, Name: "Veteran Chatter", Emoji: "📬", Color: 0xC0C0C0},
		{Key: "msg_5000", Threshold: 5000, Name: "Elite Chatter", Emoji: "📮", Color: 0xFFD700},
		{Key: "msg_10000", Threshold: 10000, Name: "Legendary Chatter", Emoji: "💎", Color: 0x00FFFF},
	},
	CategoryVoice: {
		{Key: "vc_30", Threshold: 30, Name: "Voice Newcomer", Emoji: "🎧", Color: 0x99AAB5},
		{Key: "vc_60", Threshold: 60, Name: "Voice Regular I", Emoji: "🎙️", Color: 0xCD7F32},
		{Key: "vc_500", Threshold: 500, Name: "Voice Regular II", Emoji: "🎤", Color: 0xC0C0C0},
		{Key: "vc_1000", Threshold: 1000, Name: "Voice Veteran", Emoji: "📻", Color: 0xFFD700},
		{Key: "vc_5000", Threshold: 5000, Name: "Voice Legend", Emoji: "🔊", Color: 0x00FFFF},
	},
	CategoryReactionsGiven: {
		{Key: "react_50", Threshold: 50, Name: "Reactor", Emoji: "👍", Color: 0xCD7F32},
		{Key: "react_250", Threshold: 250, Name: "Super Reactor", Emoji: "⭐", Color: 0xC0C0C0},
		{Key: "react_1000", Threshold: 1000, Name: "Mega Reactor", Emoji: "🌟", Color: 0xFFD700},
	},
	CategoryReactionsReceived: {
		{Key: "popular_100", Threshold: 100, Name: "Rising Star", Emoji: "✨", Color: 0xC0C0C0},
		{Key: "popular_500", Threshold: 500, Name: "Superstar", Emoji: "🌠", Color: 0xFFD700},
	},
}

// newbie is announced once at exactly its threshold and never carries a role.
var newbie = Tier{Key: "msg_10", Category: CategoryMessages, Threshold: 10, Name: "Newbie Chatter", Emoji: "💬", Color: 0x99AAB5}

func init() {
	for c, tiers := range ladders {
		for i := range tiers {
			tiers[i].Category = c
		}
	}
}

// Tiers returns the role-bearing tiers of c, lowest first.
func Tiers(c Category) []Tier {
	return append([]Tier(nil), ladders[c]...)
}

// TierFor returns the highest tier of c whose threshold is at most value.
func TierFor(value int64, c Category) (Tier, bool) {
	tiers := ladders[c]
	for i := len(tiers) - 1; i >= 0; i-- {
		if value >= tiers[i].Threshold {
			return tiers[i], true
		}
	}
	return Tier{}, false
}

// NextTier returns the lowest tier of c not yet reached at value.
func NextTier(value int64, c Category) (Tier, bool) {
	for _, t := range ladders[c] {
		if value < t.Threshold {
			return t, true
		}
	}
	return Tier{}, false
}

// lowerTiers returns every tier of t's category below t.
func lowerTiers(t Tier) []Tier {
	var lower []Tier
	for _, candidate := range ladders[t.Category] {
		if candidate.Threshold < t.Threshold {
			lower = append(lower, candidate)
		}
	}
	return lower
}

// reached returns every tier unlocked by value, including the announce-only
// newbie tier when value hits it exactly.
func reached(value int64, c Category) []Tier {
	var out []Tier
	if c == CategoryMessages && value == newbie.Threshold {
		out = append(out, newbie)
	}
	for _, t := range ladders[c] {
		if value >= t.Threshold {
			out = append(out, t)
		}
	}
	return out
}

// LookupTier finds a tier by key.
func LookupTier(key string) (Tier, bool) {
	if key == newbie.Key {
		return newbie, true
	}
	for _, c := range Categories {
		for _, t := range ladders[c] {
			if t.Key == key {
				return t, true
			}
		}
	}
	return Tier{}, false
}
