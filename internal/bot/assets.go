package bot

import (
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type roleInfo struct {
	Name  string
	Color int
}

// guildAssets remembers roles, emojis and stickers per guild. Role deletes
// carry only the ID and emoji or sticker updates carry the whole list, so the
// previous view is what names the thing that changed.
type guildAssets struct {
	mu       sync.Mutex
	roles    map[string]map[string]roleInfo
	emojis   map[string]map[string]*discordgo.Emoji
	stickers map[string]map[string]*discordgo.Sticker
}

func newGuildAssets() *guildAssets {
	return &guildAssets{
		roles:    make(map[string]map[string]roleInfo),
		emojis:   make(map[string]map[string]*discordgo.Emoji),
		stickers: make(map[string]map[string]*discordgo.Sticker),
	}
}

func (a *guildAssets) seed(guild *discordgo.Guild) {
	if guild == nil {
		return
	}
	roles := make(map[string]roleInfo, len(guild.Roles))
	for _, role := range guild.Roles {
		if role != nil {
			roles[role.ID] = roleInfo{Name: role.Name, Color: role.Color}
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roles[guild.ID] = roles
	a.emojis[guild.ID] = byID(guild.Emojis, emojiID)
	a.stickers[guild.ID] = byID(guild.Stickers, stickerID)
}

func (a *guildAssets) forget(guildID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.roles, guildID)
	delete(a.emojis, guildID)
	delete(a.stickers, guildID)
}

func (a *guildAssets) putRole(guildID string, role *discordgo.Role) {
	if role == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	roles := a.roles[guildID]
	if roles == nil {
		roles = make(map[string]roleInfo)
		a.roles[guildID] = roles
	}
	roles[role.ID] = roleInfo{Name: role.Name, Color: role.Color}
}

// dropRole forgets a role and returns what was known about it.
func (a *guildAssets) dropRole(guildID, roleID string) (roleInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	info, ok := a.roles[guildID][roleID]
	delete(a.roles[guildID], roleID)
	return info, ok
}

// swapEmojis stores next as the guild's emoji list and reports the
// difference. A guild seen for the first time reports nothing.
func (a *guildAssets) swapEmojis(guildID string, next []*discordgo.Emoji) (added, removed []*discordgo.Emoji) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, known := a.emojis[guildID]
	a.emojis[guildID] = byID(next, emojiID)
	if !known {
		return nil, nil
	}
	return diffByID(prev, next, emojiID)
}

func (a *guildAssets) swapStickers(guildID string, next []*discordgo.Sticker) (added, removed []*discordgo.Sticker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, known := a.stickers[guildID]
	a.stickers[guildID] = byID(next, stickerID)
	if !known {
		return nil, nil
	}
	return diffByID(prev, next, stickerID)
}

func emojiID(e *discordgo.Emoji) string     { return e.ID }
func stickerID(s *discordgo.Sticker) string { return s.ID }

func byID[T any](items []*T, id func(*T) string) map[string]*T {
	out := make(map[string]*T, len(items))
	for _, item := range items {
		if item != nil {
			out[id(item)] = item
		}
	}
	return out
}

// diffByID returns items of next missing from prev, in list order, and items
// of prev missing from next, ordered by ID.
func diffByID[T any](prev map[string]*T, next []*T, id func(*T) string) (added, removed []*T) {
	seen := make(map[string]struct{}, len(next))
	for _, item := range next {
		if item == nil {
			continue
		}
		key := id(item)
		seen[key] = struct{}{}
		if _, ok := prev[key]; !ok {
			added = append(added, item)
		}
	}
	for key, item := range prev {
		if _, ok := seen[key]; !ok {
			removed = append(removed, item)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return id(removed[i]) < id(removed[j]) })
	return added, removed
}
