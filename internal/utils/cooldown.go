package utils

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cooldown lets a key through at most once per period.
type Cooldown struct {
	period time.Duration
	items  *cache.Cache
}

func NewCooldown(period time.Duration) *Cooldown {
	cleanup := period
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &Cooldown{period: period, items: cache.New(period, cleanup)}
}

// Allow reports whether key is off cooldown and, if so, starts a new period.
func (c *Cooldown) Allow(key string) bool {
	return c.items.Add(key, struct{}{}, c.period) == nil
}

// Remaining returns how long key stays on cooldown.
func (c *Cooldown) Remaining(key string) time.Duration {
	_, expires, ok := c.items.GetWithExpiration(key)
	if !ok {
		return 0
	}
	left := time.Until(expires)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Cooldown) Reset(key string) {
	c.items.Delete(key)
}

func (c *Cooldown) Len() int {
	return c.items.ItemCount()
}

// Close drops every entry.
func (c *Cooldown) Close() {
	c.items.Flush()
}
