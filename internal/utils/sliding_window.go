package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts hits no older than window. A hit exactly window old is
// still inside.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.dropLocked(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.dropLocked(now)
	return len(w.hits)
}

func (w *SlidingWindow) Reset() {
	w.mu.Lock()
	w.hits = nil
	w.mu.Unlock()
}

// Last returns the newest hit, or the zero time when empty.
func (w *SlidingWindow) Last() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.hits) == 0 {
		return time.Time{}
	}
	return w.hits[len(w.hits)-1]
}

func (w *SlidingWindow) dropLocked(now time.Time) {
	idx := 0
	for _, hit := range w.hits {
		if now.Sub(hit) <= w.window {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}
