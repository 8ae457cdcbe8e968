package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowAdd(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	if count := window.Add(now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add(now.Add(500 * time.Millisecond))
	if count := window.Count(now.Add(1 * time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(now.Add(3 * time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestSlidingWindowKeepsHitAtEdge(t *testing.T) {
	window := NewSlidingWindow(5 * time.Second)
	start := time.Unix(100, 0)
	window.Add(start)
	if count := window.Add(start.Add(5 * time.Second)); count != 2 {
		t.Fatalf("hit exactly one window old should stay, got %d", count)
	}
	if count := window.Add(start.Add(5*time.Second + time.Millisecond)); count != 2 {
		t.Fatalf("expected first hit dropped, got %d", count)
	}
	window.Reset()
	if count := window.Count(start); count != 0 {
		t.Fatalf("expected empty after reset, got %d", count)
	}
	if !window.Last().IsZero() {
		t.Fatalf("expected zero last hit")
	}
}
