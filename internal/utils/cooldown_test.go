package utils

import (
	"testing"
	"time"
)

func TestCooldownAllow(t *testing.T) {
	cd := NewCooldown(time.Hour)
	if !cd.Allow("g1:u1") {
		t.Fatalf("first call should pass")
	}
	if cd.Allow("g1:u1") {
		t.Fatalf("second call should be gated")
	}
	if !cd.Allow("g1:u2") {
		t.Fatalf("other users are independent")
	}
	if cd.Remaining("g1:u1") <= 0 {
		t.Fatalf("expected remaining cooldown")
	}
	cd.Reset("g1:u1")
	if !cd.Allow("g1:u1") {
		t.Fatalf("reset key should pass")
	}
}

func TestCooldownExpires(t *testing.T) {
	cd := NewCooldown(20 * time.Millisecond)
	if !cd.Allow("k") {
		t.Fatalf("first call should pass")
	}
	time.Sleep(40 * time.Millisecond)
	if !cd.Allow("k") {
		t.Fatalf("expected cooldown to expire")
	}
}
