package utils

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30m":    30 * time.Minute,
		"1h":     time.Hour,
		"2 days": 48 * time.Hour,
		"1h30m":  90 * time.Minute,
		"10s":    10 * time.Second,
		"1w":     7 * 24 * time.Hour,
		"1500":   1500 * time.Millisecond,
		"250ms":  250 * time.Millisecond,
	}
	for input, want := range cases {
		got, err := ParseDuration(input)
		if err != nil {
			t.Fatalf("ParseDuration(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", input, got, want)
		}
	}

	for _, bad := range []string{"", "soon", "10 parsecs", "5m later"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		time.Second:         "1 second",
		45 * time.Second:    "45 seconds",
		time.Minute:         "1 minute",
		2 * time.Hour:       "2 hours",
		49 * time.Hour:      "2 days",
		28 * 24 * time.Hour: "28 days",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
