package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPart = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(milliseconds?|msecs?|ms|seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|w|years?|yrs?|y)`)

// ParseDuration reads human durations such as "30m", "1h", "2 days" or "1h30m".
// A bare number is milliseconds.
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if ms, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond)), nil
	}

	matches := durationPart.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	var total float64
	consumed := 0
	for _, m := range matches {
		if strings.TrimSpace(value[consumed:m[0]]) != "" {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		amount, err := strconv.ParseFloat(value[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		total += amount * float64(unitOf(strings.ToLower(value[m[4]:m[5]])))
		consumed = m[1]
	}
	if strings.TrimSpace(value[consumed:]) != "" {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	if total > math.MaxInt64 {
		return 0, fmt.Errorf("duration %q too long", value)
	}
	return time.Duration(total), nil
}

func unitOf(unit string) time.Duration {
	switch {
	case strings.HasPrefix(unit, "ms"), strings.HasPrefix(unit, "msec"), strings.HasPrefix(unit, "milli"):
		return time.Millisecond
	case strings.HasPrefix(unit, "s"):
		return time.Second
	case strings.HasPrefix(unit, "m"):
		return time.Minute
	case strings.HasPrefix(unit, "h"):
		return time.Hour
	case strings.HasPrefix(unit, "d"):
		return 24 * time.Hour
	case strings.HasPrefix(unit, "w"):
		return 7 * 24 * time.Hour
	default:
		return 365*24*time.Hour + 6*time.Hour
	}
}

// FormatDuration renders d in its largest whole unit, e.g. "2 hours".
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return plural(days, "day")
	case hours > 0:
		return plural(hours, "hour")
	case minutes > 0:
		return plural(minutes, "minute")
	default:
		return plural(seconds, "second")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
