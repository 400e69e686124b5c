package config

import (
	"fmt"
	"strconv"
	"time"
)

// ParsePeriod parses a duration literal consisting of an integer and a
// single suffix: Y (365 days), M (30 days), w, d, h or H, m, s.
// Examples: "2w", "90d", "1Y".
func ParsePeriod(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("period %q too short", s)
	}

	amount, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("period %q: %w", s, err)
	}
	if amount < 0 {
		return 0, fmt.Errorf("period %q is negative", s)
	}

	day := 24 * time.Hour
	switch s[len(s)-1] {
	case 'Y':
		return time.Duration(amount) * 365 * day, nil
	case 'M':
		return time.Duration(amount) * 30 * day, nil
	case 'w':
		return time.Duration(amount) * 7 * day, nil
	case 'd':
		return time.Duration(amount) * day, nil
	case 'h', 'H':
		return time.Duration(amount) * time.Hour, nil
	case 'm':
		return time.Duration(amount) * time.Minute, nil
	case 's':
		return time.Duration(amount) * time.Second, nil
	default:
		return 0, fmt.Errorf("period %q: invalid suffix %q", s, s[len(s)-1])
	}
}
