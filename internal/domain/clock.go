package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts "HH:MM" to minutes of day.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("parse clock: %q is not HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("parse clock: bad hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("parse clock: bad minute in %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse clock: %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes of day to "HH:MM". Values beyond the day are
// wrapped so route end times past midnight stay renderable.
func FormatClock(min int) string {
	if min < 0 {
		min = 0
	}
	min %= 24 * 60
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}
