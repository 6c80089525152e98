package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders a millisecond count as "{h}h {m}m {s}s". Zero
// components are dropped, but seconds are kept when both hours and minutes
// are zero, so 0 renders as "0s".
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || (h == 0 && m == 0) {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

// FormatMinutes renders whole minutes as "1h 30m", "2h" or "45m".
func FormatMinutes(min int) string {
	if min <= 0 {
		return "0m"
	}
	return FormatDuration(int64(min) * int64(time.Minute/time.Millisecond))
}
