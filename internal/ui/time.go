package ui

import (
	"fmt"
	"time"
)

// FormatDue returns a compact relative deadline like "in 2d" or "3h ago".
// Zero times render as "-".
func FormatDue(deadline time.Time, now time.Time) string {
	if deadline.IsZero() {
		return "-"
	}
	if deadline.Before(now) {
		return FormatDurationShort(now.Sub(deadline)) + " ago"
	}
	return "in " + FormatDurationShort(deadline.Sub(now))
}

// FormatDate renders a deadline as a short local date and time.
func FormatDate(deadline time.Time) string {
	if deadline.IsZero() {
		return "-"
	}
	return deadline.Local().Format("Mon 02 Jan 2006 15:04")
}

// FormatDurationShort formats a duration using short units (s/m/h/d).
func FormatDurationShort(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}

	duration = duration.Truncate(time.Second)
	seconds := int64(duration.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	return fmt.Sprintf("%dd", days)
}
