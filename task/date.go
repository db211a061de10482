package task

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateOptions controls how dates without a time of day are normalized.
type DateOptions struct {
	// Hour and Minute give date-only inputs their time of day.
	Hour   int
	Minute int
	// Location interprets inputs that carry no zone. Defaults to time.Local.
	Location *time.Location
}

var (
	timestampLayouts = []string{
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	dateLayouts = []string{
		"2006-01-02",
		"2-1-2006",
	}
)

const partialDateLayout = "2-1"

// ParseDate normalizes a user- or store-supplied date to an absolute time.
//
// Accepted forms are RFC 3339 timestamps, "YYYY-MM-DDTHH:MM",
// "YYYY-MM-DD", "DD-MM-YYYY" and the partial "DD-MM", whose year is taken
// from now. Forms without a time of day get opts.Hour:opts.Minute.
func ParseDate(value string, now time.Time, opts DateOptions) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, nil
		}
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return atClock(parsed.Year(), parsed.Month(), parsed.Day(), opts, loc), nil
		}
	}

	if parsed, err := time.ParseInLocation(partialDateLayout, value, loc); err == nil {
		year := now.In(loc).Year()
		deadline := atClock(year, parsed.Month(), parsed.Day(), opts, loc)
		// 29-02 in a non-leap year would roll over into March.
		if deadline.Month() != parsed.Month() || deadline.Day() != parsed.Day() {
			return time.Time{}, fmt.Errorf("%w: %q does not exist in %d", ErrInvalidDate, value, year)
		}
		return deadline, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q (expected RFC 3339, YYYY-MM-DD, DD-MM-YYYY or DD-MM)", ErrInvalidDate, value)
}

// Today returns today's date at the configured time of day.
func Today(now time.Time, opts DateOptions) time.Time {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return atClock(local.Year(), local.Month(), local.Day(), opts, loc)
}

// FormatDate renders a deadline in its canonical stored form.
func FormatDate(deadline time.Time) string {
	return deadline.Format(time.RFC3339)
}

// dateFromField decodes the date field of a stored document. Besides the
// string forms accepted by ParseDate it understands unix milliseconds and
// {seconds, nanoseconds} timestamp objects.
func dateFromField(value any, now time.Time, opts DateOptions) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing", ErrInvalidDate)
	case string:
		return ParseDate(v, now, opts)
	case time.Time:
		return v, nil
	case float64:
		millis, ok := wholeInt64(v)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, v)
		}
		return time.UnixMilli(millis), nil
	case int64:
		return time.UnixMilli(v), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case map[string]any:
		seconds, ok := v["seconds"].(float64)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: timestamp object without seconds", ErrInvalidDate)
		}
		secs, ok := wholeInt64(seconds)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: seconds %v", ErrInvalidDate, seconds)
		}
		nanos, _ := v["nanoseconds"].(float64)
		ns, ok := wholeInt64(nanos)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: nanoseconds %v", ErrInvalidDate, nanos)
		}
		return time.Unix(secs, ns), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, value)
	}
}

// wholeInt64 converts v to int64, truncating any fraction, and reports
// false when v is not finite or lies outside the int64 range.
func wholeInt64(v float64) (int64, bool) {
	if math.IsNaN(v) || v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func atClock(year int, month time.Month, day int, opts DateOptions, loc *time.Location) time.Time {
	return time.Date(year, month, day, opts.Hour, opts.Minute, 0, 0, loc)
}
