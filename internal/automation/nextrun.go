package automation

import (
	"strconv"
	"strings"
	"time"
)

const defaultClock = "09:00"

// NextRunAt computes the next execution time for a schedule relative to now.
// It is pure: the clock is injected. The second return is false when the
// schedule yields no next run (manual or unknown types).
func NextRunAt(scheduleType string, cfg ScheduleConfig, now time.Time) (time.Time, bool) {
	hour, minute := parseClock(cfg.Time)

	switch scheduleType {
	case ScheduleDaily:
		d := now.AddDate(0, 0, 1)
		return at(d.Year(), d.Month(), d.Day(), hour, minute, now.Location()), true

	case ScheduleWeekly:
		target := 1 // Monday
		if cfg.DayOfWeek != nil {
			target = *cfg.DayOfWeek
		}
		// strictly after today: a delta of zero or less wraps to next week
		delta := target - int(now.Weekday())
		if delta <= 0 {
			delta += 7
		}
		d := now.AddDate(0, 0, delta)
		return at(d.Year(), d.Month(), d.Day(), hour, minute, now.Location()), true

	case ScheduleMonthly:
		dom := now.Day()
		if cfg.DayOfMonth != nil {
			dom = *cfg.DayOfMonth
		}
		// first day of next month, normalized across year boundaries
		first := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		last := daysInMonth(first.Year(), first.Month())
		if dom > last {
			dom = last
		}
		if dom < 1 {
			dom = 1
		}
		return at(first.Year(), first.Month(), dom, hour, minute, now.Location()), true

	default:
		return time.Time{}, false
	}
}

func at(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// parseClock reads "HH:MM"; malformed or missing values fall back to 09:00.
func parseClock(s string) (hour, minute int) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		parts = strings.SplitN(defaultClock, ":", 2)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 9, 0
	}
	return h, m
}
