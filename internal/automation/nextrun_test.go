package automation

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, v string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", v)
	if err != nil {
		t.Fatalf("parse %q: %v", v, err)
	}
	return ts
}

func intPtr(n int) *int { return &n }

func TestNextRunAt_Daily(t *testing.T) {
	now := mustParse(t, "2024-03-10 14:30")

	next, ok := NextRunAt(ScheduleDaily, ScheduleConfig{Time: "08:15"}, now)
	if !ok {
		t.Fatalf("expected a next run")
	}
	want := mustParse(t, "2024-03-11 08:15")
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestNextRunAt_WeeklyWraparound(t *testing.T) {
	// Wednesday; target Monday (1): delta 1-3 = -2, wraps to +5 days
	now := mustParse(t, "2024-03-13 10:00")
	if now.Weekday() != time.Wednesday {
		t.Fatalf("fixture is not a Wednesday")
	}

	next, ok := NextRunAt(ScheduleWeekly, ScheduleConfig{Time: "09:00", DayOfWeek: intPtr(1)}, now)
	if !ok {
		t.Fatalf("expected a next run")
	}
	want := mustParse(t, "2024-03-18 09:00")
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
	if next.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %v", next.Weekday())
	}
}

func TestNextRunAt_WeeklySameDayWrapsFullWeek(t *testing.T) {
	now := mustParse(t, "2024-03-13 10:00") // Wednesday

	next, ok := NextRunAt(ScheduleWeekly, ScheduleConfig{Time: "09:00", DayOfWeek: intPtr(3)}, now)
	if !ok {
		t.Fatalf("expected a next run")
	}
	want := mustParse(t, "2024-03-20 09:00")
	if !next.Equal(want) {
		t.Fatalf("same-day schedule should land next week: %v, want %v", next, want)
	}
}

func TestNextRunAt_MonthlyClamp(t *testing.T) {
	// requesting day 31; following month (April) has 30 days
	now := mustParse(t, "2024-03-31 12:00")

	next, ok := NextRunAt(ScheduleMonthly, ScheduleConfig{Time: "06:00", DayOfMonth: intPtr(31)}, now)
	if !ok {
		t.Fatalf("expected a next run")
	}
	want := mustParse(t, "2024-04-30 06:00")
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestNextRunAt_MonthlyYearRollover(t *testing.T) {
	now := mustParse(t, "2024-12-15 12:00")

	next, ok := NextRunAt(ScheduleMonthly, ScheduleConfig{Time: "07:30", DayOfMonth: intPtr(15)}, now)
	if !ok {
		t.Fatalf("expected a next run")
	}
	want := mustParse(t, "2025-01-15 07:30")
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestNextRunAt_ManualAndUnknownYieldNothing(t *testing.T) {
	now := mustParse(t, "2024-03-10 14:30")

	if _, ok := NextRunAt(ScheduleManual, ScheduleConfig{}, now); ok {
		t.Fatalf("manual schedules have no next run")
	}
	if _, ok := NextRunAt("hourly", ScheduleConfig{}, now); ok {
		t.Fatalf("unknown schedule types have no next run")
	}
}

func TestNextRunAt_MalformedClockDefaults(t *testing.T) {
	now := mustParse(t, "2024-03-10 14:30")

	next, _ := NextRunAt(ScheduleDaily, ScheduleConfig{Time: "not-a-time"}, now)
	if next.Hour() != 9 || next.Minute() != 0 {
		t.Fatalf("expected 09:00 fallback, got %02d:%02d", next.Hour(), next.Minute())
	}
}
