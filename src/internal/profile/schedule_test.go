package profile

import (
	"testing"
	"time"
)

func TestNextFire_Disabled(t *testing.T) {
	s := SyncSchedule{Enabled: false, Interval: time.Hour}
	if got := s.NextFire(time.Now()); !got.IsZero() {
		t.Fatalf("expected zero time for disabled schedule, got %v", got)
	}
}

func TestNextFire_IntervalRespectsAllowedDays(t *testing.T) {
	ref := time.Date(2026, time.August, 3, 9, 0, 0, 0, time.UTC) // Monday
	s := SyncSchedule{
		Enabled:  true,
		Days:     Tuesday,
		Interval: time.Hour,
	}

	got := s.NextFire(ref)
	if got.IsZero() {
		t.Fatal("expected a fire time restricted to Tuesday")
	}
	if got.Weekday() != time.Tuesday {
		t.Fatalf("expected Tuesday, got %v", got.Weekday())
	}
}

func TestNextFire_WindowBounded(t *testing.T) {
	ref := time.Date(2026, time.August, 3, 6, 0, 0, 0, time.UTC) // Monday, before window
	s := SyncSchedule{
		Enabled:      true,
		Days:         allWeekdays,
		TimeOfDayMin: 8 * 60,
		TimeOfDayMax: 10 * 60,
	}

	got := s.NextFire(ref)
	if got.IsZero() {
		t.Fatal("expected a window fire time")
	}
	minutes := got.Hour()*60 + got.Minute()
	if minutes < s.TimeOfDayMin || minutes > s.TimeOfDayMax {
		t.Fatalf("expected fire time within window, got %v", got)
	}
}

func TestNextFire_WindowAdvancesPastRefWithinSameDay(t *testing.T) {
	ref := time.Date(2026, time.August, 3, 9, 0, 0, 0, time.UTC) // inside the window
	s := SyncSchedule{
		Enabled:      true,
		Days:         allWeekdays,
		TimeOfDayMin: 8 * 60,
		TimeOfDayMax: 10 * 60,
	}

	got := s.NextFire(ref)
	if got.Before(ref) {
		t.Fatalf("expected fire time not before ref, got %v before %v", got, ref)
	}
	if got.Day() != ref.Day() {
		t.Fatalf("expected same-day fire when still inside the window, got %v", got)
	}
}
