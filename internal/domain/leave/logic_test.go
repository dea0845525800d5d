package leave

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateDays(t *testing.T) {
	days, err := CalculateDays(day(2025, 1, 10), day(2025, 1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	days, err = CalculateDays(day(2025, 1, 10), day(2025, 1, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCalculateDaysInvalid(t *testing.T) {
	if _, err := CalculateDays(day(2025, 2, 10), day(2025, 2, 9)); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"disjoint", day(2025, 3, 1), day(2025, 3, 3), day(2025, 3, 4), day(2025, 3, 6), false},
		{"touching end", day(2025, 3, 1), day(2025, 3, 4), day(2025, 3, 4), day(2025, 3, 6), true},
		{"contained", day(2025, 3, 1), day(2025, 3, 10), day(2025, 3, 4), day(2025, 3, 5), true},
		{"single day same", day(2025, 3, 1), day(2025, 3, 1), day(2025, 3, 1), day(2025, 3, 1), true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Fatalf("Overlaps must be symmetric")
			}
		})
	}
}

func TestDaysWithinClipsToWindow(t *testing.T) {
	from, to := day(2025, 3, 1), day(2025, 3, 31)
	if got := DaysWithin(day(2025, 2, 27), day(2025, 3, 2), from, to); got != 2 {
		t.Fatalf("expected 2 days in March, got %d", got)
	}
	if got := DaysWithin(day(2025, 4, 1), day(2025, 4, 2), from, to); got != 0 {
		t.Fatalf("expected no days, got %d", got)
	}
}

func TestTransitions(t *testing.T) {
	for _, to := range []string{StatusApproved, StatusRejected, StatusCancelled} {
		if !CanTransition(StatusPending, to) {
			t.Fatalf("expected Pending -> %s allowed", to)
		}
	}
	for _, from := range []string{StatusApproved, StatusRejected, StatusCancelled} {
		for _, to := range []string{StatusPending, StatusApproved, StatusRejected, StatusCancelled} {
			if CanTransition(from, to) {
				t.Fatalf("expected %s -> %s denied", from, to)
			}
		}
	}
	if !CanOverride(StatusRejected, StatusApproved) || !CanOverride(StatusCancelled, StatusRejected) {
		t.Fatal("expected overrides of terminal states")
	}
	if CanOverride(StatusPending, StatusApproved) || CanOverride(StatusApproved, StatusApproved) {
		t.Fatal("override must not replace the normal decision")
	}
}
