package leave

import "time"

// CalculateDays returns the inclusive day count between start and end.
func CalculateDays(start, end time.Time) (int, error) {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

// Overlaps reports whether two inclusive date ranges share a day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !dateOnly(aStart).After(dateOnly(bEnd)) && !dateOnly(bStart).After(dateOnly(aEnd))
}

// DaysWithin counts the days of [start, end] falling inside [from, to].
func DaysWithin(start, end, from, to time.Time) int {
	if !Overlaps(start, end, from, to) {
		return 0
	}
	lo, hi := dateOnly(start), dateOnly(end)
	if f := dateOnly(from); f.After(lo) {
		lo = f
	}
	if t := dateOnly(to); t.Before(hi) {
		hi = t
	}
	days, _ := CalculateDays(lo, hi)
	return days
}

// CanTransition holds the workflow: only Pending requests move, and only to
// a terminal state.
func CanTransition(from, to string) bool {
	if from != StatusPending {
		return false
	}
	switch to {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanOverride lists what an administrator may force on a decided request.
func CanOverride(from, to string) bool {
	if from == StatusPending || from == to {
		return false
	}
	return to == StatusApproved || to == StatusRejected
}

func ValidType(leaveType string) bool {
	for _, t := range Types {
		if t == leaveType {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
