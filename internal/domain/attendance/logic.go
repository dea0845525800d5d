package attendance

import "time"

// CivilDate returns the calendar day of ts in loc as midnight UTC, the form
// stored in DATE columns.
func CivilDate(ts time.Time, loc *time.Location) time.Time {
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WorkedMinutes returns the minutes between check-in and check-out and the
// part of it beyond the standard day.
func WorkedMinutes(checkIn, checkOut time.Time, standardDay time.Duration) (working, extra int, err error) {
	if checkOut.Before(checkIn) {
		return 0, 0, ErrInvalidTimeOrder
	}
	worked := checkOut.Sub(checkIn)
	working = int(worked / time.Minute)
	if worked > standardDay {
		extra = int((worked - standardDay) / time.Minute)
	}
	return working, extra, nil
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPresent, StatusHalfDay, StatusAbsent:
		return true
	}
	return false
}
