package attendance

import "errors"

var (
	ErrRecordNotFound   = errors.New("attendance record not found")
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	ErrNoOpenCheckIn    = errors.New("no open check-in for today")
	ErrInvalidTimeOrder = errors.New("check-out must not be before check-in")
	ErrInvalidStatus    = errors.New("invalid attendance status")
)
