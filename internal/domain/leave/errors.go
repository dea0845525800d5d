package leave

import "errors"

var (
	ErrRequestNotFound        = errors.New("leave request not found")
	ErrEmployeeNotFound       = errors.New("employee not found")
	ErrInvalidStateTransition = errors.New("invalid leave state transition")
	ErrOverlappingLeave       = errors.New("leave overlaps an approved leave")
	ErrInvalidDateRange       = errors.New("end date before start date")
	ErrStartInPast            = errors.New("leave cannot start in the past")
	ErrInvalidLeaveType       = errors.New("unknown leave type")
	ErrInvalidDecision        = errors.New("decision must be Approved or Rejected")
)
