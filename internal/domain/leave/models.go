package leave

import "time"

const (
	TypeSick   = "Sick Leave"
	TypeCasual = "Casual Leave"
	TypeAnnual = "Annual Leave"
	TypeUnpaid = "Unpaid Leave"
)

var Types = []string{TypeSick, TypeCasual, TypeAnnual, TypeUnpaid}

const (
	StatusPending   = "Pending"
	StatusApproved  = "Approved"
	StatusRejected  = "Rejected"
	StatusCancelled = "Cancelled"
)

type Request struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employeeId"`
	EmployeeName string     `json:"employeeName,omitempty"`
	LeaveType    string     `json:"leaveType"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      time.Time  `json:"endDate"`
	Days         int        `json:"days"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	DecidedBy    string     `json:"decidedBy,omitempty"`
	DecidedAt    *time.Time `json:"decidedAt,omitempty"`
	DecisionNote string     `json:"decisionNote,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type NewRequest struct {
	LeaveType string
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// Decision moves a request to Approved or Rejected.
type Decision struct {
	Status string
	Note   string
}

type Filter struct {
	EmployeeID string
	Status     string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

type RequestListResult struct {
	Items []Request
	Total int
}
