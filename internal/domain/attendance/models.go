package attendance

import "time"

const (
	StatusPresent = "Present"
	StatusHalfDay = "Half Day"
	StatusAbsent  = "Absent"
)

type Record struct {
	ID             string     `json:"id"`
	EmployeeID     string     `json:"employeeId"`
	WorkDate       time.Time  `json:"workDate"`
	CheckIn        *time.Time `json:"checkIn,omitempty"`
	CheckOut       *time.Time `json:"checkOut,omitempty"`
	Status         string     `json:"status"`
	WorkingMinutes int        `json:"workingMinutes"`
	ExtraMinutes   int        `json:"extraMinutes"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Correction is an HR adjustment of a record; nil fields are left as is.
type Correction struct {
	CheckIn  *time.Time
	CheckOut *time.Time
	Status   *string
}

type Filter struct {
	EmployeeID string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Facts summarises an employee's attendance over a date range.
type Facts struct {
	PresentDays    int `json:"presentDays"`
	HalfDays       int `json:"halfDays"`
	AbsentDays     int `json:"absentDays"`
	WorkingMinutes int `json:"workingMinutes"`
	ExtraMinutes   int `json:"extraMinutes"`
}
