package core

import "time"

const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"
)

type Employee struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId,omitempty"`
	EmployeeCode  string    `json:"employeeCode"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Department    string    `json:"department"`
	JobPosition   string    `json:"jobPosition"`
	ManagerID     string    `json:"managerId,omitempty"`
	Role          string    `json:"role,omitempty"`
	DateOfJoining time.Time `json:"dateOfJoining"`
	BankAccount   string    `json:"bankAccount,omitempty"`
	PAN           string    `json:"pan,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// NewEmployee is the input for creating an employee together with the login
// account linked to it.
type NewEmployee struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Department    string
	JobPosition   string
	ManagerID     string
	DateOfJoining time.Time
	BankAccount   string
	PAN           string
	Role          string
	Password      string
}

// EmployeeUpdate carries the fields to change; nil means unchanged.
type EmployeeUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	Department  *string
	JobPosition *string
	ManagerID   *string
	BankAccount *string
	PAN         *string
	Status      *string
}

type CreatedEmployee struct {
	Employee          Employee `json:"employee"`
	TemporaryPassword string   `json:"temporaryPassword,omitempty"`
}

type Filter struct {
	Department string
	Status     string
	Search     string
	Limit      int
	Offset     int
}
