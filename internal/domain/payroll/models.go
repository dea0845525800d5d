package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Deduction struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

type SalaryStructure struct {
	ID               string      `json:"id"`
	EmployeeID       string      `json:"employeeId"`
	Basic            Money       `json:"basic"`
	HRA              Money       `json:"hra"`
	Conveyance       Money       `json:"conveyance"`
	OtherAllowances  Money       `json:"otherAllowances"`
	CustomDeductions []Deduction `json:"customDeductions"`
	EffectiveFrom    time.Time   `json:"effectiveFrom"`
	SupersededAt     *time.Time  `json:"supersededAt,omitempty"`
	CreatedBy        string      `json:"createdBy,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

type StructureInput struct {
	Basic            Money
	HRA              Money
	Conveyance       Money
	OtherAllowances  Money
	CustomDeductions []Deduction
	EffectiveFrom    time.Time
}

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

func ParsePeriod(value string) (Period, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil || len(value) != 7 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, value)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

func (p Period) Days() int {
	return p.End().Day()
}

// Facts are the attendance and leave figures recorded with a payslip. They do
// not prorate any amount.
type Facts struct {
	PresentDays       int  `json:"presentDays"`
	HalfDays          int  `json:"halfDays"`
	LeaveDays         int  `json:"leaveDays"`
	WorkingDays       int  `json:"workingDays"`
	CalendarDays      int  `json:"calendarDays"`
	BankAccountOnFile bool `json:"-"`
}

type Settings struct {
	ProfessionalTax Money
	PFRate          decimal.Decimal
	Currency        string
}

func DefaultSettings() Settings {
	return Settings{
		ProfessionalTax: 20000,
		PFRate:          decimal.RequireFromString(DefaultPFRate),
		Currency:        "INR",
	}
}

type Record struct {
	ID              string      `json:"id"`
	EmployeeID      string      `json:"employeeId"`
	EmployeeName    string      `json:"employeeName,omitempty"`
	EmployeeCode    string      `json:"employeeCode,omitempty"`
	Period          string      `json:"period"`
	StructureID     string      `json:"structureId,omitempty"`
	Basic           Money       `json:"basic"`
	HRA             Money       `json:"hra"`
	Conveyance      Money       `json:"conveyance"`
	OtherAllowances Money       `json:"otherAllowances"`
	Gross           Money       `json:"gross"`
	PF              Money       `json:"pf"`
	ProfessionalTax Money       `json:"professionalTax"`
	OtherDeductions Money       `json:"otherDeductions"`
	TotalDeductions Money       `json:"totalDeductions"`
	Net             Money       `json:"net"`
	Deductions      []Deduction `json:"deductions"`
	Currency        string      `json:"currency"`
	Facts           Facts       `json:"facts"`
	Warnings        []string    `json:"warnings"`
	Current         bool        `json:"current"`
	Status          string      `json:"status"`
	PaidAt          *time.Time  `json:"paidAt,omitempty"`
	GeneratedBy     string      `json:"generatedBy,omitempty"`
	GeneratedAt     time.Time   `json:"generatedAt"`
	SupersededAt    *time.Time  `json:"supersededAt,omitempty"`
}

type RecordFilter struct {
	EmployeeID  string
	FromPeriod  string
	ToPeriod    string
	Status      string
	CurrentOnly bool
	Limit       int
	Offset      int
}

type RecordListResult struct {
	Items []Record
	Total int
}

// EmployeeInfo is the employee data printed on a payslip.
type EmployeeInfo struct {
	ID                string
	Code              string
	Name              string
	Email             string
	Department        string
	JobPosition       string
	BankAccountOnFile bool
}

type PayrunOutcome struct {
	EmployeeID string   `json:"employeeId"`
	Outcome    string   `json:"outcome"`
	RecordID   string   `json:"recordId,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type PayrunResult struct {
	Period   string          `json:"period"`
	Outcomes []PayrunOutcome `json:"outcomes"`
	Counts   map[string]int  `json:"counts"`
}
