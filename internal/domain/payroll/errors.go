package payroll

import "errors"

var (
	ErrIncompleteSalaryStructure = errors.New("salary structure is incomplete")
	ErrDuplicatePayrollPeriod    = errors.New("payroll already generated for this period")
	ErrNegativeNetSalary         = errors.New("net salary is negative")
	ErrRecordNotFound            = errors.New("payroll record not found")
	ErrStructureNotFound         = errors.New("salary structure not found")
	ErrEmployeeNotFound          = errors.New("employee not found")
	ErrInvalidPeriod             = errors.New("period must be YYYY-MM")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrInvalidRecordState        = errors.New("payroll record cannot change in its current state")
)

// Warning marks a non-fatal condition: the record was produced and saved,
// but needs attention.
type Warning struct {
	Err error
}

func (w *Warning) Error() string {
	return "warning: " + w.Err.Error()
}

func (w *Warning) Unwrap() error {
	return w.Err
}

func IsWarning(err error) bool {
	var w *Warning
	return errors.As(err, &w)
}
