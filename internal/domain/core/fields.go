package core

import "workzen/internal/domain/auth"

// FilterEmployeeFields blanks bank and tax identifiers unless the caller runs
// payroll, manages people, or is looking at their own record.
func FilterEmployeeFields(emp *Employee, p auth.Principal) {
	switch p.Role {
	case auth.RoleAdmin, auth.RoleHROfficer, auth.RolePayrollOfficer:
		return
	}
	if p.EmployeeID != "" && p.EmployeeID == emp.ID {
		return
	}
	emp.BankAccount = ""
	emp.PAN = ""
}
