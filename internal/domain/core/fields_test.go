package core

import (
	"testing"

	"workzen/internal/domain/auth"
)

func sampleEmployee() *Employee {
	return &Employee{
		ID:          "e1",
		BankAccount: "BANK123",
		PAN:         "ABCDE1234F",
	}
}

func TestFilterEmployeeFieldsPrivilegedRoles(t *testing.T) {
	for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleHROfficer, auth.RolePayrollOfficer} {
		emp := sampleEmployee()
		FilterEmployeeFields(emp, auth.Principal{Role: role, EmployeeID: "other"})
		if emp.BankAccount == "" || emp.PAN == "" {
			t.Fatalf("%s should retain sensitive fields", role)
		}
	}
}

func TestFilterEmployeeFieldsEmployeeSelf(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.Principal{Role: auth.RoleEmployee, EmployeeID: "e1"})

	if emp.BankAccount == "" || emp.PAN == "" {
		t.Fatal("employee should see their own sensitive fields")
	}
}

func TestFilterEmployeeFieldsEmployeeOther(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.Principal{Role: auth.RoleEmployee, EmployeeID: "e2"})

	if emp.BankAccount != "" || emp.PAN != "" {
		t.Fatal("employee should not see a colleague's sensitive fields")
	}
}
