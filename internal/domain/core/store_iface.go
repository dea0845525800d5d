package core

import (
	"context"

	"workzen/internal/platform/querier"
)

type StoreAPI interface {
	InTx(ctx context.Context, fn func(StoreAPI) error) error
	Querier() querier.Querier
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	ListEmployees(ctx context.Context, filter Filter) ([]Employee, int, error)
	ActiveEmployeeIDs(ctx context.Context) ([]string, error)
	CountJoinedInYear(ctx context.Context, year int) (int, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateEmployee(ctx context.Context, emp Employee) (string, error)
	UpdateEmployee(ctx context.Context, emp Employee) error
	DeleteEmployee(ctx context.Context, employeeID string) error
}

var _ StoreAPI = (*Store)(nil)
