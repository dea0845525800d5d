package payroll

import (
	"context"

	"workzen/internal/platform/querier"
)

type StoreAPI interface {
	InTx(ctx context.Context, fn func(StoreAPI) error) error
	Querier() querier.Querier
	LockEmployee(ctx context.Context, employeeID string) (EmployeeInfo, error)
	EmployeeInfo(ctx context.Context, employeeID string) (EmployeeInfo, error)
	ActiveEmployeeIDs(ctx context.Context) ([]string, error)
	ActiveStructure(ctx context.Context, employeeID string) (SalaryStructure, error)
	StructureHistory(ctx context.Context, employeeID string) ([]SalaryStructure, error)
	SupersedeStructure(ctx context.Context, employeeID string) error
	InsertStructure(ctx context.Context, st SalaryStructure) (string, error)
	CurrentRecord(ctx context.Context, employeeID, period string) (Record, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	SupersedeRecord(ctx context.Context, id string) error
	InsertRecord(ctx context.Context, rec Record) (string, error)
	MarkPaid(ctx context.Context, id string) error
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context, filter RecordFilter) (RecordListResult, error)
	History(ctx context.Context, employeeID, period string) ([]Record, error)
}

var _ StoreAPI = (*Store)(nil)
