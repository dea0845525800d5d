package leave

import (
	"context"
	"time"

	"workzen/internal/platform/querier"
)

type StoreAPI interface {
	InTx(ctx context.Context, fn func(StoreAPI) error) error
	Querier() querier.Querier
	LockEmployee(ctx context.Context, employeeID string) error
	HasApprovedOverlap(ctx context.Context, employeeID string, start, end time.Time, excludeID string) (bool, error)
	CreateRequest(ctx context.Context, employeeID string, in NewRequest) (string, error)
	GetRequest(ctx context.Context, id string) (Request, error)
	LockRequest(ctx context.Context, id string) (Request, error)
	UpdateStatus(ctx context.Context, id, status, decidedBy, note string) error
	DeleteRequest(ctx context.Context, id string) error
	ListRequests(ctx context.Context, filter Filter) (RequestListResult, error)
	ApprovedDays(ctx context.Context, employeeID string, from, to time.Time) (int, error)
}

var _ StoreAPI = (*Store)(nil)
