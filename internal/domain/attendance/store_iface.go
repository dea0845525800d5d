package attendance

import (
	"context"
	"time"

	"workzen/internal/platform/querier"
)

type StoreAPI interface {
	InTx(ctx context.Context, fn func(StoreAPI) error) error
	Querier() querier.Querier
	GetRecord(ctx context.Context, id string) (Record, error)
	RecordForDate(ctx context.Context, employeeID string, day time.Time) (Record, error)
	InsertCheckIn(ctx context.Context, employeeID string, day, at time.Time) (Record, error)
	SaveCheckOut(ctx context.Context, id string, at time.Time, working, extra int) (Record, error)
	UpdateRecord(ctx context.Context, rec Record) error
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context, filter Filter) ([]Record, error)
	Facts(ctx context.Context, employeeID string, from, to time.Time) (Facts, error)
}

var _ StoreAPI = (*Store)(nil)
