package reports

import (
	"context"
	"time"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/leave"
	"workzen/internal/platform/querier"
)

// Store answers the organisation-wide counts shown on dashboards.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// Headcount counts active employees by the role of their account.
func (s *Store) Headcount(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT COALESCE(u.role, 'Employee'), COUNT(1)
    FROM employees e
    LEFT JOIN users u ON u.id = e.user_id
    WHERE e.status = 'active'
    GROUP BY 1
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

func (s *Store) PresentOn(ctx context.Context, day time.Time) (int, error) {
	var present int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM attendance_records WHERE work_date = $1 AND status = $2", day, attendance.StatusPresent).Scan(&present); err != nil {
		return 0, err
	}
	return present, nil
}

func (s *Store) PendingLeaves(ctx context.Context) (int, error) {
	var pending int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests WHERE status = $1", leave.StatusPending).Scan(&pending); err != nil {
		return 0, err
	}
	return pending, nil
}
