package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"workzen/internal/platform/querier"
)

type Store struct {
	DB   querier.Querier
	pool querier.TxBeginner
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db, pool: db}
}

func (s *Store) InTx(ctx context.Context, fn func(StoreAPI) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return querier.WithTx(ctx, s.pool, func(q querier.Querier) error {
		return fn(&Store{DB: q})
	})
}

func (s *Store) Querier() querier.Querier {
	return s.DB
}

const requestColumns = `
    r.id, r.employee_id, e.first_name || ' ' || e.last_name, r.leave_type, r.start_date, r.end_date,
    r.reason, r.status, COALESCE(r.decided_by::text, ''), r.decided_at, r.decision_note,
    r.created_at, r.updated_at`

func scanRequest(row interface{ Scan(dest ...any) error }) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.EmployeeID, &req.EmployeeName, &req.LeaveType, &req.StartDate, &req.EndDate,
		&req.Reason, &req.Status, &req.DecidedBy, &req.DecidedAt, &req.DecisionNote,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return Request{}, err
	}
	req.Days, _ = CalculateDays(req.StartDate, req.EndDate)
	return req, nil
}

// LockEmployee serializes overlap checks for one employee until the
// transaction ends.
func (s *Store) LockEmployee(ctx context.Context, employeeID string) error {
	var id string
	err := s.DB.QueryRow(ctx, `
    SELECT id FROM employees WHERE id = $1 FOR UPDATE
  `, employeeID).Scan(&id)
	if querier.IsNoRows(err) {
		return fmt.Errorf("employee %s: %w", employeeID, ErrEmployeeNotFound)
	}
	return err
}

func (s *Store) HasApprovedOverlap(ctx context.Context, employeeID string, start, end time.Time, excludeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE employee_id = $1
        AND status = 'Approved'
        AND start_date <= $3
        AND end_date >= $2
        AND ($4 = '' OR id::text <> $4)
    )
  `, employeeID, start, end, excludeID).Scan(&exists)
	return exists, err
}

func (s *Store) CreateRequest(ctx context.Context, employeeID string, in NewRequest) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type, start_date, end_date, reason, status)
    VALUES ($1, $2, $3, $4, $5, 'Pending')
    RETURNING id
  `, employeeID, in.LeaveType, in.StartDate, in.EndDate, in.Reason).Scan(&id)
	if querier.IsCheckViolation(err) {
		return "", ErrInvalidDateRange
	}
	return id, err
}

func (s *Store) GetRequest(ctx context.Context, id string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.id = $1
  `, id))
	if querier.IsNoRows(err) {
		return Request{}, fmt.Errorf("leave request %s: %w", id, ErrRequestNotFound)
	}
	return req, err
}

// LockRequest reads a request and holds its row until the transaction ends.
func (s *Store) LockRequest(ctx context.Context, id string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.id = $1
    FOR UPDATE OF r
  `, id))
	if querier.IsNoRows(err) {
		return Request{}, fmt.Errorf("leave request %s: %w", id, ErrRequestNotFound)
	}
	return req, err
}

func (s *Store) UpdateStatus(ctx context.Context, id, status, decidedBy, note string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2,
        decided_by = $3,
        decided_at = CASE WHEN $3::uuid IS NULL THEN decided_at ELSE now() END,
        decision_note = $4,
        updated_at = now()
    WHERE id = $1
  `, id, status, nullIfEmpty(decidedBy), note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM leave_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, filter Filter) (RequestListResult, error) {
	where, args := buildRequestWhere(filter)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM leave_requests r `+where, args...).Scan(&total); err != nil {
		return RequestListResult{}, err
	}

	query := `
    SELECT ` + requestColumns + `
    FROM leave_requests r
    JOIN employees e ON e.id = r.employee_id
    ` + where + `
    ORDER BY r.start_date DESC, r.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return RequestListResult{}, err
	}
	defer rows.Close()

	out := RequestListResult{Total: total}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return RequestListResult{}, err
		}
		out.Items = append(out.Items, req)
	}
	return out, rows.Err()
}

// ApprovedDays counts approved leave days of an employee that fall between
// from and to inclusive.
func (s *Store) ApprovedDays(ctx context.Context, employeeID string, from, to time.Time) (int, error) {
	var days int
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(LEAST(end_date, $3::date) - GREATEST(start_date, $2::date) + 1), 0)
    FROM leave_requests
    WHERE employee_id = $1
      AND status = 'Approved'
      AND start_date <= $3
      AND end_date >= $2
  `, employeeID, from, to).Scan(&days)
	return days, err
}

func buildRequestWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("r.employee_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("r.end_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("r.start_date <= $%d", len(args)))
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
