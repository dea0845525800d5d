package attendance

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

const recordColumns = `
    id, employee_id, work_date, check_in, check_out, status,
    working_minutes, extra_minutes, created_at, updated_at`

func scanRecord(row interface{ Scan(dest ...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.WorkDate, &rec.CheckIn, &rec.CheckOut, &rec.Status,
		&rec.WorkingMinutes, &rec.ExtraMinutes, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func (s *Store) GetRecord(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records
    WHERE id = $1
  `, id))
	if querier.IsNoRows(err) {
		return Record{}, fmt.Errorf("attendance %s: %w", id, ErrRecordNotFound)
	}
	return rec, err
}

// RecordForDate locks the employee's row for day so check-out cannot race
// a concurrent correction.
func (s *Store) RecordForDate(ctx context.Context, employeeID string, day time.Time) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records
    WHERE employee_id = $1 AND work_date = $2
    FOR UPDATE
  `, employeeID, day))
	if querier.IsNoRows(err) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) InsertCheckIn(ctx context.Context, employeeID string, day, at time.Time) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    INSERT INTO attendance_records (employee_id, work_date, check_in, status)
    VALUES ($1, $2, $3, 'Present')
    RETURNING `+recordColumns,
		employeeID, day, at))
	if querier.IsUniqueViolation(err, "attendance_records_employee_date_key") {
		return Record{}, ErrAlreadyCheckedIn
	}
	return rec, err
}

func (s *Store) SaveCheckOut(ctx context.Context, id string, at time.Time, working, extra int) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    UPDATE attendance_records
    SET check_out = $2, working_minutes = $3, extra_minutes = $4, updated_at = now()
    WHERE id = $1 AND check_out IS NULL
    RETURNING `+recordColumns,
		id, at, working, extra))
	if querier.IsNoRows(err) {
		return Record{}, ErrNoOpenCheckIn
	}
	if querier.IsCheckViolation(err) {
		return Record{}, ErrInvalidTimeOrder
	}
	return rec, err
}

func (s *Store) UpdateRecord(ctx context.Context, rec Record) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE attendance_records
    SET check_in = $2, check_out = $3, status = $4,
        working_minutes = $5, extra_minutes = $6, updated_at = now()
    WHERE id = $1
  `, rec.ID, rec.CheckIn, rec.CheckOut, rec.Status, rec.WorkingMinutes, rec.ExtraMinutes)
	if querier.IsCheckViolation(err) {
		return ErrInvalidTimeOrder
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, filter Filter) ([]Record, error) {
	where, args := buildRecordWhere(filter)
	query := `
    SELECT ` + recordColumns + `
    FROM attendance_records
    ` + where + `
    ORDER BY work_date DESC, employee_id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Facts counts statuses and sums minutes between from and to inclusive.
func (s *Store) Facts(ctx context.Context, employeeID string, from, to time.Time) (Facts, error) {
	var facts Facts
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(*) FILTER (WHERE status = 'Present'),
           COUNT(*) FILTER (WHERE status = 'Half Day'),
           COUNT(*) FILTER (WHERE status = 'Absent'),
           COALESCE(SUM(working_minutes), 0),
           COALESCE(SUM(extra_minutes), 0)
    FROM attendance_records
    WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
  `, employeeID, from, to).Scan(&facts.PresentDays, &facts.HalfDays, &facts.AbsentDays,
		&facts.WorkingMinutes, &facts.ExtraMinutes)
	return facts, err
}

func buildRecordWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("work_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("work_date <= $%d", len(args)))
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}
