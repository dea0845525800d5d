package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"workzen/internal/platform/querier"
)

// Sealer encrypts bank and tax identifiers at rest.
type Sealer interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Store struct {
	DB     querier.Querier
	pool   querier.TxBeginner
	Crypto Sealer
}

func NewStore(db *pgxpool.Pool, crypto Sealer) *Store {
	return &Store{DB: db, pool: db, Crypto: crypto}
}

// InTx runs fn against a store bound to a single transaction. Calls on a
// store that is already transactional run inline.
func (s *Store) InTx(ctx context.Context, fn func(StoreAPI) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return querier.WithTx(ctx, s.pool, func(q querier.Querier) error {
		return fn(&Store{DB: q, Crypto: s.Crypto})
	})
}

func (s *Store) Querier() querier.Querier {
	return s.DB
}

const employeeColumns = `
    e.id, COALESCE(e.user_id::text, ''), e.employee_code, e.first_name, e.last_name, e.email,
    e.phone, e.department, e.job_position, COALESCE(e.manager_id::text, ''), COALESCE(u.role, ''),
    e.date_of_joining, e.bank_account_enc, e.pan_enc, e.status, e.created_at, e.updated_at`

func (s *Store) scanEmployee(row interface{ Scan(dest ...any) error }) (Employee, error) {
	var emp Employee
	var bankEnc, panEnc []byte
	err := row.Scan(&emp.ID, &emp.UserID, &emp.EmployeeCode, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.Phone, &emp.Department, &emp.JobPosition, &emp.ManagerID, &emp.Role,
		&emp.DateOfJoining, &bankEnc, &panEnc, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return Employee{}, err
	}
	emp.BankAccount = s.open(bankEnc)
	emp.PAN = s.open(panEnc)
	return emp, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	emp, err := s.scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees e
    LEFT JOIN users u ON u.id = e.user_id
    WHERE e.id = $1
  `, employeeID))
	if querier.IsNoRows(err) {
		return Employee{}, fmt.Errorf("employee %s: %w", employeeID, ErrEmployeeNotFound)
	}
	return emp, err
}

func (s *Store) ListEmployees(ctx context.Context, filter Filter) ([]Employee, int, error) {
	where, args := buildEmployeeWhere(filter)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM employees e `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
    SELECT ` + employeeColumns + `
    FROM employees e
    LEFT JOIN users u ON u.id = e.user_id
    ` + where + `
    ORDER BY e.employee_code`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, emp)
	}
	return out, total, rows.Err()
}

func buildEmployeeWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if filter.Department != "" {
		args = append(args, filter.Department)
		clauses = append(clauses, fmt.Sprintf("e.department = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(lower(e.first_name || ' ' || e.last_name) LIKE $%d OR lower(e.email) LIKE $%d OR lower(e.employee_code) LIKE $%d)", n, n, n))
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// ActiveEmployeeIDs lists employees that take part in a payrun.
func (s *Store) ActiveEmployeeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id FROM employees WHERE status = 'active' ORDER BY employee_code
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) CountJoinedInYear(ctx context.Context, year int) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE EXTRACT(YEAR FROM date_of_joining) = $1
  `, year).Scan(&count)
	return count, err
}

func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM employees WHERE employee_code = $1)
  `, code).Scan(&exists)
	return exists, err
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	bankEnc, err := s.seal(emp.BankAccount)
	if err != nil {
		return "", err
	}
	panEnc, err := s.seal(emp.PAN)
	if err != nil {
		return "", err
	}

	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_code, first_name, last_name, email, phone,
      department, job_position, manager_id, date_of_joining, bank_account_enc, pan_enc, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    RETURNING id
  `, nullIfEmpty(emp.UserID), emp.EmployeeCode, emp.FirstName, emp.LastName, emp.Email, emp.Phone,
		emp.Department, emp.JobPosition, nullIfEmpty(emp.ManagerID), emp.DateOfJoining, bankEnc, panEnc, emp.Status,
	).Scan(&id)
	switch {
	case querier.IsUniqueViolation(err, "employees_email_key"):
		return "", fmt.Errorf("%s: %w", emp.Email, ErrDuplicateEmail)
	case querier.IsForeignKeyViolation(err):
		return "", ErrInvalidManager
	}
	return id, err
}

func (s *Store) UpdateEmployee(ctx context.Context, emp Employee) error {
	bankEnc, err := s.seal(emp.BankAccount)
	if err != nil {
		return err
	}
	panEnc, err := s.seal(emp.PAN)
	if err != nil {
		return err
	}

	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET first_name = $2,
        last_name = $3,
        phone = $4,
        department = $5,
        job_position = $6,
        manager_id = $7,
        bank_account_enc = $8,
        pan_enc = $9,
        status = $10,
        updated_at = now()
    WHERE id = $1
  `, emp.ID, emp.FirstName, emp.LastName, emp.Phone, emp.Department, emp.JobPosition,
		nullIfEmpty(emp.ManagerID), bankEnc, panEnc, emp.Status)
	if querier.IsForeignKeyViolation(err) {
		return ErrInvalidManager
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// DeleteEmployee removes the employee and the login account linked to it.
func (s *Store) DeleteEmployee(ctx context.Context, employeeID string) error {
	var userID *string
	err := s.DB.QueryRow(ctx, `
    DELETE FROM employees WHERE id = $1 RETURNING user_id::text
  `, employeeID).Scan(&userID)
	if querier.IsNoRows(err) {
		return ErrEmployeeNotFound
	}
	if err != nil {
		return err
	}
	if userID == nil {
		return nil
	}
	_, err = s.DB.Exec(ctx, `DELETE FROM users WHERE id = $1`, *userID)
	return err
}

func (s *Store) seal(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	if s.Crypto == nil || !s.Crypto.Configured() {
		return []byte(value), nil
	}
	return s.Crypto.EncryptString(value)
}

func (s *Store) open(sealed []byte) string {
	if len(sealed) == 0 {
		return ""
	}
	if s.Crypto == nil || !s.Crypto.Configured() {
		return string(sealed)
	}
	value, err := s.Crypto.DecryptString(sealed)
	if err != nil {
		return ""
	}
	return value
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
