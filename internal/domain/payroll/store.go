package payroll

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

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

// LockEmployee loads the payslip header for an employee and holds the row
// until the transaction ends, serializing generation per employee.
func (s *Store) LockEmployee(ctx context.Context, employeeID string) (EmployeeInfo, error) {
	var info EmployeeInfo
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_code, first_name || ' ' || last_name, email, department, job_position,
           bank_account_enc IS NOT NULL AND length(bank_account_enc) > 0
    FROM employees
    WHERE id = $1
    FOR UPDATE
  `, employeeID).Scan(&info.ID, &info.Code, &info.Name, &info.Email, &info.Department, &info.JobPosition, &info.BankAccountOnFile)
	if querier.IsNoRows(err) {
		return EmployeeInfo{}, fmt.Errorf("employee %s: %w", employeeID, ErrEmployeeNotFound)
	}
	return info, err
}

func (s *Store) EmployeeInfo(ctx context.Context, employeeID string) (EmployeeInfo, error) {
	var info EmployeeInfo
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_code, first_name || ' ' || last_name, email, department, job_position,
           bank_account_enc IS NOT NULL AND length(bank_account_enc) > 0
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&info.ID, &info.Code, &info.Name, &info.Email, &info.Department, &info.JobPosition, &info.BankAccountOnFile)
	if querier.IsNoRows(err) {
		return EmployeeInfo{}, fmt.Errorf("employee %s: %w", employeeID, ErrEmployeeNotFound)
	}
	return info, err
}

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

const structureColumns = `
    id, employee_id, basic, hra, conveyance, other_allowances, custom_deductions,
    effective_from, superseded_at, COALESCE(created_by::text, ''), created_at`

func scanStructure(row interface{ Scan(dest ...any) error }) (SalaryStructure, error) {
	var st SalaryStructure
	var deductions []byte
	err := row.Scan(&st.ID, &st.EmployeeID, &st.Basic, &st.HRA, &st.Conveyance, &st.OtherAllowances, &deductions,
		&st.EffectiveFrom, &st.SupersededAt, &st.CreatedBy, &st.CreatedAt)
	if err != nil {
		return SalaryStructure{}, err
	}
	st.CustomDeductions = []Deduction{}
	if len(deductions) > 0 {
		if err := json.Unmarshal(deductions, &st.CustomDeductions); err != nil {
			return SalaryStructure{}, fmt.Errorf("decode deductions: %w", err)
		}
	}
	return st, nil
}

func (s *Store) ActiveStructure(ctx context.Context, employeeID string) (SalaryStructure, error) {
	st, err := scanStructure(s.DB.QueryRow(ctx, `
    SELECT `+structureColumns+`
    FROM salary_structures
    WHERE employee_id = $1 AND superseded_at IS NULL
  `, employeeID))
	if querier.IsNoRows(err) {
		return SalaryStructure{}, ErrStructureNotFound
	}
	return st, err
}

func (s *Store) StructureHistory(ctx context.Context, employeeID string) ([]SalaryStructure, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+structureColumns+`
    FROM salary_structures
    WHERE employee_id = $1
    ORDER BY created_at DESC
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalaryStructure
	for rows.Next() {
		st, err := scanStructure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) SupersedeStructure(ctx context.Context, employeeID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE salary_structures
    SET superseded_at = now()
    WHERE employee_id = $1 AND superseded_at IS NULL
  `, employeeID)
	return err
}

func (s *Store) InsertStructure(ctx context.Context, st SalaryStructure) (string, error) {
	deductions, err := json.Marshal(st.CustomDeductions)
	if err != nil {
		return "", err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO salary_structures (employee_id, basic, hra, conveyance, other_allowances,
      custom_deductions, effective_from, created_by)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id
  `, st.EmployeeID, st.Basic, st.HRA, st.Conveyance, st.OtherAllowances,
		deductions, st.EffectiveFrom, nullIfEmpty(st.CreatedBy)).Scan(&id)
	return id, err
}

const recordColumns = `
    r.id, r.employee_id, e.first_name || ' ' || e.last_name, e.employee_code, r.period,
    COALESCE(r.structure_id::text, ''), r.basic, r.hra, r.conveyance, r.other_allowances, r.gross,
    r.pf, r.professional_tax, r.other_deductions, r.total_deductions, r.net, r.deductions_json,
    r.currency, r.present_days, r.half_days, r.leave_days, r.working_days, r.calendar_days,
    r.warnings, r.is_current, r.status, r.paid_at, COALESCE(r.generated_by::text, ''),
    r.generated_at, r.superseded_at`

func scanRecord(row interface{ Scan(dest ...any) error }) (Record, error) {
	var rec Record
	var deductions, warnings []byte
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.EmployeeCode, &rec.Period,
		&rec.StructureID, &rec.Basic, &rec.HRA, &rec.Conveyance, &rec.OtherAllowances, &rec.Gross,
		&rec.PF, &rec.ProfessionalTax, &rec.OtherDeductions, &rec.TotalDeductions, &rec.Net, &deductions,
		&rec.Currency, &rec.Facts.PresentDays, &rec.Facts.HalfDays, &rec.Facts.LeaveDays, &rec.Facts.WorkingDays, &rec.Facts.CalendarDays,
		&warnings, &rec.Current, &rec.Status, &rec.PaidAt, &rec.GeneratedBy,
		&rec.GeneratedAt, &rec.SupersededAt)
	if err != nil {
		return Record{}, err
	}
	rec.Deductions = []Deduction{}
	rec.Warnings = []string{}
	if err := json.Unmarshal(deductions, &rec.Deductions); err != nil {
		return Record{}, fmt.Errorf("decode deductions: %w", err)
	}
	if err := json.Unmarshal(warnings, &rec.Warnings); err != nil {
		return Record{}, fmt.Errorf("decode warnings: %w", err)
	}
	return rec, nil
}

func (s *Store) CurrentRecord(ctx context.Context, employeeID, period string) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM payroll_records r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.employee_id = $1 AND r.period = $2 AND r.is_current
    FOR UPDATE OF r
  `, employeeID, period))
	if querier.IsNoRows(err) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) GetRecord(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM payroll_records r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.id = $1
  `, id))
	if querier.IsNoRows(err) {
		return Record{}, fmt.Errorf("payroll record %s: %w", id, ErrRecordNotFound)
	}
	return rec, err
}

func (s *Store) SupersedeRecord(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_records
    SET is_current = false, superseded_at = now()
    WHERE id = $1 AND is_current
  `, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) InsertRecord(ctx context.Context, rec Record) (string, error) {
	deductions, err := json.Marshal(rec.Deductions)
	if err != nil {
		return "", err
	}
	warnings, err := json.Marshal(rec.Warnings)
	if err != nil {
		return "", err
	}

	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO payroll_records (
      employee_id, period, structure_id, basic, hra, conveyance, other_allowances, gross,
      pf, professional_tax, other_deductions, total_deductions, net, deductions_json, currency,
      present_days, half_days, leave_days, working_days, calendar_days, warnings,
      is_current, status, generated_by, generated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
      $16, $17, $18, $19, $20, $21, true, 'Unpaid', $22, $23)
    RETURNING id
  `, rec.EmployeeID, rec.Period, nullIfEmpty(rec.StructureID), rec.Basic, rec.HRA, rec.Conveyance, rec.OtherAllowances, rec.Gross,
		rec.PF, rec.ProfessionalTax, rec.OtherDeductions, rec.TotalDeductions, rec.Net, deductions, rec.Currency,
		rec.Facts.PresentDays, rec.Facts.HalfDays, rec.Facts.LeaveDays, rec.Facts.WorkingDays, rec.Facts.CalendarDays, warnings,
		nullIfEmpty(rec.GeneratedBy), rec.GeneratedAt,
	).Scan(&id)
	if querier.IsUniqueViolation(err, "payroll_records_current_uniq") {
		return "", ErrDuplicatePayrollPeriod
	}
	return id, err
}

// MarkPaid flips a current, unpaid record to Paid.
func (s *Store) MarkPaid(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_records
    SET status = 'Paid', paid_at = now()
    WHERE id = $1 AND is_current AND status = 'Unpaid'
  `, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidRecordState
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM payroll_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, filter RecordFilter) (RecordListResult, error) {
	where, args := buildRecordWhere(filter)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM payroll_records r `+where, args...).Scan(&total); err != nil {
		return RecordListResult{}, err
	}

	query := `
    SELECT ` + recordColumns + `
    FROM payroll_records r
    JOIN employees e ON e.id = r.employee_id
    ` + where + `
    ORDER BY r.period DESC, e.employee_code, r.generated_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return RecordListResult{}, err
	}
	defer rows.Close()

	out := RecordListResult{Total: total}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return RecordListResult{}, err
		}
		out.Items = append(out.Items, rec)
	}
	return out, rows.Err()
}

// History lists every version generated for an employee and period, oldest
// first.
func (s *Store) History(ctx context.Context, employeeID, period string) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM payroll_records r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.employee_id = $1 AND r.period = $2
    ORDER BY r.generated_at
  `, employeeID, period)
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

func buildRecordWhere(filter RecordFilter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("r.employee_id = $%d", len(args)))
	}
	if filter.FromPeriod != "" {
		args = append(args, filter.FromPeriod)
		clauses = append(clauses, fmt.Sprintf("r.period >= $%d", len(args)))
	}
	if filter.ToPeriod != "" {
		args = append(args, filter.ToPeriod)
		clauses = append(clauses, fmt.Sprintf("r.period <= $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if filter.CurrentOnly {
		clauses = append(clauses, "r.is_current")
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
