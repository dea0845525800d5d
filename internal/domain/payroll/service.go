package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/audit"
	"workzen/internal/domain/auth"
)

const payrunConcurrency = 4

// AttendanceSource supplies the attendance summary recorded on a payslip.
type AttendanceSource interface {
	Facts(ctx context.Context, actor auth.Principal, employeeID string, from, to time.Time) (attendance.Facts, error)
}

// LeaveSource supplies approved leave days within a period.
type LeaveSource interface {
	ApprovedDays(ctx context.Context, actor auth.Principal, employeeID string, from, to time.Time) (int, error)
}

// GenerationRecorder counts payroll generations by outcome.
type GenerationRecorder interface {
	PayrollGenerated(outcome string)
}

type Service struct {
	Store      StoreAPI
	Attendance AttendanceSource
	Leave      LeaveSource
	Audit      audit.Logger
	Metrics    GenerationRecorder
	Settings   Settings
	Now        func() time.Time
}

func NewService(store StoreAPI, attendanceSource AttendanceSource, leaveSource LeaveSource, logger audit.Logger, settings Settings) *Service {
	return &Service{
		Store:      store,
		Attendance: attendanceSource,
		Leave:      leaveSource,
		Audit:      logger,
		Settings:   settings,
		Now:        time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SetStructure replaces the employee's active salary structure. The previous
// one is kept with superseded_at set.
func (s *Service) SetStructure(ctx context.Context, actor auth.Principal, employeeID string, in StructureInput) (SalaryStructure, error) {
	if err := auth.Require(actor, auth.ActionCreate, auth.ResourcePayroll, employeeID); err != nil {
		return SalaryStructure{}, err
	}
	if in.Basic <= 0 {
		return SalaryStructure{}, fmt.Errorf("%w: basic must be positive", ErrIncompleteSalaryStructure)
	}
	if in.HRA < 0 || in.Conveyance < 0 || in.OtherAllowances < 0 {
		return SalaryStructure{}, fmt.Errorf("%w: components must not be negative", ErrInvalidAmount)
	}
	deductions := make([]Deduction, 0, len(in.CustomDeductions))
	amounts := make([]Money, 0, len(in.CustomDeductions))
	for _, d := range in.CustomDeductions {
		name := strings.TrimSpace(d.Name)
		if name == "" || d.Amount < 0 {
			return SalaryStructure{}, fmt.Errorf("%w: deduction needs a name and a non-negative amount", ErrInvalidAmount)
		}
		deductions = append(deductions, Deduction{Name: name, Amount: d.Amount})
		amounts = append(amounts, d.Amount)
	}
	if _, err := SumMoney(in.Basic, in.HRA, in.Conveyance, in.OtherAllowances); err != nil {
		return SalaryStructure{}, fmt.Errorf("components: %w", err)
	}
	if _, err := SumMoney(amounts...); err != nil {
		return SalaryStructure{}, fmt.Errorf("custom deductions: %w", err)
	}
	effective := in.EffectiveFrom
	if effective.IsZero() {
		effective = s.now()
	}

	st := SalaryStructure{
		EmployeeID:       employeeID,
		Basic:            in.Basic,
		HRA:              in.HRA,
		Conveyance:       in.Conveyance,
		OtherAllowances:  in.OtherAllowances,
		CustomDeductions: deductions,
		EffectiveFrom:    effective,
		CreatedBy:        actor.UserID,
	}

	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		if _, err := tx.LockEmployee(ctx, employeeID); err != nil {
			return err
		}
		before, err := tx.ActiveStructure(ctx, employeeID)
		switch {
		case err == nil:
			if err := auth.Require(actor, auth.ActionUpdate, auth.ResourcePayroll, employeeID); err != nil {
				return err
			}
			if err := tx.SupersedeStructure(ctx, employeeID); err != nil {
				return err
			}
		case !errors.Is(err, ErrStructureNotFound):
			return err
		}
		st.ID, err = tx.InsertStructure(ctx, st)
		if err != nil {
			return err
		}
		st.CreatedAt = s.now()
		entry := audit.Entry{
			ActorID:    actor.UserID,
			Action:     "payroll.structure.set",
			EntityType: "salary_structure",
			EntityID:   st.ID,
			After:      st,
		}
		if before.ID != "" {
			entry.Before = before
		}
		return s.audit(ctx, tx, entry)
	})
	if err != nil {
		return SalaryStructure{}, err
	}
	return st, nil
}

func (s *Service) ActiveStructure(ctx context.Context, actor auth.Principal, employeeID string) (SalaryStructure, error) {
	if err := auth.Require(actor, auth.ActionRead, auth.ResourcePayroll, employeeID); err != nil {
		return SalaryStructure{}, err
	}
	return s.Store.ActiveStructure(ctx, employeeID)
}

func (s *Service) StructureHistory(ctx context.Context, actor auth.Principal, employeeID string) ([]SalaryStructure, error) {
	if err := auth.Require(actor, auth.ActionRead, auth.ResourcePayroll, employeeID); err != nil {
		return nil, err
	}
	return s.Store.StructureHistory(ctx, employeeID)
}

// Generate computes and stores the payroll record of an employee for a
// period. Without override an existing current record is left untouched and
// ErrDuplicatePayrollPeriod is returned. A paid record is never overridden. A
// *Warning error comes back together with a saved record.
func (s *Service) Generate(ctx context.Context, actor auth.Principal, employeeID, periodValue string, override bool) (Record, error) {
	if err := auth.Require(actor, auth.ActionCreate, auth.ResourcePayroll, employeeID); err != nil {
		return Record{}, err
	}
	if override {
		if err := auth.Require(actor, auth.ActionUpdate, auth.ResourcePayroll, employeeID); err != nil {
			return Record{}, err
		}
	}
	period, err := ParsePeriod(periodValue)
	if err != nil {
		return Record{}, err
	}

	facts, err := s.facts(ctx, actor, employeeID, period)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	var warning error
	outcome := OutcomeGenerated
	err = s.Store.InTx(ctx, func(tx StoreAPI) error {
		info, err := tx.LockEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		facts.BankAccountOnFile = info.BankAccountOnFile

		existing, err := tx.CurrentRecord(ctx, employeeID, period.String())
		switch {
		case err == nil:
			if !override {
				return fmt.Errorf("%s %s: %w", employeeID, period, ErrDuplicatePayrollPeriod)
			}
			if existing.Status == StatusPaid {
				return fmt.Errorf("%s %s is already paid: %w", employeeID, period, ErrInvalidRecordState)
			}
		case !errors.Is(err, ErrRecordNotFound):
			return err
		}

		structure, err := tx.ActiveStructure(ctx, employeeID)
		if errors.Is(err, ErrStructureNotFound) {
			return fmt.Errorf("%s: %w", employeeID, ErrIncompleteSalaryStructure)
		}
		if err != nil {
			return err
		}

		rec, err = Compute(structure, period, facts, s.Settings)
		if err != nil && !IsWarning(err) {
			return err
		}
		warning = err
		rec.EmployeeName = info.Name
		rec.EmployeeCode = info.Code
		rec.GeneratedBy = actor.UserID
		rec.GeneratedAt = s.now()

		entry := audit.Entry{
			ActorID:    actor.UserID,
			Action:     "payroll.generate",
			EntityType: "payroll_record",
			After:      auditSummary(rec),
		}
		if existing.ID != "" {
			if err := tx.SupersedeRecord(ctx, existing.ID); err != nil {
				return err
			}
			outcome = OutcomeRegenerated
			entry.Action = "payroll.regenerate"
			entry.Before = auditSummary(existing)
		}

		rec.ID, err = tx.InsertRecord(ctx, rec)
		if err != nil {
			return err
		}
		entry.EntityID = rec.ID
		return s.audit(ctx, tx, entry)
	})
	if err != nil {
		s.record(generationOutcome(err))
		return Record{}, err
	}
	s.record(outcome)
	return rec, warning
}

func (s *Service) facts(ctx context.Context, actor auth.Principal, employeeID string, period Period) (Facts, error) {
	var facts Facts
	if s.Attendance != nil {
		summary, err := s.Attendance.Facts(ctx, actor, employeeID, period.Start(), period.End())
		if err != nil {
			return Facts{}, fmt.Errorf("attendance facts: %w", err)
		}
		facts.PresentDays = summary.PresentDays
		facts.HalfDays = summary.HalfDays
	}
	if s.Leave != nil {
		days, err := s.Leave.ApprovedDays(ctx, actor, employeeID, period.Start(), period.End())
		if err != nil {
			return Facts{}, fmt.Errorf("leave facts: %w", err)
		}
		facts.LeaveDays = days
	}
	return facts, nil
}

// Payrun generates the period for every active employee. Failures are
// reported per employee and never abort the run.
func (s *Service) Payrun(ctx context.Context, actor auth.Principal, periodValue string) (PayrunResult, error) {
	if err := auth.Require(actor, auth.ActionCreate, auth.ResourcePayroll, ""); err != nil {
		return PayrunResult{}, err
	}
	period, err := ParsePeriod(periodValue)
	if err != nil {
		return PayrunResult{}, err
	}
	ids, err := s.Store.ActiveEmployeeIDs(ctx)
	if err != nil {
		return PayrunResult{}, err
	}

	outcomes := make([]PayrunOutcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(payrunConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := s.Generate(gctx, actor, id, period.String(), false)
			outcome := PayrunOutcome{EmployeeID: id, RecordID: rec.ID, Warnings: rec.Warnings}
			switch {
			case err == nil || IsWarning(err):
				outcome.Outcome = OutcomeGenerated
			default:
				outcome.Outcome = generationOutcome(err)
				if outcome.Outcome == OutcomeFailed {
					outcome.Error = err.Error()
					slog.Warn("payrun employee failed", "employeeId", id, "period", period.String(), "err", err)
				}
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PayrunResult{}, err
	}

	result := PayrunResult{Period: period.String(), Outcomes: outcomes, Counts: map[string]int{}}
	for _, o := range outcomes {
		result.Counts[o.Outcome]++
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (Record, error) {
	rec, err := s.Store.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := auth.Require(actor, auth.ActionRead, auth.ResourcePayroll, rec.EmployeeID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, actor auth.Principal, filter RecordFilter) (RecordListResult, error) {
	scope, err := auth.RequireScope(actor, auth.ActionRead, auth.ResourcePayroll)
	if err != nil {
		return RecordListResult{}, err
	}
	if scope == auth.ScopeOwn {
		filter.EmployeeID = actor.EmployeeID
	}
	for _, p := range []string{filter.FromPeriod, filter.ToPeriod} {
		if p == "" {
			continue
		}
		if _, err := ParsePeriod(p); err != nil {
			return RecordListResult{}, err
		}
	}
	return s.Store.ListRecords(ctx, filter)
}

// Register lists the current records of a period, the payroll register.
func (s *Service) Register(ctx context.Context, actor auth.Principal, periodValue string) ([]Record, error) {
	period, err := ParsePeriod(periodValue)
	if err != nil {
		return nil, err
	}
	res, err := s.List(ctx, actor, RecordFilter{FromPeriod: period.String(), ToPeriod: period.String(), CurrentOnly: true})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (s *Service) History(ctx context.Context, actor auth.Principal, employeeID, periodValue string) ([]Record, error) {
	if err := auth.Require(actor, auth.ActionRead, auth.ResourcePayroll, employeeID); err != nil {
		return nil, err
	}
	period, err := ParsePeriod(periodValue)
	if err != nil {
		return nil, err
	}
	return s.Store.History(ctx, employeeID, period.String())
}

func (s *Service) MarkPaid(ctx context.Context, actor auth.Principal, id string) (Record, error) {
	var after Record
	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Require(actor, auth.ActionUpdate, auth.ResourcePayroll, before.EmployeeID); err != nil {
			return err
		}
		if err := tx.MarkPaid(ctx, id); err != nil {
			return err
		}
		after, err = tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		return s.audit(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "payroll.mark_paid",
			EntityType: "payroll_record",
			EntityID:   id,
			Before:     map[string]string{"status": before.Status},
			After:      map[string]string{"status": after.Status},
		})
	})
	if err != nil {
		return Record{}, err
	}
	return after, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	return s.Store.InTx(ctx, func(tx StoreAPI) error {
		before, err := tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Require(actor, auth.ActionDelete, auth.ResourcePayroll, before.EmployeeID); err != nil {
			return err
		}
		if err := tx.DeleteRecord(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "payroll.delete",
			EntityType: "payroll_record",
			EntityID:   id,
			Before:     auditSummary(before),
		})
	})
}

// Payslip renders a record as PDF. Employees may only fetch their own.
func (s *Service) Payslip(ctx context.Context, actor auth.Principal, id string) ([]byte, string, error) {
	rec, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	info, err := s.Store.EmployeeInfo(ctx, rec.EmployeeID)
	if err != nil {
		return nil, "", err
	}
	data, err := RenderPayslip(rec, info)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("payslip-%s-%s.pdf", info.Code, rec.Period), nil
}

func (s *Service) audit(ctx context.Context, tx StoreAPI, e audit.Entry) error {
	if s.Audit == nil {
		return nil
	}
	if err := s.Audit.Log(ctx, tx.Querier(), e); err != nil {
		slog.Warn("audit "+e.Action+" failed", "entityId", e.EntityID, "err", err)
		return err
	}
	return nil
}

func (s *Service) record(outcome string) {
	if s.Metrics != nil {
		s.Metrics.PayrollGenerated(outcome)
	}
}

func generationOutcome(err error) string {
	switch {
	case errors.Is(err, ErrDuplicatePayrollPeriod):
		return OutcomeSkippedDuplicate
	case errors.Is(err, ErrIncompleteSalaryStructure):
		return OutcomeIncompleteStructure
	default:
		return OutcomeFailed
	}
}

func auditSummary(rec Record) map[string]any {
	return map[string]any{
		"id":              rec.ID,
		"period":          rec.Period,
		"gross":           rec.Gross.String(),
		"totalDeductions": rec.TotalDeductions.String(),
		"net":             rec.Net.String(),
		"status":          rec.Status,
		"warnings":        rec.Warnings,
	}
}
