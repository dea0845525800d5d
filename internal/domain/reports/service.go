package reports

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/auth"
	"workzen/internal/domain/leave"
	"workzen/internal/domain/payroll"
)

const (
	recentLeaveLimit   = 5
	recentPayslipLimit = 3
)

type AttendanceReader interface {
	List(ctx context.Context, actor auth.Principal, filter attendance.Filter) ([]attendance.Record, error)
	Today(ctx context.Context, actor auth.Principal) (attendance.Record, error)
}

type LeaveReader interface {
	List(ctx context.Context, actor auth.Principal, filter leave.Filter) (leave.RequestListResult, error)
}

type PayrollReader interface {
	List(ctx context.Context, actor auth.Principal, filter payroll.RecordFilter) (payroll.RecordListResult, error)
	Register(ctx context.Context, actor auth.Principal, period string) ([]payroll.Record, error)
}

type CountStore interface {
	Headcount(ctx context.Context) (map[string]int, error)
	PresentOn(ctx context.Context, day time.Time) (int, error)
	PendingLeaves(ctx context.Context) (int, error)
}

// Service builds reports on top of the domain services, so every figure is
// subject to the caller's read scope.
type Service struct {
	Store      CountStore
	Attendance AttendanceReader
	Leave      LeaveReader
	Payroll    PayrollReader
	Location   *time.Location
	Now        func() time.Time
}

func NewService(store CountStore, attendanceReader AttendanceReader, leaveReader LeaveReader, payrollReader PayrollReader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		Store:      store,
		Attendance: attendanceReader,
		Leave:      leaveReader,
		Payroll:    payrollReader,
		Location:   loc,
		Now:        time.Now,
	}
}

func (s *Service) today() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return attendance.CivilDate(now(), s.Location)
}

type AttendanceReport struct {
	Summary AttendanceSummary   `json:"summary"`
	Records []attendance.Record `json:"records"`
}

func (s *Service) AttendanceReport(ctx context.Context, actor auth.Principal, filter attendance.Filter) (AttendanceReport, error) {
	filter.Limit, filter.Offset = 0, 0
	records, err := s.Attendance.List(ctx, actor, filter)
	if err != nil {
		return AttendanceReport{}, err
	}
	return AttendanceReport{Summary: SummarizeAttendance(records), Records: records}, nil
}

type LeaveReport struct {
	Summary  LeaveSummary    `json:"summary"`
	Requests []leave.Request `json:"requests"`
}

func (s *Service) LeaveReport(ctx context.Context, actor auth.Principal, filter leave.Filter) (LeaveReport, error) {
	filter.Limit, filter.Offset = 0, 0
	res, err := s.Leave.List(ctx, actor, filter)
	if err != nil {
		return LeaveReport{}, err
	}
	return LeaveReport{Summary: SummarizeLeave(res.Items, filter.From, filter.To), Requests: res.Items}, nil
}

type PayrollReport struct {
	Summary PayrollSummary   `json:"summary"`
	Records []payroll.Record `json:"records"`
}

// PayrollReport summarises current records only; superseded versions are
// history, not payroll.
func (s *Service) PayrollReport(ctx context.Context, actor auth.Principal, filter payroll.RecordFilter) (PayrollReport, error) {
	filter.Limit, filter.Offset = 0, 0
	filter.CurrentOnly = true
	res, err := s.Payroll.List(ctx, actor, filter)
	if err != nil {
		return PayrollReport{}, err
	}
	return PayrollReport{Summary: SummarizePayroll(res.Items), Records: res.Items}, nil
}

// ExportRegister writes the current payroll register of a period as CSV.
func (s *Service) ExportRegister(ctx context.Context, actor auth.Principal, period string, w io.Writer) error {
	records, err := s.Payroll.Register(ctx, actor, period)
	if err != nil {
		return err
	}
	return WriteRegisterCSV(w, records)
}

type Dashboard struct {
	Role           auth.Role          `json:"role"`
	Date           string             `json:"date"`
	Period         string             `json:"period"`
	Headcount      map[string]int     `json:"headcount,omitempty"`
	PresentToday   *int               `json:"presentToday,omitempty"`
	PendingLeaves  *int               `json:"pendingLeaves,omitempty"`
	Payroll        *PayrollSummary    `json:"payroll,omitempty"`
	RecentLeaves   []leave.Request    `json:"recentLeaves,omitempty"`
	Today          *attendance.Record `json:"today,omitempty"`
	MonthToDate    *AttendanceSummary `json:"monthToDate,omitempty"`
	RecentPayslips []payroll.Record   `json:"recentPayslips,omitempty"`
}

// Dashboard assembles the landing figures for the caller's role. The
// queries run concurrently and the first failure cancels the rest.
func (s *Service) Dashboard(ctx context.Context, actor auth.Principal) (Dashboard, error) {
	if !actor.Role.Valid() {
		return Dashboard{}, &auth.ForbiddenError{Role: actor.Role, Action: auth.ActionRead, Resource: auth.ResourceEmployee}
	}
	today := s.today()
	period := payroll.Period{Year: today.Year(), Month: today.Month()}
	d := Dashboard{Role: actor.Role, Date: today.Format("2006-01-02"), Period: period.String()}

	g, gctx := errgroup.WithContext(ctx)
	switch actor.Role {
	case auth.RoleAdmin:
		s.headcount(gctx, g, &d)
		s.presentToday(gctx, g, &d, today)
		s.pendingLeaves(gctx, g, &d)
		s.payrollPeriod(gctx, g, actor, &d, period)
	case auth.RoleHROfficer:
		s.headcount(gctx, g, &d)
		s.presentToday(gctx, g, &d, today)
		s.pendingLeaves(gctx, g, &d)
		s.recentLeaves(gctx, g, actor, &d)
	case auth.RolePayrollOfficer:
		s.headcount(gctx, g, &d)
		s.pendingLeaves(gctx, g, &d)
		s.payrollPeriod(gctx, g, actor, &d, period)
		s.recentLeaves(gctx, g, actor, &d)
	case auth.RoleEmployee:
		s.todayRecord(gctx, g, actor, &d)
		s.monthToDate(gctx, g, actor, &d, period.Start(), today)
		s.recentLeaves(gctx, g, actor, &d)
		s.recentPayslips(gctx, g, actor, &d)
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Each helper writes a distinct Dashboard field, so the goroutines never
// share state.

func (s *Service) headcount(ctx context.Context, g *errgroup.Group, d *Dashboard) {
	g.Go(func() error {
		counts, err := s.Store.Headcount(ctx)
		d.Headcount = counts
		return err
	})
}

func (s *Service) presentToday(ctx context.Context, g *errgroup.Group, d *Dashboard, today time.Time) {
	g.Go(func() error {
		n, err := s.Store.PresentOn(ctx, today)
		d.PresentToday = &n
		return err
	})
}

func (s *Service) pendingLeaves(ctx context.Context, g *errgroup.Group, d *Dashboard) {
	g.Go(func() error {
		n, err := s.Store.PendingLeaves(ctx)
		d.PendingLeaves = &n
		return err
	})
}

func (s *Service) payrollPeriod(ctx context.Context, g *errgroup.Group, actor auth.Principal, d *Dashboard, period payroll.Period) {
	g.Go(func() error {
		records, err := s.Payroll.Register(ctx, actor, period.String())
		if err != nil {
			return err
		}
		summary := SummarizePayroll(records)
		d.Payroll = &summary
		return nil
	})
}

func (s *Service) recentLeaves(ctx context.Context, g *errgroup.Group, actor auth.Principal, d *Dashboard) {
	g.Go(func() error {
		res, err := s.Leave.List(ctx, actor, leave.Filter{Limit: recentLeaveLimit})
		d.RecentLeaves = res.Items
		return err
	})
}

func (s *Service) todayRecord(ctx context.Context, g *errgroup.Group, actor auth.Principal, d *Dashboard) {
	g.Go(func() error {
		rec, err := s.Attendance.Today(ctx, actor)
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		d.Today = &rec
		return nil
	})
}

func (s *Service) monthToDate(ctx context.Context, g *errgroup.Group, actor auth.Principal, d *Dashboard, from, to time.Time) {
	g.Go(func() error {
		records, err := s.Attendance.List(ctx, actor, attendance.Filter{EmployeeID: actor.EmployeeID, From: from, To: to})
		if err != nil {
			return err
		}
		summary := SummarizeAttendance(records)
		d.MonthToDate = &summary
		return nil
	})
}

func (s *Service) recentPayslips(ctx context.Context, g *errgroup.Group, actor auth.Principal, d *Dashboard) {
	g.Go(func() error {
		res, err := s.Payroll.List(ctx, actor, payroll.RecordFilter{CurrentOnly: true, Limit: recentPayslipLimit})
		d.RecentPayslips = res.Items
		return err
	})
}
