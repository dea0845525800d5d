package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/auth"
	"workzen/internal/domain/leave"
	"workzen/internal/domain/payroll"
)

type fakeCounts struct{}

func (fakeCounts) Headcount(context.Context) (map[string]int, error) {
	return map[string]int{"Employee": 7, "Admin": 1}, nil
}

func (fakeCounts) PresentOn(context.Context, time.Time) (int, error) { return 5, nil }

func (fakeCounts) PendingLeaves(context.Context) (int, error) { return 2, nil }

type fakeAttendance struct {
	records []attendance.Record
	today   *attendance.Record
}

func (f fakeAttendance) List(_ context.Context, actor auth.Principal, filter attendance.Filter) ([]attendance.Record, error) {
	scope, err := auth.RequireScope(actor, auth.ActionRead, auth.ResourceAttendance)
	if err != nil {
		return nil, err
	}
	var out []attendance.Record
	for _, rec := range f.records {
		if scope == auth.ScopeOwn && rec.EmployeeID != actor.EmployeeID {
			continue
		}
		if filter.EmployeeID != "" && rec.EmployeeID != filter.EmployeeID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f fakeAttendance) Today(context.Context, auth.Principal) (attendance.Record, error) {
	if f.today == nil {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return *f.today, nil
}

type fakeLeave struct {
	requests []leave.Request
}

func (f fakeLeave) List(_ context.Context, actor auth.Principal, filter leave.Filter) (leave.RequestListResult, error) {
	scope, err := auth.RequireScope(actor, auth.ActionRead, auth.ResourceLeave)
	if err != nil {
		return leave.RequestListResult{}, err
	}
	var out leave.RequestListResult
	for _, req := range f.requests {
		if scope == auth.ScopeOwn && req.EmployeeID != actor.EmployeeID {
			continue
		}
		out.Items = append(out.Items, req)
		if filter.Limit > 0 && len(out.Items) == filter.Limit {
			break
		}
	}
	out.Total = len(out.Items)
	return out, nil
}

type fakePayroll struct {
	records []payroll.Record
}

func (f fakePayroll) List(_ context.Context, actor auth.Principal, filter payroll.RecordFilter) (payroll.RecordListResult, error) {
	scope, err := auth.RequireScope(actor, auth.ActionRead, auth.ResourcePayroll)
	if err != nil {
		return payroll.RecordListResult{}, err
	}
	var out payroll.RecordListResult
	for _, rec := range f.records {
		if scope == auth.ScopeOwn && rec.EmployeeID != actor.EmployeeID {
			continue
		}
		if filter.CurrentOnly && !rec.Current {
			continue
		}
		if filter.FromPeriod != "" && rec.Period < filter.FromPeriod {
			continue
		}
		if filter.ToPeriod != "" && rec.Period > filter.ToPeriod {
			continue
		}
		out.Items = append(out.Items, rec)
	}
	out.Total = len(out.Items)
	return out, nil
}

func (f fakePayroll) Register(ctx context.Context, actor auth.Principal, period string) ([]payroll.Record, error) {
	res, err := f.List(ctx, actor, payroll.RecordFilter{FromPeriod: period, ToPeriod: period, CurrentOnly: true})
	return res.Items, err
}

var (
	admin    = auth.Principal{UserID: "admin", Role: auth.RoleAdmin}
	hr       = auth.Principal{UserID: "hr", EmployeeID: "e-hr", Role: auth.RoleHROfficer}
	officer  = auth.Principal{UserID: "po", EmployeeID: "e-po", Role: auth.RolePayrollOfficer}
	employee = auth.Principal{UserID: "u1", EmployeeID: "e1", Role: auth.RoleEmployee}
)

func newTestService() *Service {
	records := []payroll.Record{
		{ID: "p1", EmployeeID: "e1", EmployeeCode: "WZJODO20240001", EmployeeName: "John Doe", Period: "2024-05", Gross: 2960000, TotalDeductions: 260000, Net: 2700000, Currency: "INR", Status: payroll.StatusPaid, Current: true, Warnings: []string{}},
		{ID: "p0", EmployeeID: "e1", Period: "2024-05", Gross: 1, Net: 1, Current: false},
		{ID: "p2", EmployeeID: "e2", EmployeeCode: "WZJASM20240002", EmployeeName: "Jane, Smith", Period: "2024-05", Gross: 100000, TotalDeductions: 232000, Net: -132000, Currency: "INR", Status: payroll.StatusUnpaid, Current: true, Warnings: []string{payroll.WarningMissingBank, payroll.WarningNegativeNet}},
	}
	svc := NewService(fakeCounts{},
		fakeAttendance{records: []attendance.Record{
			{EmployeeID: "e1", Status: attendance.StatusPresent, WorkingMinutes: 480},
			{EmployeeID: "e2", Status: attendance.StatusAbsent},
		}},
		fakeLeave{requests: []leave.Request{
			{EmployeeID: "e1", Status: leave.StatusApproved, Days: 2},
			{EmployeeID: "e2", Status: leave.StatusPending, Days: 1},
		}},
		fakePayroll{records: records}, time.UTC)
	svc.Now = func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestReportsFollowReadScope(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	att, err := svc.AttendanceReport(ctx, employee, attendance.Filter{})
	if err != nil {
		t.Fatalf("attendance report error: %v", err)
	}
	if att.Summary.Days != 1 || att.Summary.Present != 1 {
		t.Fatalf("employee must only see own attendance, got %+v", att.Summary)
	}
	att, _ = svc.AttendanceReport(ctx, hr, attendance.Filter{})
	if att.Summary.Days != 2 || att.Summary.Absent != 1 {
		t.Fatalf("expected organisation-wide attendance, got %+v", att.Summary)
	}

	lv, err := svc.LeaveReport(ctx, admin, leave.Filter{})
	if err != nil {
		t.Fatalf("leave report error: %v", err)
	}
	if lv.Summary.Total != 2 || lv.Summary.ApprovedDays != 2 {
		t.Fatalf("unexpected leave summary %+v", lv.Summary)
	}

	pr, err := svc.PayrollReport(ctx, officer, payroll.RecordFilter{FromPeriod: "2024-05", ToPeriod: "2024-05"})
	if err != nil {
		t.Fatalf("payroll report error: %v", err)
	}
	if pr.Summary.Records != 2 || pr.Summary.Net != 2568000 {
		t.Fatalf("expected current records only, got %+v", pr.Summary)
	}
	if _, err := svc.PayrollReport(ctx, hr, payroll.RecordFilter{}); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected HR payroll report forbidden, got %v", err)
	}
}

func TestExportRegister(t *testing.T) {
	svc := newTestService()
	var buf bytes.Buffer
	if err := svc.ExportRegister(context.Background(), officer, "2024-05", &buf); err != nil {
		t.Fatalf("export error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two rows, got %d", len(rows))
	}
	if rows[1][0] != "WZJODO20240001" || rows[1][12] != "27000.00" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][1] != "Jane, Smith" || rows[2][12] != "-1320.00" || rows[2][19] != "missing_bank_account;negative_net" {
		t.Fatalf("unexpected second row %v", rows[2])
	}

	if err := svc.ExportRegister(context.Background(), employee, "2024-05", &buf); err != nil {
		t.Fatalf("employee export error: %v", err)
	}
	if err := svc.ExportRegister(context.Background(), hr, "2024-05", &buf); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected HR export forbidden, got %v", err)
	}
}

func TestCSVCell(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"John Doe", "John Doe"},
		{"", ""},
		{`=HYPERLINK("http://example.com","x")`, `'=HYPERLINK("http://example.com","x")`},
		{"+1+1", "'+1+1"},
		{"-2+3", "'-2+3"},
		{"@SUM(A1:A2)", "'@SUM(A1:A2)"},
		{"\t=1", "'\t=1"},
		{"Jane-Smith", "Jane-Smith"},
	}
	for _, tc := range cases {
		if got := CSVCell(tc.in); got != tc.want {
			t.Fatalf("CSVCell(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExportRegisterNeutralizesFormulas(t *testing.T) {
	records := []payroll.Record{
		{ID: "p9", EmployeeID: "e9", EmployeeCode: "@WZ0009", EmployeeName: `=HYPERLINK("http://example.com","pay")`, Period: "2024-05", Net: -50000, Currency: "INR", Status: payroll.StatusUnpaid, Current: true},
	}
	var buf bytes.Buffer
	if err := WriteRegisterCSV(&buf, records); err != nil {
		t.Fatalf("write error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse error: %v", err)
	}
	row := rows[1]
	if row[0] != "'@WZ0009" || row[1] != `'=HYPERLINK("http://example.com","pay")` {
		t.Fatalf("expected quoted text cells, got %v", row)
	}
	if row[12] != "-500.00" {
		t.Fatalf("amounts must stay numeric, got %q", row[12])
	}
}

func TestDashboardByRole(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		actor auth.Principal
		check func(t *testing.T, d Dashboard)
	}{
		{name: "admin", actor: admin, check: func(t *testing.T, d Dashboard) {
			if d.Headcount["Employee"] != 7 || d.PresentToday == nil || *d.PresentToday != 5 || d.Payroll == nil || d.Payroll.Records != 2 {
				t.Fatalf("unexpected admin dashboard %+v", d)
			}
		}},
		{name: "hr officer", actor: hr, check: func(t *testing.T, d Dashboard) {
			if d.Payroll != nil || d.PendingLeaves == nil || *d.PendingLeaves != 2 || len(d.RecentLeaves) != 2 {
				t.Fatalf("unexpected hr dashboard %+v", d)
			}
		}},
		{name: "payroll officer", actor: officer, check: func(t *testing.T, d Dashboard) {
			if d.Payroll == nil || d.Payroll.WithWarnings != 1 || d.PresentToday != nil {
				t.Fatalf("unexpected payroll dashboard %+v", d)
			}
		}},
		{name: "employee", actor: employee, check: func(t *testing.T, d Dashboard) {
			if d.Headcount != nil || d.Today != nil || d.MonthToDate == nil || d.MonthToDate.Present != 1 {
				t.Fatalf("unexpected employee dashboard %+v", d)
			}
			if len(d.RecentLeaves) != 1 || len(d.RecentPayslips) != 1 || d.RecentPayslips[0].ID != "p1" {
				t.Fatalf("employee must only see own leaves and payslips, got %+v", d)
			}
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			d, err := svc.Dashboard(ctx, tc.actor)
			if err != nil {
				t.Fatalf("dashboard error: %v", err)
			}
			if d.Role != tc.actor.Role || d.Period != "2024-05" || d.Date != "2024-05-20" {
				t.Fatalf("unexpected header %+v", d)
			}
			tc.check(t, d)
		})
	}

	if _, err := svc.Dashboard(ctx, auth.Principal{Role: auth.Role("Manager")}); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected unknown role forbidden, got %v", err)
	}
}
