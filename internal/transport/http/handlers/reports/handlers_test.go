package reportshandler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/auth"
	"workzen/internal/domain/leave"
	"workzen/internal/domain/payroll"
	"workzen/internal/domain/reports"
	"workzen/internal/transport/http/middleware"
)

type fakeService struct {
	lastAttendance attendance.Filter
}

func (f *fakeService) AttendanceReport(_ context.Context, _ auth.Principal, filter attendance.Filter) (reports.AttendanceReport, error) {
	f.lastAttendance = filter
	return reports.AttendanceReport{}, nil
}

func (f *fakeService) LeaveReport(context.Context, auth.Principal, leave.Filter) (reports.LeaveReport, error) {
	return reports.LeaveReport{}, nil
}

func (f *fakeService) PayrollReport(context.Context, auth.Principal, payroll.RecordFilter) (reports.PayrollReport, error) {
	return reports.PayrollReport{}, nil
}

func (f *fakeService) ExportRegister(_ context.Context, _ auth.Principal, period string, w io.Writer) error {
	if _, err := payroll.ParsePeriod(period); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "employee_code,period\nWZ0001,%s\n", period)
	return err
}

func (f *fakeService) Dashboard(_ context.Context, actor auth.Principal) (reports.Dashboard, error) {
	if !actor.Role.Valid() {
		return reports.Dashboard{}, auth.ErrForbidden
	}
	return reports.Dashboard{Role: actor.Role, Date: "2024-05-20"}, nil
}

func serve(svc *fakeService, p auth.Principal, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterExport(t *testing.T) {
	svc := &fakeService{}
	officer := auth.Principal{UserID: "po", Role: auth.RolePayrollOfficer}

	rec := serve(svc, officer, "/reports/payroll/register.csv?period=2024-05")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("expected csv, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "payroll-register-2024-05.csv") || !strings.Contains(rec.Body.String(), "WZ0001,2024-05") {
		t.Fatalf("unexpected export %q %s", rec.Header().Get("Content-Disposition"), rec.Body.String())
	}

	rec = serve(svc, officer, "/reports/payroll/register.csv?period=May")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid_period") {
		t.Fatalf("expected invalid_period JSON error, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(svc, officer, "/reports/payroll/register.csv"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without period, got %d", rec.Code)
	}

	hr := auth.Principal{UserID: "hr", Role: auth.RoleHROfficer}
	if rec := serve(svc, hr, "/reports/payroll/register.csv?period=2024-05"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for HR officer, got %d", rec.Code)
	}
}

func TestReportRoutes(t *testing.T) {
	svc := &fakeService{}
	hr := auth.Principal{UserID: "hr", Role: auth.RoleHROfficer}

	if rec := serve(svc, hr, "/reports/dashboard"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"role":"HR Officer"`) {
		t.Fatalf("expected HR dashboard, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(svc, auth.Principal{UserID: "x", Role: auth.Role("Guest")}, "/reports/dashboard"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown role, got %d", rec.Code)
	}
	if rec := serve(svc, hr, "/reports/attendance?employeeId=e1&from=2024-05-01&to=2024-05-31"); rec.Code != http.StatusOK || svc.lastAttendance.EmployeeID != "e1" {
		t.Fatalf("expected attendance report for e1, got %d %+v", rec.Code, svc.lastAttendance)
	}
	if rec := serve(svc, hr, "/reports/leave?from=2024-06-01&to=2024-05-01"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reversed range, got %d", rec.Code)
	}
	if rec := serve(svc, hr, "/reports/payroll"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for HR payroll report, got %d", rec.Code)
	}
}
