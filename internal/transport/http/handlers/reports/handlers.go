package reportshandler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/auth"
	"workzen/internal/domain/leave"
	"workzen/internal/domain/payroll"
	"workzen/internal/domain/reports"
	"workzen/internal/transport/http/api"
	"workzen/internal/transport/http/middleware"
	"workzen/internal/transport/http/shared"
)

type Service interface {
	AttendanceReport(ctx context.Context, actor auth.Principal, filter attendance.Filter) (reports.AttendanceReport, error)
	LeaveReport(ctx context.Context, actor auth.Principal, filter leave.Filter) (reports.LeaveReport, error)
	PayrollReport(ctx context.Context, actor auth.Principal, filter payroll.RecordFilter) (reports.PayrollReport, error)
	ExportRegister(ctx context.Context, actor auth.Principal, period string, w io.Writer) error
	Dashboard(ctx context.Context, actor auth.Principal) (reports.Dashboard, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceAttendance)).Get("/attendance", h.handleAttendance)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceLeave)).Get("/leave", h.handleLeave)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/payroll", h.handlePayroll)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/payroll/register.csv", h.handleRegisterExport)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	dashboard, err := h.Service.Dashboard(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	report, err := h.Service.AttendanceReport(r.Context(), user, attendance.Filter{
		EmployeeID: r.URL.Query().Get("employeeId"),
		From:       from,
		To:         to,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	report, err := h.Service.LeaveReport(r.Context(), user, leave.Filter{
		EmployeeID: r.URL.Query().Get("employeeId"),
		Status:     r.URL.Query().Get("status"),
		From:       from,
		To:         to,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePayroll(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	query := r.URL.Query()
	report, err := h.Service.PayrollReport(r.Context(), user, payroll.RecordFilter{
		EmployeeID: query.Get("employeeId"),
		FromPeriod: query.Get("from"),
		ToPeriod:   query.Get("to"),
		Status:     query.Get("status"),
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

// handleRegisterExport buffers the CSV so a failure still gets a JSON error.
func (h *Handler) handleRegisterExport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	period := r.URL.Query().Get("period")
	if period == "" {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "period", Reason: "is required"}})
		return
	}
	var buf bytes.Buffer
	if err := h.Service.ExportRegister(r.Context(), user, period, &buf); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=payroll-register-"+period+".csv")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("register export write failed", "period", period, "err", err)
	}
}

func dateRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	query := r.URL.Query()
	v := shared.NewValidator()
	var err error
	if from, err = shared.ParseOptionalDate(query.Get("from")); err != nil {
		v.Add("from", "must be a valid date in YYYY-MM-DD format")
	}
	if to, err = shared.ParseOptionalDate(query.Get("to")); err != nil {
		v.Add("to", "must be a valid date in YYYY-MM-DD format")
	}
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
