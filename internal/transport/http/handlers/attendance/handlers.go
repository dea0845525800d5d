package attendancehandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/auth"
	"workzen/internal/transport/http/api"
	"workzen/internal/transport/http/middleware"
	"workzen/internal/transport/http/shared"
)

type Service interface {
	CheckIn(ctx context.Context, actor auth.Principal) (attendance.Record, error)
	CheckOut(ctx context.Context, actor auth.Principal) (attendance.Record, error)
	Today(ctx context.Context, actor auth.Principal) (attendance.Record, error)
	Get(ctx context.Context, actor auth.Principal, id string) (attendance.Record, error)
	List(ctx context.Context, actor auth.Principal, filter attendance.Filter) ([]attendance.Record, error)
	Facts(ctx context.Context, actor auth.Principal, employeeID string, from, to time.Time) (attendance.Facts, error)
	Update(ctx context.Context, actor auth.Principal, id string, in attendance.Correction) (attendance.Record, error)
	Delete(ctx context.Context, actor auth.Principal, id string) error
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

type correctionRequest struct {
	CheckIn  *time.Time `json:"checkIn"`
	CheckOut *time.Time `json:"checkOut"`
	Status   *string    `json:"status" validate:"omitempty,oneof='Present' 'Half Day' 'Absent'"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActionCreate, auth.ResourceAttendance)).Post("/check-in", h.handleCheckIn)
		r.With(middleware.RequirePermission(auth.ActionCreate, auth.ResourceAttendance)).Post("/check-out", h.handleCheckOut)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceAttendance)).Get("/today", h.handleToday)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceAttendance)).Get("/summary", h.handleSummary)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceAttendance)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceAttendance)).Get("/{recordID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.ActionUpdate, auth.ResourceAttendance)).Patch("/{recordID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.ActionDelete, auth.ResourceAttendance)).Delete("/{recordID}", h.handleDelete)
	})
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.CheckIn(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.CheckOut(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

// handleToday answers with null data when the caller has not checked in.
func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.Today(r.Context(), user)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		api.Success(w, nil, middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	query := r.URL.Query()
	employeeID := query.Get("employeeId")
	if employeeID == "" {
		employeeID = user.EmployeeID
	}
	v := shared.NewValidator()
	from, _ := v.Date("from", query.Get("from"))
	to, _ := v.Date("to", query.Get("to"))
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	facts, err := h.Service.Facts(r.Context(), user, employeeID, from, to)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, facts, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	records, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload correctionRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	rec, err := h.Service.Update(r.Context(), user, chi.URLParam(r, "recordID"), attendance.Correction{
		CheckIn:  payload.CheckIn,
		CheckOut: payload.CheckOut,
		Status:   payload.Status,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	recordID := chi.URLParam(r, "recordID")
	if err := h.Service.Delete(r.Context(), user, recordID); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"id": recordID}, middleware.GetRequestID(r.Context()))
}

// parseFilter reads employeeId, from and to. Without limit the whole range
// is returned.
func parseFilter(w http.ResponseWriter, r *http.Request) (attendance.Filter, bool) {
	query := r.URL.Query()
	v := shared.NewValidator()
	from, err := shared.ParseOptionalDate(query.Get("from"))
	if err != nil {
		v.Add("from", "must be a valid date in YYYY-MM-DD format")
	}
	to, err := shared.ParseOptionalDate(query.Get("to"))
	if err != nil {
		v.Add("to", "must be a valid date in YYYY-MM-DD format")
	}
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return attendance.Filter{}, false
	}
	filter := attendance.Filter{EmployeeID: query.Get("employeeId"), From: from, To: to}
	if query.Get("limit") != "" {
		page := shared.ParsePagination(r, 100, 1000)
		filter.Limit, filter.Offset = page.Limit, page.Offset
	}
	return filter, true
}
