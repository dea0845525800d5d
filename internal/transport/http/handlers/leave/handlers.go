package leavehandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/auth"
	"workzen/internal/domain/leave"
	"workzen/internal/transport/http/api"
	"workzen/internal/transport/http/middleware"
	"workzen/internal/transport/http/shared"
)

type Service interface {
	Submit(ctx context.Context, actor auth.Principal, in leave.NewRequest) (leave.Request, error)
	Approve(ctx context.Context, actor auth.Principal, id, note string) (leave.Request, error)
	Reject(ctx context.Context, actor auth.Principal, id, note string) (leave.Request, error)
	Override(ctx context.Context, actor auth.Principal, id string, d leave.Decision) (leave.Request, error)
	Cancel(ctx context.Context, actor auth.Principal, id string) (leave.Request, error)
	Delete(ctx context.Context, actor auth.Principal, id string) error
	Get(ctx context.Context, actor auth.Principal, id string) (leave.Request, error)
	List(ctx context.Context, actor auth.Principal, filter leave.Filter) (leave.RequestListResult, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

type submitRequest struct {
	LeaveType string `json:"leaveType" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason" validate:"max=1000"`
}

type decisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type overrideRequest struct {
	Status string `json:"status" validate:"required,oneof=Approved Rejected"`
	Note   string `json:"note" validate:"required,max=1000"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceLeave)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceLeave)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.ActionCreate, auth.ResourceLeave)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceLeave)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.ActionUpdate, auth.ResourceLeave)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.ActionUpdate, auth.ResourceLeave)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.ActionOverride, auth.ResourceLeave)).Post("/requests/{requestID}/override", h.handleOverrideRequest)
		r.With(middleware.RequirePermission(auth.ActionCreate, auth.ResourceLeave)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.ActionDelete, auth.ResourceLeave)).Delete("/requests/{requestID}", h.handleDeleteRequest)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, leave.Types, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
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
	v.Enum("status", query.Get("status"), []string{leave.StatusPending, leave.StatusApproved, leave.StatusRejected, leave.StatusCancelled}, "must be one of: Pending, Approved, Rejected, Cancelled")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	result, err := h.Service.List(r.Context(), user, leave.Filter{
		EmployeeID: query.Get("employeeId"),
		Status:     query.Get("status"),
		From:       from,
		To:         to,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.SetTotal(w, result.Total)
	api.Success(w, result.Items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload submitRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Enum("leaveType", payload.LeaveType, leave.Types, "must be one of: Sick Leave, Casual Leave, Annual Leave, Unpaid Leave")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	req, err := h.Service.Submit(r.Context(), user, leave.NewRequest{
		LeaveType: payload.LeaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    payload.Reason,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	req, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Approve)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, apply func(context.Context, auth.Principal, string, string) (leave.Request, error)) {
	user, _ := middleware.GetUser(r.Context())
	var payload decisionRequest
	if r.ContentLength != 0 && !shared.Decode(w, r, &payload) {
		return
	}
	req, err := apply(r.Context(), user, chi.URLParam(r, "requestID"), payload.Note)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOverrideRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload overrideRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	req, err := h.Service.Override(r.Context(), user, chi.URLParam(r, "requestID"), leave.Decision{Status: payload.Status, Note: payload.Note})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	req, err := h.Service.Cancel(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")
	if err := h.Service.Delete(r.Context(), user, requestID); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"id": requestID}, middleware.GetRequestID(r.Context()))
}
