package corehandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/auth"
	"workzen/internal/domain/core"
	"workzen/internal/transport/http/api"
	"workzen/internal/transport/http/middleware"
	"workzen/internal/transport/http/shared"
)

type Service interface {
	Get(ctx context.Context, actor auth.Principal, employeeID string) (core.Employee, error)
	List(ctx context.Context, actor auth.Principal, filter core.Filter) ([]core.Employee, int, error)
	Create(ctx context.Context, actor auth.Principal, in core.NewEmployee) (core.CreatedEmployee, error)
	Update(ctx context.Context, actor auth.Principal, employeeID string, in core.EmployeeUpdate) (core.Employee, error)
	Delete(ctx context.Context, actor auth.Principal, employeeID string) error
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

type createEmployeeRequest struct {
	FirstName     string `json:"firstName" validate:"required,max=100"`
	LastName      string `json:"lastName" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"max=32"`
	Department    string `json:"department" validate:"max=100"`
	JobPosition   string `json:"jobPosition" validate:"max=100"`
	ManagerID     string `json:"managerId" validate:"omitempty,uuid"`
	DateOfJoining string `json:"dateOfJoining" validate:"required"`
	BankAccount   string `json:"bankAccount" validate:"max=64"`
	PAN           string `json:"pan" validate:"max=32"`
	Role          string `json:"role"`
	Password      string `json:"password"`
}

type updateEmployeeRequest struct {
	FirstName   *string `json:"firstName" validate:"omitempty,max=100"`
	LastName    *string `json:"lastName" validate:"omitempty,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	Department  *string `json:"department" validate:"omitempty,max=100"`
	JobPosition *string `json:"jobPosition" validate:"omitempty,max=100"`
	ManagerID   *string `json:"managerId" validate:"omitempty"`
	BankAccount *string `json:"bankAccount" validate:"omitempty,max=64"`
	PAN         *string `json:"pan" validate:"omitempty,max=32"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceEmployee)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.ActionCreate, auth.ResourceEmployee)).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceEmployee)).Get("/", h.handleGetEmployee)
			r.With(middleware.RequirePermission(auth.ActionUpdate, auth.ResourceEmployee)).Patch("/", h.handleUpdateEmployee)
			r.With(middleware.RequirePermission(auth.ActionUpdate, auth.ResourceEmployee)).Put("/", h.handleUpdateEmployee)
			r.With(middleware.RequirePermission(auth.ActionDelete, auth.ResourceEmployee)).Delete("/", h.handleDeleteEmployee)
		})
	})
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	query := r.URL.Query()
	employees, total, err := h.Service.List(r.Context(), user, core.Filter{
		Department: query.Get("department"),
		Status:     query.Get("status"),
		Search:     query.Get("q"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.SetTotal(w, total)
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload createEmployeeRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	joined, _ := v.Date("dateOfJoining", payload.DateOfJoining)
	if payload.Role != "" {
		if _, err := auth.ParseRole(payload.Role); err != nil {
			v.Add("role", "must be one of: Admin, HR Officer, Payroll Officer, Employee")
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), user, core.NewEmployee{
		FirstName:     payload.FirstName,
		LastName:      payload.LastName,
		Email:         payload.Email,
		Phone:         payload.Phone,
		Department:    payload.Department,
		JobPosition:   payload.JobPosition,
		ManagerID:     payload.ManagerID,
		DateOfJoining: joined,
		BankAccount:   payload.BankAccount,
		PAN:           payload.PAN,
		Role:          payload.Role,
		Password:      payload.Password,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload updateEmployeeRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	emp, err := h.Service.Update(r.Context(), user, chi.URLParam(r, "employeeID"), core.EmployeeUpdate{
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Phone:       payload.Phone,
		Department:  payload.Department,
		JobPosition: payload.JobPosition,
		ManagerID:   payload.ManagerID,
		BankAccount: payload.BankAccount,
		PAN:         payload.PAN,
		Status:      payload.Status,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if err := h.Service.Delete(r.Context(), user, employeeID); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"id": employeeID}, middleware.GetRequestID(r.Context()))
}
