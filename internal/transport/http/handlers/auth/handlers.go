package authhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/auth"
	"workzen/internal/domain/core"
	"workzen/internal/transport/http/api"
	"workzen/internal/transport/http/middleware"
	"workzen/internal/transport/http/shared"
)

type Service interface {
	Login(ctx context.Context, email, password, mfaCode string) (auth.LoginResult, error)
	Logout(ctx context.Context, p auth.Principal) error
	ChangePassword(ctx context.Context, p auth.Principal, current, next string) error
	SetupMFA(ctx context.Context, p auth.Principal) (auth.MFASetup, error)
	EnableMFA(ctx context.Context, p auth.Principal, code string) error
	DisableMFA(ctx context.Context, p auth.Principal, code string) error
	ListAccounts(ctx context.Context, actor auth.Principal) ([]auth.Account, error)
	ChangeRole(ctx context.Context, actor auth.Principal, userID string, role auth.Role) (auth.Account, error)
	SetAccountStatus(ctx context.Context, actor auth.Principal, userID, status string) error
}

// ProfileReader loads the caller's employee profile for /auth/me.
type ProfileReader interface {
	Get(ctx context.Context, actor auth.Principal, employeeID string) (core.Employee, error)
}

type Handler struct {
	Service  Service
	Profiles ProfileReader
}

func NewHandler(service Service, profiles ProfileReader) *Handler {
	return &Handler{Service: service, Profiles: profiles}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfaCode"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active disabled"`
}

// RegisterPublicRoutes mounts the endpoints reachable without a session.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Post("/password", h.handleChangePassword)
		r.Post("/mfa/setup", h.handleMFASetup)
		r.Post("/mfa/enable", h.handleMFAEnable)
		r.Post("/mfa/disable", h.handleMFADisable)
	})
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourceUserAccount)).Get("/", h.handleListAccounts)
		r.With(middleware.RequirePermission(auth.ActionUpdate, auth.ResourceUserAccount)).Put("/{userID}/role", h.handleChangeRole)
		r.With(middleware.RequirePermission(auth.ActionUpdate, auth.ResourceUserAccount)).Put("/{userID}/status", h.handleChangeStatus)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password, payload.MFACode)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.Logout(r.Context(), user); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var profile *core.Employee
	if user.EmployeeID != "" && h.Profiles != nil {
		emp, err := h.Profiles.Get(r.Context(), user, user.EmployeeID)
		switch {
		case err == nil:
			profile = &emp
		case !errors.Is(err, core.ErrEmployeeNotFound):
			shared.WriteError(w, r, err)
			return
		}
	}
	api.Success(w, map[string]any{
		"user":        user,
		"employee":    profile,
		"permissions": auth.GrantsFor(user.Role),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload passwordRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	if err := h.Service.ChangePassword(r.Context(), user, payload.CurrentPassword, payload.NewPassword); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "password_changed"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	setup, err := h.Service.SetupMFA(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, setup, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, h.Service.EnableMFA, "enabled")
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, h.Service.DisableMFA, "disabled")
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, apply func(context.Context, auth.Principal, string) error, status string) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload mfaCodeRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	if err := apply(r.Context(), user, payload.Code); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	accounts, err := h.Service.ListAccounts(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, accounts, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload roleRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	role, err := auth.ParseRole(payload.Role)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	account, err := h.Service.ChangeRole(r.Context(), user, chi.URLParam(r, "userID"), role)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, account, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload statusRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	userID := chi.URLParam(r, "userID")
	if err := h.Service.SetAccountStatus(r.Context(), user, userID, payload.Status); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"id": userID, "status": payload.Status}, middleware.GetRequestID(r.Context()))
}
