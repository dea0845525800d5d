package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/auth"
	"workzen/internal/domain/payroll"
	"workzen/internal/transport/http/api"
	"workzen/internal/transport/http/middleware"
	"workzen/internal/transport/http/shared"
)

type Service interface {
	SetStructure(ctx context.Context, actor auth.Principal, employeeID string, in payroll.StructureInput) (payroll.SalaryStructure, error)
	ActiveStructure(ctx context.Context, actor auth.Principal, employeeID string) (payroll.SalaryStructure, error)
	StructureHistory(ctx context.Context, actor auth.Principal, employeeID string) ([]payroll.SalaryStructure, error)
	Generate(ctx context.Context, actor auth.Principal, employeeID, period string, override bool) (payroll.Record, error)
	Payrun(ctx context.Context, actor auth.Principal, period string) (payroll.PayrunResult, error)
	Get(ctx context.Context, actor auth.Principal, id string) (payroll.Record, error)
	List(ctx context.Context, actor auth.Principal, filter payroll.RecordFilter) (payroll.RecordListResult, error)
	Register(ctx context.Context, actor auth.Principal, period string) ([]payroll.Record, error)
	History(ctx context.Context, actor auth.Principal, employeeID, period string) ([]payroll.Record, error)
	MarkPaid(ctx context.Context, actor auth.Principal, id string) (payroll.Record, error)
	Delete(ctx context.Context, actor auth.Principal, id string) error
	Payslip(ctx context.Context, actor auth.Principal, id string) ([]byte, string, error)
}

// IdempotencyStore replays responses for retried generation requests.
type IdempotencyStore interface {
	Check(ctx context.Context, userID, endpoint, key, requestHash string) (middleware.StoredResponse, bool, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, status int, response json.RawMessage) error
}

type Handler struct {
	Service     Service
	Idempotency IdempotencyStore
}

func NewHandler(service Service, idempotency IdempotencyStore) *Handler {
	return &Handler{Service: service, Idempotency: idempotency}
}

type deductionRequest struct {
	Name   string        `json:"name" validate:"required,max=100"`
	Amount payroll.Money `json:"amount"`
}

type structureRequest struct {
	Basic            payroll.Money      `json:"basic"`
	HRA              payroll.Money      `json:"hra"`
	Conveyance       payroll.Money      `json:"conveyance"`
	OtherAllowances  payroll.Money      `json:"otherAllowances"`
	CustomDeductions []deductionRequest `json:"customDeductions" validate:"max=20,dive"`
	EffectiveFrom    string             `json:"effectiveFrom"`
}

type generateRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Period     string `json:"period" validate:"required"`
	Override   bool   `json:"override"`
}

type payrunRequest struct {
	Period string `json:"period" validate:"required"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActionCreate, auth.ResourcePayroll)).Put("/structures/{employeeID}", h.handleSetStructure)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/structures/{employeeID}", h.handleActiveStructure)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/structures/{employeeID}/history", h.handleStructureHistory)
		r.With(middleware.RequirePermission(auth.ActionCreate, auth.ResourcePayroll)).Post("/generate", h.handleGenerate)
		r.With(middleware.RequirePermission(auth.ActionCreate, auth.ResourcePayroll)).Post("/payrun", h.handlePayrun)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/register/{period}", h.handleRegister)
		r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/history/{employeeID}/{period}", h.handleHistory)
		r.Route("/records", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/", h.handleListRecords)
			r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/{recordID}", h.handleGetRecord)
			r.With(middleware.RequirePermission(auth.ActionRead, auth.ResourcePayroll)).Get("/{recordID}/payslip", h.handlePayslip)
			r.With(middleware.RequirePermission(auth.ActionUpdate, auth.ResourcePayroll)).Post("/{recordID}/mark-paid", h.handleMarkPaid)
			r.With(middleware.RequirePermission(auth.ActionDelete, auth.ResourcePayroll)).Delete("/{recordID}", h.handleDeleteRecord)
		})
	})
}

func (h *Handler) handleSetStructure(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload structureRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	in := payroll.StructureInput{
		Basic:           payload.Basic,
		HRA:             payload.HRA,
		Conveyance:      payload.Conveyance,
		OtherAllowances: payload.OtherAllowances,
	}
	if payload.EffectiveFrom != "" {
		in.EffectiveFrom, _ = v.Date("effectiveFrom", payload.EffectiveFrom)
	}
	if payload.Basic <= 0 {
		v.Add("basic", "must be greater than zero")
	}
	for i, d := range payload.CustomDeductions {
		if d.Amount < 0 {
			v.Add("customDeductions["+strconv.Itoa(i)+"].amount", "must not be negative")
		}
		in.CustomDeductions = append(in.CustomDeductions, payroll.Deduction{Name: d.Name, Amount: d.Amount})
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	st, err := h.Service.SetStructure(r.Context(), user, chi.URLParam(r, "employeeID"), in)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, st, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActiveStructure(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	st, err := h.Service.ActiveStructure(r.Context(), user, chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, st, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStructureHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	history, err := h.Service.StructureHistory(r.Context(), user, chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

// handleGenerate answers 201 for a saved record, including one saved with
// warnings such as a negative net or a missing bank account.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	var payload generateRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	h.idempotent(w, r, user, "payroll.generate", raw, func() (int, any, error) {
		rec, err := h.Service.Generate(r.Context(), user, payload.EmployeeID, payload.Period, payload.Override)
		if err != nil && !payroll.IsWarning(err) {
			return 0, nil, err
		}
		return http.StatusCreated, rec, nil
	})
}

func (h *Handler) handlePayrun(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	var payload payrunRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	h.idempotent(w, r, user, "payroll.payrun", raw, func() (int, any, error) {
		result, err := h.Service.Payrun(r.Context(), user, payload.Period)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, result, nil
	})
}

// idempotent runs fn once per Idempotency-Key. A retry with the same key and
// body replays the stored response; the same key with another body is a 409.
func (h *Handler) idempotent(w http.ResponseWriter, r *http.Request, user auth.Principal, endpoint string, body []byte, fn func() (int, any, error)) {
	requestID := middleware.GetRequestID(r.Context())
	key := r.Header.Get("Idempotency-Key")
	hash := middleware.RequestHash(body)
	if key != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, endpoint, key, hash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", requestID)
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "endpoint", endpoint, "err", err)
		}
		if found {
			w.Header().Set("Idempotent-Replayed", "true")
			api.WriteJSON(w, stored.Status, api.Envelope{Success: true, Data: stored.Body, RequestID: requestID})
			return
		}
	}

	status, data, err := fn()
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	if key != "" && h.Idempotency != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			slog.Warn("idempotency response marshal failed", "endpoint", endpoint, "err", err)
		} else if err := h.Idempotency.Save(r.Context(), user.UserID, endpoint, key, hash, status, encoded); err != nil {
			slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err)
		}
	}
	api.WriteJSON(w, status, api.Envelope{Success: true, Data: data, RequestID: requestID})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	records, err := h.Service.Register(r.Context(), user, chi.URLParam(r, "period"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	records, err := h.Service.History(r.Context(), user, chi.URLParam(r, "employeeID"), chi.URLParam(r, "period"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	query := r.URL.Query()
	v := shared.NewValidator()
	v.Enum("status", query.Get("status"), []string{payroll.StatusUnpaid, payroll.StatusPaid}, "must be one of: Unpaid, Paid")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	page := shared.ParsePagination(r, 50, 500)
	result, err := h.Service.List(r.Context(), user, payroll.RecordFilter{
		EmployeeID:  query.Get("employeeId"),
		FromPeriod:  query.Get("from"),
		ToPeriod:    query.Get("to"),
		Status:      query.Get("status"),
		CurrentOnly: query.Get("includeSuperseded") != "true",
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	shared.SetTotal(w, result.Total)
	api.Success(w, result.Items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	data, filename, err := h.Service.Payslip(r.Context(), user, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Warn("payslip write failed", "err", err)
	}
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.MarkPaid(r.Context(), user, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	recordID := chi.URLParam(r, "recordID")
	if err := h.Service.Delete(r.Context(), user, recordID); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"id": recordID}, middleware.GetRequestID(r.Context()))
}

// readBody buffers the request body for hashing and rewinds it for Decode.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request payload too large", middleware.GetRequestID(r.Context()))
			return nil, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, true
}
