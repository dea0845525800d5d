package payrollhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/auth"
	"workzen/internal/domain/payroll"
	"workzen/internal/transport/http/middleware"
)

type fakeService struct {
	generated  map[string]bool
	calls      int
	structures []payroll.StructureInput
}

func newFakeService() *fakeService {
	return &fakeService{generated: map[string]bool{}}
}

func (f *fakeService) SetStructure(_ context.Context, _ auth.Principal, employeeID string, in payroll.StructureInput) (payroll.SalaryStructure, error) {
	f.structures = append(f.structures, in)
	return payroll.SalaryStructure{ID: "s1", EmployeeID: employeeID, Basic: in.Basic}, nil
}

func (f *fakeService) ActiveStructure(context.Context, auth.Principal, string) (payroll.SalaryStructure, error) {
	return payroll.SalaryStructure{}, payroll.ErrStructureNotFound
}

func (f *fakeService) StructureHistory(context.Context, auth.Principal, string) ([]payroll.SalaryStructure, error) {
	return nil, nil
}

func (f *fakeService) Generate(_ context.Context, _ auth.Principal, employeeID, period string, override bool) (payroll.Record, error) {
	f.calls++
	if _, err := payroll.ParsePeriod(period); err != nil {
		return payroll.Record{}, err
	}
	key := employeeID + "|" + period
	if f.generated[key] && !override {
		return payroll.Record{}, payroll.ErrDuplicatePayrollPeriod
	}
	f.generated[key] = true
	rec := payroll.Record{ID: fmt.Sprintf("r%d", f.calls), EmployeeID: employeeID, Period: period, Net: 2700000}
	if employeeID == "e-negative" {
		rec.Warnings = []string{payroll.WarningNegativeNet}
		return rec, &payroll.Warning{Err: payroll.ErrNegativeNetSalary}
	}
	return rec, nil
}

func (f *fakeService) Payrun(_ context.Context, _ auth.Principal, period string) (payroll.PayrunResult, error) {
	return payroll.PayrunResult{Period: period, Counts: map[string]int{payroll.OutcomeGenerated: 2}}, nil
}

func (f *fakeService) Get(_ context.Context, actor auth.Principal, id string) (payroll.Record, error) {
	rec := payroll.Record{ID: id, EmployeeID: "e1"}
	return rec, auth.Require(actor, auth.ActionRead, auth.ResourcePayroll, rec.EmployeeID)
}

func (f *fakeService) List(context.Context, auth.Principal, payroll.RecordFilter) (payroll.RecordListResult, error) {
	return payroll.RecordListResult{Total: 0}, nil
}

func (f *fakeService) Register(context.Context, auth.Principal, string) ([]payroll.Record, error) {
	return nil, nil
}

func (f *fakeService) History(context.Context, auth.Principal, string, string) ([]payroll.Record, error) {
	return nil, nil
}

func (f *fakeService) MarkPaid(_ context.Context, _ auth.Principal, id string) (payroll.Record, error) {
	return payroll.Record{ID: id, Status: payroll.StatusPaid}, nil
}

func (f *fakeService) Delete(context.Context, auth.Principal, string) error { return nil }

func (f *fakeService) Payslip(ctx context.Context, actor auth.Principal, id string) ([]byte, string, error) {
	if _, err := f.Get(ctx, actor, id); err != nil {
		return nil, "", err
	}
	return []byte("%PDF-1.3 test"), "payslip-WZ0001-2024-05.pdf", nil
}

type memoryIdempotency struct {
	saved map[string]middleware.StoredResponse
	hash  map[string]string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{saved: map[string]middleware.StoredResponse{}, hash: map[string]string{}}
}

func (m *memoryIdempotency) Check(_ context.Context, userID, endpoint, key, requestHash string) (middleware.StoredResponse, bool, error) {
	k := userID + "|" + endpoint + "|" + key
	stored, ok := m.saved[k]
	if !ok {
		return middleware.StoredResponse{}, false, nil
	}
	if m.hash[k] != requestHash {
		return middleware.StoredResponse{}, false, middleware.ErrIdempotencyConflict
	}
	return stored, true, nil
}

func (m *memoryIdempotency) Save(_ context.Context, userID, endpoint, key, requestHash string, status int, response json.RawMessage) error {
	k := userID + "|" + endpoint + "|" + key
	m.saved[k] = middleware.StoredResponse{Status: status, Body: response}
	m.hash[k] = requestHash
	return nil
}

var (
	officer  = auth.Principal{UserID: "po", EmployeeID: "e-po", Role: auth.RolePayrollOfficer}
	hr       = auth.Principal{UserID: "hr", EmployeeID: "e-hr", Role: auth.RoleHROfficer}
	employee = auth.Principal{UserID: "u1", EmployeeID: "e1", Role: auth.RoleEmployee}
	other    = auth.Principal{UserID: "u2", EmployeeID: "e2", Role: auth.RoleEmployee}
)

func serve(h *Handler, p auth.Principal, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGenerateResponses(t *testing.T) {
	h := NewHandler(newFakeService(), nil)

	rec := serve(h, officer, http.MethodPost, "/payroll/generate", `{"employeeId":"e1","period":"2024-05"}`, nil)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"net":"27000.00"`) {
		t.Fatalf("expected 201 with net, got %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(h, officer, http.MethodPost, "/payroll/generate", `{"employeeId":"e1","period":"2024-05"}`, nil)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "duplicate_payroll_period") {
		t.Fatalf("expected duplicate 409, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(h, officer, http.MethodPost, "/payroll/generate", `{"employeeId":"e1","period":"2024-05","override":true}`, nil); rec.Code != http.StatusCreated {
		t.Fatalf("expected override 201, got %d", rec.Code)
	}

	rec = serve(h, officer, http.MethodPost, "/payroll/generate", `{"employeeId":"e-negative","period":"2024-05"}`, nil)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), payroll.WarningNegativeNet) {
		t.Fatalf("expected saved record with warning, got %d %s", rec.Code, rec.Body.String())
	}

	if rec := serve(h, officer, http.MethodPost, "/payroll/generate", `{"employeeId":"e1","period":"2024-13"}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid period, got %d", rec.Code)
	}
	if rec := serve(h, hr, http.MethodPost, "/payroll/generate", `{"employeeId":"e1","period":"2024-06"}`, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for HR officer, got %d", rec.Code)
	}
}

func TestGenerateIdempotencyReplay(t *testing.T) {
	svc := newFakeService()
	h := NewHandler(svc, newMemoryIdempotency())
	headers := map[string]string{"Idempotency-Key": "k1"}
	body := `{"employeeId":"e1","period":"2024-05"}`

	first := serve(h, officer, http.MethodPost, "/payroll/generate", body, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", first.Code, first.Body.String())
	}
	second := serve(h, officer, http.MethodPost, "/payroll/generate", body, headers)
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d %s", second.Code, second.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one generation, got %d", svc.calls)
	}
	conflict := serve(h, officer, http.MethodPost, "/payroll/generate", `{"employeeId":"e2","period":"2024-05"}`, headers)
	if conflict.Code != http.StatusConflict || !strings.Contains(conflict.Body.String(), "idempotency_conflict") {
		t.Fatalf("expected idempotency conflict, got %d %s", conflict.Code, conflict.Body.String())
	}
}

func TestSetStructureValidation(t *testing.T) {
	svc := newFakeService()
	h := NewHandler(svc, nil)

	rec := serve(h, officer, http.MethodPut, "/payroll/structures/e1", `{"basic":"20000.00","hra":8000,"customDeductions":[{"name":"Loan","amount":"500.50"}]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if len(svc.structures) != 1 || svc.structures[0].Basic != 2000000 || svc.structures[0].HRA != 800000 || svc.structures[0].CustomDeductions[0].Amount != 50050 {
		t.Fatalf("unexpected structure input %+v", svc.structures)
	}

	cases := []struct {
		name string
		body string
	}{
		{name: "zero basic", body: `{"basic":"0"}`},
		{name: "three decimals", body: `{"basic":"100.005"}`},
		{name: "unnamed deduction", body: `{"basic":"100","customDeductions":[{"amount":"1"}]}`},
		{name: "negative deduction", body: `{"basic":"100","customDeductions":[{"name":"x","amount":"-1"}]}`},
		{name: "bad effective date", body: `{"basic":"100","effectiveFrom":"soon"}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if rec := serve(h, officer, http.MethodPut, "/payroll/structures/e1", tc.body, nil); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPayslipDownloadScope(t *testing.T) {
	h := NewHandler(newFakeService(), nil)

	rec := serve(h, employee, http.MethodGet, "/payroll/records/r1/payslip", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("expected pdf, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "payslip-WZ0001-2024-05.pdf") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if rec := serve(h, other, http.MethodGet, "/payroll/records/r1/payslip", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another employee, got %d", rec.Code)
	}
	if rec := serve(h, employee, http.MethodPost, "/payroll/records/r1/mark-paid", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee mark-paid, got %d", rec.Code)
	}
	if rec := serve(h, officer, http.MethodDelete, "/payroll/records/r1", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for officer delete, got %d", rec.Code)
	}
}
