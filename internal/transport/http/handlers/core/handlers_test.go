package corehandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"workzen/internal/domain/auth"
	"workzen/internal/domain/core"
	"workzen/internal/transport/http/middleware"
)

type fakeService struct {
	created []core.NewEmployee
	updates []core.EmployeeUpdate
}

func (f *fakeService) Get(_ context.Context, _ auth.Principal, id string) (core.Employee, error) {
	if id != "e1" {
		return core.Employee{}, core.ErrEmployeeNotFound
	}
	return core.Employee{ID: "e1"}, nil
}

func (f *fakeService) List(context.Context, auth.Principal, core.Filter) ([]core.Employee, int, error) {
	return []core.Employee{{ID: "e1"}}, 7, nil
}

func (f *fakeService) Create(_ context.Context, _ auth.Principal, in core.NewEmployee) (core.CreatedEmployee, error) {
	f.created = append(f.created, in)
	return core.CreatedEmployee{Employee: core.Employee{ID: "e2", Email: in.Email}, TemporaryPassword: "Tmp12345abc"}, nil
}

func (f *fakeService) Update(_ context.Context, _ auth.Principal, id string, in core.EmployeeUpdate) (core.Employee, error) {
	f.updates = append(f.updates, in)
	return core.Employee{ID: id}, nil
}

func (f *fakeService) Delete(context.Context, auth.Principal, string) error { return nil }

func serve(t *testing.T, svc *fakeService, p auth.Principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateEmployeeValidation(t *testing.T) {
	hr := auth.Principal{UserID: "hr", Role: auth.RoleHROfficer}
	cases := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{
			name:   "valid",
			body:   `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","dateOfJoining":"2024-01-15"}`,
			status: http.StatusCreated,
		},
		{
			name:   "bad date",
			body:   `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","dateOfJoining":"15/01/2024"}`,
			status: http.StatusBadRequest,
			field:  "dateOfJoining",
		},
		{
			name:   "bad email",
			body:   `{"firstName":"Jane","lastName":"Doe","email":"jane","dateOfJoining":"2024-01-15"}`,
			status: http.StatusBadRequest,
			field:  "email",
		},
		{
			name:   "unknown role",
			body:   `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","dateOfJoining":"2024-01-15","role":"Manager"}`,
			status: http.StatusBadRequest,
			field:  "role",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, &fakeService{}, hr, http.MethodPost, "/employees", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.field != "" && !strings.Contains(rec.Body.String(), `"field":"`+tc.field+`"`) {
				t.Fatalf("expected issue on %s, got %s", tc.field, rec.Body.String())
			}
		})
	}
}

func TestEmployeeRoutesGateByRole(t *testing.T) {
	svc := &fakeService{}
	emp := auth.Principal{UserID: "u1", EmployeeID: "e1", Role: auth.RoleEmployee}

	if rec := serve(t, svc, emp, http.MethodPost, "/employees", `{}`); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee create, got %d", rec.Code)
	}
	if rec := serve(t, svc, emp, http.MethodDelete, "/employees/e1", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee delete, got %d", rec.Code)
	}
	rec := serve(t, svc, emp, http.MethodGet, "/employees?limit=10", "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Total-Count") != "7" {
		t.Fatalf("expected list with total, got %d %q", rec.Code, rec.Header().Get("X-Total-Count"))
	}
	if rec := serve(t, svc, emp, http.MethodGet, "/employees/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateEmployeePartial(t *testing.T) {
	svc := &fakeService{}
	hr := auth.Principal{UserID: "hr", Role: auth.RoleHROfficer}
	rec := serve(t, svc, hr, http.MethodPatch, "/employees/e1", `{"department":"Finance"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.updates) != 1 || svc.updates[0].Department == nil || *svc.updates[0].Department != "Finance" || svc.updates[0].FirstName != nil {
		t.Fatalf("expected only department set, got %+v", svc.updates)
	}
	var env struct {
		Data core.Employee `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Data.ID != "e1" {
		t.Fatalf("unexpected body %s (%v)", rec.Body.String(), err)
	}

	rec = serve(t, svc, hr, http.MethodPatch, "/employees/e1", `{"status":"retired"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", rec.Code)
	}
}
