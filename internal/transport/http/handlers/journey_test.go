package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"workzen/internal/app/server"
	"workzen/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type client struct {
	t     *testing.T
	http  *http.Client
	base  string
	token string
}

func startApp(t *testing.T) (*httptest.Server, config.Config) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		Addr:               ":0",
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret-test-secret-test-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		Environment:        "test",
		SeedAdminEmail:     "admin@workzen.test",
		SeedAdminPassword:  "ChangeMe123!",
		RunMigrations:      true,
		RunSeed:            true,
		MigrationsDir:      "../../../../migrations",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		SessionTTL:         time.Hour,
		ProfessionalTax:    "200.00",
		Currency:           "INR",
		TimeZone:           "Asia/Kolkata",
		StandardWorkHours:  8,
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return ts, cfg
}

func login(t *testing.T, ts *httptest.Server, email, password string) *client {
	t.Helper()
	c := &client{t: t, http: ts.Client(), base: ts.URL + "/api/v1"}
	var result struct {
		Token string `json:"token"`
	}
	c.expect(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, http.StatusOK, &result)
	if result.Token == "" {
		t.Fatalf("expected token for %s", email)
	}
	c.token = result.Token
	return c
}

func (c *client) do(method, path string, body any, headers map[string]string) (*http.Response, envelope) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(raw, &env); err != nil {
			c.t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	} else {
		env.Data = raw
	}
	return resp, env
}

func (c *client) expect(method, path string, body any, status int, out any) envelope {
	c.t.Helper()
	resp, env := c.do(method, path, body, nil)
	if resp.StatusCode != status {
		c.t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, status, resp.StatusCode, env.Data)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.t.Fatalf("decode %s %s data: %v", method, path, err)
		}
	}
	return env
}

type createdEmployee struct {
	Employee struct {
		ID           string `json:"id"`
		EmployeeCode string `json:"employeeCode"`
	} `json:"employee"`
}

func createEmployee(c *client, role, password string) (id, email string) {
	c.t.Helper()
	email = fmt.Sprintf("journey-%d@workzen.test", time.Now().UnixNano())
	var created createdEmployee
	c.expect(http.MethodPost, "/employees", map[string]any{
		"firstName":     "Journey",
		"lastName":      role,
		"email":         email,
		"department":    "Engineering",
		"dateOfJoining": "2024-01-01",
		"bankAccount":   "000111222333",
		"role":          role,
		"password":      password,
	}, http.StatusCreated, &created)
	if created.Employee.ID == "" {
		c.t.Fatalf("expected employee id for %s", role)
	}
	return created.Employee.ID, email
}

func TestLeaveAndPayrollJourney(t *testing.T) {
	ts, cfg := startApp(t)
	admin := login(t, ts, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	const password = "Journey123!"
	employeeID, employeeEmail := createEmployee(admin, "Employee", password)
	_, hrEmail := createEmployee(admin, "HR Officer", password)
	_, officerEmail := createEmployee(admin, "Payroll Officer", password)

	employee := login(t, ts, employeeEmail, password)
	hr := login(t, ts, hrEmail, password)
	officer := login(t, ts, officerEmail, password)

	employee.expect(http.MethodPost, "/attendance/check-in", nil, http.StatusCreated, nil)
	if resp, env := employee.do(http.MethodPost, "/attendance/check-in", nil, nil); resp.StatusCode != http.StatusConflict || env.Error == nil {
		t.Fatalf("expected second check-in to conflict, got %d", resp.StatusCode)
	}

	var submitted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	employee.expect(http.MethodPost, "/leave/requests", map[string]string{
		"leaveType": "Sick Leave",
		"startDate": "2030-03-04",
		"endDate":   "2030-03-06",
		"reason":    "flu",
	}, http.StatusCreated, &submitted)
	if submitted.Status != "Pending" {
		t.Fatalf("expected Pending, got %s", submitted.Status)
	}
	employee.expect(http.MethodPost, "/leave/requests/"+submitted.ID+"/approve", nil, http.StatusForbidden, nil)
	hr.expect(http.MethodPost, "/leave/requests/"+submitted.ID+"/approve", nil, http.StatusForbidden, nil)

	var decided struct {
		Status string `json:"status"`
	}
	officer.expect(http.MethodPost, "/leave/requests/"+submitted.ID+"/approve", nil, http.StatusOK, &decided)
	if decided.Status != "Approved" {
		t.Fatalf("expected Approved, got %s", decided.Status)
	}
	officer.expect(http.MethodPost, "/leave/requests/"+submitted.ID+"/reject", nil, http.StatusConflict, nil)

	// Overlaps the approved request.
	employee.expect(http.MethodPost, "/leave/requests", map[string]string{
		"leaveType": "Casual Leave",
		"startDate": "2030-03-06",
		"endDate":   "2030-03-07",
	}, http.StatusConflict, nil)

	officer.expect(http.MethodPut, "/payroll/structures/"+employeeID, map[string]any{
		"basic":         "20000.00",
		"hra":           "8000.00",
		"conveyance":    "1600.00",
		"effectiveFrom": "2024-01-01",
	}, http.StatusOK, nil)
	hr.expect(http.MethodPost, "/payroll/generate", map[string]string{"employeeId": employeeID, "period": "2024-05"}, http.StatusForbidden, nil)

	var record struct {
		ID    string `json:"id"`
		Gross string `json:"gross"`
		Net   string `json:"net"`
	}
	officer.expect(http.MethodPost, "/payroll/generate", map[string]string{"employeeId": employeeID, "period": "2024-05"}, http.StatusCreated, &record)
	if record.Gross != "29600.00" || record.Net != "27000.00" {
		t.Fatalf("unexpected payroll figures gross=%s net=%s", record.Gross, record.Net)
	}
	env := officer.expect(http.MethodPost, "/payroll/generate", map[string]string{"employeeId": employeeID, "period": "2024-05"}, http.StatusConflict, nil)
	if env.Error == nil || env.Error.Code != "duplicate_payroll_period" {
		t.Fatalf("expected duplicate_payroll_period, got %+v", env.Error)
	}

	resp, _ := employee.do(http.MethodGet, "/payroll/records/"+record.ID+"/payslip", nil, nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("expected payslip pdf, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	hr.expect(http.MethodGet, "/payroll/records/"+record.ID+"/payslip", nil, http.StatusForbidden, nil)

	var events []struct {
		Action string `json:"action"`
	}
	admin.expect(http.MethodGet, "/audit/events?entityType=payroll_record&entityId="+record.ID, nil, http.StatusOK, &events)
	if len(events) == 0 {
		t.Fatal("expected payroll generation in the audit trail")
	}
	hr.expect(http.MethodGet, "/audit/events", nil, http.StatusForbidden, nil)
}

func TestPayrollGenerateIdempotencyKey(t *testing.T) {
	ts, cfg := startApp(t)
	admin := login(t, ts, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	employeeID, _ := createEmployee(admin, "Employee", "Journey123!")

	admin.expect(http.MethodPut, "/payroll/structures/"+employeeID, map[string]any{
		"basic":         "30000.00",
		"effectiveFrom": "2024-01-01",
	}, http.StatusOK, nil)

	key := map[string]string{"Idempotency-Key": fmt.Sprintf("journey-%d", time.Now().UnixNano())}
	body := map[string]string{"employeeId": employeeID, "period": "2024-06"}

	first, firstEnv := admin.do(http.MethodPost, "/payroll/generate", body, key)
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", first.StatusCode, firstEnv.Data)
	}
	second, secondEnv := admin.do(http.MethodPost, "/payroll/generate", body, key)
	if second.StatusCode != http.StatusCreated || second.Header.Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d", second.StatusCode)
	}
	if !bytes.Equal(firstEnv.Data, secondEnv.Data) {
		t.Fatalf("replayed body differs: %s vs %s", firstEnv.Data, secondEnv.Data)
	}

	conflict, env := admin.do(http.MethodPost, "/payroll/generate", map[string]string{"employeeId": employeeID, "period": "2024-07"}, key)
	if conflict.StatusCode != http.StatusConflict || env.Error == nil || env.Error.Code != "idempotency_conflict" {
		t.Fatalf("expected idempotency_conflict, got %d", conflict.StatusCode)
	}
}

func TestRoleBoundaries(t *testing.T) {
	ts, cfg := startApp(t)
	admin := login(t, ts, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	const password = "Journey123!"
	employeeID, employeeEmail := createEmployee(admin, "Employee", password)
	otherID, _ := createEmployee(admin, "Employee", password)
	employee := login(t, ts, employeeEmail, password)

	employee.expect(http.MethodGet, "/employees/"+employeeID, nil, http.StatusOK, nil)
	employee.expect(http.MethodGet, "/employees/"+otherID, nil, http.StatusForbidden, nil)
	employee.expect(http.MethodGet, "/users", nil, http.StatusForbidden, nil)
	employee.expect(http.MethodPost, "/employees", map[string]string{"firstName": "x"}, http.StatusForbidden, nil)

	var me struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
		Permissions []struct {
			Resource string `json:"resource"`
		} `json:"permissions"`
	}
	employee.expect(http.MethodGet, "/auth/me", nil, http.StatusOK, &me)
	if me.User.Role != "Employee" || len(me.Permissions) == 0 {
		t.Fatalf("unexpected profile %+v", me)
	}

	employee.expect(http.MethodPost, "/auth/logout", nil, http.StatusOK, nil)
	employee.expect(http.MethodGet, "/auth/me", nil, http.StatusUnauthorized, nil)
}
