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

	"ems/internal/app/server"
	"ems/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:            dbURL,
		JWTSecret:              "test-secret",
		TokenTTL:               time.Hour,
		Environment:            "test",
		SeedSuperAdminEmail:    "root@test.local",
		SeedSuperAdminPassword: "ChangeMe123!",
		SeedHRDepartment:       "HR",
		EmailFrom:              "no-reply@test.local",
		RunMigrations:          true,
		RunSeed:                true,
		MigrationsDir:          "../../../../migrations",
		MaxBodyBytes:           1048576,
		RateLimitPerMinute:     1000,
		StoreTimeout:           5 * time.Second,
	}
}

func startApp(t *testing.T) (*httptest.Server, config.Config) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return ts, cfg
}

func call(t *testing.T, client *http.Client, method, url, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, url, err)
	}
	return resp.StatusCode, env
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func login(t *testing.T, client *http.Client, base, path, email, password string) string {
	t.Helper()
	status, env := call(t, client, http.MethodPost, base+path, "", map[string]string{
		"email": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d", email, status)
	}
	var data struct {
		Token string `json:"token"`
	}
	decodeData(t, env, &data)
	if data.Token == "" {
		t.Fatal("login returned empty token")
	}
	return data.Token
}

type idCarrier struct {
	ID string `json:"id"`
}

func TestDirectoryLeavePayrollJourney(t *testing.T) {
	ts, cfg := startApp(t)
	client := ts.Client()
	nonce := time.Now().UnixNano()

	root := login(t, client, ts.URL, "/api/v1/auth/superadmin/login", cfg.SeedSuperAdminEmail, cfg.SeedSuperAdminPassword)

	// Build two departments plus the seeded HR department.
	engName := fmt.Sprintf("Engineering-%d", nonce)
	salesName := fmt.Sprintf("Sales-%d", nonce)
	var engineering, sales idCarrier
	status, env := call(t, client, http.MethodPost, ts.URL+"/api/v1/departments", root, map[string]string{"name": engName})
	if status != http.StatusCreated {
		t.Fatalf("create department: status %d", status)
	}
	decodeData(t, env, &engineering)
	status, env = call(t, client, http.MethodPost, ts.URL+"/api/v1/departments", root, map[string]string{"name": salesName})
	if status != http.StatusCreated {
		t.Fatalf("create department: status %d", status)
	}
	decodeData(t, env, &sales)

	var hr idCarrier
	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/departments/HR", root, nil)
	if status != http.StatusOK {
		t.Fatalf("get HR department: status %d", status)
	}
	decodeData(t, env, &hr)

	// Admins: one per department.
	adminFor := func(dept idCarrier, label string) (string, string) {
		email := fmt.Sprintf("%s-admin-%d@test.local", label, nonce)
		status, _ := call(t, client, http.MethodPost, ts.URL+"/api/v1/admins", root, map[string]string{
			"name": label + " admin", "email": email, "password": "AdminPass1!", "departmentId": dept.ID,
		})
		if status != http.StatusCreated {
			t.Fatalf("create %s admin: status %d", label, status)
		}
		return email, login(t, client, ts.URL, "/api/v1/auth/admin/login", email, "AdminPass1!")
	}
	_, engAdmin := adminFor(engineering, "eng")
	_, salesAdmin := adminFor(sales, "sales")
	_, hrAdmin := adminFor(hr, "hr")

	// A department holds a single admin.
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/admins", root, map[string]string{
		"name": "second eng admin", "email": fmt.Sprintf("eng-admin2-%d@test.local", nonce),
		"password": "AdminPass1!", "departmentId": engineering.ID,
	})
	if status != http.StatusConflict {
		t.Fatalf("second admin for department: expected 409, got %d", status)
	}

	// Engineering admin hires into Engineering; hiring into Sales is out of
	// scope and must be refused.
	empEmail := fmt.Sprintf("emp-%d@test.local", nonce)
	salary := 50000.0
	status, env = call(t, client, http.MethodPost, ts.URL+"/api/v1/employees", engAdmin, map[string]any{
		"name": "Jordan Doe", "email": empEmail, "password": "EmpPass1!",
		"departmentId": engineering.ID, "salary": salary,
	})
	if status != http.StatusCreated {
		t.Fatalf("hire employee: status %d", status)
	}
	var employee struct {
		ID         string   `json:"id"`
		EmployeeNo string   `json:"employeeId"`
		Salary     *float64 `json:"salary"`
	}
	decodeData(t, env, &employee)
	if employee.EmployeeNo == "" {
		t.Fatal("expected generated employee number")
	}

	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/employees", engAdmin, map[string]any{
		"name": "Out Of Scope", "email": fmt.Sprintf("oos-%d@test.local", nonce), "password": "EmpPass1!",
		"departmentId": sales.ID,
	})
	if status != http.StatusForbidden {
		t.Fatalf("cross-department hire: expected 403, got %d", status)
	}

	// Lookup by employee number resolves the same record.
	employeeToken := login(t, client, ts.URL, "/api/v1/auth/employee/login", empEmail, "EmpPass1!")
	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+employee.EmployeeNo, employeeToken, nil)
	if status != http.StatusOK {
		t.Fatalf("self lookup by employee number: status %d", status)
	}
	var self struct {
		ID     string   `json:"id"`
		Salary *float64 `json:"salary"`
	}
	decodeData(t, env, &self)
	if self.ID != employee.ID {
		t.Fatalf("employee number resolved to %s, want %s", self.ID, employee.ID)
	}
	if self.Salary != nil {
		t.Fatal("employee must not see salary through the directory")
	}

	// Sales admin cannot reach the Engineering employee.
	status, _ = call(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+employee.ID, salesAdmin, nil)
	if status != http.StatusForbidden {
		t.Fatalf("cross-department read: expected 403, got %d", status)
	}
	status, _ = call(t, client, http.MethodGet, ts.URL+"/api/v1/employees/00000000-0000-0000-0000-000000000000", salesAdmin, nil)
	if status != http.StatusNotFound {
		t.Fatalf("missing employee: expected 404, got %d", status)
	}

	// A department with employees cannot be deleted.
	status, _ = call(t, client, http.MethodDelete, ts.URL+"/api/v1/departments/"+engineering.ID, root, nil)
	if status != http.StatusConflict {
		t.Fatalf("delete populated department: expected 409, got %d", status)
	}

	// The employee records their own day; the engine scopes them to self.
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/attendance", employeeToken, map[string]string{
		"employeeId": employee.ID, "date": "2026-03-10", "status": "Present",
	})
	if status != http.StatusOK {
		t.Fatalf("self attendance mark: status %d", status)
	}

	// Leave: the employee applies, the department admin approves, attendance
	// gains one Leave row per day in the range.
	status, env = call(t, client, http.MethodPost, ts.URL+"/api/v1/leave-requests", employeeToken, map[string]string{
		"fromDate": "2026-03-02", "toDate": "2026-03-04", "reason": "family",
	})
	if status != http.StatusCreated {
		t.Fatalf("create leave request: status %d", status)
	}
	var leaveReq idCarrier
	decodeData(t, env, &leaveReq)

	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/leave-requests/"+leaveReq.ID+"/approve", salesAdmin, nil)
	if status != http.StatusForbidden {
		t.Fatalf("cross-department approval: expected 403, got %d", status)
	}
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/leave-requests/"+leaveReq.ID+"/approve", engAdmin, nil)
	if status != http.StatusOK {
		t.Fatalf("approve leave: status %d", status)
	}
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/leave-requests/"+leaveReq.ID+"/reject", engAdmin, nil)
	if status != http.StatusConflict {
		t.Fatalf("re-decide leave: expected 409, got %d", status)
	}

	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+employee.ID+"/attendance", employeeToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list attendance: status %d", status)
	}
	var records []struct {
		Status string `json:"status"`
	}
	decodeData(t, env, &records)
	leaveDays := 0
	for _, rec := range records {
		if rec.Status == "Leave" {
			leaveDays++
		}
	}
	if leaveDays != 3 {
		t.Fatalf("expected 3 Leave attendance rows, got %d", leaveDays)
	}

	// Payroll: only the HR admin (or super admin) may generate.
	payrollBody := map[string]any{
		"employeeId": employee.ID, "basicSalary": 50000.0, "hra": 10000.0,
		"deductions": 5000.0, "month": 3, "year": 2026,
	}
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/payroll", engAdmin, payrollBody)
	if status != http.StatusForbidden {
		t.Fatalf("non-HR payroll generate: expected 403, got %d", status)
	}
	status, env = call(t, client, http.MethodPost, ts.URL+"/api/v1/payroll", hrAdmin, payrollBody)
	if status != http.StatusCreated {
		t.Fatalf("HR payroll generate: status %d", status)
	}
	var payrollRec struct {
		ID        string  `json:"id"`
		NetSalary float64 `json:"netSalary"`
	}
	decodeData(t, env, &payrollRec)
	if payrollRec.NetSalary != 55000 {
		t.Fatalf("net salary: got %.2f, want 55000", payrollRec.NetSalary)
	}
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/payroll", hrAdmin, payrollBody)
	if status != http.StatusConflict {
		t.Fatalf("duplicate payroll period: expected 409, got %d", status)
	}

	// The employee downloads their own payslip as a PDF.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/payroll/"+payrollRec.ID+"/payslip", nil)
	req.Header.Set("Authorization", "Bearer "+employeeToken)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("download payslip: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download payslip: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("payslip content type: %s", ct)
	}
	pdf, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("payslip is not a PDF")
	}

	// The HR admin manages salary company-wide: foreign records resolve with
	// the salary visible and salary updates land across departments.
	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+employee.ID, hrAdmin, nil)
	if status != http.StatusOK {
		t.Fatalf("hr admin employee read: status %d", status)
	}
	decodeData(t, env, &self)
	if self.Salary == nil || *self.Salary != salary {
		t.Fatalf("hr admin salary view: got %v, want %.0f", self.Salary, salary)
	}
	status, env = call(t, client, http.MethodPut, ts.URL+"/api/v1/employees/"+employee.ID, hrAdmin, map[string]any{
		"salary": 52000.0,
	})
	if status != http.StatusOK {
		t.Fatalf("hr admin salary update: status %d", status)
	}
	decodeData(t, env, &self)
	if self.Salary == nil || *self.Salary != 52000 {
		t.Fatalf("updated salary: got %v", self.Salary)
	}

	// The non-HR admin of the employee's own department still has no salary
	// view, and cannot touch salary at all.
	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+employee.ID, engAdmin, nil)
	if status != http.StatusOK {
		t.Fatalf("eng admin employee read: status %d", status)
	}
	decodeData(t, env, &self)
	if self.Salary != nil {
		t.Fatal("non-HR admin must not see salary")
	}
	status, _ = call(t, client, http.MethodPut, ts.URL+"/api/v1/employees/"+employee.ID, engAdmin, map[string]any{
		"salary": 60000.0,
	})
	if status != http.StatusForbidden {
		t.Fatalf("non-HR salary update: expected 403, got %d", status)
	}

	// Leave, payroll and attendance rows now hang off the employee, so the
	// record cannot be deleted.
	status, _ = call(t, client, http.MethodDelete, ts.URL+"/api/v1/employees/"+employee.ID, engAdmin, nil)
	if status != http.StatusConflict {
		t.Fatalf("delete employee with dependents: expected 409, got %d", status)
	}
}

func TestTaskScopingJourney(t *testing.T) {
	ts, cfg := startApp(t)
	client := ts.Client()
	nonce := time.Now().UnixNano()

	root := login(t, client, ts.URL, "/api/v1/auth/superadmin/login", cfg.SeedSuperAdminEmail, cfg.SeedSuperAdminPassword)

	var dept idCarrier
	status, env := call(t, client, http.MethodPost, ts.URL+"/api/v1/departments", root, map[string]string{
		"name": fmt.Sprintf("Ops-%d", nonce),
	})
	if status != http.StatusCreated {
		t.Fatalf("create department: status %d", status)
	}
	decodeData(t, env, &dept)

	adminEmail := fmt.Sprintf("ops-admin-%d@test.local", nonce)
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/admins", root, map[string]string{
		"name": "Ops admin", "email": adminEmail, "password": "AdminPass1!", "departmentId": dept.ID,
	})
	if status != http.StatusCreated {
		t.Fatalf("create admin: status %d", status)
	}
	admin := login(t, client, ts.URL, "/api/v1/auth/admin/login", adminEmail, "AdminPass1!")

	empEmail := fmt.Sprintf("ops-emp-%d@test.local", nonce)
	status, env = call(t, client, http.MethodPost, ts.URL+"/api/v1/employees", admin, map[string]any{
		"name": "Ops worker", "email": empEmail, "password": "EmpPass1!", "departmentId": dept.ID,
	})
	if status != http.StatusCreated {
		t.Fatalf("hire employee: status %d", status)
	}
	var employee idCarrier
	decodeData(t, env, &employee)
	worker := login(t, client, ts.URL, "/api/v1/auth/employee/login", empEmail, "EmpPass1!")

	// Employees cannot create tasks.
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/tasks", worker, map[string]string{
		"title": "self-assigned", "assignedTo": employee.ID,
	})
	if status != http.StatusForbidden {
		t.Fatalf("employee task create: expected 403, got %d", status)
	}

	status, env = call(t, client, http.MethodPost, ts.URL+"/api/v1/tasks", admin, map[string]string{
		"title": "quarterly report", "assignedTo": employee.ID, "deadline": "2026-09-30",
	})
	if status != http.StatusCreated {
		t.Fatalf("create task: status %d", status)
	}
	var task idCarrier
	decodeData(t, env, &task)

	// The assignee flips status and comments; both land on the task.
	status, _ = call(t, client, http.MethodPatch, ts.URL+"/api/v1/tasks/"+task.ID+"/status", worker, map[string]string{
		"status": "In Progress",
	})
	if status != http.StatusOK {
		t.Fatalf("assignee status update: status %d", status)
	}
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/tasks/"+task.ID+"/comments", worker, map[string]string{
		"text": "started on the draft",
	})
	if status != http.StatusCreated {
		t.Fatalf("add comment: status %d", status)
	}

	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/tasks/"+task.ID, admin, nil)
	if status != http.StatusOK {
		t.Fatalf("get task: status %d", status)
	}
	var detail struct {
		Status   string `json:"status"`
		Comments []struct {
			Text string `json:"text"`
		} `json:"comments"`
	}
	decodeData(t, env, &detail)
	if detail.Status != "In Progress" {
		t.Fatalf("task status: got %s", detail.Status)
	}
	if len(detail.Comments) != 1 || detail.Comments[0].Text != "started on the draft" {
		t.Fatalf("unexpected comments: %+v", detail.Comments)
	}

	// Documents: admin uploads, employee reads their own map.
	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/employees/"+employee.ID+"/documents", admin, map[string]string{
		"resume": "https://files.test.local/resume.pdf",
	})
	if status != http.StatusOK {
		t.Fatalf("upsert documents: status %d", status)
	}
	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+employee.ID+"/documents", worker, nil)
	if status != http.StatusOK {
		t.Fatalf("read documents: status %d", status)
	}
	docs := map[string]string{}
	decodeData(t, env, &docs)
	if docs["resume"] == "" {
		t.Fatal("expected resume document")
	}
}
