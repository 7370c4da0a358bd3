package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employee-records/internal/auth"
	"employee-records/internal/employee"
	"employee-records/internal/observability"
)

const testSecret = "test-secret"

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(context.Context) error {
	return p.err
}

// stubEmployees answers every read with a single fixed employee.
type stubEmployees struct {
	created []employee.Employee
}

var ada = employee.Employee{
	EmployeeID:  "E1",
	Name:        "Ada",
	Department:  "Eng",
	Salary:      100,
	JoiningDate: "2023-01-15",
	Skills:      []string{"Go"},
}

func (s *stubEmployees) Create(_ context.Context, e employee.Employee) (employee.Employee, error) {
	s.created = append(s.created, e)
	return e, nil
}

func (s *stubEmployees) Get(_ context.Context, id string) (employee.Employee, error) {
	if id != ada.EmployeeID {
		return employee.Employee{}, employee.ErrNotFound
	}
	return ada, nil
}

func (s *stubEmployees) Update(_ context.Context, _ string, _ employee.Update) (employee.Employee, error) {
	return ada, nil
}

func (s *stubEmployees) Delete(context.Context, string) error {
	return nil
}

func (s *stubEmployees) List(context.Context, employee.ListQuery) ([]employee.Employee, error) {
	return []employee.Employee{ada}, nil
}

func (s *stubEmployees) AverageSalaryByDepartment(_ context.Context, department string) ([]employee.DepartmentSalary, error) {
	return []employee.DepartmentSalary{{Department: department, AvgSalary: 100}}, nil
}

func (s *stubEmployees) SearchBySkill(context.Context, string) ([]employee.Employee, error) {
	return []employee.Employee{ada}, nil
}

type testServer struct {
	handler   http.Handler
	employees *stubEmployees
	tokens    *auth.TokenService
}

func newTestServer(t *testing.T, health error) testServer {
	t.Helper()
	return newTestServerWithLogger(t, health, observability.NewLoggerWithWriter(io.Discard, "error"))
}

func newTestServerWithLogger(t *testing.T, health error, logger *observability.Logger) testServer {
	t.Helper()

	tokens, err := auth.NewTokenService(testSecret, time.Minute)
	require.NoError(t, err)

	credentials := auth.NewMemoryCredentialStore()
	service := auth.NewService(credentials, tokens)
	require.NoError(t, service.BootstrapFromEnv(context.Background(), "admin", "admin123"))

	employees := &stubEmployees{}

	return testServer{
		handler: NewRouter(Routes{
			Auth:      auth.NewHandler(service),
			Employees: employee.NewHandler(employees),
			Verifier:  tokens,
			Health:    healthHandler(stubPinger{err: health}),
			Metrics:   observability.NewMetrics(),
			Logger:    logger,
		}),
		employees: employees,
		tokens:    tokens,
	}
}

func (s testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(method, target, reader))
	return rec
}

func TestLoginThenReadEmployee(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodPost, "/login", `{"username":"admin","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var token auth.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)

	rec = srv.do(http.MethodGet, "/employees/E1?token="+token.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got employee.Employee
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ada, got)
	assert.NotEmpty(t, rec.Header().Get(observability.RequestIDHeader))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodPost, "/login", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	targets := []struct{ method, target string }{
		{http.MethodGet, "/employees/E1"},
		{http.MethodPut, "/employees/E1"},
		{http.MethodDelete, "/employees/E1"},
		{http.MethodGet, "/employees?department=Eng"},
		{http.MethodGet, "/employees/avg-salary?department=Eng"},
		{http.MethodGet, "/employees/search?skill=Go"},
	}

	for _, tc := range targets {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := srv.do(tc.method, tc.target, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			sep := "?"
			if strings.Contains(tc.target, "?") {
				sep = "&"
			}
			rec = srv.do(tc.method, tc.target+sep+"token="+expired, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"token expired"}`, rec.Body.String())
		})
	}
}

func TestCreateEmployeeIsPublic(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodPost, "/employees",
		`{"employee_id":"E9","name":"Grace","department":"Eng","salary":1,"joining_date":"2024-05-01","skills":["COBOL"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, srv.employees.created, 1)
	assert.Equal(t, "E9", srv.employees.created[0].EmployeeID)
}

func TestBearerHeaderAccepted(t *testing.T) {
	srv := newTestServer(t, nil)

	token, err := srv.tokens.Issue("admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/employees/avg-salary?department=Eng", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"department":"Eng","avg_salary":100}]`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := newTestServer(t, nil).do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = newTestServer(t, errors.New("db down")).do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestMetricsEndpointReportsRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	srv.do(http.MethodGet, "/health", "")
	rec := srv.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `employee_records_api_http_requests_total{method="GET",route="GET /health",status="200"} 1`)
}

func TestProtectedRequestLogsSubject(t *testing.T) {
	var buf bytes.Buffer
	srv := newTestServerWithLogger(t, nil, observability.NewLoggerWithWriter(&buf, "debug"))

	token, err := srv.tokens.Issue("admin")
	require.NoError(t, err)

	rec := srv.do(http.MethodGet, "/employees/E1?token="+token.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "request_authenticated" {
			found = true
			assert.Equal(t, "admin", entry["subject"])
			assert.Equal(t, "debug", entry["level"])
		}
	}
	assert.True(t, found)
}
