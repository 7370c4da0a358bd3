package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"employee-records/internal/auth"
	"employee-records/internal/employee"
	"employee-records/internal/observability"
)

type Routes struct {
	Auth      *auth.Handler
	Employees *employee.Handler
	Verifier  auth.TokenVerifier
	Health    http.HandlerFunc
	Metrics   *observability.Metrics
	Logger    *observability.Logger
}

// NewRouter mounts every route. Employee creation is public; every other
// employee route requires an access token.
func NewRouter(routes Routes) http.Handler {
	protect := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(routes.Verifier, withSubjectLog(routes.Logger, h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", routes.Auth.Login)
	mux.HandleFunc("POST /register", routes.Auth.Register)
	mux.HandleFunc("GET /health", routes.Health)
	mux.Handle("GET /metrics", routes.Metrics.Handler())

	mux.HandleFunc("POST /employees", routes.Employees.CreateEmployee)
	mux.Handle("GET /employees", protect(routes.Employees.ListEmployees))
	mux.Handle("GET /employees/avg-salary", protect(routes.Employees.AverageSalary))
	mux.Handle("GET /employees/search", protect(routes.Employees.SearchBySkill))
	mux.Handle("GET /employees/{id}", protect(routes.Employees.GetEmployee))
	mux.Handle("PUT /employees/{id}", protect(routes.Employees.UpdateEmployee))
	mux.Handle("DELETE /employees/{id}", protect(routes.Employees.DeleteEmployee))

	return observability.RecoverMiddleware(routes.Logger,
		observability.RequestLoggingMiddleware(routes.Logger,
			routes.Metrics.Middleware(mux)))
}

func withSubjectLog(logger *observability.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if subject, ok := auth.SubjectFromContext(r.Context()); ok {
			logger.Debug("request_authenticated", map[string]any{
				"subject": subject,
				"method":  r.Method,
				"path":    r.URL.Path,
			})
		}
		next(w, r)
	}
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func healthHandler(database pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
