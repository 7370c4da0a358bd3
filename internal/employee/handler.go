package employee

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
)

const (
	maxJSONBodyBytes = 1 << 20
	maxIDLength      = 64
	maxTextLength    = 200
	maxSkills        = 50
)

type Store interface {
	Create(ctx context.Context, e Employee) (Employee, error)
	Get(ctx context.Context, employeeID string) (Employee, error)
	Update(ctx context.Context, employeeID string, u Update) (Employee, error)
	Delete(ctx context.Context, employeeID string) error
	List(ctx context.Context, q ListQuery) ([]Employee, error)
	AverageSalaryByDepartment(ctx context.Context, department string) ([]DepartmentSalary, error)
	SearchBySkill(ctx context.Context, skill string) ([]Employee, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	// Unknown fields are ignored on create; update rejects them.
	var input Employee
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	input.EmployeeID = strings.TrimSpace(input.EmployeeID)
	input.Name = strings.TrimSpace(input.Name)
	input.Department = strings.TrimSpace(input.Department)
	input.JoiningDate = strings.TrimSpace(input.JoiningDate)

	if message := validateEmployee(input); message != "" {
		writeError(w, http.StatusBadRequest, message)
		return
	}

	if _, err := h.store.Create(r.Context(), input); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "employee id already exists")
			return
		}
		h.storeFailure(w, err, "failed to create employee")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "employee created successfully"})
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "employee not found")
			return
		}
		h.storeFailure(w, err, "failed to get employee")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input Update
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if message := validateUpdate(&input); message != "" {
		writeError(w, http.StatusBadRequest, message)
		return
	}

	if _, err := h.store.Update(r.Context(), r.PathValue("id"), input); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "employee not found")
			return
		}
		h.storeFailure(w, err, "failed to update employee")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "employee updated successfully"})
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "employee not found")
			return
		}
		h.storeFailure(w, err, "failed to delete employee")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "employee deleted successfully"})
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	department := strings.TrimSpace(query.Get("department"))
	if department == "" {
		writeError(w, http.StatusBadRequest, "department is required")
		return
	}

	skip, ok := intParam(query.Get("skip"), 0)
	if !ok || skip < 0 {
		writeError(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	limit, ok := intParam(query.Get("limit"), DefaultListLimit)
	if !ok || limit < 1 || limit > MaxListLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(MaxListLimit))
		return
	}

	employees, err := h.store.List(r.Context(), ListQuery{Department: department, Skip: skip, Limit: limit})
	if err != nil {
		h.storeFailure(w, err, "failed to list employees")
		return
	}

	writeJSON(w, http.StatusOK, employees)
}

func (h *Handler) AverageSalary(w http.ResponseWriter, r *http.Request) {
	department := strings.TrimSpace(r.URL.Query().Get("department"))
	if department == "" {
		writeError(w, http.StatusBadRequest, "department is required")
		return
	}

	result, err := h.store.AverageSalaryByDepartment(r.Context(), department)
	if err != nil {
		h.storeFailure(w, err, "failed to aggregate salaries")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) SearchBySkill(w http.ResponseWriter, r *http.Request) {
	skill := r.URL.Query().Get("skill")
	if strings.TrimSpace(skill) == "" {
		writeError(w, http.StatusBadRequest, "skill is required")
		return
	}

	employees, err := h.store.SearchBySkill(r.Context(), skill)
	if err != nil {
		h.storeFailure(w, err, "failed to search employees")
		return
	}

	writeJSON(w, http.StatusOK, employees)
}

func (h *Handler) storeFailure(w http.ResponseWriter, err error, message string) {
	sentry.CaptureException(err)
	if errors.Is(err, ErrStorageUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "employee storage unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, message)
}

func validateEmployee(e Employee) string {
	switch {
	case e.EmployeeID == "":
		return "employee_id is required"
	case len(e.EmployeeID) > maxIDLength || !utf8.ValidString(e.EmployeeID):
		return "employee_id is invalid"
	case e.Name == "":
		return "name is required"
	case !validText(e.Name):
		return "name is invalid"
	case e.Department == "":
		return "department is required"
	case !validText(e.Department):
		return "department is invalid"
	case e.Salary < 0:
		return "salary must be >= 0"
	case !validDate(e.JoiningDate):
		return "joining_date must be YYYY-MM-DD"
	case e.Skills == nil:
		return "skills is required"
	}
	return validateSkills(e.Skills)
}

func validateUpdate(u *Update) string {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" || !validText(name) {
			return "name is invalid"
		}
		u.Name = &name
	}
	if u.Department != nil {
		department := strings.TrimSpace(*u.Department)
		if department == "" || !validText(department) {
			return "department is invalid"
		}
		u.Department = &department
	}
	if u.Salary != nil && *u.Salary < 0 {
		return "salary must be >= 0"
	}
	if u.JoiningDate != nil {
		date := strings.TrimSpace(*u.JoiningDate)
		if !validDate(date) {
			return "joining_date must be YYYY-MM-DD"
		}
		u.JoiningDate = &date
	}
	if u.Skills != nil {
		return validateSkills(u.Skills)
	}
	return ""
}

func validateSkills(skills []string) string {
	if len(skills) > maxSkills {
		return "too many skills"
	}
	for _, skill := range skills {
		if strings.TrimSpace(skill) == "" || !validText(skill) {
			return "skills contain an invalid entry"
		}
	}
	return ""
}

func validText(value string) bool {
	return utf8.ValidString(value) && len(value) <= maxTextLength
}

func intParam(raw string, fallback int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
