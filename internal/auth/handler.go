package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
)

const (
	maxJSONBodyBytes  = 1 << 20
	maxUsernameLength = 64
	// bcrypt only reads the first 72 bytes
	maxPasswordBytes = 72
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body credentialsRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	token, err := h.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		sentry.CaptureException(err)
		if errors.Is(err, ErrStorageUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "credential storage unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Register accepts username and password as query parameters or as a JSON body.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	body, ok := parseRegisterRequest(w, r)
	if !ok {
		return
	}

	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if len(body.Username) > maxUsernameLength {
		writeError(w, http.StatusBadRequest, "username is too long")
		return
	}
	if len(body.Password) > maxPasswordBytes {
		writeError(w, http.StatusBadRequest, "password is too long")
		return
	}

	if err := h.service.Register(r.Context(), body.Username, body.Password); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sentry.CaptureException(err)
		if errors.Is(err, ErrStorageUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "credential storage unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "user registered successfully"})
}

func parseRegisterRequest(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	query := r.URL.Query()
	if query.Has("username") || query.Has("password") {
		return credentialsRequest{Username: query.Get("username"), Password: query.Get("password")}, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body credentialsRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return credentialsRequest{}, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
