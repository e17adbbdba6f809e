package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/wko-katas/katas-engine/internal/auth"
	"github.com/wko-katas/katas-engine/internal/catalog"
	"github.com/wko-katas/katas-engine/internal/progress"
	"github.com/wko-katas/katas-engine/internal/source"
	"github.com/wko-katas/katas-engine/internal/thumbnail"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps domain errors to API errors. Unknown errors are
// logged and reported as internal errors.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, action string, attrs ...any) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
	case errors.Is(err, auth.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "invalid_token", "the provided token is not valid")
	case errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "admin privileges required")
	case errors.Is(err, auth.ErrUserExists):
		respondError(w, http.StatusConflict, "user_exists", "username already taken")
	case errors.Is(err, auth.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, auth.ErrUnknownBelt):
		respondError(w, http.StatusBadRequest, "validation_error", "unknown belt level")
	case errors.Is(err, auth.ErrMissingFields):
		respondError(w, http.StatusBadRequest, "validation_error", "required fields are missing")
	case errors.Is(err, catalog.ErrKataNotFound):
		respondError(w, http.StatusNotFound, "not_found", "kata not found")
	case errors.Is(err, source.ErrFileNotFound):
		respondError(w, http.StatusNotFound, "video_not_found", "video file not found")
	case errors.Is(err, catalog.ErrSourceUnavailable):
		respondError(w, http.StatusServiceUnavailable, "source_unavailable", "video source unavailable")
	case errors.Is(err, thumbnail.ErrUnresolvable):
		respondError(w, http.StatusNotFound, "thumbnail_unavailable", "no thumbnail available")
	case errors.Is(err, progress.ErrInvalidTick):
		respondError(w, http.StatusBadRequest, "validation_error", "currentTime and duration must be finite and non-negative")
	default:
		s.logger.Error("failed to "+action, append(attrs, "error", err)...)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.registry.HealthCheckAll(r.Context())

	checks := make(map[string]string, len(results))
	ready := true
	for name, err := range results {
		if err != nil {
			ready = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		s.logger.Warn("readiness check failed", "checks", checks)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"services": checks,
		"catalog":  s.catalog.Info(),
	})
}
