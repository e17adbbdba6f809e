package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wko-katas/katas-engine/internal/models"
)

// Auth handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "username and password are required")
		return
	}

	resp, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err, "log in", "username", req.Username)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), ClaimsFromContext(r.Context()), req)
	if err != nil {
		s.respondServiceError(w, err, "register user", "username", req.Username)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  UserFromContext(r.Context()),
	})
}

// User admin handlers

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.ListUsers(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "list users")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var update models.UserUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	user, err := s.auth.UpdateUser(r.Context(), id, update)
	if err != nil {
		s.respondServiceError(w, err, "update user", "id", id)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if caller := ClaimsFromContext(r.Context()); caller != nil && caller.UserID == id {
		respondError(w, http.StatusBadRequest, "validation_error", "cannot delete your own account")
		return
	}

	if err := s.auth.DeleteUser(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "delete user", "id", id)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "user deleted",
	})
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "user id must be a positive integer")
		return 0, false
	}
	return id, true
}
