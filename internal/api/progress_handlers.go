package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wko-katas/katas-engine/internal/models"
)

type progressTick struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

type progressResponse struct {
	KataID         string                `json:"kataId"`
	State          models.ProgressState  `json:"state"`
	ResumePosition float64               `json:"resumePosition"`
	Progress       *models.VideoProgress `json:"progress"`
}

// Progress handlers

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"progress": sess.AllProgress(),
		"summary":  sess.Summary(),
	})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := s.session(r)

	p := sess.Progress(id)
	respondJSON(w, http.StatusOK, progressResponse{
		KataID:         id,
		State:          models.StateOf(p),
		ResumePosition: sess.ResumePosition(id),
		Progress:       p,
	})
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.catalog.Get(id); err != nil {
		s.respondServiceError(w, err, "update progress", "id", id)
		return
	}

	var tick progressTick
	if !decodeJSON(w, r, &tick) {
		return
	}

	p, err := s.session(r).UpdateProgress(r.Context(), id, tick.CurrentTime, tick.Duration)
	if err != nil {
		s.respondServiceError(w, err, "update progress", "id", id)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleCompleteProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.session(r).MarkCompleted(r.Context(), id)
	if !ok {
		respondError(w, http.StatusNotFound, "progress_not_found", "kata has no progress to complete")
		return
	}

	respondJSON(w, http.StatusOK, p)
}
