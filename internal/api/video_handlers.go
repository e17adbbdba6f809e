package api

import (
	"io"
	"net/http"
	"strconv"
)

const videoCacheControl = "public, max-age=3600"

// Video handlers

func (s *Server) handleVideoURL(w http.ResponseWriter, r *http.Request) {
	kata, ok := s.accessibleKata(w, r, s.session(r))
	if !ok {
		return
	}

	if s.videos == nil {
		respondError(w, http.StatusServiceUnavailable, "source_unavailable", "video source not configured")
		return
	}

	playable, err := s.videos.PlayableURL(r.Context(), kata.SourceID)
	if err != nil {
		s.respondServiceError(w, err, "get video url", "kata_id", kata.ID)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kataId":    kata.ID,
		"videoUrl":  playable.URL,
		"expiresAt": playable.ExpiresAt,
	})
}

// handleProxyVideo relays the video bytes so players never see repository
// credentials. Range requests are passed through.
func (s *Server) handleProxyVideo(w http.ResponseWriter, r *http.Request) {
	kata, ok := s.accessibleKata(w, r, s.session(r))
	if !ok {
		return
	}

	if s.videos == nil {
		respondError(w, http.StatusServiceUnavailable, "source_unavailable", "video source not configured")
		return
	}

	stream, err := s.videos.Stream(r.Context(), kata.SourceID, r.Header.Get("Range"))
	if err != nil {
		s.respondServiceError(w, err, "stream video", "kata_id", kata.ID)
		return
	}
	defer stream.Body.Close()

	h := w.Header()
	h.Set("Content-Type", "video/mp4")
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", videoCacheControl)
	if stream.ContentLength > 0 {
		h.Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	if stream.ContentRange != "" {
		h.Set("Content-Range", stream.ContentRange)
	}

	status := stream.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if _, err := io.Copy(w, stream.Body); err != nil {
		s.logger.Debug("video proxy copy interrupted", "kata_id", kata.ID, "error", err)
	}
}
