package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wko-katas/katas-engine/internal/catalog"
	"github.com/wko-katas/katas-engine/internal/models"
	"github.com/wko-katas/katas-engine/internal/viewer"
)

type kataListResponse struct {
	Katas  []models.KataView  `json:"katas"`
	Total  int                `json:"total"`
	Filter models.FilterState `json:"filter"`
}

// Catalog handlers

// handleListKatas applies the query filters when any is given, otherwise the
// filter stored on the viewer session.
func (s *Server) handleListKatas(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	filter, fromQuery, err := filterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var katas []models.Kata
	if fromQuery {
		katas = sess.Apply(filter)
	} else {
		filter = sess.Filter()
		katas = sess.FilteredKatas()
	}

	views := sess.Annotate(katas)
	respondJSON(w, http.StatusOK, kataListResponse{
		Katas:  views,
		Total:  len(views),
		Filter: filter,
	})
}

func (s *Server) handleAllKatas(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	views := sess.Annotate(sess.Catalog())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"katas":   views,
		"total":   len(views),
		"catalog": s.catalog.Info(),
	})
}

func (s *Server) handleGetKata(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	kata, ok := s.accessibleKata(w, r, sess)
	if !ok {
		return
	}

	views := sess.Annotate([]models.Kata{kata})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kata":           views[0],
		"resumePosition": sess.ResumePosition(kata.ID),
	})
}

func (s *Server) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		respondError(w, http.StatusServiceUnavailable, "source_unavailable", "catalog refresh not configured")
		return
	}

	if err := s.refresher.Refresh(r.Context()); err != nil {
		s.respondServiceError(w, err, "refresh catalog")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"catalog": s.catalog.Info(),
		"status":  s.refresher.Status(),
	})
}

// accessibleKata looks up the kata named by the route and checks the viewer's
// belt against it. It writes the error response when the kata is unavailable.
func (s *Server) accessibleKata(w http.ResponseWriter, r *http.Request, sess *viewer.Session) (models.Kata, bool) {
	id := chi.URLParam(r, "id")

	kata, err := s.catalog.Get(id)
	if err != nil {
		s.respondServiceError(w, err, "get kata", "id", id)
		return models.Kata{}, false
	}

	if !sess.Gate().Allows(kata) {
		respondError(w, http.StatusForbidden, "belt_locked",
			"kata requires belt "+string(kata.BeltLevel)+" or higher")
		return models.Kata{}, false
	}

	return kata, true
}

// Filter handlers

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session(r).Filter())
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var filter models.FilterState
	if !decodeJSON(w, r, &filter) {
		return
	}

	if err := validateBelts(filter.SelectedBelts); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	sess := s.session(r)
	sess.SetFilter(filter)
	respondJSON(w, http.StatusOK, sess.Filter())
}

// Favorite handlers

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	favorites := sess.Favorites()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"favorites": favorites,
		"total":     len(favorites),
	})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.catalog.Get(id); err != nil {
		s.respondServiceError(w, err, "toggle favorite", "id", id)
		return
	}

	favorite := s.session(r).ToggleFavorite(r.Context(), id)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kataId":   id,
		"favorite": favorite,
	})
}

// Preference handlers

type preferences struct {
	DarkMode bool `json:"darkMode"`
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, preferences{DarkMode: s.session(r).DarkMode()})
}

func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs preferences
	if !decodeJSON(w, r, &prefs) {
		return
	}

	sess := s.session(r)
	sess.SetDarkMode(r.Context(), prefs.DarkMode)
	respondJSON(w, http.StatusOK, preferences{DarkMode: sess.DarkMode()})
}

// Thumbnail handlers

// handleThumbnail resolves by kata id. For authenticated callers, ids that are
// not in the catalog are treated as source file ids, with the kata name taken
// from the name parameter.
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.session(r).ResolveThumbnail(r.Context(), id)
	if errors.Is(err, catalog.ErrKataNotFound) && s.thumbnails != nil && ClaimsFromContext(r.Context()) != nil {
		result, err = s.thumbnails.Resolve(r.Context(), id, r.URL.Query().Get("name"))
	}
	if err != nil {
		s.respondServiceError(w, err, "resolve thumbnail", "id", id)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// filterFromQuery reads search, belts and favorites. The second result
// reports whether any of them was present.
func filterFromQuery(r *http.Request) (models.FilterState, bool, error) {
	q := r.URL.Query()
	filter := models.FilterState{
		SearchTerm:    q.Get("search"),
		SelectedBelts: []models.BeltLevel{},
	}

	if raw := q.Get("belts"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.SelectedBelts = append(filter.SelectedBelts, models.BeltLevel(part))
			}
		}
		if err := validateBelts(filter.SelectedBelts); err != nil {
			return filter, true, err
		}
	}

	if raw := q.Get("favorites"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, true, errors.New("favorites must be a boolean")
		}
		filter.ShowFavoritesOnly = v
	}

	present := q.Has("search") || q.Has("belts") || q.Has("favorites")
	return filter, present, nil
}

func validateBelts(belts []models.BeltLevel) error {
	for _, b := range belts {
		if !b.Valid() {
			return errors.New("unknown belt level: " + string(b))
		}
	}
	return nil
}
