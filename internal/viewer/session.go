// Package viewer holds the per-viewer application state: filters, favorites,
// display preferences and watch progress over the shared kata catalog.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/wko-katas/katas-engine/internal/access"
	"github.com/wko-katas/katas-engine/internal/catalog"
	"github.com/wko-katas/katas-engine/internal/models"
	"github.com/wko-katas/katas-engine/internal/progress"
	"github.com/wko-katas/katas-engine/internal/storage"
	"github.com/wko-katas/katas-engine/internal/thumbnail"
)

// ThumbnailResolver resolves preview images for katas
type ThumbnailResolver interface {
	Resolve(ctx context.Context, sourceID, kataName string) (thumbnail.Result, error)
}

// Session is the state container of one viewer. All operations are serialized
// by mu; the progress tracker is only driven while mu is held, so its persist
// callback can read the other fields without locking.
type Session struct {
	mu         sync.Mutex
	key        string
	user       *models.User
	catalog    *catalog.Store
	store      storage.StateStore
	thumbnails ThumbnailResolver
	logger     *slog.Logger

	filter    models.FilterState
	favorites []string
	darkMode  bool
	tracker   *progress.Tracker
}

func newSession(key string, user *models.User, state *models.ClientState, deps sessionDeps) *Session {
	state.Normalize()

	s := &Session{
		key:        key,
		user:       user,
		catalog:    deps.catalog,
		store:      deps.store,
		thumbnails: deps.thumbnails,
		logger:     deps.logger.With("state_key", key),
		favorites:  slices.Clone(state.Favorites),
		darkMode:   state.DarkMode,
	}
	s.tracker = progress.NewTracker(state.VideoProgress, s.persistProgress, progress.WithLogger(s.logger))
	return s
}

// Key returns the persistence key of the session
func (s *Session) Key() string {
	return s.key
}

// User returns the authenticated viewer, or nil for an anonymous session
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) setUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// Gate returns the access gate of the viewer
func (s *Session) Gate() access.Gate {
	user := s.User()
	if user == nil {
		return access.NewGate(nil)
	}
	belt := user.Belt
	return access.NewGate(&belt)
}

// Catalog returns the full catalog in display order
func (s *Session) Catalog() []models.Kata {
	return s.catalog.All()
}

// SetFilter replaces the filter state
func (s *Session) SetFilter(f models.FilterState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.SelectedBelts = slices.Clone(f.SelectedBelts)
	s.filter = f
}

// Filter returns the current filter state
func (s *Session) Filter() models.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.filter
	f.SelectedBelts = slices.Clone(f.SelectedBelts)
	if f.SelectedBelts == nil {
		f.SelectedBelts = []models.BeltLevel{}
	}
	return f
}

// FilteredKatas applies the current filter to the catalog
func (s *Session) FilteredKatas() []models.Kata {
	return s.Apply(s.Filter())
}

// Apply filters the catalog with f against this viewer's favorites without
// changing the stored filter.
func (s *Session) Apply(f models.FilterState) []models.Kata {
	s.mu.Lock()
	favs := s.favoriteSet()
	s.mu.Unlock()

	return catalog.Filter(s.catalog.All(), f, favs)
}

// Annotate decorates katas with this viewer's favorite, lock and progress flags
func (s *Session) Annotate(katas []models.Kata) []models.KataView {
	gate := s.Gate()

	s.mu.Lock()
	favs := s.favoriteSet()
	s.mu.Unlock()

	views := make([]models.KataView, len(katas))
	for i, k := range katas {
		views[i] = models.KataView{
			Kata:     k,
			Favorite: favs[k.ID],
			Locked:   !gate.Allows(k),
			Progress: s.tracker.Get(k.ID),
		}
	}
	return views
}

// ToggleFavorite flips membership of kataID and reports whether it is now a favorite
func (s *Session) ToggleFavorite(ctx context.Context, kataID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	favorite := true
	if i := slices.Index(s.favorites, kataID); i >= 0 {
		s.favorites = slices.Delete(s.favorites, i, i+1)
		favorite = false
	} else {
		s.favorites = append(s.favorites, kataID)
	}

	s.save(ctx, s.tracker.Snapshot())
	return favorite
}

// IsFavorite reports whether kataID is a favorite
func (s *Session) IsFavorite(kataID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.favorites, kataID)
}

// Favorites returns the favorite kata ids in insertion order
func (s *Session) Favorites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.favorites)
	if out == nil {
		out = []string{}
	}
	return out
}

// SetDarkMode stores the display preference
func (s *Session) SetDarkMode(ctx context.Context, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.darkMode = enabled
	s.save(ctx, s.tracker.Snapshot())
}

// DarkMode returns the display preference
func (s *Session) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

// UpdateProgress records a playback tick
func (s *Session) UpdateProgress(ctx context.Context, kataID string, currentTime, duration float64) (models.VideoProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tracker.Update(ctx, kataID, currentTime, duration)
}

// MarkCompleted forces completion of a kata that has a progress record
func (s *Session) MarkCompleted(ctx context.Context, kataID string) (models.VideoProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tracker.MarkCompleted(ctx, kataID)
}

// Progress returns the progress of one kata, nil when never played
func (s *Session) Progress(kataID string) *models.VideoProgress {
	return s.tracker.Get(kataID)
}

// AllProgress returns every progress record
func (s *Session) AllProgress() map[string]models.VideoProgress {
	return s.tracker.Snapshot()
}

// ResumePosition returns where playback of kataID should continue
func (s *Session) ResumePosition(kataID string) float64 {
	return progress.ResumePosition(s.tracker.Get(kataID))
}

// ResolveThumbnail returns a preview image for a catalog kata
func (s *Session) ResolveThumbnail(ctx context.Context, kataID string) (thumbnail.Result, error) {
	kata, err := s.catalog.Get(kataID)
	if err != nil {
		return thumbnail.Result{}, err
	}
	if s.thumbnails == nil {
		return thumbnail.Result{}, thumbnail.ErrUnresolvable
	}
	return s.thumbnails.Resolve(ctx, kata.SourceID, kata.KataName)
}

// State returns the persistable state of the session
func (s *Session) State() models.ClientState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(s.tracker.Snapshot())
}

// Summary counts the viewer's favorites and progress
type Summary struct {
	Favorites  int `json:"favorites"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// Summary returns counters for the viewer dashboard
func (s *Session) Summary() Summary {
	records := s.tracker.Snapshot()
	completed := s.tracker.CompletedCount()

	return Summary{
		Favorites:  len(s.Favorites()),
		InProgress: len(records) - completed,
		Completed:  completed,
	}
}

func (s *Session) favoriteSet() map[string]bool {
	set := make(map[string]bool, len(s.favorites))
	for _, id := range s.favorites {
		set[id] = true
	}
	return set
}

func (s *Session) stateLocked(records map[string]models.VideoProgress) models.ClientState {
	state := models.ClientState{
		Favorites:     slices.Clone(s.favorites),
		DarkMode:      s.darkMode,
		VideoProgress: maps.Clone(records),
	}
	state.Normalize()
	return state
}

// persistProgress is the tracker callback; mu is already held by the caller
func (s *Session) persistProgress(ctx context.Context, records map[string]models.VideoProgress) error {
	state := s.stateLocked(records)
	if err := s.store.SaveState(ctx, s.key, &state); err != nil {
		return fmt.Errorf("failed to save client state: %w", err)
	}
	return nil
}

// save must be called with mu held. Failures are logged and swallowed.
func (s *Session) save(ctx context.Context, records map[string]models.VideoProgress) {
	if err := s.persistProgress(ctx, records); err != nil {
		s.logger.Warn("failed to persist client state", "error", err)
	}
}
