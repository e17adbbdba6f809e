package viewer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/wko-katas/katas-engine/internal/catalog"
	"github.com/wko-katas/katas-engine/internal/models"
	"github.com/wko-katas/katas-engine/internal/storage"
)

// DefaultAppName is the state key of anonymous viewers
const DefaultAppName = "wko-katas-storage"

type sessionDeps struct {
	catalog    *catalog.Store
	store      storage.StateStore
	thumbnails ThumbnailResolver
	logger     *slog.Logger
}

// Manager lazily loads and caches one Session per state key
type Manager struct {
	mu       sync.Mutex
	appName  string
	sessions map[string]*Session
	deps     sessionDeps
}

// NewManager creates a session manager. thumbnails may be nil.
func NewManager(appName string, store *catalog.Store, states storage.StateStore, thumbnails ThumbnailResolver, logger *slog.Logger) *Manager {
	if appName == "" {
		appName = DefaultAppName
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		appName:  appName,
		sessions: make(map[string]*Session),
		deps: sessionDeps{
			catalog:    store,
			store:      states,
			thumbnails: thumbnails,
			logger:     logger,
		},
	}
}

// Key returns the state key of a viewer: the app name for anonymous viewers,
// "<app>:<username>" for authenticated ones.
func (m *Manager) Key(user *models.User) string {
	if user == nil || user.Username == "" {
		return m.appName
	}
	return m.appName + ":" + user.Username
}

// Session returns the session of a viewer, loading persisted state on first use.
// A load failure starts the viewer with empty state.
func (m *Manager) Session(ctx context.Context, user *models.User) *Session {
	key := m.Key(user)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		// Tokens carry the current belt, which an admin may have changed
		if user != nil {
			s.setUser(user)
		}
		return s
	}

	state, err := m.deps.store.LoadState(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		state = models.NewClientState()
	case err != nil:
		m.deps.logger.Warn("failed to load client state, starting empty", "state_key", key, "error", err)
		state = models.NewClientState()
	}

	s := newSession(key, user, state, m.deps)
	m.sessions[key] = s

	m.deps.logger.Debug("viewer session loaded",
		"state_key", key,
		"favorites", len(state.Favorites),
		"progress_records", len(state.VideoProgress),
	)
	return s
}

// Count returns the number of loaded sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
