package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/wko-katas/katas-engine/internal/models"
)

// MemoryRepository implements Repository in process memory
type MemoryRepository struct {
	mu     sync.RWMutex
	states map[string]models.ClientState
	users  map[int]models.User
	nextID int
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		states: make(map[string]models.ClientState),
		users:  make(map[int]models.User),
		nextID: 1,
	}
}

func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }
func (r *MemoryRepository) Close() error                   { return nil }

func (r *MemoryRepository) LoadState(ctx context.Context, key string) (*models.ClientState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneState(s)
	return &out, nil
}

func (r *MemoryRepository) SaveState(ctx context.Context, key string, state *models.ClientState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[key] = cloneState(*state)
	return nil
}

func (r *MemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username {
			return fmt.Errorf("user %s: %w", u.Username, ErrDuplicate)
		}
	}

	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()
	r.nextID++
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Collect(maps.Keys(r.users))
	sort.Ints(ids)

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		u := r.users[id]
		users = append(users, &u)
	}
	return users, nil
}

func (r *MemoryRepository) UpdateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}

	existing.Name = u.Name
	existing.Belt = u.Belt
	existing.PasswordHash = u.PasswordHash
	r.users[u.ID] = existing
	return nil
}

func (r *MemoryRepository) DeleteUser(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryRepository) CountUsers(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func cloneState(s models.ClientState) models.ClientState {
	out := models.ClientState{
		Favorites:     slices.Clone(s.Favorites),
		DarkMode:      s.DarkMode,
		VideoProgress: maps.Clone(s.VideoProgress),
	}
	out.Normalize()
	return out
}
