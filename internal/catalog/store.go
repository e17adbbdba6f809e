package catalog

import (
	"errors"
	"sync"
	"time"

	"github.com/wko-katas/katas-engine/internal/models"
)

var ErrKataNotFound = errors.New("kata not found")

// Origin tells where the current catalog came from
type Origin string

const (
	OriginNone     Origin = "none"
	OriginSource   Origin = "source"
	OriginSnapshot Origin = "snapshot"
)

// Info describes the catalog currently held by a Store
type Info struct {
	Count    int       `json:"count"`
	Origin   Origin    `json:"origin"`
	LoadedAt time.Time `json:"loadedAt"`
}

// Store holds the process-wide catalog. It is replaced wholesale on every
// successful load and read by every viewer.
type Store struct {
	mu       sync.RWMutex
	katas    []models.Kata
	index    map[string]int
	origin   Origin
	loadedAt time.Time
}

// NewStore creates an empty catalog store
func NewStore() *Store {
	return &Store{
		index:  make(map[string]int),
		origin: OriginNone,
	}
}

// Replace swaps in a new catalog. The katas are copied and sorted.
func (s *Store) Replace(katas []models.Kata, origin Origin) {
	next := make([]models.Kata, len(katas))
	copy(next, katas)
	Sort(next)

	index := make(map[string]int, len(next))
	for i, k := range next {
		index[k.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.katas = next
	s.index = index
	s.origin = origin
	s.loadedAt = time.Now().UTC()
}

// All returns a copy of the catalog in catalog order
func (s *Store) All() []models.Kata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Kata, len(s.katas))
	copy(out, s.katas)
	return out
}

// Get returns the kata with the given id
func (s *Store) Get(id string) (models.Kata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.Kata{}, ErrKataNotFound
	}
	return s.katas[i], nil
}

// Info returns size and provenance of the current catalog
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		Count:    len(s.katas),
		Origin:   s.origin,
		LoadedAt: s.loadedAt,
	}
}
