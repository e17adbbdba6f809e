package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/wko-katas/katas-engine/internal/models"
)

const lockRetryDelay = 20 * time.Millisecond

// FileStateStore keeps every client state in one JSON document
// ({"<key>": ClientState}). A flock on <path>.lock serializes access across
// processes sharing the file; mu serializes goroutines sharing the handle.
type FileStateStore struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewFileStateStore creates a store backed by path. The file is created lazily.
func NewFileStateStore(path string, logger *slog.Logger) (*FileStateStore, error) {
	if path == "" {
		return nil, errors.New("state file path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &FileStateStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}, nil
}

// Path returns the location of the state document
func (s *FileStateStore) Path() string {
	return s.path
}

func (s *FileStateStore) LoadState(ctx context.Context, key string) (*models.ClientState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("failed to acquire state lock: %w", err)
	}
	defer s.unlock()

	states, err := s.read()
	if err != nil {
		return nil, err
	}

	state, ok := states[key]
	if !ok {
		return nil, ErrNotFound
	}
	state.Normalize()
	return &state, nil
}

func (s *FileStateStore) SaveState(ctx context.Context, key string, state *models.ClientState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to acquire state lock: %w", err)
	}
	defer s.unlock()

	states, err := s.read()
	if err != nil {
		return err
	}

	states[key] = cloneState(*state)
	return s.write(states)
}

func (s *FileStateStore) read() (map[string]models.ClientState, error) {
	states := make(map[string]models.ClientState)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return states, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(data) == 0 {
		return states, nil
	}

	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return states, nil
}

func (s *FileStateStore) write(states map[string]models.ClientState) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state file: %w", err)
	}

	// Write atomically via temp file
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *FileStateStore) unlock() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release state lock", "path", s.path, "error", err)
	}
}
