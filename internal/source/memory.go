package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wko-katas/katas-engine/internal/models"
)

// MemoryFile is a video held by a Memory repository
type MemoryFile struct {
	models.SourceFile
	Folder    string
	Thumbnail string
	Body      []byte
}

// Memory is an in-process Repository used for development and tests
type Memory struct {
	mu      sync.RWMutex
	files   map[string]MemoryFile
	order   []string
	listErr error
	baseURL string
}

// NewMemory creates a repository holding the given files
func NewMemory(files ...MemoryFile) *Memory {
	m := &Memory{
		files:   make(map[string]MemoryFile),
		baseURL: "memory://files/",
	}
	for _, f := range files {
		m.Put(f)
	}
	return m
}

// Put adds or replaces a file
func (m *Memory) Put(f MemoryFile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[f.ID]; !exists {
		m.order = append(m.order, f.ID)
	}
	m.files[f.ID] = f
}

// FailListing makes ListVideoFiles and Ping return err until cleared with nil
func (m *Memory) FailListing(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

func (m *Memory) ListVideoFiles(ctx context.Context, folderID string) ([]models.SourceFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	var out []models.SourceFile
	for _, id := range m.order {
		f := m.files[id]
		if f.Folder == "" || f.Folder == folderID {
			out = append(out, f.SourceFile)
		}
	}
	return out, nil
}

func (m *Memory) ThumbnailLink(ctx context.Context, fileID string) (string, bool, error) {
	f, err := m.get(fileID)
	if err != nil {
		return "", false, err
	}
	return f.Thumbnail, f.Thumbnail != "", nil
}

func (m *Memory) PlayableURL(ctx context.Context, fileID string) (PlayableURL, error) {
	if _, err := m.get(fileID); err != nil {
		return PlayableURL{}, err
	}
	return PlayableURL{
		URL:       m.baseURL + fileID,
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}, nil
}

// Stream serves the stored body, honouring a single "bytes=start-end" range
func (m *Memory) Stream(ctx context.Context, fileID, rangeHeader string) (*Stream, error) {
	f, err := m.get(fileID)
	if err != nil {
		return nil, err
	}

	body := f.Body
	size := int64(len(body))
	s := &Stream{StatusCode: http.StatusOK, ContentType: "video/mp4"}

	if start, end, ok := parseByteRange(rangeHeader, size); ok {
		body = body[start : end+1]
		s.StatusCode = http.StatusPartialContent
		s.ContentRange = fmt.Sprintf("bytes %d-%d/%d", start, end, size)
	}

	s.Body = io.NopCloser(bytes.NewReader(body))
	s.ContentLength = int64(len(body))
	return s, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listErr
}

func (m *Memory) get(fileID string) (MemoryFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[fileID]
	if !ok {
		return MemoryFile{}, fmt.Errorf("file %s: %w", fileID, ErrFileNotFound)
	}
	return f, nil
}

func parseByteRange(header string, size int64) (int64, int64, bool) {
	rng, ok := strings.CutPrefix(header, "bytes=")
	if !ok || size == 0 || strings.Contains(rng, ",") {
		return 0, 0, false
	}

	startStr, endStr, ok := strings.Cut(rng, "-")
	if !ok || startStr == "" {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end := size - 1
	if endStr != "" {
		e, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || e < start {
			return 0, 0, false
		}
		end = min(e, size-1)
	}
	return start, end, true
}
