package source

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/wko-katas/katas-engine/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

// PlayableURL is a short-lived URL a player can fetch directly
type PlayableURL struct {
	URL       string    `json:"videoUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Stream is a (possibly partial) video body fetched from the repository.
// Callers must close Body.
type Stream struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentType   string
	ContentLength int64
	ContentRange  string
}

// Repository lists and serves the video files backing the catalog
type Repository interface {
	// ListVideoFiles returns the video files directly under a folder
	ListVideoFiles(ctx context.Context, folderID string) ([]models.SourceFile, error)

	// ThumbnailLink returns the repository-generated preview image link.
	// The bool is false when the file has no thumbnail.
	ThumbnailLink(ctx context.Context, fileID string) (string, bool, error)

	// PlayableURL returns a URL carrying a temporary access token
	PlayableURL(ctx context.Context, fileID string) (PlayableURL, error)

	// Stream fetches the file body. rangeHeader is forwarded verbatim when set.
	Stream(ctx context.Context, fileID, rangeHeader string) (*Stream, error)

	// Ping checks repository connectivity
	Ping(ctx context.Context) error
}
