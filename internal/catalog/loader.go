package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wko-katas/katas-engine/internal/models"
)

var ErrSourceUnavailable = errors.New("video source unavailable")

// Lister lists the video files of a remote folder
type Lister interface {
	ListVideoFiles(ctx context.Context, folderID string) ([]models.SourceFile, error)
}

// LoaderConfig configures where the catalog is read from
type LoaderConfig struct {
	FolderID     string
	SnapshotPath string // optional static fallback
}

// Loader rebuilds the catalog store from the remote listing
type Loader struct {
	store  *Store
	source Lister
	cfg    LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a catalog loader. source may be nil, in which case only
// the snapshot is used.
func NewLoader(store *Store, source Lister, cfg LoaderConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		store:  store,
		source: source,
		cfg:    cfg,
		logger: logger.With("component", "catalog_loader"),
	}
}

// Load fetches the listing, builds the catalog and replaces the store. When the
// listing fails the snapshot, if configured, is loaded instead. On total failure
// the previous catalog stays in place and ErrSourceUnavailable is returned.
func (l *Loader) Load(ctx context.Context) error {
	listErr := l.loadFromSource(ctx)
	if listErr == nil {
		return nil
	}

	if strings.TrimSpace(l.cfg.SnapshotPath) == "" {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, listErr)
	}

	l.logger.Warn("video listing unavailable, using snapshot",
		"error", listErr,
		"snapshot", l.cfg.SnapshotPath,
	)

	katas, err := ReadSnapshot(l.cfg.SnapshotPath)
	if err != nil {
		return fmt.Errorf("%w: %v (snapshot: %v)", ErrSourceUnavailable, listErr, err)
	}

	l.store.Replace(katas, OriginSnapshot)
	l.logger.Info("catalog loaded from snapshot", "count", len(katas))
	return nil
}

func (l *Loader) loadFromSource(ctx context.Context) error {
	if l.source == nil {
		return errors.New("no video source configured")
	}

	files, err := l.source.ListVideoFiles(ctx, l.cfg.FolderID)
	if err != nil {
		return fmt.Errorf("failed to list video files: %w", err)
	}

	katas := Build(files, l.logger)
	l.store.Replace(katas, OriginSource)

	l.logger.Info("catalog loaded from source",
		"files", len(files),
		"katas", len(katas),
		"skipped", len(files)-len(katas),
	)
	return nil
}
