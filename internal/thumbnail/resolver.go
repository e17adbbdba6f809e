// Package thumbnail resolves a preview image for a kata video.
//
// Resolution walks an ordered chain of strategies: the thumbnail cache, the
// repository-generated preview link, then a frame captured from the video
// itself. The first strategy that yields a URL wins and its result is written
// through to the cache.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wko-katas/katas-engine/internal/source"
)

var ErrUnresolvable = errors.New("thumbnail could not be resolved")

// CaptureOffset is the playback position of the captured frame
const CaptureOffset = time.Second

// Origin records which strategy produced a thumbnail
type Origin string

const (
	OriginCache  Origin = "cache"
	OriginRemote Origin = "remote"
	OriginFrame  Origin = "frame"
)

// Result is a resolved thumbnail. URL is either a remote link or a data URI.
type Result struct {
	URL    string `json:"thumbnailUrl"`
	Origin Origin `json:"origin"`
}

// Cache stores resolved thumbnail URLs
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Source is the part of the file repository the resolver needs
type Source interface {
	ThumbnailLink(ctx context.Context, fileID string) (string, bool, error)
	PlayableURL(ctx context.Context, fileID string) (source.PlayableURL, error)
}

// FrameCapturer grabs a still from a playable video URL and returns it as a data URI
type FrameCapturer interface {
	Capture(ctx context.Context, videoURL string, offset time.Duration) (string, error)
}

// CacheKey returns the cache key of a source file's thumbnail
func CacheKey(sourceID string) string {
	return "thumbnail_" + sourceID
}

type strategy interface {
	name() string
	resolve(ctx context.Context, sourceID, kataName string) (Result, bool, error)
}

// Resolver runs the strategy chain
type Resolver struct {
	cache      Cache
	strategies []strategy
	logger     *slog.Logger
}

// NewResolver builds the chain cache -> remote link -> frame capture.
// A nil cache uses an in-process MemoryCache; a nil capturer drops the frame tier.
func NewResolver(cache Cache, src Source, capturer FrameCapturer, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}

	strategies := []strategy{cacheStrategy{cache: cache}}
	if src != nil {
		strategies = append(strategies, remoteLinkStrategy{src: src})
		if capturer != nil {
			strategies = append(strategies, frameStrategy{src: src, capturer: capturer})
		}
	}

	return &Resolver{
		cache:      cache,
		strategies: strategies,
		logger:     logger,
	}
}

// Resolve returns the first thumbnail produced by the chain. Errors from
// earlier tiers are logged and skipped; the last tier's error is returned
// wrapped in ErrUnresolvable.
func (r *Resolver) Resolve(ctx context.Context, sourceID, kataName string) (Result, error) {
	for i, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		res, ok, err := s.resolve(ctx, sourceID, kataName)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			if i == len(r.strategies)-1 {
				return Result{}, fmt.Errorf("%w: %s: %w", ErrUnresolvable, s.name(), err)
			}
			r.logger.Warn("thumbnail strategy failed",
				"strategy", s.name(),
				"source_id", sourceID,
				"kata", kataName,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}

		if res.Origin != OriginCache {
			r.store(ctx, sourceID, res.URL)
		}
		return res, nil
	}

	return Result{}, ErrUnresolvable
}

func (r *Resolver) store(ctx context.Context, sourceID, url string) {
	if ctx.Err() != nil {
		return
	}
	if err := r.cache.Set(ctx, CacheKey(sourceID), url); err != nil {
		r.logger.Warn("failed to cache thumbnail", "source_id", sourceID, "error", err)
	}
}

type cacheStrategy struct {
	cache Cache
}

func (cacheStrategy) name() string { return "cache" }

func (s cacheStrategy) resolve(ctx context.Context, sourceID, _ string) (Result, bool, error) {
	url, ok, err := s.cache.Get(ctx, CacheKey(sourceID))
	if err != nil || !ok || url == "" {
		return Result{}, false, err
	}
	return Result{URL: url, Origin: OriginCache}, true, nil
}

type remoteLinkStrategy struct {
	src Source
}

func (remoteLinkStrategy) name() string { return "remote_link" }

func (s remoteLinkStrategy) resolve(ctx context.Context, sourceID, _ string) (Result, bool, error) {
	link, ok, err := s.src.ThumbnailLink(ctx, sourceID)
	if err != nil || !ok {
		return Result{}, false, err
	}
	return Result{URL: link, Origin: OriginRemote}, true, nil
}

type frameStrategy struct {
	src      Source
	capturer FrameCapturer
}

func (frameStrategy) name() string { return "frame_capture" }

func (s frameStrategy) resolve(ctx context.Context, sourceID, _ string) (Result, bool, error) {
	playable, err := s.src.PlayableURL(ctx, sourceID)
	if err != nil {
		return Result{}, false, fmt.Errorf("failed to get playable url: %w", err)
	}

	uri, err := s.capturer.Capture(ctx, playable.URL, CaptureOffset)
	if err != nil {
		return Result{}, false, err
	}
	return Result{URL: uri, Origin: OriginFrame}, true, nil
}
