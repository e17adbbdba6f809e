package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/wko-katas/katas-engine/internal/source"
)

type fakeSource struct {
	link        string
	linkErr     error
	playableErr error
	linkCalls   int
}

func (f *fakeSource) ThumbnailLink(ctx context.Context, fileID string) (string, bool, error) {
	f.linkCalls++
	if f.linkErr != nil {
		return "", false, f.linkErr
	}
	return f.link, f.link != "", nil
}

func (f *fakeSource) PlayableURL(ctx context.Context, fileID string) (source.PlayableURL, error) {
	if f.playableErr != nil {
		return source.PlayableURL{}, f.playableErr
	}
	return source.PlayableURL{URL: "https://media/" + fileID}, nil
}

type fakeCapturer struct {
	uri       string
	err       error
	gotURL    string
	gotOffset time.Duration
}

func (f *fakeCapturer) Capture(ctx context.Context, videoURL string, offset time.Duration) (string, error) {
	f.gotURL = videoURL
	f.gotOffset = offset
	return f.uri, f.err
}

type failingCache struct {
	getErr error
	setErr error
	sets   int
}

func (c *failingCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, c.getErr
}

func (c *failingCache) Set(ctx context.Context, key, value string) error {
	c.sets++
	return c.setErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveFromCache(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set(context.Background(), CacheKey("f1"), "data:image/jpeg;base64,AAA")
	src := &fakeSource{link: "https://thumbs/f1"}

	r := NewResolver(cache, src, &fakeCapturer{}, quietLogger())
	res, err := r.Resolve(context.Background(), "f1", "Pinan Shodan")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Origin != OriginCache || res.URL != "data:image/jpeg;base64,AAA" {
		t.Errorf("unexpected result %+v", res)
	}
	if src.linkCalls != 0 {
		t.Error("remote link should not be queried on a cache hit")
	}
}

func TestResolveRemoteLinkWritesThrough(t *testing.T) {
	cache := NewMemoryCache()
	capturer := &fakeCapturer{uri: "data:frame"}
	r := NewResolver(cache, &fakeSource{link: "https://thumbs/f1"}, capturer, quietLogger())

	res, err := r.Resolve(context.Background(), "f1", "Pinan Shodan")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Origin != OriginRemote || res.URL != "https://thumbs/f1" {
		t.Errorf("unexpected result %+v", res)
	}

	cached, ok, _ := cache.Get(context.Background(), "thumbnail_f1")
	if !ok || cached != "https://thumbs/f1" {
		t.Errorf("expected write-through, got %q %v", cached, ok)
	}
	if capturer.gotURL != "" {
		t.Error("frame capture should not run when the remote link exists")
	}
}

func TestResolveFallsBackToFrameCapture(t *testing.T) {
	cache := NewMemoryCache()
	capturer := &fakeCapturer{uri: "data:image/jpeg;base64,FRAME"}
	src := &fakeSource{linkErr: errors.New("drive 500")}

	r := NewResolver(cache, src, capturer, quietLogger())
	res, err := r.Resolve(context.Background(), "f1", "Pinan Shodan")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Origin != OriginFrame {
		t.Errorf("expected frame origin, got %q", res.Origin)
	}
	if capturer.gotURL != "https://media/f1" || capturer.gotOffset != time.Second {
		t.Errorf("unexpected capture call %q at %v", capturer.gotURL, capturer.gotOffset)
	}
	if cached, _, _ := cache.Get(context.Background(), CacheKey("f1")); cached != res.URL {
		t.Errorf("expected captured frame to be cached, got %q", cached)
	}
}

func TestResolveUnresolvableLeavesCacheUntouched(t *testing.T) {
	cache := NewMemoryCache()
	captureErr := errors.New("codec not supported")
	r := NewResolver(cache, &fakeSource{}, &fakeCapturer{err: captureErr}, quietLogger())

	_, err := r.Resolve(context.Background(), "f1", "Pinan Shodan")
	if !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}
	if !errors.Is(err, captureErr) {
		t.Errorf("expected capture error to be wrapped, got %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("cache must stay empty, has %d entries", cache.Len())
	}
}

func TestResolveAllMiss(t *testing.T) {
	r := NewResolver(NewMemoryCache(), &fakeSource{}, nil, quietLogger())

	if _, err := r.Resolve(context.Background(), "f1", "x"); !errors.Is(err, ErrUnresolvable) {
		t.Errorf("expected ErrUnresolvable, got %v", err)
	}
}

func TestResolveCacheReadErrorIsMiss(t *testing.T) {
	cache := &failingCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	r := NewResolver(cache, &fakeSource{link: "https://thumbs/f1"}, nil, quietLogger())

	res, err := r.Resolve(context.Background(), "f1", "x")
	if err != nil {
		t.Fatalf("cache failures must not fail resolution: %v", err)
	}
	if res.Origin != OriginRemote {
		t.Errorf("expected remote origin, got %q", res.Origin)
	}
	if cache.sets != 1 {
		t.Errorf("expected one write attempt, got %d", cache.sets)
	}
}

func TestResolveCancelledContext(t *testing.T) {
	cache := NewMemoryCache()
	r := NewResolver(cache, &fakeSource{link: "https://thumbs/f1"}, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Resolve(ctx, "f1", "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if cache.Len() != 0 {
		t.Error("cancelled resolution must not write to the cache")
	}
}

func TestEncodeDataURIScalesDown(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 360))
	for y := 0; y < 360; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}

	uri, err := EncodeDataURI(img, DefaultMaxWidth, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("EncodeDataURI failed: %v", err)
	}

	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("unexpected prefix in %q", uri[:min(len(uri), 40)])
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid jpeg: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Errorf("expected 320x180, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestEncodeDataURIKeepsSmallImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))

	uri, err := EncodeDataURI(img, DefaultMaxWidth, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("EncodeDataURI failed: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/jpeg;base64,"))
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid jpeg: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("expected original size, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestEncodeDataURIRejectsEmptyImage(t *testing.T) {
	if _, err := EncodeDataURI(image.NewRGBA(image.Rect(0, 0, 0, 0)), 320, 80); err == nil {
		t.Error("expected error for empty image")
	}
}
