package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/wko-katas/katas-engine/internal/models"
)

func TestMemoryListFiltersByFolder(t *testing.T) {
	repo := NewMemory(
		MemoryFile{SourceFile: models.SourceFile{ID: "a", Name: "1_Pinan_Shodan_Azul.mp4"}, Folder: "katas"},
		MemoryFile{SourceFile: models.SourceFile{ID: "b", Name: "other.mp4"}, Folder: "misc"},
		MemoryFile{SourceFile: models.SourceFile{ID: "c", Name: "2_Pinan_Nidan_Azul.mp4"}},
	)

	files, err := repo.ListVideoFiles(context.Background(), "katas")
	if err != nil {
		t.Fatalf("ListVideoFiles failed: %v", err)
	}
	if len(files) != 2 || files[0].ID != "a" || files[1].ID != "c" {
		t.Errorf("unexpected listing %+v", files)
	}
}

func TestMemoryFailListing(t *testing.T) {
	repo := NewMemory()
	boom := errors.New("network down")
	repo.FailListing(boom)

	if _, err := repo.ListVideoFiles(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("expected listing error, got %v", err)
	}
	if err := repo.Ping(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected ping error, got %v", err)
	}

	repo.FailListing(nil)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("expected healthy ping, got %v", err)
	}
}

func TestMemoryThumbnailLink(t *testing.T) {
	repo := NewMemory(
		MemoryFile{SourceFile: models.SourceFile{ID: "a"}, Thumbnail: "https://thumbs/a"},
		MemoryFile{SourceFile: models.SourceFile{ID: "b"}},
	)
	ctx := context.Background()

	if link, ok, err := repo.ThumbnailLink(ctx, "a"); err != nil || !ok || link != "https://thumbs/a" {
		t.Errorf("unexpected result %q %v %v", link, ok, err)
	}
	if _, ok, err := repo.ThumbnailLink(ctx, "b"); err != nil || ok {
		t.Errorf("expected no thumbnail, got %v %v", ok, err)
	}
	if _, _, err := repo.ThumbnailLink(ctx, "missing"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestMemoryStreamRange(t *testing.T) {
	repo := NewMemory(MemoryFile{SourceFile: models.SourceFile{ID: "a"}, Body: []byte("0123456789")})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
		wantRange  string
	}{
		{"full body", "", http.StatusOK, "0123456789", ""},
		{"bounded range", "bytes=2-5", http.StatusPartialContent, "2345", "bytes 2-5/10"},
		{"open range", "bytes=7-", http.StatusPartialContent, "789", "bytes 7-9/10"},
		{"clamped end", "bytes=8-100", http.StatusPartialContent, "89", "bytes 8-9/10"},
		{"invalid range", "bytes=20-30", http.StatusOK, "0123456789", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := repo.Stream(context.Background(), "a", tt.header)
			if err != nil {
				t.Fatalf("Stream failed: %v", err)
			}
			defer s.Body.Close()

			body, _ := io.ReadAll(s.Body)
			if string(body) != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, body)
			}
			if s.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, s.StatusCode)
			}
			if s.ContentRange != tt.wantRange {
				t.Errorf("expected range %q, got %q", tt.wantRange, s.ContentRange)
			}
			if s.ContentLength != int64(len(tt.wantBody)) {
				t.Errorf("unexpected content length %d", s.ContentLength)
			}
		})
	}
}
