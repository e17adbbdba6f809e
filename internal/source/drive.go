package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wko-katas/katas-engine/internal/models"
)

const (
	driveFilesEndpoint = "https://www.googleapis.com/drive/v3/files/"
	listPageSize       = 1000
)

// DriveConfig holds Google Drive service account configuration
type DriveConfig struct {
	CredentialsJSON []byte
	CredentialsFile string
	URLTTL          time.Duration
}

// Drive implements Repository on top of the Google Drive v3 API
type Drive struct {
	svc    *drive.Service
	tokens oauth2.TokenSource
	urlTTL time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewDrive authenticates with a service account and creates a read-only Drive client
func NewDrive(ctx context.Context, cfg DriveConfig, logger *slog.Logger) (*Drive, error) {
	raw := cfg.CredentialsJSON
	if len(raw) == 0 && cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read drive credentials: %w", err)
		}
		raw = b
	}
	if len(raw) == 0 {
		return nil, errors.New("drive credentials are required")
	}

	creds, err := google.CredentialsFromJSON(ctx, raw, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse drive credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	if cfg.URLTTL <= 0 {
		cfg.URLTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Drive{
		svc:    svc,
		tokens: creds.TokenSource,
		urlTTL: cfg.URLTTL,
		now:    time.Now,
		logger: logger,
	}, nil
}

// ListVideoFiles pages through every video file in the folder, ordered by name
func (d *Drive) ListVideoFiles(ctx context.Context, folderID string) ([]models.SourceFile, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType contains 'video/' and trashed = false", folderID)

	var files []models.SourceFile
	call := d.svc.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name, webViewLink)").
		OrderBy("name").
		PageSize(listPageSize)

	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			files = append(files, models.SourceFile{
				ID:          f.Id,
				Name:        f.Name,
				WebViewLink: f.WebViewLink,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list drive folder %s: %w", folderID, err)
	}

	d.logger.Debug("listed drive folder", "folder_id", folderID, "files", len(files))
	return files, nil
}

// ThumbnailLink returns the Drive-generated thumbnail, when Drive has one
func (d *Drive) ThumbnailLink(ctx context.Context, fileID string) (string, bool, error) {
	f, err := d.svc.Files.Get(fileID).Fields("thumbnailLink, hasThumbnail").Context(ctx).Do()
	if err != nil {
		return "", false, wrapDriveError("failed to get thumbnail link", fileID, err)
	}

	if !f.HasThumbnail || f.ThumbnailLink == "" {
		return "", false, nil
	}
	return f.ThumbnailLink, true, nil
}

// PlayableURL builds a media URL authorized by the current access token
func (d *Drive) PlayableURL(ctx context.Context, fileID string) (PlayableURL, error) {
	if err := ctx.Err(); err != nil {
		return PlayableURL{}, err
	}

	token, err := d.tokens.Token()
	if err != nil {
		return PlayableURL{}, fmt.Errorf("failed to get drive access token: %w", err)
	}

	expires := d.now().Add(d.urlTTL)
	if !token.Expiry.IsZero() && token.Expiry.Before(expires) {
		expires = token.Expiry
	}

	q := url.Values{}
	q.Set("alt", "media")
	q.Set("access_token", token.AccessToken)

	return PlayableURL{
		URL:       driveFilesEndpoint + url.PathEscape(fileID) + "?" + q.Encode(),
		ExpiresAt: expires.UTC(),
	}, nil
}

// Stream downloads the file body, forwarding the Range header
func (d *Drive) Stream(ctx context.Context, fileID, rangeHeader string) (*Stream, error) {
	call := d.svc.Files.Get(fileID).Context(ctx)
	if rangeHeader != "" {
		call.Header().Set("Range", rangeHeader)
	}

	resp, err := call.Download()
	if err != nil {
		return nil, wrapDriveError("failed to download file", fileID, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	return &Stream{
		Body:          resp.Body,
		StatusCode:    resp.StatusCode,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		ContentRange:  resp.Header.Get("Content-Range"),
	}, nil
}

// Ping checks that the credentials can reach Drive
func (d *Drive) Ping(ctx context.Context) error {
	if _, err := d.svc.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to reach drive: %w", err)
	}
	return nil
}

func wrapDriveError(msg, fileID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", msg, fileID, ErrFileNotFound)
	}
	return fmt.Errorf("%s %s: %w", msg, fileID, err)
}
