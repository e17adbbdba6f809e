package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wko-katas/katas-engine/internal/models"
)

// Client is a Go SDK for the katas-engine API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a new katas-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.StatusCode, e.Code, e.Message)
}

// KataList is a page of annotated katas
type KataList struct {
	Katas  []models.KataView  `json:"katas"`
	Total  int                `json:"total"`
	Filter models.FilterState `json:"filter"`
}

// KataDetail is a single kata with its resume position
type KataDetail struct {
	Kata           models.KataView `json:"kata"`
	ResumePosition float64         `json:"resumePosition"`
}

// Progress is the watch state of one kata
type Progress struct {
	KataID         string                `json:"kataId"`
	State          models.ProgressState  `json:"state"`
	ResumePosition float64               `json:"resumePosition"`
	Progress       *models.VideoProgress `json:"progress"`
}

// ProgressSummary counts favorites and watched katas
type ProgressSummary struct {
	Favorites  int `json:"favorites"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// Thumbnail is a resolved preview image
type Thumbnail struct {
	URL    string `json:"thumbnailUrl"`
	Origin string `json:"origin"`
}

// VideoURL is a short-lived playable URL
type VideoURL struct {
	KataID    string    `json:"kataId"`
	VideoURL  string    `json:"videoUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ListOptions contains options for listing katas
type ListOptions struct {
	Search        string
	Belts         []models.BeltLevel
	FavoritesOnly bool
}

// Login authenticates and keeps the issued token for subsequent calls
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.call(ctx, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.token = resp.Token
	return &resp, nil
}

// Verify returns the user behind the current token
func (c *Client) Verify(ctx context.Context) (*models.User, error) {
	var result struct {
		Valid bool         `json:"valid"`
		User  *models.User `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/auth/verify", nil, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Register creates a user. Requires an admin token.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers retrieves every account. Requires an admin token.
func (c *Client) ListUsers(ctx context.Context) ([]*models.User, error) {
	var result struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/users", nil, &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

// UpdateUser changes the name or belt of a user. Requires an admin token.
func (c *Client) UpdateUser(ctx context.Context, id int, update models.UserUpdate) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodPut, "/api/v1/users/"+strconv.Itoa(id), update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user. Requires an admin token.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/users/"+strconv.Itoa(id), nil, nil)
}

// ListKatas retrieves the filtered catalog. With zero options the filter
// stored on the server session applies.
func (c *Client) ListKatas(ctx context.Context, opts ListOptions) (*KataList, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if len(opts.Belts) > 0 {
		belts := make([]string, len(opts.Belts))
		for i, b := range opts.Belts {
			belts[i] = string(b)
		}
		q.Set("belts", strings.Join(belts, ","))
	}
	if opts.FavoritesOnly {
		q.Set("favorites", "true")
	}

	path := "/api/v1/katas"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list KataList
	if err := c.call(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// AllKatas retrieves the unfiltered catalog
func (c *Client) AllKatas(ctx context.Context) ([]models.KataView, error) {
	var result struct {
		Katas []models.KataView `json:"katas"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/katas/all", nil, &result); err != nil {
		return nil, err
	}
	return result.Katas, nil
}

// GetKata retrieves one kata the caller's belt gives access to
func (c *Client) GetKata(ctx context.Context, id string) (*KataDetail, error) {
	var detail KataDetail
	if err := c.call(ctx, http.MethodGet, "/api/v1/katas/"+url.PathEscape(id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// RefreshCatalog asks the server to reload the catalog from its source
func (c *Client) RefreshCatalog(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/v1/katas/refresh", nil, nil)
}

// GetFilter retrieves the filter stored on the server session
func (c *Client) GetFilter(ctx context.Context) (*models.FilterState, error) {
	var f models.FilterState
	if err := c.call(ctx, http.MethodGet, "/api/v1/filter", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// SetFilter replaces the filter stored on the server session
func (c *Client) SetFilter(ctx context.Context, filter models.FilterState) (*models.FilterState, error) {
	var f models.FilterState
	if err := c.call(ctx, http.MethodPut, "/api/v1/filter", filter, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Favorites retrieves the favorite kata ids
func (c *Client) Favorites(ctx context.Context) ([]string, error) {
	var result struct {
		Favorites []string `json:"favorites"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/favorites", nil, &result); err != nil {
		return nil, err
	}
	return result.Favorites, nil
}

// ToggleFavorite flips a kata's favorite flag and returns the new value
func (c *Client) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var result struct {
		Favorite bool `json:"favorite"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/favorites/"+url.PathEscape(id), nil, &result); err != nil {
		return false, err
	}
	return result.Favorite, nil
}

// DarkMode retrieves the display preference
func (c *Client) DarkMode(ctx context.Context) (bool, error) {
	var prefs struct {
		DarkMode bool `json:"darkMode"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/preferences", nil, &prefs); err != nil {
		return false, err
	}
	return prefs.DarkMode, nil
}

// SetDarkMode stores the display preference
func (c *Client) SetDarkMode(ctx context.Context, enabled bool) error {
	body := map[string]bool{"darkMode": enabled}
	return c.call(ctx, http.MethodPut, "/api/v1/preferences", body, nil)
}

// AllProgress retrieves every progress record with summary counters
func (c *Client) AllProgress(ctx context.Context) (map[string]models.VideoProgress, *ProgressSummary, error) {
	var result struct {
		Progress map[string]models.VideoProgress `json:"progress"`
		Summary  ProgressSummary                 `json:"summary"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/progress", nil, &result); err != nil {
		return nil, nil, err
	}
	return result.Progress, &result.Summary, nil
}

// GetProgress retrieves the watch state of one kata
func (c *Client) GetProgress(ctx context.Context, id string) (*Progress, error) {
	var p Progress
	if err := c.call(ctx, http.MethodGet, "/api/v1/progress/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProgress records a playback position
func (c *Client) UpdateProgress(ctx context.Context, id string, currentTime, duration float64) (*models.VideoProgress, error) {
	body := map[string]float64{"currentTime": currentTime, "duration": duration}

	var p models.VideoProgress
	if err := c.call(ctx, http.MethodPut, "/api/v1/progress/"+url.PathEscape(id), body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CompleteProgress marks a started kata as completed
func (c *Client) CompleteProgress(ctx context.Context, id string) (*models.VideoProgress, error) {
	var p models.VideoProgress
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/progress/%s/complete", url.PathEscape(id)), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Thumbnail resolves the preview image of a kata
func (c *Client) Thumbnail(ctx context.Context, id string) (*Thumbnail, error) {
	var t Thumbnail
	if err := c.call(ctx, http.MethodGet, "/api/v1/thumbnails/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// VideoURL retrieves a playable URL for a kata
func (c *Client) VideoURL(ctx context.Context, id string) (*VideoURL, error) {
	var v VideoURL
	if err := c.call(ctx, http.MethodGet, "/api/v1/video/"+url.PathEscape(id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// call sends body as JSON and decodes the envelope data into out
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error != nil {
			return result.Error
		}
		return fmt.Errorf("API error: unsuccessful response")
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var result struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(respBody, &result) == nil && result.Error != nil {
			result.Error.StatusCode = resp.StatusCode
			return nil, result.Error
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
