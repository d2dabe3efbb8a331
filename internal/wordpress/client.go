// Package wordpress is a stateless adapter to the WordPress REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nordvik/plume/internal/apperr"
)

// Config holds the per-project connection settings.
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// Category is one WordPress post category.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Post is the payload for creating a post.
type Post struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Categories []int  `json:"categories,omitempty"`
}

// PostResult identifies a created post.
type PostResult struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// Media identifies an uploaded media item.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

// Client calls the WordPress write API of one site under Basic auth.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client for the given site.
func New(cfg Config, timeout time.Duration) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// checkConfigured fails fast before any network I/O when the connection
// settings are incomplete.
func (c *Client) checkConfigured() error {
	if c.cfg.BaseURL == "" || c.cfg.Username == "" || c.cfg.Password == "" {
		return fmt.Errorf("wordpress: URL, user and password are required: %w", apperr.ErrNotConfigured)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.cfg.BaseURL + "/wp-json/wp/v2" + path
}

// ListCategories returns the site's post categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/categories?per_page=100"), nil)
	if err != nil {
		return nil, fmt.Errorf("wordpress: build request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var cats []Category
	if err := json.Unmarshal(body, &cats); err != nil {
		return nil, fmt.Errorf("wordpress: categories: %w: %v", apperr.ErrParse, err)
	}
	return cats, nil
}

// CreatePost creates a post with the given title, HTML content, status, and
// optional category ids.
func (c *Client) CreatePost(ctx context.Context, post Post) (*PostResult, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("wordpress: encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/posts"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("wordpress: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result PostResult
	if err := json.Unmarshal(body, &result); err != nil || result.ID == 0 {
		return nil, fmt.Errorf("wordpress: post response: %w", apperr.ErrParse)
	}
	return &result, nil
}

// UploadMedia pushes raw bytes to the media endpoint and returns the media id
// and URL. A 2xx response that does not carry both is ErrParse despite the
// successful status.
func (c *Client) UploadMedia(ctx context.Context, data []byte, filename, mimeType string) (*Media, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/media"), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("wordpress: build request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var media Media
	if err := json.Unmarshal(body, &media); err != nil || media.ID == 0 || media.SourceURL == "" {
		return nil, fmt.Errorf("wordpress: media response: %w", apperr.ErrParse)
	}
	return &media, nil
}

// do runs the request under Basic auth and returns the body of a 2xx
// response. Non-2xx responses become UpstreamError with the body and the
// Retry-After header (when present) preserved for the caller's retry logic.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wordpress: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wordpress: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			UpstreamError: apperr.UpstreamError{Status: resp.StatusCode, Body: string(body)},
			RetryAfter:    resp.Header.Get("Retry-After"),
		}
	}
	return body, nil
}

// StatusError is an UpstreamError that additionally carries the Retry-After
// header value, which the upload retry loop needs for 429 responses.
type StatusError struct {
	apperr.UpstreamError
	RetryAfter string
}

// Unwrap lets errors.As find the embedded UpstreamError pointer.
func (e *StatusError) Unwrap() error {
	return &e.UpstreamError
}
