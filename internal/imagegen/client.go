// Package imagegen is a stateless adapter to the image-generation provider.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/nordvik/plume/internal/apperr"
)

// DefaultBaseURL is the generation endpoint used when the config leaves it
// empty.
const DefaultBaseURL = "https://api.ideogram.ai/v1/ideogram-v3/generate"

// DefaultRenderingSpeed is sent when the request leaves the hint empty.
const DefaultRenderingSpeed = "TURBO"

// Request describes one generation call.
type Request struct {
	Prompt string
	// RenderingSpeed is a provider hint (e.g. TURBO, DEFAULT, QUALITY).
	RenderingSpeed string
	// AspectRatio is optional (e.g. "16x9").
	AspectRatio string
}

// Client calls the image-generation provider.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a client.
func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Generate submits the prompt as a multipart form and returns the URL of the
// first generated image.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("imagegen: image API key: %w", apperr.ErrAuth)
	}

	speed := req.RenderingSpeed
	if speed == "" {
		speed = DefaultRenderingSpeed
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("prompt", req.Prompt)
	_ = form.WriteField("rendering_speed", speed)
	if req.AspectRatio != "" {
		_ = form.WriteField("aspect_ratio", req.AspectRatio)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("imagegen: build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return "", fmt.Errorf("imagegen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Api-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("imagegen: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("imagegen: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("imagegen: %w: %s", apperr.ErrAuth, string(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("imagegen: %w", &apperr.UpstreamError{Status: resp.StatusCode, Body: string(body)})
	}

	var parsed struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("imagegen: %w: %v", apperr.ErrParse, err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return "", fmt.Errorf("imagegen: %w", apperr.ErrEmptyResult)
	}
	return parsed.Data[0].URL, nil
}
