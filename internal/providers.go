package internal

import (
	"context"
	"time"

	"github.com/nordvik/plume/internal/imagegen"
	"github.com/nordvik/plume/internal/llm"
	"github.com/nordvik/plume/internal/project"
)

// textProvider adapts the text client for the pipeline, re-reading the API
// key from the settings document on every call so key changes made through
// the secrets API (or another process) take effect without a restart.
type textProvider struct {
	reg     *project.Registry
	baseURL string
	timeout time.Duration
}

func (p *textProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	key, err := p.reg.TextAPIKey()
	if err != nil {
		return "", err
	}
	return llm.New(key, p.baseURL, p.timeout).Complete(ctx, req)
}

// imageProvider is the image-generation counterpart of textProvider.
type imageProvider struct {
	reg     *project.Registry
	baseURL string
	timeout time.Duration
}

func (p *imageProvider) Generate(ctx context.Context, req imagegen.Request) (string, error) {
	key, err := p.reg.ImageAPIKey()
	if err != nil {
		return "", err
	}
	return imagegen.New(key, p.baseURL, p.timeout).Generate(ctx, req)
}
