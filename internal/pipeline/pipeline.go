// Package pipeline coordinates the multi-stage publishing flow: text
// generation, image generation, rate-limited media upload, placeholder
// resolution, and post creation.
//
// Each run is strictly sequential per publish request. The only internal
// parallelism is the bounded worker pool inside the upload stage, whose
// items are independent; result order always matches input order.
package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nordvik/plume/internal/imagegen"
	"github.com/nordvik/plume/internal/llm"
	"github.com/nordvik/plume/internal/wordpress"
)

// Stage is a step of the publishing state machine.
type Stage string

const (
	StageDraft                Stage = "draft"
	StageTextGenerated        Stage = "text_generated"
	StageImagesGenerated      Stage = "images_generated"
	StageMediaUploaded        Stage = "media_uploaded"
	StagePlaceholdersResolved Stage = "placeholders_resolved"
	StagePublished            Stage = "published"
	StageFailed               Stage = "failed"
)

// TextGenerator produces text for a rendered prompt.
type TextGenerator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// ImageGenerator produces an image URL for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, req imagegen.Request) (string, error)
}

// MediaHost is the CMS surface the pipeline publishes to.
type MediaHost interface {
	UploadMedia(ctx context.Context, data []byte, filename, mimeType string) (*wordpress.Media, error)
	CreatePost(ctx context.Context, post wordpress.Post) (*wordpress.PostResult, error)
}

// StageHook observes stage transitions of a run.
type StageHook func(project string, stage Stage)

// Article is the ephemeral value produced by the pipeline. It is never
// persisted here; after publish, persistence is the CMS's business.
type Article struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// ImageResult is the per-prompt outcome of the image-generation stage.
type ImageResult struct {
	Prompt string `json:"prompt"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// UploadRequest is one source image to push to the media endpoint.
type UploadRequest struct {
	SourceURL string `json:"source_url"`
	AltText   string `json:"alt_text,omitempty"`
}

// UploadResult is the per-image outcome of the upload stage.
type UploadResult struct {
	Success   bool   `json:"success"`
	SourceURL string `json:"source_url"`
	MediaID   int    `json:"media_id,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
	AltText   string `json:"alt_text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Publisher runs the pipeline. It holds the provider clients and the retry
// policy; the CMS client is passed per call because its credentials are
// per-project.
type Publisher struct {
	text   TextGenerator
	images ImageGenerator

	download *http.Client
	sleep    func(time.Duration)
	now      func() time.Time

	maxAttempts int
	backoffSeed time.Duration
	parallel    int

	onStage StageHook
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithDownloadClient replaces the HTTP client used to fetch generated images.
func WithDownloadClient(c *http.Client) Option {
	return func(p *Publisher) { p.download = c }
}

// WithSleep replaces the retry sleep function (tests inject a recorder).
func WithSleep(f func(time.Duration)) Option {
	return func(p *Publisher) { p.sleep = f }
}

// WithClock replaces the time source used for synthetic filenames.
func WithClock(f func() time.Time) Option {
	return func(p *Publisher) { p.now = f }
}

// WithUploadPolicy sets the retry budget, the backoff seed used when a 429
// carries no usable Retry-After header, and the upload worker-pool bound.
func WithUploadPolicy(maxAttempts int, backoffSeed time.Duration, parallel int) Option {
	return func(p *Publisher) {
		if maxAttempts > 0 {
			p.maxAttempts = maxAttempts
		}
		if backoffSeed > 0 {
			p.backoffSeed = backoffSeed
		}
		if parallel > 0 {
			p.parallel = parallel
		}
	}
}

// WithStageHook registers an observer for stage transitions.
func WithStageHook(h StageHook) Option {
	return func(p *Publisher) { p.onStage = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// NewPublisher creates a Publisher with the default upload policy:
// 4 attempts, 10s backoff seed, 3 parallel uploads.
func NewPublisher(text TextGenerator, images ImageGenerator, opts ...Option) *Publisher {
	p := &Publisher{
		text:        text,
		images:      images,
		download:    &http.Client{Timeout: 60 * time.Second},
		sleep:       time.Sleep,
		now:         time.Now,
		maxAttempts: 4,
		backoffSeed: 10 * time.Second,
		parallel:    3,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) setStage(project string, s Stage) {
	p.logger.Debug("pipeline: stage", slog.String("project", project), slog.String("stage", string(s)))
	if p.onStage != nil {
		p.onStage(project, s)
	}
}
