package pipeline

import (
	"context"
	"fmt"

	"github.com/nordvik/plume/internal/project"
	"github.com/nordvik/plume/internal/wordpress"
)

// PublishRequest describes one full pipeline run.
type PublishRequest struct {
	ProjectName string
	Project     project.Project
	Topic       string
	// Status is normalised to publish/draft/pending, defaulting to publish.
	Status     string
	Categories []int
}

// RunReport is the outcome of a full pipeline run. Per-image outcomes are
// reported even when the run as a whole succeeds with partial failures.
type RunReport struct {
	Stage   Stage                 `json:"stage"`
	Article *Article              `json:"article,omitempty"`
	Images  []ImageResult         `json:"images"`
	Uploads []UploadResult        `json:"uploads"`
	Post    *wordpress.PostResult `json:"post,omitempty"`
}

// Publish creates the post on the CMS. Any non-2xx response is terminal with
// the upstream status and body surfaced verbatim to the caller.
func (p *Publisher) Publish(ctx context.Context, host MediaHost, article Article, status string, categories []int) (*wordpress.PostResult, error) {
	title := article.Title
	if title == "" {
		title = extractTitle(article.HTML)
	}
	post, err := host.CreatePost(ctx, wordpress.Post{
		Title:      title,
		Content:    article.HTML,
		Status:     normalizeStatus(status),
		Categories: categories,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: publish: %w", err)
	}
	return post, nil
}

// PublishArticle runs the whole state machine: generate the text, generate
// one image per placeholder, upload the generated images, merge the media
// back into the article, and create the post. A text-generation or post-
// creation failure fails the run; per-image failures are tolerated and
// reported in the returned RunReport.
func (p *Publisher) PublishArticle(ctx context.Context, req PublishRequest, host MediaHost) (*RunReport, error) {
	report := &RunReport{
		Stage:   StageDraft,
		Images:  []ImageResult{},
		Uploads: []UploadResult{},
	}
	p.setStage(req.ProjectName, StageDraft)

	fail := func(err error) (*RunReport, error) {
		report.Stage = StageFailed
		p.setStage(req.ProjectName, StageFailed)
		return report, err
	}

	article, err := p.GenerateArticle(ctx, req.Project, req.Topic)
	if err != nil {
		return fail(err)
	}
	report.Article = article
	report.Stage = StageTextGenerated
	p.setStage(req.ProjectName, StageTextGenerated)

	// One image call per placeholder caption, in document order.
	captions := Placeholders(article.HTML)
	report.Images = p.GenerateImages(ctx, captions)
	report.Stage = StageImagesGenerated
	p.setStage(req.ProjectName, StageImagesGenerated)

	// Upload only the successfully generated images, but keep the
	// per-placeholder alignment: a failed generation occupies its slot as a
	// failed upload so placeholder i always pairs with uploads[i].
	var pending []UploadRequest
	pendingIdx := make([]int, 0, len(report.Images))
	uploads := make([]UploadResult, len(report.Images))
	for i, img := range report.Images {
		if img.Error != "" {
			uploads[i] = UploadResult{SourceURL: img.URL, AltText: img.Prompt, Error: img.Error}
			continue
		}
		pending = append(pending, UploadRequest{SourceURL: img.URL, AltText: img.Prompt})
		pendingIdx = append(pendingIdx, i)
	}
	for j, res := range p.UploadImages(ctx, host, pending) {
		uploads[pendingIdx[j]] = res
	}
	report.Uploads = uploads
	report.Stage = StageMediaUploaded
	p.setStage(req.ProjectName, StageMediaUploaded)

	article.HTML = ResolvePlaceholders(article.HTML, uploads)
	report.Stage = StagePlaceholdersResolved
	p.setStage(req.ProjectName, StagePlaceholdersResolved)

	post, err := p.Publish(ctx, host, *article, req.Status, req.Categories)
	if err != nil {
		return fail(err)
	}
	report.Post = post
	report.Stage = StagePublished
	p.setStage(req.ProjectName, StagePublished)

	return report, nil
}
