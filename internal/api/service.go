package api

import (
	"context"
	"time"

	"github.com/nordvik/plume/internal/pipeline"
	"github.com/nordvik/plume/internal/project"
	"github.com/nordvik/plume/internal/wordpress"
)

// Events is the subset of the SSE broker the API layer notifies. A nil
// Events is silently ignored, which keeps tests free of broker plumbing.
type Events interface {
	PublishProjectEvent(kind, name string)
}

// Service coordinates the project registry and the publishing pipeline for
// the API layer. The CMS client is built per call because its credentials
// live in the project record and may change between requests.
type Service struct {
	reg        *project.Registry
	pub        *pipeline.Publisher
	cmsTimeout time.Duration
	events     Events
}

// NewService creates a new API service.
func NewService(reg *project.Registry, pub *pipeline.Publisher, cmsTimeout time.Duration, events Events) *Service {
	if cmsTimeout <= 0 {
		cmsTimeout = 60 * time.Second
	}
	return &Service{reg: reg, pub: pub, cmsTimeout: cmsTimeout, events: events}
}

func (s *Service) notify(kind, name string) {
	if s.events != nil {
		s.events.PublishProjectEvent(kind, name)
	}
}

// CreateProject registers an empty project under name.
func (s *Service) CreateProject(name string) (*project.Project, error) {
	if err := s.reg.Create(name); err != nil {
		return nil, err
	}
	s.notify("created", name)
	return s.reg.Get(name)
}

// ListProjects returns all project names in lexicographic order.
func (s *Service) ListProjects() ([]string, error) {
	return s.reg.List()
}

// GetProject returns the stored record for name, or nil when absent.
func (s *Service) GetProject(name string) (*project.Project, error) {
	return s.reg.Get(name)
}

// ReplaceProject overwrites the record for name wholesale.
func (s *Service) ReplaceProject(name string, p project.Project) error {
	if err := s.reg.Replace(name, p); err != nil {
		return err
	}
	s.notify("updated", name)
	return nil
}

// DeleteProject removes the record for name.
func (s *Service) DeleteProject(name string) error {
	if err := s.reg.Delete(name); err != nil {
		return err
	}
	s.notify("deleted", name)
	return nil
}

// Secrets returns the masked previews of the stored provider keys.
func (s *Service) Secrets() (*SecretsResponse, error) {
	text, err := s.reg.TextAPIKey()
	if err != nil {
		return nil, err
	}
	image, err := s.reg.ImageAPIKey()
	if err != nil {
		return nil, err
	}
	return &SecretsResponse{
		TextAPIKey:  project.MaskKey(text),
		ImageAPIKey: project.MaskKey(image),
	}, nil
}

// SetSecret stores a provider key under key.
func (s *Service) SetSecret(key, value string) error {
	return s.reg.SetSecret(key, value)
}

// cms builds a CMS client from the project's stored credentials.
func (s *Service) cms(p project.Project) *wordpress.Client {
	return wordpress.New(wordpress.Config{
		BaseURL:  p.WordPressURL,
		Username: p.WordPressUser,
		Password: p.WordPressPass,
	}, s.cmsTimeout)
}

// GenerateText runs the text-generation stage for a project and topic.
func (s *Service) GenerateText(ctx context.Context, proj project.Project, topic string) (*pipeline.Article, error) {
	return s.pub.GenerateArticle(ctx, proj, topic)
}

// SuggestImagePrompts asks the model for illustration prompts for html.
func (s *Service) SuggestImagePrompts(ctx context.Context, proj project.Project, html string, n int) ([]string, error) {
	return s.pub.SuggestImagePrompts(ctx, proj, html, n)
}

// GenerateImages runs the image client once per prompt.
func (s *Service) GenerateImages(ctx context.Context, prompts []string) []pipeline.ImageResult {
	return s.pub.GenerateImages(ctx, prompts)
}

// ListCategories fetches the CMS category taxonomy for a project.
func (s *Service) ListCategories(ctx context.Context, proj project.Project) ([]wordpress.Category, error) {
	return s.cms(proj).ListCategories(ctx)
}

// UploadImages pushes generated images to the project's media endpoint.
func (s *Service) UploadImages(ctx context.Context, proj project.Project, reqs []pipeline.UploadRequest) []pipeline.UploadResult {
	return s.pub.UploadImages(ctx, s.cms(proj), reqs)
}

// Resolve replaces image placeholders in html with figure markup, either
// mechanically or via the model when useModel is set.
func (s *Service) Resolve(ctx context.Context, proj project.Project, html string, uploads []pipeline.UploadResult, useModel bool) (string, error) {
	if useModel {
		return s.pub.ResolveWithModel(ctx, proj, html, uploads)
	}
	return pipeline.ResolvePlaceholders(html, uploads), nil
}

// Publish runs the full pipeline for a project and topic.
func (s *Service) Publish(ctx context.Context, name string, proj project.Project, req PublishRequest) (*pipeline.RunReport, error) {
	return s.pub.PublishArticle(ctx, pipeline.PublishRequest{
		ProjectName: name,
		Project:     proj,
		Topic:       req.Topic,
		Status:      req.Status,
		Categories:  req.Categories,
	}, s.cms(proj))
}
