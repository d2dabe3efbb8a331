package api

import (
	"github.com/nordvik/plume/internal/pipeline"
	"github.com/nordvik/plume/internal/project"
	"github.com/nordvik/plume/internal/wordpress"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name string `json:"name" example:"travel-blog" validate:"required"`
}

// ProjectListResponse wraps the sorted project name listing.
type ProjectListResponse struct {
	Projects []string `json:"projects" validate:"required"`
}

// ProjectDetail is the full project response type (aliased from the domain layer).
type ProjectDetail = project.Project

// SecretsResponse reports which provider keys are set, with masked previews.
type SecretsResponse struct {
	TextAPIKey  string `json:"text_api_key" example:"sk-te..."`
	ImageAPIKey string `json:"image_api_key" example:"idg_a..."`
}

// SetSecretRequest is the request body for storing a provider key.
type SetSecretRequest struct {
	Value string `json:"value" validate:"required"`
}

// GenerateTextRequest is the request body for article text generation.
type GenerateTextRequest struct {
	Project string `json:"project" example:"travel-blog" validate:"required"`
	Topic   string `json:"topic" example:"Weekend in Lisbon" validate:"required"`
}

// SuggestPromptsRequest is the request body for image prompt suggestions.
type SuggestPromptsRequest struct {
	Project string `json:"project" example:"travel-blog" validate:"required"`
	HTML    string `json:"html" validate:"required"`
	Count   int    `json:"count" example:"3"`
}

// SuggestPromptsResponse wraps suggested image prompts.
type SuggestPromptsResponse struct {
	Prompts []string `json:"prompts" validate:"required"`
}

// GenerateImagesRequest is the request body for batch image generation.
type GenerateImagesRequest struct {
	Prompts []string `json:"prompts" validate:"required"`
}

// GenerateImagesResponse wraps per-prompt image generation outcomes.
type GenerateImagesResponse struct {
	Images []pipeline.ImageResult `json:"images" validate:"required"`
}

// CategoryListResponse wraps the CMS category listing.
type CategoryListResponse struct {
	Categories []wordpress.Category `json:"categories" validate:"required"`
}

// UploadImagesRequest is the request body for batch media upload.
type UploadImagesRequest struct {
	Images []pipeline.UploadRequest `json:"images" validate:"required"`
}

// UploadImagesResponse wraps per-image upload outcomes, in input order.
type UploadImagesResponse struct {
	Uploads []pipeline.UploadResult `json:"uploads" validate:"required"`
}

// ResolveRequest is the request body for placeholder resolution.
type ResolveRequest struct {
	HTML     string                  `json:"html" validate:"required"`
	Uploads  []pipeline.UploadResult `json:"uploads" validate:"required"`
	UseModel bool                    `json:"use_model"`
}

// ResolveResponse carries the document with placeholders replaced.
type ResolveResponse struct {
	HTML string `json:"html" validate:"required"`
}

// PublishRequest is the request body for a full pipeline run.
type PublishRequest struct {
	Topic      string `json:"topic" example:"Weekend in Lisbon" validate:"required"`
	Status     string `json:"status" example:"draft"`
	Categories []int  `json:"categories"`
}

// RunReport is the pipeline run outcome (aliased from the domain layer).
type RunReport = pipeline.RunReport
