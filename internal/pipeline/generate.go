package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nordvik/plume/internal/apperr"
	"github.com/nordvik/plume/internal/imagegen"
	"github.com/nordvik/plume/internal/llm"
	"github.com/nordvik/plume/internal/project"
)

// GenerateArticle renders the project's prompt for topic and returns the
// generated article with its extracted title.
func (p *Publisher) GenerateArticle(ctx context.Context, proj project.Project, topic string) (*Article, error) {
	html, err := p.text.Complete(ctx, llm.Request{
		Model:  proj.Model,
		Prompt: renderPrompt(proj, topic),
		// The reference URL is worth a live look when the model supports it.
		UseResponses: proj.ReferenceURL != "",
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: generate article: %w", err)
	}
	return &Article{Title: extractTitle(html), HTML: html}, nil
}

// SuggestImagePrompts asks the model for n illustration prompts matching the
// article. The reply must be a JSON array of strings; fenced or prose-wrapped
// replies are tolerated.
func (p *Publisher) SuggestImagePrompts(ctx context.Context, proj project.Project, html string, n int) ([]string, error) {
	if n <= 0 {
		n = 3
	}
	prompt := fmt.Sprintf(
		"Suggest exactly %d image-generation prompts that would illustrate the article below. "+
			"Reply with a JSON array of strings only, no other text.\n\n%s", n, html)

	reply, err := p.text.Complete(ctx, llm.Request{Model: proj.Model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("pipeline: suggest image prompts: %w", err)
	}

	var prompts []string
	if err := json.Unmarshal([]byte(llm.CleanJSON(reply)), &prompts); err != nil {
		return nil, fmt.Errorf("pipeline: suggest image prompts: %w: %v", apperr.ErrParse, err)
	}
	return prompts, nil
}

// GenerateImages invokes the image client once per prompt. Failures are
// collected per item; one failed generation never aborts its siblings.
func (p *Publisher) GenerateImages(ctx context.Context, prompts []string) []ImageResult {
	results := make([]ImageResult, len(prompts))
	for i, prompt := range prompts {
		results[i] = ImageResult{Prompt: prompt}
		url, err := p.images.Generate(ctx, imagegen.Request{Prompt: prompt})
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].URL = url
	}
	return results
}
