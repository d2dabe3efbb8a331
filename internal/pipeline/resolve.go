package pipeline

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/nordvik/plume/internal/apperr"
	"github.com/nordvik/plume/internal/llm"
	"github.com/nordvik/plume/internal/project"
)

// ResolvePlaceholders replaces each image placeholder in document order with
// the media reference at the same position in uploads. A position whose
// upload failed (or is missing) drops the placeholder token so no marker
// leaks into the published article.
func ResolvePlaceholders(doc string, uploads []UploadResult) string {
	i := 0
	return placeholderRe.ReplaceAllStringFunc(doc, func(token string) string {
		idx := i
		i++
		if idx >= len(uploads) || !uploads[idx].Success {
			return ""
		}
		up := uploads[idx]
		caption := strings.TrimSpace(placeholderRe.FindStringSubmatch(token)[1])
		alt := up.AltText
		if alt == "" {
			alt = caption
		}
		return fmt.Sprintf(
			`<figure class="wp-block-image"><img src=%q alt=%q class="wp-image-%d"/><figcaption>%s</figcaption></figure>`,
			up.MediaURL, alt, up.MediaID, html.EscapeString(caption))
	})
}

// ResolveWithModel delegates the placeholder merge to the text client: the
// model receives the article and the uploaded media and must return the
// complete article with every placeholder replaced.
//
// The reply is validated by placeholder-count equality only: each uploaded
// media URL must appear exactly as many times as its placeholder did, and no
// placeholder token may survive. Placement quality is not checked.
func (p *Publisher) ResolveWithModel(ctx context.Context, proj project.Project, doc string, uploads []UploadResult) (string, error) {
	placeholders := Placeholders(doc)
	if len(placeholders) == 0 {
		return doc, nil
	}

	var sb strings.Builder
	sb.WriteString("Replace every [[Image of ...]] placeholder in the article below with an HTML <img> tag ")
	sb.WriteString("for the matching uploaded image, in order. Use each image exactly once. ")
	sb.WriteString("Return the complete article HTML and nothing else.\n\nImages, in placeholder order:\n")
	for i, up := range uploads {
		if up.Success {
			fmt.Fprintf(&sb, "%d. url=%s media_id=%d alt=%q\n", i+1, up.MediaURL, up.MediaID, up.AltText)
		} else {
			fmt.Fprintf(&sb, "%d. unavailable (drop this placeholder)\n", i+1)
		}
	}
	sb.WriteString("\nArticle:\n")
	sb.WriteString(doc)

	merged, err := p.text.Complete(ctx, llm.Request{Model: proj.Model, Prompt: sb.String()})
	if err != nil {
		return "", fmt.Errorf("pipeline: resolve with model: %w", err)
	}

	if err := validateMerge(merged, uploads); err != nil {
		return "", err
	}
	return merged, nil
}

func validateMerge(merged string, uploads []UploadResult) error {
	if n := len(Placeholders(merged)); n > 0 {
		return fmt.Errorf("pipeline: merged article still has %d placeholders: %w", n, apperr.ErrParse)
	}
	for _, up := range uploads {
		if !up.Success {
			continue
		}
		if n := strings.Count(merged, up.MediaURL); n != 1 {
			return fmt.Errorf("pipeline: media %q referenced %d times, want 1: %w", up.MediaURL, n, apperr.ErrParse)
		}
	}
	return nil
}
