package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nordvik/plume/internal/project"
)

// toolName is how the assistant introduces itself in rendered prompts.
const toolName = "Plume"

// placeholderRe matches the delimiter-marked caption span the prompt asks the
// model to emit wherever an illustration belongs.
var placeholderRe = regexp.MustCompile(`\[\[Image of ([^\[\]]+)\]\]`)

// Placeholders returns the captions of all image placeholders in html, in
// document order.
func Placeholders(html string) []string {
	matches := placeholderRe.FindAllStringSubmatch(html, -1)
	captions := make([]string, 0, len(matches))
	for _, m := range matches {
		captions = append(captions, strings.TrimSpace(m[1]))
	}
	return captions
}

// renderPrompt builds the article prompt from the project configuration and
// the requested topic. Word count and section structure are instructions to
// the model, not locally enforced constraints.
func renderPrompt(proj project.Project, topic string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, an assistant that writes publish-ready blog articles as clean HTML (headings, paragraphs, lists; no <html> or <body> wrapper).\n", toolName)
	fmt.Fprintf(&sb, "Write an article about: %s.\n", topic)
	if proj.GenerationGoal != "" {
		fmt.Fprintf(&sb, "Overall goal and style: %s\n", proj.GenerationGoal)
	}
	if proj.ReferenceURL != "" {
		fmt.Fprintf(&sb, "Use this page as a reference for tone and structure: %s\n", proj.ReferenceURL)
	}
	if len(proj.Sections) > 0 {
		sb.WriteString("The article has the following sections, in this exact order, one heading each:\n")
		for i, sec := range proj.Sections {
			if sec.Heading != "" {
				fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, sec.Heading, sec.Instructions)
			} else {
				fmt.Fprintf(&sb, "%d. %s\n", i+1, sec.Instructions)
			}
		}
	}
	if proj.WordCount > 0 {
		fmt.Fprintf(&sb, "Target length: about %d words.\n", proj.WordCount)
	}
	sb.WriteString("Start with a single <h1> title. ")
	sb.WriteString("Where an image would enhance the text, insert a placeholder of the exact form [[Image of a descriptive caption]], for example [[Image of a futuristic cityscape]]. ")
	sb.WriteString("Integrate the placeholders naturally; do not group them.\n")

	return sb.String()
}

var (
	h1Re  = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	h2Re  = regexp.MustCompile(`(?is)<h2[^>]*>(.*?)</h2>`)
	tagRe = regexp.MustCompile(`<[^>]+>`)
)

// extractTitle pulls the article title from the first <h1> (or <h2>) of the
// generated HTML, falling back to a default.
func extractTitle(html string) string {
	for _, re := range []*regexp.Regexp{h1Re, h2Re} {
		if m := re.FindStringSubmatch(html); m != nil {
			title := strings.TrimSpace(tagRe.ReplaceAllString(m[1], ""))
			if title != "" {
				return title
			}
		}
	}
	return "Untitled article"
}

// normalizeStatus maps the requested status onto the statuses the CMS
// accepts, defaulting to publish when unrecognised.
func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "draft":
		return "draft"
	case "pending":
		return "pending"
	default:
		return "publish"
	}
}
