// Package llm is a stateless adapter to the text-generation provider.
//
// The provider speaks two wire shapes: the classic chat-completions shape
// and the newer responses shape (used when the call site wants the built-in
// web-search tool). The call site selects the shape explicitly; the client
// never sniffs the payload to guess which parser applies.
package llm

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

// DefaultBaseURL is the provider endpoint used when the config leaves it
// empty.
const DefaultBaseURL = "https://api.openai.com/v1"

// Request describes one completion call.
type Request struct {
	Model  string
	Prompt string
	// UseResponses selects the responses-shape endpoint and enables the
	// provider's web-search tool.
	UseResponses bool
}

// Client calls the text-generation provider. It retains no state between
// calls.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a client. timeout should be generous; completions routinely
// take tens of seconds.
func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Complete sends the prompt and returns the generated text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("llm: text API key: %w", apperr.ErrAuth)
	}

	var (
		endpoint string
		payload  any
	)
	if req.UseResponses {
		endpoint = c.baseURL + "/responses"
		payload = responsesRequest{
			Model: req.Model,
			Input: req.Prompt,
			Tools: []responsesTool{{Type: "web_search"}},
		}
	} else {
		endpoint = c.baseURL + "/chat/completions"
		payload = chatRequest{
			Model:    req.Model,
			Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
		}
	}

	body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return "", err
	}

	if req.UseResponses {
		return parseResponses(body)
	}
	return parseChatCompletion(body)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("llm: %w: %s", apperr.ErrAuth, string(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("llm: %w", &apperr.UpstreamError{Status: resp.StatusCode, Body: string(body)})
	}
	return body, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type responsesTool struct {
	Type string `json:"type"`
}

type responsesRequest struct {
	Model string          `json:"model"`
	Input string          `json:"input"`
	Tools []responsesTool `json:"tools,omitempty"`
}

// parseChatCompletion extracts choices[0].message.content.
func parseChatCompletion(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("llm: chat shape: %w: %v", apperr.ErrParse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: chat shape: no choices: %w", apperr.ErrParse)
	}
	return parsed.Choices[0].Message.Content, nil
}

// parseResponses extracts the text of message items in the output array.
func parseResponses(body []byte) (string, error) {
	var parsed struct {
		Output []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("llm: responses shape: %w: %v", apperr.ErrParse, err)
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("llm: responses shape: no message output: %w", apperr.ErrParse)
	}
	return sb.String(), nil
}

// CleanJSON strips code fences and surrounding prose from a model reply that
// is supposed to be JSON.
func CleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around the JSON value.
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start := strings.Index(content, pair[0])
		end := strings.LastIndex(content, pair[1])
		if start >= 0 && end > start {
			return content[start : end+1]
		}
	}
	return content
}
