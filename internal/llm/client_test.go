package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nordvik/plume/internal/apperr"
)

func testClient(srv *httptest.Server) *Client {
	return New("test-key", srv.URL, 5*time.Second)
}

func TestCompleteChatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"generated text"}}]}`))
	}))
	defer srv.Close()

	got, err := testClient(srv).Complete(context.Background(), Request{Model: "gpt-4o", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "generated text" {
		t.Errorf("text = %q", got)
	}
}

func TestCompleteResponsesShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"output": [
				{"type": "web_search_call", "content": []},
				{"type": "message", "content": [{"type": "output_text", "text": "part one "}, {"type": "output_text", "text": "part two"}]}
			]
		}`))
	}))
	defer srv.Close()

	got, err := testClient(srv).Complete(context.Background(), Request{Model: "gpt-4o", Prompt: "hi", UseResponses: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "part one part two" {
		t.Errorf("text = %q", got)
	}
}

func TestCompleteShapesNotConflated(t *testing.T) {
	// A responses payload must not satisfy the chat parser.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[{"type":"message","content":[{"type":"output_text","text":"x"}]}]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestCompleteMissingKey(t *testing.T) {
	c := New("", "http://127.0.0.1:0", time.Second)
	_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	if !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
}

func TestCompleteUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	if !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := testClient(srv).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	ue := apperr.Upstream(err)
	if ue == nil {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.Status != http.StatusBadGateway || ue.Body != "upstream exploded" {
		t.Errorf("upstream = %+v", ue)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"Here you go:\n[\"x\",\"y\"]", `["x","y"]`},
		{`{"plain":true}`, `{"plain":true}`},
		{"```\n[1,2]\n```", `[1,2]`},
	}
	for _, tc := range cases {
		if got := CleanJSON(tc.in); got != tc.want {
			t.Errorf("CleanJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
