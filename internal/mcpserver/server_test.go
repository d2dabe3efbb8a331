package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nordvik/plume/internal/llm"
	"github.com/nordvik/plume/internal/pipeline"
	"github.com/nordvik/plume/internal/project"
	"github.com/nordvik/plume/internal/testutil"
)

type stubText struct {
	reply string
}

func (s stubText) Complete(_ context.Context, _ llm.Request) (string, error) {
	return s.reply, nil
}

func testServer(t *testing.T, reply string) (*Server, *project.Registry) {
	t.Helper()

	reg := testutil.TestRegistry(t)

	pub := pipeline.NewPublisher(stubText{reply: reply}, nil,
		pipeline.WithSleep(func(time.Duration) {}),
	)
	return New(reg, pub), reg
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_projects":
		result, err = srv.listProjects(ctx, req)
	case "get_project":
		result, err = srv.getProject(ctx, req)
	case "generate_article":
		result, err = srv.generateArticle(ctx, req)
	case "suggest_image_prompts":
		result, err = srv.suggestImagePrompts(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListProjectsEmpty(t *testing.T) {
	srv, _ := testServer(t, "")

	result := callTool(t, srv, "list_projects", nil)
	if got := resultText(result); got != "no projects configured" {
		t.Errorf("result = %q", got)
	}
}

func TestListProjects(t *testing.T) {
	srv, reg := testServer(t, "")
	for _, name := range []string{"beta", "alpha"} {
		if err := reg.Create(name); err != nil {
			t.Fatal(err)
		}
	}

	result := callTool(t, srv, "list_projects", nil)
	if got := resultText(result); got != "alpha\nbeta" {
		t.Errorf("result = %q, want sorted names", got)
	}
}

func TestGetProjectMasksPassword(t *testing.T) {
	srv, reg := testServer(t, "")
	if err := reg.Create("blog"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Replace("blog", project.Project{
		WordPressURL:  "https://cms.example",
		WordPressUser: "admin",
		WordPressPass: "super-secret-password",
	}); err != nil {
		t.Fatal(err)
	}

	result := callTool(t, srv, "get_project", map[string]interface{}{"name": "blog"})
	text := resultText(result)
	if strings.Contains(text, "super-secret-password") {
		t.Error("tool output leaked the CMS password")
	}
	if !strings.Contains(text, "https://cms.example") {
		t.Errorf("output missing site URL: %q", text)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	srv, _ := testServer(t, "")

	result := callTool(t, srv, "get_project", map[string]interface{}{"name": "ghost"})
	if !result.IsError {
		t.Error("expected error result for unknown project")
	}
}

func TestGenerateArticle(t *testing.T) {
	srv, reg := testServer(t, "<h1>Hello</h1><p>body</p>")
	if err := reg.Create("blog"); err != nil {
		t.Fatal(err)
	}

	result := callTool(t, srv, "generate_article", map[string]interface{}{
		"project": "blog",
		"topic":   "greetings",
	})
	text := resultText(result)
	if !strings.Contains(text, `"title": "Hello"`) {
		t.Errorf("output missing extracted title: %q", text)
	}
}

func TestSuggestImagePrompts(t *testing.T) {
	srv, reg := testServer(t, `["a harbor at dawn","a tram on a hill"]`)
	if err := reg.Create("blog"); err != nil {
		t.Fatal(err)
	}

	result := callTool(t, srv, "suggest_image_prompts", map[string]interface{}{
		"project": "blog",
		"html":    "<p>Lisbon</p>",
	})
	if got := resultText(result); got != "a harbor at dawn\na tram on a hill" {
		t.Errorf("result = %q", got)
	}
}
