// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Plume publishing tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nordvik/plume/internal/pipeline"
	"github.com/nordvik/plume/internal/project"
	"github.com/nordvik/plume/internal/wordpress"
)

// Server wraps the MCP server with Plume tools.
type Server struct {
	mcp *server.MCPServer
	reg *project.Registry
	pub *pipeline.Publisher
}

// New creates a new MCP server with all Plume tools registered.
func New(reg *project.Registry, pub *pipeline.Publisher) *Server {
	s := &Server{reg: reg, pub: pub}

	s.mcp = server.NewMCPServer(
		"Plume",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the names of all configured publishing projects."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Read the full configuration of one publishing project."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
	), s.getProject)

	s.mcp.AddTool(mcp.NewTool("generate_article",
		mcp.WithDescription("Generate article HTML for a project and topic without publishing it. "+
			"The result may contain [[Image of ...]] placeholders where illustrations belong."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic to write about")),
	), s.generateArticle)

	s.mcp.AddTool(mcp.NewTool("suggest_image_prompts",
		mcp.WithDescription("Suggest image-generation prompts that would illustrate an article."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("html", mcp.Required(), mcp.Description("Article HTML to illustrate")),
		mcp.WithNumber("count", mcp.Description("Number of prompts to suggest (default 3)")),
	), s.suggestImagePrompts)

	s.mcp.AddTool(mcp.NewTool("publish_article",
		mcp.WithDescription("Run the full publishing pipeline: generate the article, generate and "+
			"upload illustrations, resolve placeholders, and create the post on the project's site."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic to write about")),
		mcp.WithString("status", mcp.Description("Post status: publish, draft, or pending (default publish)")),
	), s.publishArticle)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.reg.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no projects configured"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) getProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	proj, err := s.reg.Get(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if proj == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	// Never leak the CMS password through tool output.
	proj.WordPressPass = project.MaskKey(proj.WordPressPass)
	out, _ := json.MarshalIndent(proj, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) loadProject(req mcp.CallToolRequest) (string, *project.Project, *mcp.CallToolResult) {
	name, err := req.RequireString("project")
	if err != nil {
		return "", nil, mcp.NewToolResultError(err.Error())
	}
	proj, err := s.reg.Get(name)
	if err != nil {
		return "", nil, mcp.NewToolResultError(err.Error())
	}
	if proj == nil {
		return "", nil, mcp.NewToolResultError(fmt.Sprintf("not found: %s", name))
	}
	return name, proj, nil
}

func (s *Server) generateArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, proj, errResult := s.loadProject(req)
	if errResult != nil {
		return errResult, nil
	}
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	article, err := s.pub.GenerateArticle(ctx, *proj, topic)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(article, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) suggestImagePrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, proj, errResult := s.loadProject(req)
	if errResult != nil {
		return errResult, nil
	}
	html, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count := req.GetInt("count", 3)

	prompts, err := s.pub.SuggestImagePrompts(ctx, *proj, html, count)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(prompts, "\n")), nil
}

func (s *Server) publishArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, proj, errResult := s.loadProject(req)
	if errResult != nil {
		return errResult, nil
	}
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status := req.GetString("status", "")

	host := wordpress.New(wordpress.Config{
		BaseURL:  proj.WordPressURL,
		Username: proj.WordPressUser,
		Password: proj.WordPressPass,
	}, 60*time.Second)

	report, err := s.pub.PublishArticle(ctx, pipeline.PublishRequest{
		ProjectName: name,
		Project:     *proj,
		Topic:       topic,
		Status:      status,
	}, host)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
