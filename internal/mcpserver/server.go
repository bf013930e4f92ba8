// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the knowledge tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/scraper"
)

// Server wraps the MCP server with the knowledge tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *knowledge.Service
	scraper *scraper.Scraper
}

// New creates a new MCP server with all knowledge tools registered. The
// scraper may be nil, in which case fetch_url is not offered.
func New(svc *knowledge.Service, sc *scraper.Scraper) *Server {
	s := &Server{svc: svc, scraper: sc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	scoreOpts := func(opts ...mcp.ToolOption) []mcp.ToolOption {
		return append(opts,
			mcp.WithNumber("confidence", mcp.Required(),
				mcp.Description("How certain the information is correct, 0.0 to 1.0")),
			mcp.WithNumber("relevance", mcp.Required(),
				mcp.Description("How relevant the information is to the organization, 0.0 to 1.0")),
		)
	}

	s.mcp.AddTool(mcp.NewTool("add_url_to_index",
		scoreOpts(
			mcp.WithDescription("Add a URL to the knowledge URL index, or update it in place if already indexed. "+
				"Writes scored below the review thresholds are deferred for human approval."),
			mcp.WithString("url", mcp.Required(), mcp.Description("The URL to index")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable title of the page")),
			mcp.WithString("domain", mcp.Description("Organizational domain, e.g. engineering")),
			mcp.WithString("context", mcp.Description("Why this URL matters to the organization")),
			mcp.WithString("summary", mcp.Description("One or two sentence summary of the page")),
			mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		)...,
	), s.addURL)

	s.mcp.AddTool(mcp.NewTool("update_instructions_file",
		scoreOpts(
			mcp.WithDescription("Append to or replace a section of the organizational instructions document. "+
				"Writes scored below the review thresholds are deferred for human approval."),
			mcp.WithString("section", mcp.Required(), mcp.Description("Exact section heading, without the leading ##")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content to apply")),
			mcp.WithString("action", mcp.Description("append (default) or replace")),
		)...,
	), s.updateInstructions)

	s.mcp.AddTool(mcp.NewTool("create_note",
		scoreOpts(
			mcp.WithDescription("Create a Markdown note with YAML frontmatter in a topic directory and index it. "+
				"Read the ansuz://note-format resource for the frontmatter contract. "+
				"Writes scored below the review thresholds are deferred for human approval."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Note title; also used to derive the filename")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body of the note")),
			mcp.WithString("topic", mcp.Description("Topic directory; unknown topics fall back to the default")),
			mcp.WithString("domain", mcp.Description("Organizational domain, e.g. engineering")),
			mcp.WithString("category", mcp.Description("Note category; defaults from the topic when empty")),
			mcp.WithString("tags", mcp.Description("Comma-separated tags")),
			mcp.WithString("summary", mcp.Description("One or two sentence summary")),
			mcp.WithString("source_url", mcp.Description("Source URL the note derives from, if any")),
		)...,
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_knowledge_status",
		mcp.WithDescription("Summarize the knowledge stores: instructions sections, URL count, "+
			"per-topic note counts, and the configured review thresholds."),
	), s.status)

	s.mcp.AddTool(mcp.NewTool("get_available_tags",
		mcp.WithDescription("List every tag in the knowledge base ranked by usage, with per-source counts."),
	), s.availableTags)

	s.mcp.AddTool(mcp.NewTool("search_by_tags",
		mcp.WithDescription("Find notes and URLs carrying any of the given tags (OR match, case-insensitive)."),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tags to search for")),
	), s.searchByTags)

	s.mcp.AddTool(mcp.NewTool("get_instructions_context",
		mcp.WithDescription("Return the full organizational instructions document."),
	), s.instructionsContext)

	s.mcp.AddTool(mcp.NewTool("get_notes_index",
		mcp.WithDescription("List every indexed note with its topic, metadata, and summary."),
	), s.notesIndex)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of one note by filename."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Note filename, e.g. 20260827-deploy-checklist.md")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("get_url_index",
		mcp.WithDescription("List every indexed URL with its context, summary, and tags."),
	), s.urlIndex)

	s.mcp.AddTool(mcp.NewTool("search_knowledge",
		mcp.WithDescription("Substring search across the instructions document and all note files."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms; any term matching counts as a hit")),
	), s.searchKnowledge)

	if s.scraper != nil {
		s.mcp.AddTool(mcp.NewTool("fetch_url",
			mcp.WithDescription("Fetch a web page and return its title and readable text content."),
			mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch")),
		), s.fetchURL)
	}

	// Resource: note format and review scoring contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical note frontmatter format and review scoring rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

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

// result converts a knowledge outcome into a tool result. Every outcome is a
// text result: the string contract carries the failure prefixes, and the MCP
// error flag is reserved for malformed requests.
func result(o knowledge.Outcome) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(o.Render()), nil
}

// floatArg extracts a numeric argument, returning defaultVal when the key
// is missing or not a number (JSON numbers decode to float64).
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

func (s *Server) addURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.AddURL(knowledge.AddURLParams{
		URL:        url,
		Title:      title,
		Domain:     req.GetString("domain", ""),
		Context:    req.GetString("context", ""),
		Summary:    req.GetString("summary", ""),
		Tags:       req.GetString("tags", ""),
		Confidence: floatArg(req, "confidence", 0),
		Relevance:  floatArg(req, "relevance", 0),
	}))
}

func (s *Server) updateInstructions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section, err := req.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.UpdateInstructions(
		section,
		content,
		req.GetString("action", ""),
		floatArg(req, "confidence", 0),
		floatArg(req, "relevance", 0),
	))
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.CreateNote(knowledge.CreateNoteParams{
		Title:      title,
		Content:    content,
		Topic:      req.GetString("topic", ""),
		Domain:     req.GetString("domain", ""),
		Category:   req.GetString("category", ""),
		Tags:       req.GetString("tags", ""),
		Summary:    req.GetString("summary", ""),
		SourceURL:  req.GetString("source_url", ""),
		Confidence: floatArg(req, "confidence", 0),
		Relevance:  floatArg(req, "relevance", 0),
	}))
}

func (s *Server) status(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.svc.Status())
}

func (s *Server) availableTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.svc.AvailableTags())
}

func (s *Server) searchByTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.SearchByTags(tags))
}

func (s *Server) instructionsContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.svc.InstructionsContext())
}

func (s *Server) notesIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.svc.NotesOverview())
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.ReadNote(filename))
}

func (s *Server) urlIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.svc.URLOverview())
}

func (s *Server) searchKnowledge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.SearchKnowledge(query))
}

func (s *Server) fetchURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.scraper.Fetch(ctx, url)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: fetching %s: %v", url, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Title: %s\nURL: %s\n\n%s", page.Title, page.URL, page.Text)), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
