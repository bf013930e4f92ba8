package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, svc := testutil.TestService(t)
	return New(svc, nil)
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
	case "add_url_to_index":
		result, err = srv.addURL(ctx, req)
	case "update_instructions_file":
		result, err = srv.updateInstructions(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "get_knowledge_status":
		result, err = srv.status(ctx, req)
	case "get_available_tags":
		result, err = srv.availableTags(ctx, req)
	case "search_by_tags":
		result, err = srv.searchByTags(ctx, req)
	case "get_instructions_context":
		result, err = srv.instructionsContext(ctx, req)
	case "get_notes_index":
		result, err = srv.notesIndex(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "get_url_index":
		result, err = srv.urlIndex(ctx, req)
	case "search_knowledge":
		result, err = srv.searchKnowledge(ctx, req)
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

func TestAddURLAndSearchByTags(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "add_url_to_index", map[string]interface{}{
		"url": "https://go.dev/doc", "title": "Go Docs",
		"tags": "go, docs", "confidence": 0.9, "relevance": 0.8,
	})
	if !strings.HasPrefix(resultText(r), "Successfully added URL to index: Go Docs") {
		t.Errorf("add result = %q", resultText(r))
	}

	r = callTool(t, srv, "search_by_tags", map[string]interface{}{"tags": "docs"})
	if !strings.Contains(resultText(r), "https://go.dev/doc") {
		t.Errorf("search result = %q", resultText(r))
	}
}

func TestAddURL_ReviewRequired(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "add_url_to_index", map[string]interface{}{
		"url": "https://x", "title": "X",
		"confidence": 0.2, "relevance": 0.9,
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "REVIEW_REQUIRED: ") {
		t.Errorf("result = %q", text)
	}
	// A deferred write is a normal text response, not a protocol error.
	if r.IsError {
		t.Error("deferred write flagged as protocol error")
	}
}

func TestCreateNoteAndReadBack(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"title": "Deploy Guide", "content": "1. Tag the release.",
		"confidence": 0.9, "relevance": 0.9,
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "Successfully created note: notes/") {
		t.Fatalf("create result = %q", text)
	}
	filename := strings.TrimPrefix(text, "Successfully created note: notes/")

	r = callTool(t, srv, "read_note", map[string]interface{}{"filename": filename})
	if !strings.Contains(resultText(r), "1. Tag the release.") {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestReadNote_Missing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"filename": "nope.md"})
	text := resultText(r)
	if !strings.HasPrefix(text, "Note not found: nope.md") {
		t.Errorf("result = %q", text)
	}
}

func TestUpdateInstructionsAndContext(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "update_instructions_file", map[string]interface{}{
		"section": "Team", "content": "Three engineers.",
		"confidence": 0.9, "relevance": 0.9,
	})
	if resultText(r) != "Successfully updated instructions file section: Team (action: append)" {
		t.Errorf("update result = %q", resultText(r))
	}

	r = callTool(t, srv, "get_instructions_context", nil)
	if !strings.Contains(resultText(r), "## Team") {
		t.Errorf("context result = %q", resultText(r))
	}
}

func TestStatus_EmptyStores(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_knowledge_status", nil)
	text := resultText(r)
	for _, want := range []string{
		"Instructions File: Not created yet",
		"URL Index: Not created yet",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("status missing %q:\n%s", want, text)
		}
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "search_by_tags", map[string]interface{}{})
	if !r.IsError {
		t.Error("missing required argument not flagged")
	}
}

func TestNoteFormatResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readNoteFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %v", contents)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] = %T", contents[0])
	}
	if !strings.Contains(tc.Text, "REVIEW_REQUIRED") {
		t.Error("contract missing review scoring rules")
	}
}
