package agent

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/metrics"
	"github.com/starford/ansuz/internal/testutil"
)

func discardLogger() *slog.Logger {
	return testutil.TestLogger()
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	_, svc := testutil.TestService(t)
	r := NewRegistry(discardLogger())
	RegisterKnowledgeTools(r, svc)
	return r
}

func TestRegistry_RegistersAllKnowledgeTools(t *testing.T) {
	r := testRegistry(t)
	want := []string{
		"add_url_to_index", "update_instructions_file", "create_note",
		"get_knowledge_status", "get_available_tags", "search_by_tags",
		"get_instructions_context", "get_notes_index", "read_note",
		"get_url_index", "search_knowledge",
	}
	names := r.Names()
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := testRegistry(t)
	out := r.Execute(context.Background(), "no_such_tool", nil)
	if out != "Error: unknown tool: no_such_tool" {
		t.Errorf("out = %q", out)
	}
}

func TestRegistry_ExecuteKnowledgeTool(t *testing.T) {
	r := testRegistry(t)
	out := r.Execute(context.Background(), "add_url_to_index", map[string]interface{}{
		"url": "https://go.dev", "title": "Go",
		"confidence": 0.9, "relevance": 0.9,
	})
	if !strings.HasPrefix(out, "Successfully added URL to index: Go") {
		t.Errorf("out = %q", out)
	}

	out = r.Execute(context.Background(), "add_url_to_index", map[string]interface{}{
		"url": "https://go.dev", "title": "Go",
		"confidence": 0.1, "relevance": 0.9,
	})
	if !strings.HasPrefix(out, "REVIEW_REQUIRED: ") {
		t.Errorf("out = %q", out)
	}
}

type fakeRecorder struct {
	ops []metrics.Operation
}

func (f *fakeRecorder) Record(op metrics.Operation) error { f.ops = append(f.ops, op); return nil }
func (f *fakeRecorder) SessionSummary(string) (*metrics.Summary, error) {
	return &metrics.Summary{}, nil
}
func (f *fakeRecorder) ToolCounts() (map[string]int, error) { return nil, nil }
func (f *fakeRecorder) Close() error                        { return nil }

func TestRegistry_RecordsMetrics(t *testing.T) {
	r := testRegistry(t)
	rec := &fakeRecorder{}
	r.SetRecorder(rec, "session-1")

	r.Execute(context.Background(), "get_knowledge_status", nil)
	r.Execute(context.Background(), "create_note", map[string]interface{}{
		"title": "T", "content": "c", "confidence": 0.1, "relevance": 0.1,
	})

	if len(rec.ops) != 2 {
		t.Fatalf("ops = %+v", rec.ops)
	}
	if rec.ops[0].Tool != "get_knowledge_status" || rec.ops[0].Outcome != "ok" {
		t.Errorf("ops[0] = %+v", rec.ops[0])
	}
	if rec.ops[1].Outcome != "review_required" {
		t.Errorf("ops[1] = %+v", rec.ops[1])
	}
	if rec.ops[0].SessionID != "session-1" {
		t.Errorf("SessionID = %q", rec.ops[0].SessionID)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"done", "ok"},
		{"REVIEW_REQUIRED: low confidence", "review_required"},
		{"Error: boom", "error"},
		{"", "ok"},
	}
	for _, tt := range tests {
		if got := classify(tt.in); got != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefinitions_Order(t *testing.T) {
	r := testRegistry(t)
	defs := r.Definitions()
	if len(defs) != len(r.Names()) {
		t.Fatalf("len(defs) = %d", len(defs))
	}
	if defs[0].Function.Name != "add_url_to_index" {
		t.Errorf("defs[0] = %q", defs[0].Function.Name)
	}
	if defs[0].Type != "function" {
		t.Errorf("defs[0].Type = %q", defs[0].Type)
	}
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs(`{"url": "https://x", "confidence": 0.8}`)
	if err != nil {
		t.Fatal(err)
	}
	if argString(args, "url") != "https://x" {
		t.Errorf("url = %q", argString(args, "url"))
	}
	if argFloat(args, "confidence") != 0.8 {
		t.Errorf("confidence = %g", argFloat(args, "confidence"))
	}
	if argString(args, "missing") != "" || argFloat(args, "missing") != 0 {
		t.Error("missing keys not zero-valued")
	}

	if _, err := parseArgs(`{broken`); err == nil {
		t.Error("malformed JSON accepted")
	}

	args, err = parseArgs("")
	if err != nil || len(args) != 0 {
		t.Errorf("empty args = %v, %v", args, err)
	}
}

func TestRegistry_ExecuteMeasuresDuration(t *testing.T) {
	r := NewRegistry(discardLogger())
	r.Register(NewTool("sleepy", "sleeps", schema(nil, map[string]interface{}{}),
		func(ctx context.Context, args map[string]interface{}) string {
			time.Sleep(5 * time.Millisecond)
			return "done"
		}))
	rec := &fakeRecorder{}
	r.SetRecorder(rec, "s")

	r.Execute(context.Background(), "sleepy", nil)
	if len(rec.ops) != 1 || rec.ops[0].Duration <= 0 {
		t.Errorf("ops = %+v", rec.ops)
	}
}
