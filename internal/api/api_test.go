package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/testutil"
)

// testEnv sets up a temp knowledge root, service, and router for testing.
// authEnabled=false means disabled mode; a non-empty token means token mode.
func testEnv(t *testing.T, authToken string) (*knowledge.Service, http.Handler) {
	t.Helper()

	_, fs := testutil.TestRoot(t)
	layout := knowledge.Layout{
		InstructionsFile: "instructions.md",
		URLIndexFile:     "url_index.yaml",
		Topics: map[string]knowledge.Topic{
			"default": {Name: "default", Directory: "notes", Description: "General notes"},
			"projects": {
				Name: "projects", Directory: "projects", Description: "Project notes",
				Defaults: knowledge.FrontmatterDefaults{Category: "project", Priority: "high"},
			},
		},
	}
	store := knowledge.NewStore(fs, layout)
	svc := knowledge.NewService(store, knowledge.Thresholds{Confidence: 0.7, Relevance: 0.6}, testutil.TestLogger())

	apiSvc := NewService(store, svc, nil)
	router := NewRouter(apiSvc, authToken != "", authToken, nil)
	return svc, router
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedNote(t *testing.T, svc *knowledge.Service, title, topic, tags string) string {
	t.Helper()
	out := svc.CreateNote(knowledge.CreateNoteParams{
		Title: title, Content: "Body of " + title, Topic: topic,
		Domain: "engineering", Tags: tags, Summary: "About " + title,
		Confidence: 0.9, Relevance: 0.8,
	})
	if out.Kind != knowledge.KindOK {
		t.Fatalf("seed note %q: %+v", title, out)
	}
	// Message ends with the relative path of the new file.
	msg := out.Message
	i := strings.LastIndex(msg, ": ")
	return msg[i+2:]
}

func TestStatusEmpty(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Instructions.Present {
		t.Error("instructions present on empty store")
	}
	if resp.URLCount != 0 {
		t.Errorf("url count = %d", resp.URLCount)
	}
	if len(resp.Topics) != 2 {
		t.Fatalf("topics = %+v", resp.Topics)
	}
	if resp.Topics[0].Name != "default" || resp.Topics[1].Name != "projects" {
		t.Errorf("topic order = %q, %q", resp.Topics[0].Name, resp.Topics[1].Name)
	}
	if resp.Thresholds.Confidence != 0.7 || resp.Thresholds.Relevance != 0.6 {
		t.Errorf("thresholds = %+v", resp.Thresholds)
	}
}

func TestStatusPopulated(t *testing.T) {
	svc, router := testEnv(t, "")
	seedNote(t, svc, "Deploy Checklist", "projects", "infra")
	out := svc.AddURL(knowledge.AddURLParams{
		URL: "https://go.dev", Title: "Go", Confidence: 0.9, Relevance: 0.9,
	})
	if out.Kind != knowledge.KindOK {
		t.Fatalf("seed url: %+v", out)
	}

	var resp StatusResponse
	w := get(t, router, "/status")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.URLCount != 1 {
		t.Errorf("url count = %d, want 1", resp.URLCount)
	}
	for _, topic := range resp.Topics {
		want := 0
		if topic.Name == "projects" {
			want = 1
		}
		if topic.NoteCount != want {
			t.Errorf("topic %s note count = %d, want %d", topic.Name, topic.NoteCount, want)
		}
	}
}

func TestTagsRanked(t *testing.T) {
	svc, router := testEnv(t, "")
	seedNote(t, svc, "Style Guide", "default", "go, style")
	seedNote(t, svc, "Review Process", "default", "go")
	svc.AddURL(knowledge.AddURLParams{
		URL: "https://go.dev/doc", Title: "Go Docs", Tags: "go, docs",
		Confidence: 0.9, Relevance: 0.9,
	})

	var resp TagsResponse
	w := get(t, router, "/tags")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tags) != 3 {
		t.Fatalf("tags = %+v", resp.Tags)
	}
	top := resp.Tags[0]
	if top.Tag != "go" || top.Notes != 2 || top.URLs != 1 {
		t.Errorf("top tag = %+v", top)
	}
}

func TestListNotesWithTagFilter(t *testing.T) {
	svc, router := testEnv(t, "")
	seedNote(t, svc, "Style Guide", "default", "go, style")
	seedNote(t, svc, "Vault Rollout", "projects", "Security")

	var resp NoteListResponse
	w := get(t, router, "/notes")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}

	// Tag filter is case-insensitive.
	w = get(t, router, "/notes?tag=security")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Notes[0].Title != "Vault Rollout" {
		t.Errorf("filtered = %+v", resp)
	}
	if resp.Notes[0].Topic != "projects" || !strings.HasPrefix(resp.Notes[0].Path, "projects/") {
		t.Errorf("provenance = %+v", resp.Notes[0])
	}
}

func TestGetNote(t *testing.T) {
	svc, router := testEnv(t, "")
	path := seedNote(t, svc, "Style Guide", "default", "go")
	filename := strings.TrimPrefix(path, "notes/")

	w := get(t, router, "/notes/default/"+filename)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatal(err)
	}
	if note.Title != "Style Guide" {
		t.Errorf("title = %q", note.Title)
	}
	if !strings.Contains(note.Body, "Body of Style Guide") {
		t.Errorf("body = %q", note.Body)
	}
	if note.Frontmatter["domain"] != "engineering" {
		t.Errorf("frontmatter = %v", note.Frontmatter)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	_, router := testEnv(t, "")

	if w := get(t, router, "/notes/default/nope.md"); w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}
	if w := get(t, router, "/notes/bogus/nope.md"); w.Code != http.StatusNotFound {
		t.Errorf("unknown topic = %d, want 404", w.Code)
	}
}

func TestURLList(t *testing.T) {
	svc, router := testEnv(t, "")
	svc.AddURL(knowledge.AddURLParams{
		URL: "https://go.dev", Title: "Go", Confidence: 0.9, Relevance: 0.9,
	})

	w := get(t, router, "/urls")
	var resp struct {
		URLs  []knowledge.URLIndexEntry `json:"urls"`
		Total int                       `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.URLs[0].URL != "https://go.dev" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestInstructions(t *testing.T) {
	svc, router := testEnv(t, "")

	var resp InstructionsResponse
	w := get(t, router, "/instructions")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Present {
		t.Error("present on empty store")
	}

	out := svc.UpdateInstructions("Team", "Two squads.", "append", 0.9, 0.9)
	if out.Kind != knowledge.KindOK {
		t.Fatalf("seed instructions: %+v", out)
	}

	w = get(t, router, "/instructions")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Present || len(resp.Sections) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Sections[0].Name != "Team" || resp.Sections[0].Body != "Two squads." {
		t.Errorf("section = %+v", resp.Sections[0])
	}
}

func TestSearch(t *testing.T) {
	svc, router := testEnv(t, "")
	seedNote(t, svc, "Style Guide", "default", "go")

	w := get(t, router, "/search?q=style")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Result, "Style Guide") {
		t.Errorf("result = %q", resp.Result)
	}

	w = get(t, router, "/search?tags=go")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Result, "Knowledge matching tags: go") {
		t.Errorf("tag result = %q", resp.Result)
	}

	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("no query = %d, want 400", w.Code)
	}
	if w := get(t, router, "/search?q=a&tags=b"); w.Code != http.StatusBadRequest {
		t.Errorf("both params = %d, want 400", w.Code)
	}
}

func TestMetricsSummaryWithoutRecorder(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/metrics/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp MetricsSummaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 {
		t.Errorf("total = %d", resp.Total)
	}
}

func TestAuthToken(t *testing.T) {
	_, router := testEnv(t, "secret-token")

	if w := get(t, router, "/status"); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthDisabledAllowsAll(t *testing.T) {
	_, router := testEnv(t, "")
	if w := get(t, router, "/status"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", w.Code)
	}
}
