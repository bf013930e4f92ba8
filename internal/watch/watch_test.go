package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/sse"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []string
}

func (c *capturePublisher) PublishChange(store, path string) {
	c.mu.Lock()
	c.events = append(c.events, store+":"+path)
	c.mu.Unlock()
}

func (c *capturePublisher) has(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == event {
			return true
		}
	}
	return false
}

func testLayout() knowledge.Layout {
	return knowledge.Layout{
		InstructionsFile: "instructions.md",
		URLIndexFile:     "url_index.yaml",
		Topics: map[string]knowledge.Topic{
			"default": {Name: "default", Directory: "notes"},
		},
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T) (string, *capturePublisher) {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	pub := &capturePublisher{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	w := New(root, testLayout(), pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	return root, pub
}

func TestWatch_NoteChangePublished(t *testing.T) {
	root, pub := startWatcher(t)

	_ = os.WriteFile(filepath.Join(root, "notes", "20260827-new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return pub.has(sse.StoreNotes + ":notes/20260827-new.md")
	}, "note change not published")
}

func TestWatch_InstructionsAndURLIndex(t *testing.T) {
	root, pub := startWatcher(t)

	_ = os.WriteFile(filepath.Join(root, "instructions.md"), []byte("# Org"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "url_index.yaml"), []byte("urls: []"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return pub.has(sse.StoreInstructions+":instructions.md") &&
			pub.has(sse.StoreURLIndex+":url_index.yaml")
	}, "instructions/url index changes not published")
}

func TestWatch_IgnoresUnrelatedFiles(t *testing.T) {
	root, pub := startWatcher(t)

	_ = os.WriteFile(filepath.Join(root, "README.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "notes", ".ansuz-tmp-123"), []byte("x"), 0o644)

	time.Sleep(300 * time.Millisecond)
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 0 {
		t.Errorf("events = %v, want none", pub.events)
	}
}

func TestClassify(t *testing.T) {
	w := New("/root", testLayout(), &capturePublisher{}, nil)

	tests := []struct {
		rel    string
		store  string
		wantOK bool
	}{
		{"instructions.md", sse.StoreInstructions, true},
		{"url_index.yaml", sse.StoreURLIndex, true},
		{"notes/20260827-a.md", sse.StoreNotes, true},
		{"notes/_index.yaml", sse.StoreNotes, true},
		{"notes/other.txt", "", false},
		{"elsewhere/x.md", "", false},
		{"notes/.ansuz-tmp-99", "", false},
	}
	for _, tt := range tests {
		store, ok := w.classify(tt.rel)
		if ok != tt.wantOK || store != tt.store {
			t.Errorf("classify(%q) = %q, %v; want %q, %v", tt.rel, store, ok, tt.store, tt.wantOK)
		}
	}
}

func TestWatch_NewTopicDirectoryWatched(t *testing.T) {
	root, pub := startWatcher(t)

	// A directory created at runtime gets added to the watch list; files
	// inside it then produce events when the layout knows the topic.
	if err := os.Mkdir(filepath.Join(root, "notes", "archive"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "notes", "archive", "old.md"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return pub.has(sse.StoreNotes + ":notes/archive/old.md")
	}, "note in new subdirectory not published")
}
