// Package testutil provides shared test helpers for setting up knowledge
// roots and services.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/storage"
)

// TestLogger returns a logger that discards all output.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRoot creates a temporary knowledge root with a storage.Provider.
func TestRoot(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	fs, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, fs
}

// TestLayout returns a minimal single-topic layout.
func TestLayout() knowledge.Layout {
	return knowledge.Layout{
		InstructionsFile: "instructions.md",
		URLIndexFile:     "url_index.yaml",
		Topics: map[string]knowledge.Topic{
			"default": {Name: "default", Directory: "notes"},
		},
	}
}

// TestService builds a knowledge store and review-gated service over a
// temporary root, with thresholds 0.7/0.6.
func TestService(t *testing.T) (*knowledge.Store, *knowledge.Service) {
	t.Helper()
	_, fs := TestRoot(t)
	store := knowledge.NewStore(fs, TestLayout())
	svc := knowledge.NewService(store, knowledge.Thresholds{Confidence: 0.7, Relevance: 0.6}, TestLogger())
	return store, svc
}
