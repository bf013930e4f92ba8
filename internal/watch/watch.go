// Package watch observes the knowledge root for out-of-band file changes
// (editors, git pulls, sync tools) and publishes them to the SSE broker so
// dashboard clients refresh.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/sse"
)

// Publisher receives classified change notifications. *sse.Broker satisfies it.
type Publisher interface {
	PublishChange(store, path string)
}

// Watcher classifies file events on the knowledge root against the store
// layout.
type Watcher struct {
	root   string
	layout knowledge.Layout
	pub    Publisher
	logger *slog.Logger
}

// New creates a Watcher over the knowledge root directory.
func New(root string, layout knowledge.Layout, pub Publisher, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{root: root, layout: layout, pub: pub, logger: logger}
}

// Run starts an fsnotify watcher on the knowledge root and publishes change
// events until ctx is cancelled. New directories created at runtime are
// added to the watch list. Temp files from atomic writes are ignored.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}

	w.logger.Info("watcher: started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) {
	absPath := ev.Name

	// New directories are added to the watch list so notes in fresh topic
	// directories are observed.
	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(fw, absPath); addErr != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
			}
			return
		}
	}

	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	rel, relErr := filepath.Rel(w.root, absPath)
	if relErr != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	store, ok := w.classify(rel)
	if !ok {
		return
	}

	w.logger.Debug("watcher: change",
		slog.String("path", rel),
		slog.String("store", store),
		slog.String("op", ev.Op.String()))
	w.pub.PublishChange(store, rel)
}

// classify maps a root-relative path to the store it belongs to. Paths that
// are not part of the layout (temp files, unrelated files) report ok=false.
func (w *Watcher) classify(rel string) (string, bool) {
	base := filepath.Base(rel)
	if strings.HasPrefix(base, ".") || strings.Contains(base, ".ansuz-tmp-") {
		return "", false
	}

	switch rel {
	case w.layout.InstructionsFile:
		return sse.StoreInstructions, true
	case w.layout.URLIndexFile:
		return sse.StoreURLIndex, true
	}

	for _, topic := range w.layout.Topics {
		dir := topic.Directory + "/"
		if !strings.HasPrefix(rel, dir) {
			continue
		}
		if strings.HasSuffix(rel, ".md") || base == "_index.yaml" {
			return sse.StoreNotes, true
		}
	}
	return "", false
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
