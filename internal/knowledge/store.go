package knowledge

import (
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/storage"
)

// notesIndexName is the per-topic index filename inside a topic directory.
const notesIndexName = "_index.yaml"

// Layout names the persisted artifacts, all relative to the knowledge root.
type Layout struct {
	InstructionsFile string
	URLIndexFile     string
	Topics           map[string]Topic
}

// Store persists the three document kinds through a storage.Provider using
// whole-file rewrites.
//
// Every read-modify-write cycle is serialized per target file so concurrent
// tool invocations do not interleave on the same document. No lock is ever
// held across an external call.
type Store struct {
	fs     storage.Provider
	layout Layout
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store over the given provider and layout.
func NewStore(fs storage.Provider, layout Layout) *Store {
	return &Store{
		fs:     fs,
		layout: layout,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Layout returns the store's file layout.
func (s *Store) Layout() Layout {
	return s.layout
}

// lock acquires the per-file mutex for path and returns its release func.
func (s *Store) lock(path string) func() {
	s.mu.Lock()
	m, ok := s.locks[path]
	if !ok {
		m = &sync.Mutex{}
		s.locks[path] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// ResolveTopic looks a topic up by name. ok is false when the name is not
// configured; callers fall back to the default topic.
func (s *Store) ResolveTopic(name string) (Topic, bool) {
	t, ok := s.layout.Topics[name]
	return t, ok
}

// TopicNames returns the configured topic names in sorted order.
func (s *Store) TopicNames() []string {
	names := make([]string, 0, len(s.layout.Topics))
	for name := range s.layout.Topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadURLIndex returns all URL index entries. An absent file is an empty
// index; a present but unparseable file is a hard CorruptStore abort.
func (s *Store) ReadURLIndex() ([]URLIndexEntry, error) {
	ok, err := s.fs.Exists(s.layout.URLIndexFile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	data, err := s.fs.Read(s.layout.URLIndexFile)
	if err != nil {
		return nil, err
	}
	var doc urlIndexDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: url index %s: %v", apperr.ErrCorruptStore, s.layout.URLIndexFile, err)
	}
	return doc.URLs, nil
}

// UpsertURLEntry writes entry into the URL index, replacing an existing
// entry with the same URL in place (position preserved) or appending.
// The returned flag reports whether an existing entry was updated.
func (s *Store) UpsertURLEntry(entry URLIndexEntry) (updated bool, err error) {
	defer s.lock(s.layout.URLIndexFile)()

	entries, err := s.ReadURLIndex()
	if err != nil {
		return false, err
	}
	for i := range entries {
		if entries[i].URL == entry.URL {
			entries[i] = entry
			updated = true
			break
		}
	}
	if !updated {
		entries = append(entries, entry)
	}
	data, err := yaml.Marshal(urlIndexDoc{URLs: entries})
	if err != nil {
		return false, fmt.Errorf("encode url index: %w", err)
	}
	if err := s.fs.Write(s.layout.URLIndexFile, data); err != nil {
		return false, err
	}
	return updated, nil
}

// URLIndexExists reports whether the URL index file has been created.
func (s *Store) URLIndexExists() (bool, error) {
	return s.fs.Exists(s.layout.URLIndexFile)
}

// NotesIndexExists reports whether the topic's index file has been created.
func (s *Store) NotesIndexExists(topic Topic) (bool, error) {
	return s.fs.Exists(s.notesIndexPath(topic))
}

// ReadInstructions returns the instructions document text. present is false
// when the document has not been created yet.
func (s *Store) ReadInstructions() (text string, present bool, err error) {
	ok, err := s.fs.Exists(s.layout.InstructionsFile)
	if err != nil || !ok {
		return "", false, err
	}
	data, err := s.fs.Read(s.layout.InstructionsFile)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (s *Store) notesIndexPath(topic Topic) string {
	return path.Join(topic.Directory, notesIndexName)
}

// ReadNotesIndex returns a topic's index entries; absent index means empty.
func (s *Store) ReadNotesIndex(topic Topic) ([]NotesIndexEntry, error) {
	indexPath := s.notesIndexPath(topic)
	ok, err := s.fs.Exists(indexPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	data, err := s.fs.Read(indexPath)
	if err != nil {
		return nil, err
	}
	var doc notesIndexDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: notes index %s: %v", apperr.ErrCorruptStore, indexPath, err)
	}
	return doc.Notes, nil
}

// UpsertNotesIndexEntry writes entry into the topic's index, keyed by
// filename, and rewrites the index with the topic's name and description.
func (s *Store) UpsertNotesIndexEntry(topic Topic, entry NotesIndexEntry) error {
	indexPath := s.notesIndexPath(topic)
	defer s.lock(indexPath)()

	entries, err := s.ReadNotesIndex(topic)
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].Filename == entry.Filename {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	doc := notesIndexDoc{
		Topic:       topic.Name,
		Description: topic.Description,
		Notes:       entries,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode notes index: %w", err)
	}
	return s.fs.Write(indexPath, data)
}

// NoteExists reports whether a note file exists in the topic directory.
func (s *Store) NoteExists(topic Topic, filename string) (bool, error) {
	return s.fs.Exists(path.Join(topic.Directory, filename))
}

// WriteNoteFile serializes metadata as a frontmatter block followed by body
// and writes it to the topic directory. Returns the note's relative path.
// Filename collisions are resolved by the ingestion layer before this call.
func (s *Store) WriteNoteFile(topic Topic, filename string, meta NoteMetadata, body string) (string, error) {
	fm, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	content := fmt.Sprintf("---\n%s---\n\n%s", fm, body)
	rel := path.Join(topic.Directory, filename)
	if err := s.fs.Write(rel, []byte(content)); err != nil {
		return "", err
	}
	return rel, nil
}

// ReadNoteFile searches every configured topic directory for filename and
// returns its raw content. apperr.ErrNotFound when no topic has it.
func (s *Store) ReadNoteFile(filename string) (string, error) {
	for _, name := range s.TopicNames() {
		topic := s.layout.Topics[name]
		rel := path.Join(topic.Directory, filename)
		ok, err := s.fs.Exists(rel)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		data, err := s.fs.Read(rel)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("note %s: %w", filename, apperr.ErrNotFound)
}

// ListNoteFiles returns the relative paths of every note file in the topic
// directory.
func (s *Store) ListNoteFiles(topic Topic) ([]string, error) {
	return s.fs.List(topic.Directory)
}

// ReadFile exposes a raw read relative to the knowledge root, used by
// retrieval's substring search over note files.
func (s *Store) ReadFile(rel string) (string, error) {
	data, err := s.fs.Read(rel)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
