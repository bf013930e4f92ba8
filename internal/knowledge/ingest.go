package knowledge

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
)

// contentPreviewLen bounds how much proposed content a review explanation
// echoes back to the human reviewer.
const contentPreviewLen = 200

// Service exposes the knowledge ingestion and retrieval operations. Every
// operation is synchronous and self-contained: affected files are re-read
// from storage on each call, so callers share no in-memory state.
type Service struct {
	store      *Store
	thresholds Thresholds
	logger     *slog.Logger
}

// NewService creates a Service over the store with the configured review
// thresholds.
func NewService(store *Store, thresholds Thresholds, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, thresholds: thresholds, logger: logger}
}

// Thresholds returns the configured review thresholds.
func (s *Service) Thresholds() Thresholds {
	return s.thresholds
}

// AddURLParams carries one AddURL call. Tags is a comma-separated list.
type AddURLParams struct {
	URL        string
	Title      string
	Domain     string
	Context    string
	Summary    string
	Tags       string
	Confidence float64
	Relevance  float64
}

// AddURL gates and upserts a URL index entry.
func (s *Service) AddURL(p AddURLParams) Outcome {
	s.logger.Info("add_url_to_index", slog.String("url", p.URL))

	if d := s.thresholds.Evaluate(p.Confidence, p.Relevance); !d.Allowed {
		s.logger.Info("add_url_to_index deferred for review", slog.String("reasons", strings.Join(d.Reasons, ", ")))
		return ReviewNeeded(d.Reasons,
			"Cannot add URL without human approval. Reasons: %s. "+
				"Please confirm you want to add URL '%s' (%s) with domain='%s'. "+
				"To proceed, call this tool again after user confirmation with adjusted scores or explicit approval.",
			strings.Join(d.Reasons, ", "), p.Title, p.URL, p.Domain)
	}

	tags := ParseTagList(p.Tags)
	entry := URLIndexEntry{
		URL:        p.URL,
		Title:      p.Title,
		Domain:     p.Domain,
		Context:    p.Context,
		Summary:    p.Summary,
		Tags:       tags,
		AddedDate:  s.store.now().Format(time.RFC3339),
		Confidence: p.Confidence,
		Relevance:  p.Relevance,
	}
	if err := entry.Validate(); err != nil {
		s.logger.Warn("add_url_to_index rejected", slog.String("error", err.Error()))
		return Failure("invalid URL entry: %v", err)
	}

	updated, err := s.store.UpsertURLEntry(entry)
	if err != nil {
		s.logger.Error("add_url_to_index failed", slog.String("error", err.Error()))
		return Failure("adding URL to index: %v", err)
	}
	if updated {
		s.logger.Info("url already indexed, updated in place", slog.String("url", p.URL))
	}
	return Success("Successfully added URL to index: %s (%s). Domain: %s, Tags: %v",
		p.Title, p.URL, p.Domain, tags)
}

// UpdateInstructions gates and patches one section of the instructions
// document. action is "append" or "replace".
func (s *Service) UpdateInstructions(section, content, action string, confidence, relevance float64) Outcome {
	s.logger.Info("update_instructions_file",
		slog.String("section", section), slog.String("action", action))

	mode, err := ParsePatchMode(action)
	if err != nil {
		return Failure("updating instructions file: %v", err)
	}

	if d := s.thresholds.Evaluate(confidence, relevance); !d.Allowed {
		s.logger.Info("update_instructions_file deferred for review", slog.String("reasons", strings.Join(d.Reasons, ", ")))
		return ReviewNeeded(d.Reasons,
			"Cannot update instructions without human approval. Reasons: %s. "+
				"Please confirm you want to %s section '%s'. Content preview: %s",
			strings.Join(d.Reasons, ", "), mode, section, preview(content, contentPreviewLen))
	}

	if err := s.store.PatchInstructionsSection(section, content, mode); err != nil {
		s.logger.Error("update_instructions_file failed", slog.String("error", err.Error()))
		return Failure("updating instructions file: %v", err)
	}
	return Success("Successfully updated instructions file section: %s (action: %s)", section, mode)
}

// CreateNoteParams carries one CreateNote call. Tags is a comma-separated
// list; Topic falls back to the default topic when unknown; Category, when
// empty, comes from the topic's frontmatter defaults.
type CreateNoteParams struct {
	Title      string
	Content    string
	Topic      string
	Domain     string
	Category   string
	Tags       string
	Summary    string
	SourceURL  string
	Confidence float64
	Relevance  float64
}

// CreateNote gates, writes a new note file with frontmatter, and upserts the
// topic index. Filenames derive from the date and slugified title; collisions
// get a numeric suffix.
func (s *Service) CreateNote(p CreateNoteParams) Outcome {
	s.logger.Info("create_note", slog.String("title", p.Title), slog.String("topic", p.Topic))

	if d := s.thresholds.Evaluate(p.Confidence, p.Relevance); !d.Allowed {
		s.logger.Info("create_note deferred for review", slog.String("reasons", strings.Join(d.Reasons, ", ")))
		return ReviewNeeded(d.Reasons,
			"Cannot create note without human approval. Reasons: %s. "+
				"Note title: '%s', domain: '%s'. Content preview: %s",
			strings.Join(d.Reasons, ", "), p.Title, p.Domain, preview(p.Content, contentPreviewLen))
	}

	topic, ok := s.store.ResolveTopic(p.Topic)
	if !ok {
		s.logger.Warn("unknown topic, using default", slog.String("topic", p.Topic))
		topic, ok = s.store.ResolveTopic(DefaultTopicName)
		if !ok {
			return Failure("creating note: no default topic configured")
		}
	}

	filename, err := s.resolveFilename(topic, p.Title)
	if err != nil {
		s.logger.Error("create_note failed", slog.String("error", err.Error()))
		return Failure("creating note: %v", err)
	}

	meta := s.buildMetadata(p, topic)
	if err := meta.Validate(); err != nil {
		s.logger.Warn("create_note rejected", slog.String("error", err.Error()))
		return Failure("invalid note metadata: %v", err)
	}

	rel, err := s.store.WriteNoteFile(topic, filename, meta, p.Content)
	if err != nil {
		s.logger.Error("create_note failed", slog.String("error", err.Error()))
		return Failure("creating note: %v", err)
	}

	// The note file and its index entry are two separate writes; a failure
	// here leaves the note present but unindexed.
	if err := s.store.UpsertNotesIndexEntry(topic, IndexEntryFor(meta, filename)); err != nil {
		s.logger.Error("create_note index update failed", slog.String("error", err.Error()))
		return Failure("note written to %s but index update failed: %v", rel, err)
	}

	s.logger.Info("create_note completed", slog.String("path", rel))
	return Success("Successfully created note: %s", rel)
}

// resolveFilename derives YYYYMMDD-slug.md and appends -1, -2… until the
// name is unused in the topic directory.
func (s *Service) resolveFilename(topic Topic, title string) (string, error) {
	slug := Slugify(title)
	if slug == "" {
		slug = "note"
	}
	base := s.store.now().Format("20060102") + "-" + slug

	filename := base + ".md"
	for counter := 1; ; counter++ {
		exists, err := s.store.NoteExists(topic, filename)
		if err != nil {
			return "", err
		}
		if !exists {
			return filename, nil
		}
		filename = fmt.Sprintf("%s-%d.md", base, counter)
	}
}

// buildMetadata merges caller fields with the topic's frontmatter defaults:
// caller wins when non-empty, then topic default, then the global default.
func (s *Service) buildMetadata(p CreateNoteParams, topic Topic) NoteMetadata {
	today := s.store.now().Format(dateLayout)

	domain := p.Domain
	if domain == "" {
		domain = "general"
	}
	category := p.Category
	if category == "" {
		category = topic.Defaults.Category
	}
	if category == "" {
		category = "general"
	}
	priority := topic.Defaults.Priority
	if priority == "" {
		priority = "medium"
	}

	return NoteMetadata{
		Title:      p.Title,
		Created:    today,
		Updated:    today,
		Domain:     domain,
		Category:   category,
		Tags:       ParseTagList(p.Tags),
		Summary:    p.Summary,
		SourceURL:  p.SourceURL,
		Confidence: p.Confidence,
		Relevance:  p.Relevance,
		Reviewed:   topic.Defaults.Reviewed,
		Priority:   priority,
	}
}

// Status summarizes every knowledge store: section names in the instructions
// document, URL count, per-topic note counts, and the configured thresholds.
// Absent files are a normal reportable state, never an error.
func (s *Service) Status() Outcome {
	s.logger.Info("get_knowledge_status")

	var parts []string

	doc, present, err := s.store.ReadInstructions()
	switch {
	case err != nil:
		return Failure("reading instructions file: %v", err)
	case present:
		sections := SectionNames(doc)
		parts = append(parts, fmt.Sprintf("Instructions File: %d sections - %s",
			len(sections), strings.Join(sections, ", ")))
	default:
		parts = append(parts, "Instructions File: Not created yet")
	}

	if ok, err := s.store.URLIndexExists(); err != nil {
		return Failure("reading URL index: %v", err)
	} else if !ok {
		parts = append(parts, "URL Index: Not created yet")
	} else {
		urls, err := s.store.ReadURLIndex()
		if err != nil {
			return Failure("reading URL index: %v", err)
		}
		parts = append(parts, fmt.Sprintf("URL Index: %d URLs indexed", len(urls)))
	}

	for _, name := range s.store.TopicNames() {
		topic, _ := s.store.ResolveTopic(name)
		ok, err := s.store.NotesIndexExists(topic)
		if err != nil {
			return Failure("reading notes index for topic %s: %v", name, err)
		}
		if !ok {
			parts = append(parts, fmt.Sprintf("Notes (%s): No notes yet in %s/", name, topic.Directory))
			continue
		}
		notes, err := s.store.ReadNotesIndex(topic)
		if err != nil {
			return Failure("reading notes index for topic %s: %v", name, err)
		}
		parts = append(parts, fmt.Sprintf("Notes (%s): %d notes in %s/", name, len(notes), topic.Directory))
	}

	parts = append(parts, fmt.Sprintf("\nThresholds - Confidence: %g, Relevance: %g",
		s.thresholds.Confidence, s.thresholds.Relevance))

	return Success("%s", strings.Join(parts, "\n"))
}

// NotePath returns the note's path relative to the knowledge root.
func NotePath(topic Topic, filename string) string {
	return path.Join(topic.Directory, filename)
}
