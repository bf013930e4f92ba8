package knowledge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// tagInfo aggregates one normalized tag's usage across source kinds.
type tagInfo struct {
	tag       string
	noteCount int
	urlCount  int
}

func (t tagInfo) total() int { return t.noteCount + t.urlCount }

// indexedNote is a notes-index entry with its topic provenance, so matches
// can report the real file path.
type indexedNote struct {
	topic Topic
	entry NotesIndexEntry
}

// loadAllNotes reads every configured topic's index, topics in sorted order.
func (s *Service) loadAllNotes() ([]indexedNote, error) {
	var out []indexedNote
	for _, name := range s.store.TopicNames() {
		topic, _ := s.store.ResolveTopic(name)
		entries, err := s.store.ReadNotesIndex(topic)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			out = append(out, indexedNote{topic: topic, entry: e})
		}
	}
	return out, nil
}

// AvailableTags aggregates every tag across the notes indexes and the URL
// index, normalized to lowercase-trimmed form, with per-source counts.
// Sorted by total count descending, ties alphabetically.
func (s *Service) AvailableTags() Outcome {
	s.logger.Info("get_available_tags")

	notes, err := s.loadAllNotes()
	if err != nil {
		s.logger.Error("get_available_tags failed", slog.String("error", err.Error()))
		return Failure("retrieving tags: %v", err)
	}
	urls, err := s.store.ReadURLIndex()
	if err != nil {
		s.logger.Error("get_available_tags failed", slog.String("error", err.Error()))
		return Failure("retrieving tags: %v", err)
	}

	tagMap := make(map[string]*tagInfo)
	bump := func(tag string, isNote bool) {
		norm := NormalizeTag(tag)
		if norm == "" {
			return
		}
		info, ok := tagMap[norm]
		if !ok {
			info = &tagInfo{tag: norm}
			tagMap[norm] = info
		}
		if isNote {
			info.noteCount++
		} else {
			info.urlCount++
		}
	}
	for _, n := range notes {
		for _, tag := range n.entry.Tags {
			bump(tag, true)
		}
	}
	for _, u := range urls {
		for _, tag := range u.Tags {
			bump(tag, false)
		}
	}

	if len(tagMap) == 0 {
		return Success("No tags found in the knowledge base.")
	}

	infos := make([]*tagInfo, 0, len(tagMap))
	for _, info := range tagMap {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].total() != infos[j].total() {
			return infos[i].total() > infos[j].total()
		}
		return infos[i].tag < infos[j].tag
	})

	lines := []string{"=== Available Knowledge Tags ===\n"}
	for _, info := range infos {
		var sources []string
		if info.noteCount > 0 {
			sources = append(sources, fmt.Sprintf("%d note%s", info.noteCount, plural(info.noteCount)))
		}
		if info.urlCount > 0 {
			sources = append(sources, fmt.Sprintf("%d URL%s", info.urlCount, plural(info.urlCount)))
		}
		lines = append(lines, fmt.Sprintf("  - **%s** (%s)", info.tag, strings.Join(sources, ", ")))
	}
	return Success("%s", strings.Join(lines, "\n"))
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

// parseTagSet normalizes a comma-separated query into a tag set.
func parseTagSet(query string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range ParseTagList(query) {
		set[NormalizeTag(t)] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SearchByTags returns every note and URL whose normalized tag set overlaps
// the query set (OR semantics). Matches are partitioned into Notes and URLs
// groups; each carries enough fields to be useful without a follow-up read.
func (s *Service) SearchByTags(tagsQuery string) Outcome {
	s.logger.Info("search_by_tags", slog.String("tags", tagsQuery))

	searchTags := parseTagSet(tagsQuery)
	if len(searchTags) == 0 {
		return Success("No tags provided. Pass a comma-separated list of tags to search for.")
	}

	notes, err := s.loadAllNotes()
	if err != nil {
		s.logger.Error("search_by_tags failed", slog.String("error", err.Error()))
		return Failure("searching by tags: %v", err)
	}
	urls, err := s.store.ReadURLIndex()
	if err != nil {
		s.logger.Error("search_by_tags failed", slog.String("error", err.Error()))
		return Failure("searching by tags: %v", err)
	}

	overlaps := func(tags []string) (matched []string, any bool) {
		seen := make(map[string]struct{})
		for _, t := range tags {
			norm := NormalizeTag(t)
			if norm == "" {
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			matched = append(matched, norm)
			if _, ok := searchTags[norm]; ok {
				any = true
			}
		}
		sort.Strings(matched)
		return matched, any
	}

	var noteLines, urlLines []string
	for _, n := range notes {
		tags, hit := overlaps(n.entry.Tags)
		if !hit {
			continue
		}
		noteLines = append(noteLines,
			fmt.Sprintf("  - **%s**", n.entry.Title),
			fmt.Sprintf("    File: %s", NotePath(n.topic, n.entry.Filename)),
			fmt.Sprintf("    Domain: %s | Category: %s", n.entry.Domain, n.entry.Category),
			fmt.Sprintf("    Tags: %s", strings.Join(tags, ", ")),
			fmt.Sprintf("    Summary: %s", n.entry.Summary),
			"")
	}
	for _, u := range urls {
		tags, hit := overlaps(u.Tags)
		if !hit {
			continue
		}
		urlLines = append(urlLines,
			fmt.Sprintf("  - **%s**", u.Title),
			fmt.Sprintf("    URL: %s", u.URL),
			fmt.Sprintf("    Domain: %s", u.Domain),
			fmt.Sprintf("    Tags: %s", strings.Join(tags, ", ")),
			fmt.Sprintf("    Summary: %s", u.Summary),
			"")
	}

	searched := strings.Join(sortedKeys(searchTags), ", ")
	if len(noteLines) == 0 && len(urlLines) == 0 {
		return Success("No knowledge items found matching tags: %s", searched)
	}

	lines := []string{fmt.Sprintf("=== Knowledge matching tags: %s ===\n", searched)}
	if len(noteLines) > 0 {
		lines = append(lines, "**Notes:**\n")
		lines = append(lines, noteLines...)
	}
	if len(urlLines) > 0 {
		lines = append(lines, "**URLs:**\n")
		lines = append(lines, urlLines...)
	}
	return Success("%s", strings.Join(lines, "\n"))
}

// InstructionsContext returns the full instructions document, the primary
// source of organizational context.
func (s *Service) InstructionsContext() Outcome {
	s.logger.Info("get_instructions_context")

	doc, present, err := s.store.ReadInstructions()
	if err != nil {
		s.logger.Error("get_instructions_context failed", slog.String("error", err.Error()))
		return Failure("reading context file: %v", err)
	}
	if !present {
		return Success("No organizational context file found. The organization context has not been set up yet.")
	}
	return Success("=== Organizational Context ===\n\n%s", doc)
}

// NotesOverview lists every indexed note across all topics with its
// metadata, so callers can pick a note to read.
func (s *Service) NotesOverview() Outcome {
	s.logger.Info("get_notes_index")

	notes, err := s.loadAllNotes()
	if err != nil {
		s.logger.Error("get_notes_index failed", slog.String("error", err.Error()))
		return Failure("reading notes index: %v", err)
	}
	if len(notes) == 0 {
		return Success("No notes found in the knowledge base.")
	}

	lines := []string{"=== Available Notes ===\n"}
	for _, n := range notes {
		tags := "none"
		if len(n.entry.Tags) > 0 {
			tags = strings.Join(n.entry.Tags, ", ")
		}
		lines = append(lines,
			fmt.Sprintf("**%s**", n.entry.Title),
			fmt.Sprintf("  - File: %s", n.entry.Filename),
			fmt.Sprintf("  - Topic: %s | Domain: %s | Category: %s", n.topic.Name, n.entry.Domain, n.entry.Category),
			fmt.Sprintf("  - Tags: %s", tags),
			fmt.Sprintf("  - Summary: %s", n.entry.Summary),
			fmt.Sprintf("  - Created: %s | Confidence: %g | Relevance: %g", n.entry.Created, n.entry.Confidence, n.entry.Relevance),
			"")
	}
	return Success("%s", strings.Join(lines, "\n"))
}

// ReadNote returns the full content of a note, searching every topic
// directory for the filename.
func (s *Service) ReadNote(filename string) Outcome {
	s.logger.Info("read_note", slog.String("filename", filename))

	content, err := s.store.ReadNoteFile(filename)
	if err != nil {
		s.logger.Warn("read_note missed", slog.String("filename", filename))
		return NotFoundf("Note not found: %s. Use get_notes_index to see available notes.", filename)
	}
	return Success("=== Note: %s ===\n\n%s", filename, content)
}

// URLOverview lists every indexed URL with its context and summary.
func (s *Service) URLOverview() Outcome {
	s.logger.Info("get_url_index")

	ok, err := s.store.URLIndexExists()
	if err != nil {
		return Failure("reading URL index: %v", err)
	}
	if !ok {
		return Success("No URL index found. No URLs have been indexed yet.")
	}
	urls, err := s.store.ReadURLIndex()
	if err != nil {
		s.logger.Error("get_url_index failed", slog.String("error", err.Error()))
		return Failure("reading URL index: %v", err)
	}
	if len(urls) == 0 {
		return Success("URL index is empty. No URLs have been indexed yet.")
	}

	lines := []string{"=== Indexed URLs ===\n"}
	for _, u := range urls {
		tags := "none"
		if len(u.Tags) > 0 {
			tags = strings.Join(u.Tags, ", ")
		}
		lines = append(lines,
			fmt.Sprintf("**%s**", u.Title),
			fmt.Sprintf("  - URL: %s", u.URL),
			fmt.Sprintf("  - Domain: %s", u.Domain),
			fmt.Sprintf("  - Context: %s", u.Context),
			fmt.Sprintf("  - Summary: %s", u.Summary),
			fmt.Sprintf("  - Tags: %s", tags),
			"")
	}
	return Success("%s", strings.Join(lines, "\n"))
}

const (
	sectionPreviewLen   = 500
	notePreviewLen      = 800
	maxMatchingSections = 3
)

// SearchKnowledge does a case-insensitive substring term search over the
// instructions sections and every note file. The stores hold dozens to low
// hundreds of entries, so every search is a linear scan.
func (s *Service) SearchKnowledge(query string) Outcome {
	s.logger.Info("search_knowledge", slog.String("query", query))

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return Success("No search terms provided.")
	}
	containsAny := func(text string) bool {
		lower := strings.ToLower(text)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				return true
			}
		}
		return false
	}

	var results []string

	doc, present, err := s.store.ReadInstructions()
	if err != nil {
		s.logger.Error("search_knowledge failed", slog.String("error", err.Error()))
		return Failure("searching knowledge: %v", err)
	}
	if present && containsAny(doc) {
		var matching []string
		for _, name := range SectionNames(doc) {
			body, ok := SectionBody(doc, name)
			if !ok {
				continue
			}
			section := "## " + name + "\n" + body
			if containsAny(section) {
				matching = append(matching, preview(section, sectionPreviewLen))
			}
			if len(matching) == maxMatchingSections {
				break
			}
		}
		if len(matching) > 0 {
			results = append(results, "=== From Org Context ===")
			results = append(results, matching...)
			results = append(results, "")
		}
	}

	for _, name := range s.store.TopicNames() {
		topic, _ := s.store.ResolveTopic(name)
		files, err := s.store.ListNoteFiles(topic)
		if err != nil {
			s.logger.Error("search_knowledge failed", slog.String("error", err.Error()))
			return Failure("searching knowledge: %v", err)
		}
		for _, rel := range files {
			content, err := s.store.ReadFile(rel)
			if err != nil {
				s.logger.Warn("search_knowledge skipped unreadable file",
					slog.String("path", rel), slog.String("error", err.Error()))
				continue
			}
			if containsAny(content) {
				results = append(results,
					fmt.Sprintf("=== From Note: %s ===", rel),
					preview(content, notePreviewLen),
					"")
			}
		}
	}

	if len(results) == 0 {
		return Success("No matching content found for: %s", query)
	}
	return Success("%s", strings.Join(results, "\n"))
}
