// Package knowledge implements the organizational knowledge store: a URL
// index, a sectioned instructions document, and topic-partitioned note files,
// all gated behind confidence/relevance review thresholds.
package knowledge

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultTopicName is the topic unknown topic names fall back to.
const DefaultTopicName = "default"

// URLIndexEntry is one record in the URL index. Entries are keyed by URL:
// writing an existing URL updates it in place, preserving its position.
type URLIndexEntry struct {
	URL        string   `yaml:"url" json:"url"`
	Title      string   `yaml:"title" json:"title"`
	Domain     string   `yaml:"domain" json:"domain"`
	Context    string   `yaml:"context" json:"context"`
	Summary    string   `yaml:"summary" json:"summary"`
	Tags       []string `yaml:"tags" json:"tags"`
	AddedDate  string   `yaml:"added_date" json:"added_date"`
	Confidence float64  `yaml:"confidence" json:"confidence"`
	Relevance  float64  `yaml:"relevance" json:"relevance"`
}

// Validate checks the entry's required fields and score ranges. Scores are
// validated here, at the data model, not in the review gate.
func (e URLIndexEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.URL, validation.Required),
		validation.Field(&e.Title, validation.Required),
		validation.Field(&e.Confidence, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&e.Relevance, validation.Min(0.0), validation.Max(1.0)),
	)
}

// NoteMetadata is the frontmatter written at the top of every note file.
//
// Updated is stamped equal to Created: there is no edit-note operation, so
// the two never diverge.
type NoteMetadata struct {
	Title      string   `yaml:"title" json:"title"`
	Created    string   `yaml:"created" json:"created"`
	Updated    string   `yaml:"updated" json:"updated"`
	Domain     string   `yaml:"domain" json:"domain"`
	Category   string   `yaml:"category" json:"category"`
	Tags       []string `yaml:"tags" json:"tags"`
	Summary    string   `yaml:"summary" json:"summary"`
	SourceURL  string   `yaml:"source_url,omitempty" json:"source_url,omitempty"`
	Confidence float64  `yaml:"confidence" json:"confidence"`
	Relevance  float64  `yaml:"relevance" json:"relevance"`
	Reviewed   bool     `yaml:"reviewed" json:"reviewed"`
	Priority   string   `yaml:"priority" json:"priority"`
}

// Validate checks the metadata's required fields and score ranges.
func (m NoteMetadata) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.Required),
		validation.Field(&m.Confidence, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&m.Relevance, validation.Min(0.0), validation.Max(1.0)),
	)
}

// NotesIndexEntry is a denormalized projection of NoteMetadata stored in a
// topic's index file, keyed by filename within the topic.
type NotesIndexEntry struct {
	Filename   string   `yaml:"filename" json:"filename"`
	Title      string   `yaml:"title" json:"title"`
	Domain     string   `yaml:"domain" json:"domain"`
	Category   string   `yaml:"category" json:"category"`
	Summary    string   `yaml:"summary" json:"summary"`
	Tags       []string `yaml:"tags" json:"tags"`
	Created    string   `yaml:"created" json:"created"`
	Updated    string   `yaml:"updated" json:"updated"`
	Confidence float64  `yaml:"confidence" json:"confidence"`
	Relevance  float64  `yaml:"relevance" json:"relevance"`
}

// IndexEntryFor projects note metadata into its index entry.
func IndexEntryFor(m NoteMetadata, filename string) NotesIndexEntry {
	return NotesIndexEntry{
		Filename:   filename,
		Title:      m.Title,
		Domain:     m.Domain,
		Category:   m.Category,
		Summary:    m.Summary,
		Tags:       m.Tags,
		Created:    m.Created,
		Updated:    m.Updated,
		Confidence: m.Confidence,
		Relevance:  m.Relevance,
	}
}

// FrontmatterDefaults are the per-topic defaults merged into new notes.
// Caller-supplied values win when non-empty; these fill the gaps.
type FrontmatterDefaults struct {
	Category string `yaml:"category" json:"category"`
	Priority string `yaml:"priority" json:"priority"`
	Reviewed bool   `yaml:"reviewed" json:"reviewed"`
}

// Topic is a configured partition of the notes store.
type Topic struct {
	Name        string
	Directory   string
	Description string
	Defaults    FrontmatterDefaults
}

// urlIndexDoc is the on-disk shape of the URL index file.
type urlIndexDoc struct {
	URLs []URLIndexEntry `yaml:"urls"`
}

// notesIndexDoc is the on-disk shape of a topic's _index.yaml.
type notesIndexDoc struct {
	Topic       string            `yaml:"topic"`
	Description string            `yaml:"description"`
	Notes       []NotesIndexEntry `yaml:"notes"`
}

// ParseTagList splits a comma-separated tag string, trimming whitespace and
// dropping empties.
func ParseTagList(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeTag lowercases and trims a tag for matching and aggregation.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
