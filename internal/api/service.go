package api

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/metrics"
	"github.com/starford/ansuz/internal/parser"
)

// Service reads the knowledge stores for the dashboard API. All endpoints
// are read-only: writes go through the gated tool surfaces, never HTTP.
type Service struct {
	store    *knowledge.Store
	svc      *knowledge.Service
	recorder metrics.Recorder
}

// NewService creates a new API service. recorder may be nil, in which case
// the metrics endpoint reports empty counts.
func NewService(store *knowledge.Store, svc *knowledge.Service, recorder metrics.Recorder) *Service {
	return &Service{store: store, svc: svc, recorder: recorder}
}

// Status summarizes every store.
func (s *Service) Status() (*StatusResponse, error) {
	resp := &StatusResponse{
		Thresholds: ThresholdsDTO{
			Confidence: s.svc.Thresholds().Confidence,
			Relevance:  s.svc.Thresholds().Relevance,
		},
		Topics: []TopicStatus{},
	}

	doc, present, err := s.store.ReadInstructions()
	if err != nil {
		return nil, err
	}
	resp.Instructions.Present = present
	if present {
		sections := knowledge.SectionNames(doc)
		if sections == nil {
			sections = []string{}
		}
		resp.Instructions.Sections = sections
	} else {
		resp.Instructions.Sections = []string{}
	}

	urls, err := s.store.ReadURLIndex()
	if err != nil {
		return nil, err
	}
	resp.URLCount = len(urls)

	for _, name := range s.store.TopicNames() {
		topic, _ := s.store.ResolveTopic(name)
		entries, err := s.store.ReadNotesIndex(topic)
		if err != nil {
			return nil, err
		}
		resp.Topics = append(resp.Topics, TopicStatus{
			Name:        name,
			Directory:   topic.Directory,
			Description: topic.Description,
			NoteCount:   len(entries),
		})
	}
	return resp, nil
}

// Tags aggregates tag usage across notes and URLs, ranked by total count
// descending, ties alphabetically.
func (s *Service) Tags() ([]TagCount, error) {
	counts := make(map[string]*TagCount)
	bump := func(tag string, isNote bool) {
		norm := knowledge.NormalizeTag(tag)
		if norm == "" {
			return
		}
		tc, ok := counts[norm]
		if !ok {
			tc = &TagCount{Tag: norm}
			counts[norm] = tc
		}
		if isNote {
			tc.Notes++
		} else {
			tc.URLs++
		}
	}

	for _, name := range s.store.TopicNames() {
		topic, _ := s.store.ResolveTopic(name)
		entries, err := s.store.ReadNotesIndex(topic)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			for _, tag := range e.Tags {
				bump(tag, true)
			}
		}
	}
	urls, err := s.store.ReadURLIndex()
	if err != nil {
		return nil, err
	}
	for _, u := range urls {
		for _, tag := range u.Tags {
			bump(tag, false)
		}
	}

	out := make([]TagCount, 0, len(counts))
	for _, tc := range counts {
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Notes+out[i].URLs, out[j].Notes+out[j].URLs
		if ti != tj {
			return ti > tj
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

// ListNotes returns every indexed note across all topics, optionally
// filtered by a tag (normalized match).
func (s *Service) ListNotes(tag string) ([]NoteListItem, error) {
	norm := knowledge.NormalizeTag(tag)
	var out []NoteListItem
	for _, name := range s.store.TopicNames() {
		topic, _ := s.store.ResolveTopic(name)
		entries, err := s.store.ReadNotesIndex(topic)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if norm != "" && !hasTag(e.Tags, norm) {
				continue
			}
			tags := e.Tags
			if tags == nil {
				tags = []string{}
			}
			out = append(out, NoteListItem{
				Topic:    name,
				Filename: e.Filename,
				Path:     knowledge.NotePath(topic, e.Filename),
				Title:    e.Title,
				Domain:   e.Domain,
				Category: e.Category,
				Tags:     tags,
				Summary:  e.Summary,
				Created:  e.Created,
			})
		}
	}
	if out == nil {
		out = []NoteListItem{}
	}
	return out, nil
}

func hasTag(tags []string, norm string) bool {
	for _, t := range tags {
		if knowledge.NormalizeTag(t) == norm {
			return true
		}
	}
	return false
}

// GetNote reads one note file and parses its frontmatter.
func (s *Service) GetNote(topicName, filename string) (*NoteDetail, error) {
	topic, ok := s.store.ResolveTopic(topicName)
	if !ok {
		return nil, fmt.Errorf("topic %s: %w", topicName, apperr.ErrNotFound)
	}
	rel := knowledge.NotePath(topic, filename)
	content, err := s.store.ReadFile(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("note %s: %w", rel, apperr.ErrNotFound)
		}
		return nil, err
	}
	res, err := parser.Parse([]byte(content))
	if err != nil {
		return nil, err
	}
	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	return &NoteDetail{
		Topic:       topicName,
		Filename:    filename,
		Path:        rel,
		Title:       res.Title,
		Body:        res.Body,
		Frontmatter: res.Frontmatter,
		Tags:        tags,
	}, nil
}

// URLs returns the URL index in stored order.
func (s *Service) URLs() ([]knowledge.URLIndexEntry, error) {
	urls, err := s.store.ReadURLIndex()
	if err != nil {
		return nil, err
	}
	if urls == nil {
		urls = []knowledge.URLIndexEntry{}
	}
	return urls, nil
}

// Instructions returns the instructions document split into sections.
func (s *Service) Instructions() (*InstructionsResponse, error) {
	doc, present, err := s.store.ReadInstructions()
	if err != nil {
		return nil, err
	}
	resp := &InstructionsResponse{Present: present, Sections: []SectionDTO{}}
	if !present {
		return resp, nil
	}
	resp.Content = doc
	for _, name := range knowledge.SectionNames(doc) {
		body, _ := knowledge.SectionBody(doc, name)
		resp.Sections = append(resp.Sections, SectionDTO{Name: name, Body: body})
	}
	return resp, nil
}

// Search runs the substring search and returns the rendered result text.
func (s *Service) Search(query string) string {
	return s.svc.SearchKnowledge(query).Render()
}

// SearchByTags runs the tag search and returns the rendered result text.
func (s *Service) SearchByTags(tags string) string {
	return s.svc.SearchByTags(tags).Render()
}

// MetricsSummary reports all-time tool invocation counts.
func (s *Service) MetricsSummary() (*MetricsSummaryResponse, error) {
	resp := &MetricsSummaryResponse{ByTool: map[string]int{}}
	if s.recorder == nil {
		return resp, nil
	}
	counts, err := s.recorder.ToolCounts()
	if err != nil {
		return nil, err
	}
	for tool, n := range counts {
		resp.ByTool[tool] = n
		resp.Total += n
	}
	return resp, nil
}
