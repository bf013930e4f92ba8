// Package parser extracts YAML frontmatter and the Markdown body from note
// files. It tolerates malformed input: a note without frontmatter, or with
// frontmatter that does not parse, is treated as all body.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/knowledge"
)

// Result holds the output of parsing a note file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Tags        []string
}

// Parse extracts frontmatter, body, tags, and title from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Tags:        extractTags(fm),
	}, nil
}

// Metadata decodes the frontmatter into the note metadata type. Missing or
// mistyped fields decode to zero values.
func (r *Result) Metadata() (knowledge.NoteMetadata, error) {
	var meta knowledge.NoteMetadata
	if r.Frontmatter == nil {
		return meta, nil
	}
	raw, err := yaml.Marshal(r.Frontmatter)
	if err != nil {
		return meta, err
	}
	err = yaml.Unmarshal(raw, &meta)
	return meta, err
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML, return body only.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractTags collects the frontmatter "tags" field, accepting both a list
// and a single scalar.
func extractTags(fm map[string]interface{}) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range knowledge.ParseTagList(v) {
			add(s)
		}
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
