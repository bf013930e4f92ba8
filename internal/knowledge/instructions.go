package knowledge

import (
	"fmt"
	"regexp"
	"strings"
)

// PatchMode selects how section content is applied.
type PatchMode int

const (
	// ModeAppend keeps the existing section body and appends after it.
	ModeAppend PatchMode = iota
	// ModeReplace substitutes the section's entire body.
	ModeReplace
)

// String renders the mode the way callers spell it.
func (m PatchMode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "append"
}

// ParsePatchMode parses "append" or "replace". Empty defaults to append.
func ParsePatchMode(s string) (PatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return ModeAppend, nil
	case "replace":
		return ModeReplace, nil
	default:
		return ModeAppend, fmt.Errorf("unknown action %q (want append or replace)", s)
	}
}

const dateLayout = "2006-01-02"

var (
	sectionHeadingRe = regexp.MustCompile(`(?m)^## (.+)$`)
	lastUpdatedRe    = regexp.MustCompile(`Last Updated: \d{4}-\d{2}-\d{2}`)
)

// PatchInstructionsSection locates the section by exact heading match and
// applies content per mode. An absent document is initialized with a dated
// preamble; an absent section is appended at document end. The Last Updated
// marker is re-stamped to today regardless of which branch ran, and the full
// document is persisted in one write.
func (s *Store) PatchInstructionsSection(section, content string, mode PatchMode) error {
	defer s.lock(s.layout.InstructionsFile)()

	today := s.now().Format(dateLayout)

	doc, present, err := s.ReadInstructions()
	if err != nil {
		return err
	}
	if !present {
		doc = fmt.Sprintf("# Organizational Instructions\n\nLast Updated: %s\n\n", today)
	}

	doc = patchSection(doc, section, content, mode)
	doc = lastUpdatedRe.ReplaceAllString(doc, "Last Updated: "+today)

	return s.fs.Write(s.layout.InstructionsFile, []byte(doc))
}

// patchSection applies content to the named "## " section of doc. The
// section body runs from the heading line to the next level-2 heading or
// end of document. Heading comparison is exact text; first match wins.
func patchSection(doc, section, content string, mode PatchMode) string {
	header := "## " + section
	lines := strings.Split(doc, "\n")

	start := -1
	for i, line := range lines {
		if line == header {
			start = i
			break
		}
	}

	if start == -1 {
		// New section at document end, after a blank line.
		return strings.TrimRight(doc, " \t\n") + "\n\n" + header + "\n\n" + content + "\n"
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "## ") {
			end = i
			break
		}
	}

	var body string
	switch mode {
	case ModeReplace:
		body = "\n" + content + "\n"
	default: // ModeAppend
		existing := strings.TrimRight(strings.Join(lines[start+1:end], "\n"), " \t\n")
		body = existing + "\n\n" + content + "\n"
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines[:start+1], "\n"))
	b.WriteString("\n")
	b.WriteString(body)
	if end < len(lines) {
		b.WriteString("\n")
		b.WriteString(strings.Join(lines[end:], "\n"))
	}
	return b.String()
}

// SectionNames returns every level-2 heading in document order.
func SectionNames(doc string) []string {
	matches := sectionHeadingRe.FindAllStringSubmatch(doc, -1)
	var out []string
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// SectionBody returns the body of the named section, or ok=false when the
// section does not exist. Used by substring search over the instructions.
func SectionBody(doc, section string) (string, bool) {
	header := "## " + section
	lines := strings.Split(doc, "\n")
	start := -1
	for i, line := range lines {
		if line == header {
			start = i
			break
		}
	}
	if start == -1 {
		return "", false
	}
	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "## ") {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start+1:end], "\n")), true
}
