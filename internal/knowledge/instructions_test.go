package knowledge

import (
	"strings"
	"testing"
	"time"
)

func readInstructionsDoc(t *testing.T, s *Store) string {
	t.Helper()
	doc, present, err := s.ReadInstructions()
	if err != nil {
		t.Fatal(err)
	}
	if !present {
		t.Fatal("instructions file not present")
	}
	return doc
}

func TestPatchInstructions_CreatesDocument(t *testing.T) {
	s := testStore(t)
	if err := s.PatchInstructionsSection("Team Structure", "We are three people.", ModeAppend); err != nil {
		t.Fatal(err)
	}

	doc := readInstructionsDoc(t, s)
	if !strings.HasPrefix(doc, "# Organizational Instructions\n") {
		t.Errorf("doc missing preamble: %q", doc)
	}
	if !strings.Contains(doc, "Last Updated: 2026-08-27") {
		t.Errorf("doc missing dated marker: %q", doc)
	}
	if !strings.Contains(doc, "## Team Structure\n\nWe are three people.\n") {
		t.Errorf("doc missing section: %q", doc)
	}
}

func TestPatchInstructions_AppendKeepsExisting(t *testing.T) {
	s := testStore(t)
	if err := s.PatchInstructionsSection("Team", "Alpha.", ModeAppend); err != nil {
		t.Fatal(err)
	}
	if err := s.PatchInstructionsSection("Team", "Beta.", ModeAppend); err != nil {
		t.Fatal(err)
	}

	body, ok := SectionBody(readInstructionsDoc(t, s), "Team")
	if !ok {
		t.Fatal("section missing")
	}
	if body != "Alpha.\n\nBeta." {
		t.Errorf("body = %q, want %q", body, "Alpha.\n\nBeta.")
	}
}

func TestPatchInstructions_ReplaceDropsExisting(t *testing.T) {
	s := testStore(t)
	if err := s.PatchInstructionsSection("Policy", "Old rule.", ModeAppend); err != nil {
		t.Fatal(err)
	}
	if err := s.PatchInstructionsSection("Policy", "New rule.", ModeReplace); err != nil {
		t.Fatal(err)
	}

	body, ok := SectionBody(readInstructionsDoc(t, s), "Policy")
	if !ok {
		t.Fatal("section missing")
	}
	if body != "New rule." {
		t.Errorf("body = %q, want %q", body, "New rule.")
	}
}

func TestPatchInstructions_OnlyTargetSectionChanges(t *testing.T) {
	s := testStore(t)
	if err := s.PatchInstructionsSection("First", "one", ModeAppend); err != nil {
		t.Fatal(err)
	}
	if err := s.PatchInstructionsSection("Second", "two", ModeAppend); err != nil {
		t.Fatal(err)
	}
	if err := s.PatchInstructionsSection("First", "replacement", ModeReplace); err != nil {
		t.Fatal(err)
	}

	doc := readInstructionsDoc(t, s)
	first, _ := SectionBody(doc, "First")
	second, _ := SectionBody(doc, "Second")
	if first != "replacement" {
		t.Errorf("First = %q", first)
	}
	if second != "two" {
		t.Errorf("Second = %q", second)
	}
	if got := SectionNames(doc); len(got) != 2 || got[0] != "First" || got[1] != "Second" {
		t.Errorf("sections = %v", got)
	}
}

func TestPatchInstructions_RestampsDate(t *testing.T) {
	s := testStore(t)
	if err := s.PatchInstructionsSection("A", "x", ModeAppend); err != nil {
		t.Fatal(err)
	}

	// A later write re-stamps the marker to the new current date.
	s.now = func() time.Time {
		return time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	}
	if err := s.PatchInstructionsSection("A", "y", ModeAppend); err != nil {
		t.Fatal(err)
	}

	doc := readInstructionsDoc(t, s)
	if strings.Contains(doc, "Last Updated: 2026-08-27") {
		t.Errorf("stale date marker survived: %q", doc)
	}
	if !strings.Contains(doc, "Last Updated: 2026-09-01") {
		t.Errorf("new date marker missing: %q", doc)
	}
}

func TestParsePatchMode(t *testing.T) {
	if m, err := ParsePatchMode(""); err != nil || m != ModeAppend {
		t.Errorf("ParsePatchMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParsePatchMode("Replace"); err != nil || m != ModeReplace {
		t.Errorf("ParsePatchMode(Replace) = %v, %v", m, err)
	}
	if _, err := ParsePatchMode("merge"); err == nil {
		t.Error("ParsePatchMode(merge) accepted")
	}
}
