package knowledge

import (
	"regexp"
	"strings"
)

var (
	slugStripRe    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapseRe = regexp.MustCompile(`[-\s]+`)
)

// Slugify derives a filename-safe slug from a note title: lowercase, strip
// everything outside word characters, spaces and hyphens, collapse runs of
// whitespace and hyphens to a single hyphen, trim leading/trailing hyphens.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
