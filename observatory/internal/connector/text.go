package connector

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict strips all markup; feed descriptions and listing cells routinely
// carry embedded HTML.
var strict = bluemonday.StrictPolicy()

// maxSnippetLen caps stored snippets; evidence is metadata-only.
const maxSnippetLen = 300

// CleanSnippet strips HTML, unescapes entities, collapses whitespace, and
// truncates to the snippet cap.
func CleanSnippet(s string) string {
	if s == "" {
		return ""
	}
	s = strict.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxSnippetLen {
		cut := maxSnippetLen
		// Avoid splitting a multi-byte rune.
		for cut > 0 && s[cut]&0xC0 == 0x80 {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

// CleanTitle strips markup and collapses whitespace without truncation.
func CleanTitle(s string) string {
	if s == "" {
		return ""
	}
	s = strict.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
