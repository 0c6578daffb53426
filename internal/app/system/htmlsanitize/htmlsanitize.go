// Package htmlsanitize strips markup from user-supplied text (catalog
// titles, display names) before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag (and the content of script/style elements)
// and returns unescaped text, trimmed. Templates escape on output, so the
// stored value must not carry entities.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains no tags.
func IsPlainText(s string) bool {
	return PlainText(s) == strings.TrimSpace(s)
}
