package blogservice

import (
	"regexp"
)

var scriptTagPattern = regexp.MustCompile(`(?is)<\s*/?\s*script\b[^>]*>`)

// hasScript reports whether s carries an opening or closing script tag.
func hasScript(s string) bool {
	return scriptTagPattern.MatchString(s)
}
