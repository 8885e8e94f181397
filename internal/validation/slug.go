// Package validation holds input normalization and validation rules.
package validation

import (
	"regexp"
	"strings"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9 -]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe slug from a post title: lowercase, characters
// other than ASCII letters, digits, spaces and hyphens dropped, whitespace
// runs collapsed to one hyphen, and no leading or trailing hyphen.
// The result may be empty when the title has no usable characters.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
