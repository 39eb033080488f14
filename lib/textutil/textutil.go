// Package textutil matches scraped names and labels against fragment
// lists without caring about case or whitespace.
package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CanonicalName lowercases a name and strips every run of whitespace,
// so cosmetic formatting differences never break a match.
func CanonicalName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return whitespaceRegex.ReplaceAllString(name, "")
}

// MatchName reports whether the canonical form of name contains any of
// the fragments. Fragments are expected to already be lowercase.
func MatchName(name string, fragments []string) bool {
	canonical := CanonicalName(name)
	for _, fragment := range fragments {
		if strings.Contains(canonical, fragment) {
			return true
		}
	}
	return false
}
