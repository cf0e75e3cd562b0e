package core

import (
	"regexp"
	"sort"
)

var (
	whitespaceRun     = regexp.MustCompile(`\s+`)
	invalidIdentChars = regexp.MustCompile(`[^0-9a-zA-Z_]`)
	invalidIdentStart = regexp.MustCompile(`^[^a-zA-Z_]+`)
)

// DefaultInputVariable is used when a declared input name sanitizes to nothing.
const DefaultInputVariable = "input_1"

// SanitizeVariableName turns a user supplied widget name into a Python identifier.
// Whitespace becomes underscores, other invalid characters are dropped and the
// result never starts with a digit.
func SanitizeVariableName(name string) string {
	s := whitespaceRun.ReplaceAllString(name, "_")
	s = invalidIdentChars.ReplaceAllString(s, "")
	s = invalidIdentStart.ReplaceAllString(s, "")
	if s == "" {
		return DefaultInputVariable
	}
	return s
}

// SortedKeys returns the keys of a set in lexical order.
func SortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
