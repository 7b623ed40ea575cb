package discovery

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter filters discovered tests by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName keeps the tests matching pattern. A test is matched on its identity
// ("Type.Method") and on its group path joined with its display name ("Physics/Gravity/Falls").
// Patterns with wildcards are globs where "**" crosses path separators, e.g. "Physics/**" or
// "*Gravity*". As a fallback every literal part of a wildcard pattern must occur in the
// candidate. Patterns without wildcards match as substrings.
func (f *Filter) FilterByName(tests []Descriptor, pattern string) []Descriptor {
	if pattern == "" {
		return tests
	}

	var filtered []Descriptor
	for _, d := range tests {
		if f.Match(d, pattern) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// Match reports whether d matches pattern.
func (f *Filter) Match(d Descriptor, pattern string) bool {
	if pattern == "" {
		return true
	}
	full := d.DisplayName()
	if d.Path != "" {
		full = d.Path + "/" + full
	}
	for _, candidate := range []string{d.ID.String(), full} {
		if matchName(pattern, candidate) {
			return true
		}
	}
	return false
}

func matchName(pattern, candidate string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return strings.Contains(candidate, pattern)
	}
	if ok, err := doublestar.Match(pattern, candidate); err == nil && ok {
		return true
	}

	hasPart := false
	for _, part := range strings.FieldsFunc(pattern, func(r rune) bool { return r == '*' || r == '?' }) {
		hasPart = true
		if !strings.Contains(candidate, part) {
			return false
		}
	}
	return hasPart
}
