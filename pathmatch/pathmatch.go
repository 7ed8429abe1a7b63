// Package pathmatch implements a component-prefix inclusion predicate
// over an include or exclude set.
package pathmatch

import "strings"

// Mode selects whether the configured path set names what to keep or
// what to drop.
type Mode int

const (
	Include Mode = iota
	Exclude
)

// Matcher answers "is path P included?" by component-wise prefix
// matching, case-sensitive, with leading/trailing slashes normalized.
type Matcher struct {
	mode   Mode
	prefix [][]string
}

// New builds a Matcher over the given mode and path prefixes.
func New(mode Mode, paths []string) *Matcher {
	m := &Matcher{mode: mode}
	for _, p := range paths {
		m.prefix = append(m.prefix, components(p))
	}
	return m
}

// Mode reports the matcher's configured mode.
func (m *Matcher) Mode() Mode {
	return m.mode
}

// IsIncluded reports whether path is included under the configured mode
// and prefix set. The same predicate applies unchanged to copyfrom-path
// values.
func (m *Matcher) IsIncluded(path string) bool {
	matched := m.matchesAny(path)
	if m.mode == Include {
		return matched
	}
	return !matched
}

func (m *Matcher) matchesAny(path string) bool {
	comp := components(path)
	for _, prefix := range m.prefix {
		if isPrefix(prefix, comp) {
			return true
		}
	}
	return false
}

func isPrefix(prefix, path []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, c := range prefix {
		if path[i] != c {
			return false
		}
	}
	return true
}

// components splits a path into its "/"-delimited components, dropping
// leading/trailing slashes and empty components produced by them.
func components(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

