// Package mounts parses the kernel mount table and watches it for changes.
package mounts

import (
	"bufio"
	"sort"
	"strings"
)

// Set is a set of mount points.
type Set map[string]struct{}

// NewSet returns a set holding paths.
func NewSet(paths ...string) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is mounted.
func (s Set) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Missing returns the entries of paths that are not in s, keeping their order.
func (s Set) Missing(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Sorted returns the mount points in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Diff returns the mount points present in next but not in s (added) and
// those present in s but not in next (removed), both sorted.
func (s Set) Diff(next Set) (added, removed []string) {
	for p := range next {
		if !s.Has(p) {
			added = append(added, p)
		}
	}
	for p := range s {
		if !next.Has(p) {
			removed = append(removed, p)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Parse reads a mount table in /proc/mounts format and returns the set of
// mount points (the second field of each line). Lines with fewer than two
// fields are skipped.
func Parse(snapshot string) Set {
	s := make(Set)
	sc := bufio.NewScanner(strings.NewReader(snapshot))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		s[unescape(fields[1])] = struct{}{}
	}
	return s
}

// unescape decodes the three digit octal escapes the kernel uses for space,
// tab, newline and backslash in mount paths ("\040" and friends).
func unescape(field string) string {
	if !strings.Contains(field, `\`) {
		return field
	}
	var b strings.Builder
	b.Grow(len(field))
	for i := 0; i < len(field); i++ {
		if field[i] == '\\' && i+3 < len(field) && isOctal(field[i+1]) && isOctal(field[i+2]) && isOctal(field[i+3]) {
			b.WriteByte((field[i+1]-'0')<<6 | (field[i+2]-'0')<<3 | (field[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(field[i])
	}
	return b.String()
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}
