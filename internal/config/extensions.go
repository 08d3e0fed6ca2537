package config

import "strings"

// ExtensionSet is a read-only set of lowercase file extensions without a leading dot.
type ExtensionSet struct {
	order []string
	set   map[string]struct{}
}

// ParseExtensions builds a set from a comma-separated list such as "stl, .3MF,obj".
// Entries are trimmed, lowercased and stripped of a leading dot; empty entries are dropped
// and duplicates collapse onto their first occurrence.
func ParseExtensions(raw string) ExtensionSet {
	s := ExtensionSet{set: make(map[string]struct{})}
	for _, part := range strings.Split(raw, ",") {
		ext := NormalizeExtension(part)
		if ext == "" {
			continue
		}
		if _, dup := s.set[ext]; dup {
			continue
		}
		s.set[ext] = struct{}{}
		s.order = append(s.order, ext)
	}
	return s
}

// NormalizeExtension lowercases an extension and removes surrounding space and one leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	return strings.TrimPrefix(ext, ".")
}

// Has reports whether ext (with or without a leading dot, any case) is allowed.
func (s ExtensionSet) Has(ext string) bool {
	_, ok := s.set[NormalizeExtension(ext)]
	return ok
}

// List returns the extensions in configuration order.
func (s ExtensionSet) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of distinct extensions.
func (s ExtensionSet) Len() int {
	return len(s.order)
}

// String renders the set for user-facing messages, e.g. "stl, 3mf, obj, amf".
func (s ExtensionSet) String() string {
	return strings.Join(s.order, ", ")
}
