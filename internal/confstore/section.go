package confstore

import (
	"strings"

	"gopkg.in/ini.v1"
)

// Section is an ordered, read-only key/value group from a config file.
type Section struct {
	id       string
	keys     []string
	values   map[string]string
	defaults *Section
}

func newSection(id string, raw *ini.Section, defaults *Section) *Section {
	s := &Section{
		id:       id,
		values:   make(map[string]string),
		defaults: defaults,
	}
	for _, k := range raw.Keys() {
		name := normalizeKey(k.Name())
		if _, seen := s.values[name]; !seen {
			s.keys = append(s.keys, name)
		}
		s.values[name] = k.Value()
	}
	return s
}

// NewSection builds a section from literal pairs, in the order given.
// pairs alternates key, value.
func NewSection(id string, pairs ...string) *Section {
	s := &Section{id: id, values: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		name := normalizeKey(pairs[i])
		if _, seen := s.values[name]; !seen {
			s.keys = append(s.keys, name)
		}
		s.values[name] = pairs[i+1]
	}
	return s
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ID returns the section header text.
func (s *Section) ID() string {
	return s.id
}

// Get returns the raw value for key, falling back to the DEFAULT section.
func (s *Section) Get(key string) (string, bool) {
	name := normalizeKey(key)
	if v, ok := s.values[name]; ok {
		return v, true
	}
	if s.defaults != nil && s.defaults != s {
		v, ok := s.defaults.values[name]
		return v, ok
	}
	return "", false
}

// Has reports whether key is set, directly or through DEFAULT.
func (s *Section) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Keys returns the section's own keys in file order followed by inherited
// DEFAULT keys it does not override.
func (s *Section) Keys() []string {
	keys := append([]string(nil), s.keys...)
	if s.defaults != nil && s.defaults != s {
		for _, k := range s.defaults.keys {
			if _, own := s.values[k]; !own {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Len returns the number of visible keys.
func (s *Section) Len() int {
	return len(s.Keys())
}

// Map returns a copy of every visible key and value.
func (s *Section) Map() map[string]string {
	out := make(map[string]string)
	for _, k := range s.Keys() {
		out[k], _ = s.Get(k)
	}
	return out
}

// File is a parsed config file: sections in file order.
type File struct {
	path     string
	sections []*Section
	index    map[string]*Section
	defaults *Section
}

// Path returns the path the file was read from.
func (f *File) Path() string {
	return f.path
}

// Sections returns every section except DEFAULT, in file order.
func (f *File) Sections() []*Section {
	return append([]*Section(nil), f.sections...)
}

// Section looks a section up by its exact id.
func (f *File) Section(id string) (*Section, bool) {
	s, ok := f.index[id]
	return s, ok
}

// SectionIDs returns section ids in file order.
func (f *File) SectionIDs() []string {
	ids := make([]string, len(f.sections))
	for i, s := range f.sections {
		ids[i] = s.id
	}
	return ids
}

// Len returns the number of sections, DEFAULT excluded.
func (f *File) Len() int {
	return len(f.sections)
}

// Defaults returns the DEFAULT section; it is empty when the file has none.
func (f *File) Defaults() *Section {
	return f.defaults
}
