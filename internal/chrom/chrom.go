// Package chrom resolves chromosome name spellings against the names a
// resource actually contains.
package chrom

import "strings"

// DefaultPrefix is the conventional chromosome prefix.
const DefaultPrefix = "chr"

// Seq is a named reference sequence.
type Seq struct {
	Name   string
	Length int
}

// Map maps every accepted spelling of a chromosome name to the canonical
// name used by one resource. It is built once and read-only afterward.
type Map struct {
	prefix  string
	names   map[string]string
	lengths map[string]int
	order   []string
}

// NewMap builds a map over the native sequences of a resource. Each name
// is registered as is, with the prefix stripped when present and with the
// prefix added when absent. Exact native names always win over variants.
func NewMap(prefix string, seqs []Seq) *Map {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	m := &Map{
		prefix:  prefix,
		names:   make(map[string]string, 3*len(seqs)),
		lengths: make(map[string]int, len(seqs)),
		order:   make([]string, 0, len(seqs)),
	}
	for _, s := range seqs {
		if _, dup := m.lengths[s.Name]; dup {
			continue
		}
		m.lengths[s.Name] = s.Length
		m.order = append(m.order, s.Name)
		m.names[s.Name] = s.Name
	}
	for _, name := range m.order {
		alt := m.Toggle(name)
		if _, taken := m.names[alt]; !taken {
			m.names[alt] = name
		}
	}
	return m
}

// FromNames builds a map for sequences of unknown length.
func FromNames(prefix string, names []string) *Map {
	seqs := make([]Seq, len(names))
	for i, n := range names {
		seqs[i] = Seq{Name: n}
	}
	return NewMap(prefix, seqs)
}

// Resolve returns the canonical name for any known spelling. A name that is
// unknown in every spelling returns false.
func (m *Map) Resolve(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	if c, ok := m.names[name]; ok {
		return c, true
	}
	if c, ok := m.names[m.Toggle(name)]; ok {
		return c, true
	}
	return "", false
}

// Length returns the declared length of a canonical or variant name, or 0.
func (m *Map) Length(name string) int {
	c, ok := m.Resolve(name)
	if !ok {
		return 0
	}
	return m.lengths[c]
}

// Names returns the canonical names in native order. The slice must not be
// modified.
func (m *Map) Names() []string {
	return m.order
}

// Toggle strips the prefix from name if present (case-insensitively), and
// adds it otherwise.
func (m *Map) Toggle(name string) string {
	prefix := DefaultPrefix
	if m != nil {
		prefix = m.prefix
	}
	return Toggle(prefix, name)
}

// Toggle strips prefix from name if present, and adds it otherwise.
func Toggle(prefix, name string) string {
	if HasPrefix(prefix, name) {
		return name[len(prefix):]
	}
	return prefix + name
}

// HasPrefix reports whether name carries the prefix, ignoring case, with
// something after it.
func HasPrefix(prefix, name string) bool {
	return len(name) > len(prefix) && strings.EqualFold(name[:len(prefix)], prefix)
}
