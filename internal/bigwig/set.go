package bigwig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Entry describes one signal file of a set.
type Entry struct {
	Path   string
	Name   string
	Type   string
	Strand score.Strand
}

// Set is a directory of signal files. Each file may have a sibling
// <base>.txt with name=, type= and strand= lines.
type Set struct {
	dir     string
	entries []Entry
	chroms  *chrom.Map
}

func trimSignalExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range append(append([]string(nil), BedGraphExts...), BigWigExts...) {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// readMeta parses key=value lines.
func readMeta(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(strings.TrimSpace(line), "="); ok {
			meta[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
	return meta, nil
}

// OpenSet lists the signal files of dir and reads their metadata. Entries
// are returned sorted by file name.
func OpenSet(dir, prefix string) (*Set, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("open signal set: %w", err)
	}
	s := &Set{dir: dir}
	for _, de := range dirents {
		if de.IsDir() || !IsSignalFile(de.Name()) {
			continue
		}
		base := trimSignalExt(de.Name())
		e := Entry{Path: filepath.Join(dir, de.Name()), Name: base, Type: base}
		meta, err := readMeta(filepath.Join(dir, base+".txt"))
		switch {
		case err == nil:
			if v := meta["name"]; v != "" {
				e.Name = v
			}
			if v := meta["type"]; v != "" {
				e.Type = v
			}
			if v, ok := meta["strand"]; ok {
				st, err := score.ParseStrand(v)
				if err != nil {
					return nil, fmt.Errorf("signal set %s entry %s: %w", dir, base, err)
				}
				e.Strand = st
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read metadata for %s: %w", e.Path, err)
		}
		s.entries = append(s.entries, e)
	}
	if len(s.entries) == 0 {
		return nil, fmt.Errorf("signal set %s has no signal files", dir)
	}
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].Path < s.entries[j].Path })
	s.chroms = chrom.FromNames(prefix, nil)
	return s, nil
}

func (s *Set) Path() string { return s.dir }

// Chroms is empty: chromosome names are resolved per member file.
func (s *Set) Chroms() *chrom.Map { return s.chroms }
func (s *Set) Close() error       { return nil }

// Entries returns every entry.
func (s *Set) Entries() []Entry { return s.entries }

// Select returns the entries whose name or type equals id and whose strand
// passes the query strand rule. An empty id selects every entry.
func (s *Set) Select(id string, p *score.Params) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if id != "" && e.Name != id && e.Type != id {
			continue
		}
		if !p.Accepts(e.Strand) {
			continue
		}
		out = append(out, e)
	}
	return out
}
