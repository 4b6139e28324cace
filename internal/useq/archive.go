package useq

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
)

// Archive is an open interval archive.
type Archive struct {
	path   string
	zr     *zip.ReadCloser
	files  map[string]*zip.File
	meta   map[string]string
	index  map[string]*sliceIndex
	rows   map[string][]Record // parsed slices by entry name
	chroms *chrom.Map
}

// Open reads the archive directory and metadata. Slice contents are parsed
// on first use.
func Open(path, prefix string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a := &Archive{
		path:  path,
		zr:    zr,
		files: make(map[string]*zip.File),
		meta:  make(map[string]string),
		index: make(map[string]*sliceIndex),
		rows:  make(map[string][]Record),
	}

	byChrom := make(map[string][]*Slice)
	var names []string
	for _, f := range zr.File {
		switch {
		case f.Name == ReadMeName:
			if err := a.readMeta(f); err != nil {
				zr.Close()
				return nil, err
			}
		case strings.HasSuffix(f.Name, ".tsv"):
			s, err := ParseSliceName(f.Name)
			if err != nil {
				zr.Close()
				return nil, fmt.Errorf("archive %s: %w", path, err)
			}
			a.files[f.Name] = f
			if _, ok := byChrom[s.Chrom]; !ok {
				names = append(names, s.Chrom)
			}
			byChrom[s.Chrom] = append(byChrom[s.Chrom], s)
		}
	}
	for name, slices := range byChrom {
		a.index[name] = buildSliceIndex(slices)
	}
	a.chroms = chrom.FromNames(prefix, names)
	return a, nil
}

func (a *Archive) readMeta(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", ReadMeName, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", ReadMeName, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(strings.TrimSpace(line), "="); ok {
			a.meta[k] = v
		}
	}
	return nil
}

func (a *Archive) Path() string       { return a.path }
func (a *Archive) Chroms() *chrom.Map { return a.chroms }
func (a *Archive) Close() error       { return a.zr.Close() }

// Meta returns the archive metadata value for key.
func (a *Archive) Meta(key string) string { return a.meta[key] }

// SliceCount returns the number of slice entries.
func (a *Archive) SliceCount() int { return len(a.files) }

func (a *Archive) slice(s *Slice) ([]Record, error) {
	if rows, ok := a.rows[s.Entry]; ok {
		return rows, nil
	}
	rc, err := a.files[s.Entry].Open()
	if err != nil {
		return nil, fmt.Errorf("open slice %s: %w", s.Entry, err)
	}
	defer rc.Close()

	var rows []Record
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || line[0] == '#' {
			continue
		}
		r, err := parseRow(s, line)
		if err != nil {
			return nil, fmt.Errorf("slice %s: %w", s.Entry, err)
		}
		rows = append(rows, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read slice %s: %w", s.Entry, err)
	}
	a.rows[s.Entry] = rows
	return rows, nil
}

// Records calls fn for every record on the native chromosome name that
// overlaps [beg, end), across both strands.
func (a *Archive) Records(name string, beg, end int, fn func(Record)) error {
	idx, ok := a.index[name]
	if !ok {
		return nil
	}
	for _, s := range idx.overlaps(beg, end) {
		rows, err := a.slice(s)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.Beg >= end {
				break
			}
			if r.End > beg {
				fn(r)
			}
		}
	}
	return nil
}
