// Package bam reads coordinate-sorted, BAI-indexed alignment files and
// scores query regions by coverage or by filtered alignment counts.
package bam

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
	"github.com/tjparnell/biotoolbox-sub009/internal/fingerprint"
)

// File is an open alignment file with its loaded index.
type File struct {
	path   string
	prefix string
	f      *os.File
	r      *bam.Reader
	idx    *bam.Index
	refs   map[string]*sam.Reference
	chroms *chrom.Map
}

// IndexCandidates returns the index paths searched for a BAM file, in order.
func IndexCandidates(path string) []string {
	return []string{path + ".bai", strings.TrimSuffix(path, ".bam") + ".bai"}
}

// Open opens path and loads its index. A missing or stale index is rebuilt
// next to the alignment file before loading.
func Open(path, prefix string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	idxPath, ok := fingerprint.FindIndex(IndexCandidates(path)...)
	if !ok || fingerprint.Stale(path, idxPath) {
		if !ok {
			idxPath = IndexCandidates(path)[0]
		}
		logger.Info("building alignment index", zap.String("bam", path), zap.String("index", idxPath))
		if err := BuildIndex(path, idxPath); err != nil {
			return nil, fmt.Errorf("index %s: %w", path, err)
		}
	}
	idx, err := readIndex(idxPath)
	if err != nil {
		return nil, err
	}
	return openWithIndex(path, prefix, idx)
}

func openWithIndex(path, prefix string, idx *bam.Index) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bam: %w", err)
	}
	r, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read bam header %s: %w", path, err)
	}
	refs := r.Header().Refs()
	byName := make(map[string]*sam.Reference, len(refs))
	seqs := make([]chrom.Seq, 0, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
		seqs = append(seqs, chrom.Seq{Name: ref.Name(), Length: ref.Len()})
	}
	return &File{
		path:   path,
		prefix: prefix,
		f:      f,
		r:      r,
		idx:    idx,
		refs:   byName,
		chroms: chrom.NewMap(prefix, seqs),
	}, nil
}

func readIndex(path string) (*bam.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bai: %w", err)
	}
	defer f.Close()
	idx, err := bam.ReadIndex(f)
	if err != nil {
		return nil, fmt.Errorf("read bai %s: %w", path, err)
	}
	return idx, nil
}

// BuildIndex scans a coordinate-sorted BAM and writes its BAI to out.
func BuildIndex(path, out string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r, err := bam.NewReader(f, 1)
	if err != nil {
		return err
	}
	defer r.Close()

	var idx bam.Index
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		if err := idx.Add(rec, r.LastChunk()); err != nil {
			return fmt.Errorf("index record %s: %w", rec.Name, err)
		}
	}
	return fingerprint.WriteAtomic(out, func(w *os.File) error {
		return bam.WriteIndex(w, &idx)
	})
}

// Clone opens an independent handle sharing the loaded index.
func (f *File) Clone() (*File, error) {
	return openWithIndex(f.path, f.prefix, f.idx)
}

func (f *File) Path() string       { return f.path }
func (f *File) Chroms() *chrom.Map { return f.chroms }

// Close releases the reader and file handle.
func (f *File) Close() error {
	rerr := f.r.Close()
	ferr := f.f.Close()
	if rerr != nil {
		return rerr
	}
	return ferr
}

// References returns the header references in header order.
func (f *File) References() []*sam.Reference {
	return f.r.Header().Refs()
}

// Fetch calls fn for every alignment on the native chromosome name that
// overlaps the 0-based half-open interval [beg, end). An unknown
// chromosome or a reference without indexed records yields nothing.
func (f *File) Fetch(name string, beg, end int, fn func(*sam.Record)) error {
	ref, ok := f.refs[name]
	if !ok || beg >= end {
		return nil
	}
	chunks, err := f.idx.Chunks(ref, beg, end)
	if err != nil {
		if errors.Is(err, index.ErrNoReference) || errors.Is(err, index.ErrInvalid) {
			return nil
		}
		return fmt.Errorf("query index %s:%d-%d: %w", name, beg, end, err)
	}
	return f.iterate(chunks, func(rec *sam.Record) bool {
		switch {
		case rec.Ref == nil || rec.Ref.ID() < ref.ID():
			return true
		case rec.Ref.ID() > ref.ID() || rec.Pos >= end:
			return false
		}
		if rec.End() > beg {
			fn(rec)
		}
		return true
	})
}

// iterate walks chunks until fn returns false.
func (f *File) iterate(chunks []bgzf.Chunk, fn func(*sam.Record) bool) error {
	if len(chunks) == 0 {
		return nil
	}
	it, err := bam.NewIterator(f.r, chunks)
	if err != nil {
		return fmt.Errorf("seek bam: %w", err)
	}
	defer it.Close()
	for it.Next() {
		if !fn(it.Record()) {
			break
		}
	}
	return it.Error()
}

// Coverage returns per-base depth over [beg, end) for the native chromosome
// name counting aligned bases of usable records, and the number of records
// that contributed. Strand is ignored.
func (f *File) Coverage(name string, beg, end int) ([]float64, int, error) {
	if beg >= end {
		return nil, 0, nil
	}
	depth := make([]float64, end-beg)
	n := 0
	err := f.Fetch(name, beg, end, func(rec *sam.Record) {
		if rec.Flags&(sam.Unmapped|sam.Secondary|sam.QCFail|sam.Duplicate) != 0 {
			return
		}
		n++
		pos := rec.Pos
		for _, op := range rec.Cigar {
			l := op.Len()
			switch op.Type() {
			case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
				lo, hi := max(pos, beg), min(pos+l, end)
				for i := lo; i < hi; i++ {
					depth[i-beg]++
				}
				pos += l
			case sam.CigarDeletion, sam.CigarSkipped:
				pos += l
			}
		}
	})
	if err != nil {
		return nil, 0, err
	}
	return depth, n, nil
}
