package bigwig

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/tabix"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
	"github.com/tjparnell/biotoolbox-sub009/internal/fingerprint"
)

// BedGraph is an open bgzipped bedGraph file. Queries go through its tabix
// index; when no usable index can be written the records are held in
// memory instead.
type BedGraph struct {
	path   string
	f      *os.File
	bgzf   *bgzf.Reader
	idx    *tabix.Index
	mem    map[string][]Interval
	chroms *chrom.Map
}

type bedGraphRecord struct {
	name string
	iv   Interval
}

func (r bedGraphRecord) RefName() string { return r.name }
func (r bedGraphRecord) Start() int      { return r.iv.Beg }
func (r bedGraphRecord) End() int        { return r.iv.End }

// parseBedGraph parses one data line. Header, track and comment lines
// report false.
func parseBedGraph(line []byte) (bedGraphRecord, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 || line[0] == '#' || bytes.HasPrefix(line, []byte("track")) || bytes.HasPrefix(line, []byte("browser")) {
		return bedGraphRecord{}, false
	}
	fields := bytes.Split(line, []byte{'\t'})
	if len(fields) < 4 {
		return bedGraphRecord{}, false
	}
	beg, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return bedGraphRecord{}, false
	}
	end, err := strconv.Atoi(string(fields[2]))
	if err != nil {
		return bedGraphRecord{}, false
	}
	v, err := strconv.ParseFloat(string(fields[3]), 64)
	if err != nil {
		return bedGraphRecord{}, false
	}
	return bedGraphRecord{name: string(fields[0]), iv: Interval{Beg: beg, End: end, Value: v}}, true
}

// readLine reads one line and the virtual-offset chunk it occupies.
func readLine(r *bgzf.Reader) ([]byte, bgzf.Chunk, error) {
	tx := r.Begin()
	var (
		data []byte
		b    byte
		err  error
	)
	for {
		b, err = r.ReadByte()
		if err != nil {
			break
		}
		data = append(data, b)
		if b == '\n' {
			break
		}
	}
	return data, tx.End(), err
}

// scan calls fn for every data record with its chunk.
func scan(path string, fn func(bedGraphRecord, bgzf.Chunk) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "bedgraph: error opening %s", path)
	}
	defer f.Close()
	r, err := bgzf.NewReader(f, 1)
	if err != nil {
		return errors.Wrapf(err, "bedgraph: error creating bgzf reader for %s", path)
	}
	defer r.Close()
	for {
		line, chunk, err := readLine(r)
		if rec, ok := parseBedGraph(line); ok {
			if ferr := fn(rec, chunk); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "bedgraph: error reading %s", path)
		}
	}
}

// BuildIndex writes a tabix index for a coordinate-sorted bgzipped
// bedGraph file to out.
func BuildIndex(path, out string) error {
	idx := tabix.New()
	idx.NameColumn, idx.BeginColumn, idx.EndColumn = 1, 2, 3
	idx.ZeroBased = true
	idx.MetaChar = '#'

	seen := make(map[string]bool)
	err := scan(path, func(rec bedGraphRecord, chunk bgzf.Chunk) error {
		seen[rec.name] = true
		return errors.Wrapf(idx.Add(rec, chunk, true, true), "bedgraph: error indexing %s:%d", rec.name, rec.iv.Beg)
	})
	if err != nil {
		return err
	}
	if len(idx.Names()) != len(seen) {
		return errors.Errorf("bedgraph: index of %s holds %d references for %d chromosomes", path, len(idx.Names()), len(seen))
	}
	return fingerprint.WriteAtomic(out, func(w *os.File) error {
		bw := bgzf.NewWriter(w, 1)
		if err := tabix.WriteTo(bw, idx); err != nil {
			bw.Close()
			return errors.Wrapf(err, "bedgraph: error writing index %s", out)
		}
		return bw.Close()
	})
}

func readIndex(path string) (*tabix.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "bedgraph: error opening %s", path)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "bedgraph: error reading tabix index %s", path)
	}
	defer gz.Close()
	idx, err := tabix.ReadFrom(gz)
	if err != nil {
		return nil, errors.Wrapf(err, "bedgraph: error parsing tabix index %s", path)
	}
	return idx, nil
}

// loadMemory reads every record into per-chromosome sorted slices.
func loadMemory(path string) (map[string][]Interval, []string, error) {
	mem := make(map[string][]Interval)
	var names []string
	err := scan(path, func(rec bedGraphRecord, _ bgzf.Chunk) error {
		if _, ok := mem[rec.name]; !ok {
			names = append(names, rec.name)
		}
		mem[rec.name] = append(mem[rec.name], rec.iv)
		return nil
	})
	for _, ivs := range mem {
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Beg < ivs[j].Beg })
	}
	return mem, names, err
}

// OpenBedGraph opens path, building <path>.tbi when it is missing or older
// than the data.
func OpenBedGraph(path, prefix string, logger *zap.Logger) (*BedGraph, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bg := &BedGraph{path: path}
	idxPath := path + ".tbi"
	if fingerprint.Stale(path, idxPath) {
		logger.Info("building tabix index", zap.String("bedgraph", path))
		if err := BuildIndex(path, idxPath); err != nil {
			logger.Warn("tabix index unavailable, loading records into memory",
				zap.String("bedgraph", path), zap.Error(err))
		}
	}

	var names []string
	if fingerprint.Exists(idxPath) && !fingerprint.Stale(path, idxPath) {
		idx, err := readIndex(idxPath)
		if err != nil {
			return nil, err
		}
		bg.idx = idx
	}
	// An index without references reads back as nil.
	if bg.idx != nil {
		names = bg.idx.Names()
	} else {
		mem, memNames, err := loadMemory(path)
		if err != nil {
			return nil, err
		}
		bg.mem, names = mem, memNames
	}
	bg.chroms = chrom.FromNames(prefix, names)

	if bg.idx != nil {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "bedgraph: error opening %s", path)
		}
		r, err := bgzf.NewReader(f, 1)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "bedgraph: error creating bgzf reader for %s", path)
		}
		bg.f, bg.bgzf = f, r
	}
	return bg, nil
}

func (b *BedGraph) Path() string       { return b.path }
func (b *BedGraph) Chroms() *chrom.Map { return b.chroms }

// Close releases the file handle, if any.
func (b *BedGraph) Close() error {
	if b.bgzf == nil {
		return nil
	}
	b.bgzf.Close()
	return b.f.Close()
}

// Intervals returns the records overlapping [beg, end), clipped to it.
func (b *BedGraph) Intervals(name string, beg, end int) ([]Interval, error) {
	if beg >= end {
		return nil, nil
	}
	if b.idx == nil {
		var out []Interval
		for _, iv := range b.mem[name] {
			if iv.Beg >= end {
				break
			}
			if c, ok := clip(iv, beg, end); ok {
				out = append(out, c)
			}
		}
		return out, nil
	}

	chunks, err := b.idx.Chunks(name, beg, end)
	if err == index.ErrNoReference || err == index.ErrInvalid {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "bedgraph: error reading chunks from %s", b.path)
	}
	cr, err := index.NewChunkReader(b.bgzf, chunks)
	if err != nil {
		return nil, errors.Wrapf(err, "bedgraph: error creating chunked reader from %s", b.path)
	}
	defer cr.Close()

	var out []Interval
	sc := bufio.NewScanner(cr)
	for sc.Scan() {
		rec, ok := parseBedGraph(sc.Bytes())
		if !ok || rec.name != name {
			continue
		}
		if rec.iv.Beg >= end {
			break
		}
		if c, ok := clip(rec.iv, beg, end); ok {
			out = append(out, c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "bedgraph: error iterating on %s", b.path)
	}
	return out, nil
}

// Summary folds the overlapping records. Plain bedGraph files have no
// zoom levels so this always reads full resolution.
func (b *BedGraph) Summary(name string, beg, end int) (Summary, error) {
	ivs, err := b.Intervals(name, beg, end)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for _, iv := range ivs {
		s = s.AddSpan(iv.Value, iv.End-iv.Beg)
	}
	return s, nil
}
