package bigwig

import (
	"fmt"
	"os"
	"regexp"

	"github.com/pbenner/gonetics"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
)

// BigWig is an open bigWig file.
type BigWig struct {
	path   string
	f      *os.File
	r      *gonetics.BigWigReader
	chroms *chrom.Map
}

// OpenBigWig opens a bigWig file and reads its chromosome table.
func OpenBigWig(path, prefix string) (*BigWig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bigwig: %w", err)
	}
	r, err := gonetics.NewBigWigReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read bigwig header %s: %w", path, err)
	}
	seqs := make([]chrom.Seq, len(r.Genome.Seqnames))
	for i, name := range r.Genome.Seqnames {
		seqs[i] = chrom.Seq{Name: name, Length: r.Genome.Lengths[i]}
	}
	return &BigWig{path: path, f: f, r: r, chroms: chrom.NewMap(prefix, seqs)}, nil
}

func (b *BigWig) Path() string       { return b.path }
func (b *BigWig) Chroms() *chrom.Map { return b.chroms }
func (b *BigWig) Close() error       { return b.f.Close() }

func seqPattern(name string) string {
	return "^" + regexp.QuoteMeta(name) + "$"
}

// Summary queries a single bin spanning [beg, end), which the reader
// answers from the closest zoom level.
func (b *BigWig) Summary(name string, beg, end int) (Summary, error) {
	var s Summary
	if beg >= end {
		return s, nil
	}
	var qerr error
	for rec := range b.r.Query(seqPattern(name), beg, end, end-beg) {
		if rec.Error != nil {
			if qerr == nil {
				qerr = rec.Error
			}
			continue
		}
		s = s.Merge(Summary{
			Valid:      rec.Valid,
			Min:        rec.Min,
			Max:        rec.Max,
			Sum:        rec.Sum,
			SumSquares: rec.SumSquares,
		})
	}
	if qerr != nil {
		return Summary{}, fmt.Errorf("query %s %s:%d-%d: %w", b.path, name, beg, end, qerr)
	}
	return s, nil
}

// Intervals returns raw data records.
func (b *BigWig) Intervals(name string, beg, end int) ([]Interval, error) {
	if beg >= end {
		return nil, nil
	}
	var out []Interval
	var qerr error
	for rec := range b.r.Query(seqPattern(name), beg, end, 0) {
		if rec.Error != nil {
			if qerr == nil {
				qerr = rec.Error
			}
			continue
		}
		v := rec.Max
		if rec.Valid > 0 {
			v = rec.Sum / rec.Valid
		}
		if iv, ok := clip(Interval{Beg: rec.From, End: rec.To, Value: v}, beg, end); ok {
			out = append(out, iv)
		}
	}
	if qerr != nil {
		return nil, fmt.Errorf("query %s %s:%d-%d: %w", b.path, name, beg, end, qerr)
	}
	return out, nil
}
