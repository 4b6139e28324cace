// Package useq reads and writes interval archives: zip files holding
// sorted, tab-separated interval slices named by chromosome, strand and
// range, plus an archiveReadMe.txt of key=value lines.
package useq

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tjparnell/biotoolbox-sub009/internal/intervals"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// ReadMeName is the archive metadata entry.
const ReadMeName = "archiveReadMe.txt"

// Record is one archived interval.
type Record = intervals.Record

// Slice is one archive entry covering [Beg, End) of a chromosome strand.
type Slice struct {
	Entry  string
	Chrom  string
	Strand score.Strand
	Beg    int
	End    int
}

func strandCode(s score.Strand) string {
	switch s {
	case score.Forward:
		return "+"
	case score.Reverse:
		return "-"
	}
	return "."
}

// SliceName formats the entry name of a slice.
func SliceName(chrom string, strand score.Strand, beg, end int) string {
	return fmt.Sprintf("%s_%s_%d_%d.tsv", chrom, strandCode(strand), beg, end)
}

// ParseSliceName parses <chrom>_<strand>_<start>_<stop>.tsv. Chromosome
// names may themselves contain underscores.
func ParseSliceName(entry string) (*Slice, error) {
	base, ok := strings.CutSuffix(entry, ".tsv")
	if !ok {
		return nil, fmt.Errorf("slice %q: missing .tsv suffix", entry)
	}
	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return nil, fmt.Errorf("slice %q: want chrom_strand_start_stop", entry)
	}
	n := len(parts)
	strand, err := score.ParseStrand(parts[n-3])
	if err != nil {
		return nil, fmt.Errorf("slice %q: %w", entry, err)
	}
	beg, err := strconv.Atoi(parts[n-2])
	if err != nil {
		return nil, fmt.Errorf("slice %q start: %w", entry, err)
	}
	end, err := strconv.Atoi(parts[n-1])
	if err != nil {
		return nil, fmt.Errorf("slice %q stop: %w", entry, err)
	}
	if beg > end {
		return nil, fmt.Errorf("slice %q: start after stop", entry)
	}
	return &Slice{
		Entry:  entry,
		Chrom:  strings.Join(parts[:n-3], "_"),
		Strand: strand,
		Beg:    beg,
		End:    end,
	}, nil
}

// formatRow writes start, stop, score and name. Unscored records leave the
// score column empty.
func formatRow(r Record) string {
	sc := ""
	if !score.IsNoData(r.Score) {
		sc = strconv.FormatFloat(r.Score, 'g', -1, 64)
	}
	return strconv.Itoa(r.Beg) + "\t" + strconv.Itoa(r.End) + "\t" + sc + "\t" + r.Name + "\n"
}

// parseRow parses one slice row. The name and score columns are optional; a
// missing score reads as NoData.
func parseRow(s *Slice, line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return Record{}, fmt.Errorf("row %q: want start and stop", line)
	}
	beg, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("row start: %w", err)
	}
	end, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, fmt.Errorf("row stop: %w", err)
	}
	r := Record{Chrom: s.Chrom, Beg: beg, End: end, Strand: s.Strand, Score: score.NoData}
	if len(fields) > 2 && fields[2] != "" {
		if r.Score, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return Record{}, fmt.Errorf("row score: %w", err)
		}
	}
	if len(fields) > 3 {
		r.Name = fields[3]
	}
	return r, nil
}
