package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/bed"
	"github.com/biogo/biogo/seq"

	"github.com/tjparnell/biotoolbox-sub009/internal/intervals"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// region is a 1-based inclusive query interval.
type region struct {
	Chrom       string
	Start, Stop int64
}

func (r region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Start, r.Stop)
}

// parseRegion parses chrom:start-stop, or a bare chrom:pos.
func parseRegion(s string) (region, error) {
	name, span, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return region{}, fmt.Errorf("%w: region %q: want chrom:start-stop", score.ErrInvalidParams, s)
	}
	from, to, ranged := strings.Cut(strings.ReplaceAll(span, ",", ""), "-")
	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil {
		return region{}, fmt.Errorf("%w: region %q start: %v", score.ErrInvalidParams, s, err)
	}
	stop := start
	if ranged {
		if stop, err = strconv.ParseInt(to, 10, 64); err != nil {
			return region{}, fmt.Errorf("%w: region %q stop: %v", score.ErrInvalidParams, s, err)
		}
	}
	return region{Chrom: name, Start: start, Stop: stop}, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// readRegions reads the first three BED columns of path as query regions.
func readRegions(path string) ([]region, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := bed.NewReader(f, 3)
	if err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	var out []region
	sc := featio.NewScanner(r)
	for sc.Next() {
		b := sc.Feat().(*bed.Bed3)
		out = append(out, region{Chrom: b.Chrom, Start: int64(b.ChromStart) + 1, Stop: int64(b.ChromEnd)})
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	return out, nil
}

// readIntervals reads a six-column BED file as interval records.
func readIntervals(path string) ([]intervals.Record, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := bed.NewReader(f, 6)
	if err != nil {
		return nil, fmt.Errorf("read intervals: %w", err)
	}
	var out []intervals.Record
	sc := featio.NewScanner(r)
	for sc.Next() {
		b := sc.Feat().(*bed.Bed6)
		rec := intervals.Record{
			Chrom: b.Chrom,
			Beg:   b.ChromStart,
			End:   b.ChromEnd,
			Score: float64(b.FeatScore),
			Name:  b.FeatName,
		}
		switch b.FeatStrand {
		case seq.Plus:
			rec.Strand = score.Forward
		case seq.Minus:
			rec.Strand = score.Reverse
		}
		out = append(out, rec)
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("read intervals: %w", err)
	}
	return out, nil
}
