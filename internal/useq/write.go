package useq

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// DefaultSliceSize is the number of records written per slice.
const DefaultSliceSize = 10000

type sliceKey struct {
	chrom  string
	strand score.Strand
}

// Write stores records as an archive on w. Records are grouped by
// chromosome and strand, sorted by start and split into slices of at most
// sliceSize rows. meta is written to the readme alongside the slice count.
func Write(w io.Writer, records []Record, sliceSize int, meta map[string]string) error {
	if sliceSize <= 0 {
		sliceSize = DefaultSliceSize
	}
	groups := make(map[sliceKey][]Record)
	for _, r := range records {
		if r.Beg > r.End {
			return fmt.Errorf("record %s:%d-%d: start after stop", r.Chrom, r.Beg, r.End)
		}
		k := sliceKey{r.Chrom, r.Strand}
		groups[k] = append(groups[k], r)
	}
	keys := make([]sliceKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].chrom != keys[j].chrom {
			return keys[i].chrom < keys[j].chrom
		}
		return keys[i].strand < keys[j].strand
	})

	zw := zip.NewWriter(w)
	slices := 0
	for _, k := range keys {
		rows := groups[k]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Beg < rows[j].Beg })
		for lo := 0; lo < len(rows); lo += sliceSize {
			chunk := rows[lo:min(lo+sliceSize, len(rows))]
			beg, end := chunk[0].Beg, chunk[0].End
			for _, r := range chunk {
				end = max(end, r.End)
			}
			fw, err := zw.Create(SliceName(k.chrom, k.strand, beg, end))
			if err != nil {
				return fmt.Errorf("create slice: %w", err)
			}
			var sb strings.Builder
			for _, r := range chunk {
				sb.WriteString(formatRow(r))
			}
			if _, err := io.WriteString(fw, sb.String()); err != nil {
				return fmt.Errorf("write slice: %w", err)
			}
			slices++
		}
	}

	fw, err := zw.Create(ReadMeName)
	if err != nil {
		return fmt.Errorf("create %s: %w", ReadMeName, err)
	}
	lines := []string{"archiveVersion=1", "slices=" + strconv.Itoa(slices)}
	mkeys := make([]string, 0, len(meta))
	for k := range meta {
		mkeys = append(mkeys, k)
	}
	sort.Strings(mkeys)
	for _, k := range mkeys {
		lines = append(lines, k+"="+meta[k])
	}
	if _, err := io.WriteString(fw, strings.Join(lines, "\n")+"\n"); err != nil {
		return fmt.Errorf("write %s: %w", ReadMeName, err)
	}
	return zw.Close()
}
