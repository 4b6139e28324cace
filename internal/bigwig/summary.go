// Package bigwig scores regions of indexed signal files: bigWig files read
// through their zoom-level summaries and bgzipped, tabix-indexed bedGraph
// files. Files may be grouped into set directories with per-entry metadata.
package bigwig

import (
	"fmt"
	"math"

	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Summary holds single-bin statistics over an interval. Valid counts the
// bases that carry data.
type Summary struct {
	Valid      float64
	Min        float64
	Max        float64
	Sum        float64
	SumSquares float64
}

// Merge folds o into s.
func (s Summary) Merge(o Summary) Summary {
	if o.Valid == 0 {
		return s
	}
	if s.Valid == 0 {
		return o
	}
	return Summary{
		Valid:      s.Valid + o.Valid,
		Min:        math.Min(s.Min, o.Min),
		Max:        math.Max(s.Max, o.Max),
		Sum:        s.Sum + o.Sum,
		SumSquares: s.SumSquares + o.SumSquares,
	}
}

// AddSpan records value v covering n bases.
func (s Summary) AddSpan(v float64, n int) Summary {
	if n <= 0 {
		return s
	}
	w := float64(n)
	return s.Merge(Summary{Valid: w, Min: v, Max: v, Sum: v * w, SumSquares: v * v * w})
}

// Value reduces the summary for m. Median cannot be derived from a summary
// and yields ErrUnsupported.
func (s Summary) Value(m score.Method) (float64, error) {
	switch m {
	case score.Count:
		return s.Valid, nil
	case score.Sum:
		return s.Sum, nil
	}
	if s.Valid == 0 {
		return score.NoData, nil
	}
	switch m {
	case score.Score, score.Mean:
		return s.Sum / s.Valid, nil
	case score.Min:
		return s.Min, nil
	case score.Max:
		return s.Max, nil
	case score.StdDev:
		if s.Valid < 2 {
			return 0, nil
		}
		v := (s.SumSquares - s.Sum*s.Sum/s.Valid) / (s.Valid - 1)
		return math.Sqrt(math.Max(v, 0)), nil
	}
	return 0, fmt.Errorf("%w: summary for method %s", score.ErrUnsupported, m)
}

// Combine merges the summaries of several files for m. Means are weighted
// by valid bases, sums and counts add and extrema are taken across files.
// A standard deviation over more than one file cannot be recovered from
// summaries and fails with ErrNotCombinable.
func Combine(m score.Method, parts []Summary) (float64, error) {
	if m == score.StdDev && len(parts) > 1 {
		return 0, fmt.Errorf("%w: stddev across %d signal files", score.ErrNotCombinable, len(parts))
	}
	var total Summary
	for _, p := range parts {
		total = total.Merge(p)
	}
	return total.Value(m)
}
