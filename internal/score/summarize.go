package score

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidParams reports a malformed descriptor.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrUnsupported reports a method/strand/shape combination a backend
	// cannot serve. It indicates a caller bug.
	ErrUnsupported = errors.New("unsupported combination")
	// ErrNotCombinable reports a statistic that cannot be merged from
	// per-file summaries, such as a standard deviation across files.
	ErrNotCombinable = errors.New("statistic cannot be combined across files")
)

// NoData is the scalar returned when a region holds no values for a method
// whose empty result is undefined (mean, median, min, max, stddev).
var NoData = math.NaN()

// IsNoData reports whether v is the NoData sentinel.
func IsNoData(v float64) bool {
	return math.IsNaN(v)
}

// Summarize reduces values with the given method. Count-like methods return
// the number of values, sum returns 0 for no values, and the remaining
// methods return NoData for no values. Score aggregates as a mean.
func Summarize(m Method, values []float64) float64 {
	switch m {
	case Count, PCount, NCount:
		return float64(len(values))
	case Sum:
		if len(values) == 0 {
			return 0
		}
		return floats.Sum(values)
	}
	if len(values) == 0 {
		return NoData
	}
	switch m {
	case Score, Mean:
		return stat.Mean(values, nil)
	case Median:
		return median(values)
	case Min:
		return floats.Min(values)
	case Max:
		return floats.Max(values)
	case StdDev:
		if len(values) < 2 {
			return 0
		}
		return stat.StdDev(values, nil)
	}
	return NoData
}

// Empty returns the scalar for a region without data.
func Empty(m Method) float64 {
	return Summarize(m, nil)
}

func median(values []float64) float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
