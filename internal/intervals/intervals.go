// Package intervals scores generic interval records, each carrying an
// optional name and score, with the count, precise-count, named-count and
// score-summary methods.
package intervals

import (
	"fmt"

	"github.com/tjparnell/biotoolbox-sub009/internal/posmap"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Record is one interval in 0-based half-open coordinates.
type Record struct {
	Chrom  string
	Beg    int
	End    int
	Strand score.Strand
	Score  float64
	Name   string
}

// Midpoint returns the 1-based midpoint, rounding halves up.
func (r Record) Midpoint() int64 {
	return score.Midpoint(r.Beg, r.End)
}

// Key identifies the record for named counting. Unnamed records count
// individually.
func (r Record) Key() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Beg, r.End)
}

// EndsInside reports whether the start or end of r lies in [beg, end).
func EndsInside(r Record, beg, end int) bool {
	return (r.Beg >= beg && r.Beg < end) || (r.End > beg && r.End <= end)
}

// Contained reports whether r lies entirely in [beg, end).
func Contained(r Record, beg, end int) bool {
	return r.Beg >= beg && r.End <= end
}

// Overlaps reports whether r intersects [beg, end).
func Overlaps(r Record, beg, end int) bool {
	return r.Beg < end && r.End > beg
}

// Collector accumulates the records of a query, one dataset at a time. It
// applies the strand rule and the containment rule of the query method.
type Collector struct {
	p        *score.Params
	beg, end int
	inside   func(Record, int, int) bool

	n      int
	names  map[string]struct{}
	values []float64

	acc   *posmap.Accumulator
	tally posmap.Tally
	named posmap.Names
}

// NewCollector prepares a collector for p.
func NewCollector(p *score.Params) *Collector {
	beg, end := score.HalfOpen(p.Start, p.Stop)
	c := &Collector{
		p:      p,
		beg:    max(beg, 0),
		end:    end,
		inside: Overlaps,
		names:  make(map[string]struct{}),
		acc:    posmap.New(),
		tally:  posmap.Tally{},
		named:  posmap.Names{},
	}
	switch p.Method {
	case score.Count, score.NCount:
		c.inside = EndsInside
	case score.PCount:
		c.inside = Contained
	}
	return c
}

// Window returns the 0-based half-open query interval.
func (c *Collector) Window() (int, int) { return c.beg, c.end }

// Add offers r and reports whether it matched. Unscored records (NoData)
// count but do not contribute values.
func (c *Collector) Add(r Record) bool {
	if !c.p.Accepts(r.Strand) || !c.inside(r, c.beg, c.end) {
		return false
	}
	c.n++
	c.names[r.Key()] = struct{}{}
	if !score.IsNoData(r.Score) {
		c.values = append(c.values, r.Score)
	}

	mid := r.Midpoint()
	if mid < c.p.Start || mid > c.p.Stop {
		return true
	}
	switch c.p.Method {
	case score.Count, score.PCount:
		c.tally.Inc(mid)
	case score.NCount:
		c.named.Add(mid, r.Key())
	default:
		if !score.IsNoData(r.Score) {
			c.acc.Add(mid, r.Score)
		}
	}
	return true
}

// EndDataset folds the per-dataset counts into the position map. Counts at
// one position add up within a dataset and are averaged across datasets.
func (c *Collector) EndDataset() {
	if c.p.Method == score.NCount {
		c.acc.Merge(c.named.Counts())
	} else {
		c.acc.Merge(c.tally)
	}
	c.tally = posmap.Tally{}
	c.named = posmap.Names{}
}

// Count returns the matched records, or distinct names for named counting.
func (c *Collector) Count() int {
	if c.p.Method == score.NCount {
		return len(c.names)
	}
	return c.n
}

// Score returns the scalar result.
func (c *Collector) Score() float64 {
	if c.p.Method.IsCount() {
		return float64(c.Count())
	}
	return score.Summarize(c.p.Method, c.values)
}

// Scores returns record scores, or one entry per counted record.
func (c *Collector) Scores() []float64 {
	if !c.p.Method.IsCount() {
		return c.values
	}
	ones := make([]float64, c.Count())
	for i := range ones {
		ones[i] = 1
	}
	return ones
}

// Positions returns the reconciled map keyed by record midpoint. Records
// whose midpoint lies outside the query interval are not keyed. The
// collector must not be used afterward.
func (c *Collector) Positions() map[int64]float64 {
	c.EndDataset()
	return c.acc.Finalize()
}
