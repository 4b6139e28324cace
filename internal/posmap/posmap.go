// Package posmap builds position-indexed score maps from several sources
// and reconciles positions that received more than one value.
package posmap

// Accumulator collects values keyed by 1-based position. The first value at
// a position is stored directly; later values go to a pending list so that
// insertion stays O(1). Finalize collapses each pending group to the mean of
// all values recorded at that position.
type Accumulator struct {
	values  map[int64]float64
	pending map[int64][]float64
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{
		values:  make(map[int64]float64),
		pending: make(map[int64][]float64),
	}
}

// Add records v at pos.
func (a *Accumulator) Add(pos int64, v float64) {
	if _, ok := a.values[pos]; !ok {
		a.values[pos] = v
		return
	}
	a.pending[pos] = append(a.pending[pos], v)
}

// Merge adds every entry of m.
func (a *Accumulator) Merge(m map[int64]float64) {
	for pos, v := range m {
		a.Add(pos, v)
	}
}

// Len returns the number of distinct positions.
func (a *Accumulator) Len() int {
	return len(a.values)
}

// Collisions returns the number of positions awaiting reconciliation.
func (a *Accumulator) Collisions() int {
	return len(a.pending)
}

// Finalize returns the reconciled map. Work is proportional to the number
// of colliding positions. The accumulator must not be used afterward.
func (a *Accumulator) Finalize() map[int64]float64 {
	for pos, extra := range a.pending {
		sum := a.values[pos]
		for _, v := range extra {
			sum += v
		}
		a.values[pos] = sum / float64(len(extra)+1)
	}
	out := a.values
	a.values, a.pending = nil, nil
	return out
}

// Tally counts occurrences per position within one source. Counts at the
// same position add up rather than being averaged.
type Tally map[int64]float64

// Inc adds one at pos.
func (t Tally) Inc(pos int64) {
	t[pos]++
}

// Names records distinct record names per position within one source.
type Names map[int64]map[string]struct{}

// Add records name at pos.
func (n Names) Add(pos int64, name string) {
	set, ok := n[pos]
	if !ok {
		set = make(map[string]struct{})
		n[pos] = set
	}
	set[name] = struct{}{}
}

// Counts returns the number of distinct names at each position.
func (n Names) Counts() map[int64]float64 {
	out := make(map[int64]float64, len(n))
	for pos, set := range n {
		out[pos] = float64(len(set))
	}
	return out
}
