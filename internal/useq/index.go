package useq

import "sort"

// sliceIndex provides O(log n + k) overlap queries over the slices of one
// chromosome using a sorted-slice approach. It is built once per archive
// and never modified.
type sliceIndex struct {
	slices []*Slice
	maxEnd []int // maxEnd[i] = max(End) for slices[:i+1]
}

// buildSliceIndex sorts slices by start and records the running max end.
func buildSliceIndex(slices []*Slice) *sliceIndex {
	if len(slices) == 0 {
		return &sliceIndex{}
	}
	sorted := append([]*Slice(nil), slices...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Beg != sorted[j].Beg {
			return sorted[i].Beg < sorted[j].Beg
		}
		return sorted[i].Entry < sorted[j].Entry
	})

	maxEnd := make([]int, len(sorted))
	maxEnd[0] = sorted[0].End
	for i := 1; i < len(sorted); i++ {
		maxEnd[i] = max(maxEnd[i-1], sorted[i].End)
	}
	return &sliceIndex{slices: sorted, maxEnd: maxEnd}
}

// overlaps returns the slices intersecting [beg, end) in start order.
func (x *sliceIndex) overlaps(beg, end int) []*Slice {
	if len(x.slices) == 0 || beg >= end {
		return nil
	}
	// Candidates start before end.
	hi := sort.Search(len(x.slices), func(i int) bool {
		return x.slices[i].Beg >= end
	})
	// Slices in [0, lo) all end at or before beg.
	lo := sort.Search(hi, func(i int) bool {
		return x.maxEnd[i] > beg
	})
	var out []*Slice
	for _, s := range x.slices[lo:hi] {
		if s.End > beg {
			out = append(out, s)
		}
	}
	return out
}
