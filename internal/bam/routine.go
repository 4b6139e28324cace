package bam

import (
	"fmt"

	"github.com/biogo/hts/sam"

	"github.com/tjparnell/biotoolbox-sub009/internal/posmap"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Fragment orientation classes. Paired records take the orientation of the
// first mate.
const (
	anyOrientation = iota
	forwardOrientation
	reverseOrientation
)

// Orientation returns the fragment strand of rec: a first mate or unpaired
// record keeps its own strand and a second mate reports the opposite.
func Orientation(rec *sam.Record) score.Strand {
	rev := rec.Flags&sam.Reverse != 0
	if rec.Flags&sam.Paired != 0 && rec.Flags&sam.Read2 != 0 {
		rev = !rev
	}
	if rev {
		return score.Reverse
	}
	return score.Forward
}

// FivePrime returns the 1-based genomic position of the 5' end of rec.
func FivePrime(rec *sam.Record) int64 {
	if rec.Flags&sam.Reverse != 0 {
		return int64(rec.End())
	}
	return int64(rec.Pos) + 1
}

const rejectFlags = sam.Unmapped | sam.Secondary | sam.Duplicate | sam.Supplementary

// Collector receives the records accepted by a Routine. Positional keys
// outside the 1-based window [Start, Stop] are dropped; a zero Stop keeps
// every key.
type Collector struct {
	MinMapQ     uint8
	Start, Stop int64

	n     int
	names map[string]struct{}
	tally posmap.Tally
	named posmap.Names
}

// NewCollector returns an empty collector.
func NewCollector(minMapQ uint8) *Collector {
	return &Collector{
		MinMapQ: minMapQ,
		names:   make(map[string]struct{}),
		tally:   posmap.Tally{},
		named:   posmap.Names{},
	}
}

// Count returns the scalar result: accepted records, or distinct names for
// named counting.
func (c *Collector) Count() int {
	if len(c.names) > 0 {
		return len(c.names)
	}
	return c.n
}

// Positions returns counts keyed by 5' position.
func (c *Collector) Positions() map[int64]float64 {
	if len(c.named) > 0 {
		return c.named.Counts()
	}
	out := make(map[int64]float64, len(c.tally))
	for pos, v := range c.tally {
		out[pos] = v
	}
	return out
}

// Routine is one specialized per-alignment callback. Every branch on the
// query strand, strandedness, method and shape is resolved when the routine
// is built; the per-record path only calls the selected pieces.
type Routine struct {
	name    string
	accept  func(*sam.Record) bool
	inside  func(rec *sam.Record, beg, end int) bool
	collect func(*sam.Record, *Collector)
}

func (r *Routine) String() string { return r.name }

// Apply feeds one record fetched for the 0-based interval [beg, end).
func (r *Routine) Apply(rec *sam.Record, beg, end int, c *Collector) {
	if rec.Flags&rejectFlags != 0 || rec.MapQ < c.MinMapQ {
		return
	}
	if !r.accept(rec) || !r.inside(rec, beg, end) {
		return
	}
	r.collect(rec, c)
}

func acceptAny(*sam.Record) bool { return true }

func acceptForward(rec *sam.Record) bool { return Orientation(rec) == score.Forward }

func acceptReverse(rec *sam.Record) bool { return Orientation(rec) == score.Reverse }

// endsInside accepts records whose start or end lies in the interval.
func endsInside(rec *sam.Record, beg, end int) bool {
	s, e := rec.Pos, rec.End()
	return (s >= beg && s < end) || (e > beg && e <= end)
}

// contained accepts records lying entirely in the interval.
func contained(rec *sam.Record, beg, end int) bool {
	return rec.Pos >= beg && rec.End() <= end
}

func collectCount(_ *sam.Record, c *Collector) { c.n++ }

func collectName(rec *sam.Record, c *Collector) { c.names[rec.Name] = struct{}{} }

func (c *Collector) inWindow(pos int64) bool {
	return c.Stop == 0 || (pos >= c.Start && pos <= c.Stop)
}

func collectPosition(rec *sam.Record, c *Collector) {
	c.n++
	if pos := FivePrime(rec); c.inWindow(pos) {
		c.tally.Inc(pos)
	}
}

// collectNamedPosition keeps only the leading mate of a proper pair so one
// fragment is not registered at two positions.
func collectNamedPosition(rec *sam.Record, c *Collector) {
	if rec.Flags&sam.ProperPair != 0 && rec.Flags&sam.Read2 != 0 {
		return
	}
	if pos := FivePrime(rec); c.inWindow(pos) {
		c.named.Add(pos, rec.Name)
	}
}

// Key selects a routine.
type Key struct {
	Stranded score.Strandedness
	Strand   score.Strand
	Method   score.Method
	Shape    score.Shape
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Stranded, k.Strand, k.Method, k.Shape)
}

// orientation resolves the class of records accepted for k. Antisense
// swaps the class relative to the query strand.
func (k Key) orientation() int {
	if k.Stranded == score.All || k.Strand == score.NoStrand {
		return anyOrientation
	}
	forward := k.Strand == score.Forward
	if k.Stranded == score.Antisense {
		forward = !forward
	}
	if forward {
		return forwardOrientation
	}
	return reverseOrientation
}

// routines holds every supported routine, indexed by orientation, method
// and shape. Entries are built once per process.
var routines = buildRoutines()

var countMethods = []score.Method{score.Count, score.PCount, score.NCount}

func buildRoutines() map[[3]int]*Routine {
	accepts := [...]func(*sam.Record) bool{acceptAny, acceptForward, acceptReverse}
	orientNames := [...]string{"any", "forward", "reverse"}
	out := make(map[[3]int]*Routine)
	for o, accept := range accepts {
		for _, m := range countMethods {
			for _, shape := range []score.Shape{score.Scalar, score.Positional} {
				r := &Routine{
					name:   fmt.Sprintf("%s_%s_%s", orientNames[o], m, shape),
					accept: accept,
					inside: endsInside,
				}
				if m == score.PCount {
					r.inside = contained
				}
				switch {
				case m == score.NCount && shape == score.Positional:
					r.collect = collectNamedPosition
				case m == score.NCount:
					r.collect = collectName
				case shape == score.Positional:
					r.collect = collectPosition
				default:
					r.collect = collectCount
				}
				out[[3]int{o, int(m), int(shape)}] = r
			}
		}
	}
	return out
}

// build returns the routine for k or ErrUnsupported.
func build(k Key) (*Routine, error) {
	if !k.Method.IsCount() {
		return nil, fmt.Errorf("%w: alignment callback for method %s", score.ErrUnsupported, k.Method)
	}
	r, ok := routines[[3]int{k.orientation(), int(k.Method), int(k.Shape)}]
	if !ok {
		return nil, fmt.Errorf("%w: alignment callback %s", score.ErrUnsupported, k)
	}
	return r, nil
}

// Dispatcher memoizes routine lookups. The same key always yields the same
// *Routine.
type Dispatcher struct {
	cache map[Key]*Routine
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{cache: make(map[Key]*Routine)}
}

// Lookup returns the routine for k, building it on first use.
func (d *Dispatcher) Lookup(k Key) (*Routine, error) {
	if r, ok := d.cache[k]; ok {
		return r, nil
	}
	r, err := build(k)
	if err != nil {
		return nil, err
	}
	d.cache[k] = r
	return r, nil
}

// Len returns the number of memoized routines.
func (d *Dispatcher) Len() int { return len(d.cache) }

type dispatcherKey struct{}

// DispatcherFor returns the dispatcher owned by ctx.
func DispatcherFor(ctx *score.Context) *Dispatcher {
	return ctx.Local(dispatcherKey{}, func() any { return NewDispatcher() }).(*Dispatcher)
}
