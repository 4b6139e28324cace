// Package score defines the normalized query contract shared by every
// storage backend: the parameter descriptor, the aggregation methods and the
// per-process context that owns opened resources.
package score

import (
	"fmt"
	"strings"
)

// Strand is a genomic strand: +1 (forward), -1 (reverse) or 0 (none).
type Strand int8

const (
	Reverse  Strand = -1
	NoStrand Strand = 0
	Forward  Strand = 1
)

// ParseStrand accepts the usual spellings: 1, +1, +, -1, -, 0, ".".
func ParseStrand(s string) (Strand, error) {
	switch strings.TrimSpace(s) {
	case "1", "+1", "+", "f", "forward", "watson":
		return Forward, nil
	case "-1", "-", "r", "reverse", "crick":
		return Reverse, nil
	case "0", ".", "", "none":
		return NoStrand, nil
	}
	return NoStrand, fmt.Errorf("%w: strand %q", ErrInvalidParams, s)
}

// Valid reports whether the strand is one of -1, 0, 1.
func (s Strand) Valid() bool {
	return s >= Reverse && s <= Forward
}

func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	}
	return "."
}

// Strandedness is the query-level intent describing which strand's data to
// include relative to the feature strand.
type Strandedness uint8

const (
	All Strandedness = iota
	Sense
	Antisense
)

var strandednessNames = [...]string{All: "all", Sense: "sense", Antisense: "antisense"}

// ParseStrandedness parses "sense", "antisense" or "all" (case-insensitive).
func ParseStrandedness(s string) (Strandedness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sense", "same":
		return Sense, nil
	case "antisense", "opposite":
		return Antisense, nil
	case "all", "both", "none", "":
		return All, nil
	}
	return All, fmt.Errorf("%w: strandedness %q", ErrInvalidParams, s)
}

func (s Strandedness) String() string {
	if int(s) < len(strandednessNames) {
		return strandednessNames[s]
	}
	return fmt.Sprintf("strandedness(%d)", s)
}

// Method is a requested aggregation. Not every backend supports every method.
type Method uint8

const (
	Score Method = iota
	Count
	PCount
	NCount
	Mean
	Median
	Min
	Max
	Sum
	StdDev
)

var methodNames = [...]string{
	Score:  "score",
	Count:  "count",
	PCount: "pcount",
	NCount: "ncount",
	Mean:   "mean",
	Median: "median",
	Min:    "min",
	Max:    "max",
	Sum:    "sum",
	StdDev: "stddev",
}

// ParseMethod parses a method name as written in scripts.
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "precise_count":
		return PCount, nil
	case "named_count":
		return NCount, nil
	case "average":
		return Mean, nil
	case "total":
		return Sum, nil
	}
	for m, n := range methodNames {
		if n == name {
			return Method(m), nil
		}
	}
	return Score, fmt.Errorf("%w: method %q", ErrInvalidParams, s)
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("method(%d)", m)
}

// IsCount reports whether the method counts records rather than reading values.
func (m Method) IsCount() bool {
	return m == Count || m == PCount || m == NCount
}

// Shape selects a single summary value or a position-indexed map.
type Shape uint8

const (
	Scalar Shape = iota
	Positional
)

// ParseShape parses "scalar"/"value"/"list" and "positional"/"position".
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar", "value", "list", "":
		return Scalar, nil
	case "positional", "position", "pos":
		return Positional, nil
	}
	return Scalar, fmt.Errorf("%w: shape %q", ErrInvalidParams, s)
}

func (s Shape) String() string {
	if s == Positional {
		return "positional"
	}
	return "scalar"
}

// Params describes one query. The fields are fixed; Datasets always has at
// least one entry.
type Params struct {
	Chrom    string
	Start    int64 // 1-based, inclusive
	Stop     int64 // 1-based, inclusive
	Strand   Strand
	Stranded Strandedness
	Method   Method
	Shape    Shape
	DB       string   // backend handle: feature store connection or signal set
	Datasets []string // file paths or type names
}

// NewParams builds and validates a descriptor. Datasets come last.
func NewParams(chrom string, start, stop int64, strand Strand, stranded Strandedness,
	method Method, shape Shape, db string, datasets ...string) (*Params, error) {
	p := &Params{
		Chrom:    chrom,
		Start:    start,
		Stop:     stop,
		Strand:   strand,
		Stranded: stranded,
		Method:   method,
		Shape:    shape,
		DB:       db,
		Datasets: datasets,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the descriptor invariants.
func (p *Params) Validate() error {
	switch {
	case p.Chrom == "":
		return fmt.Errorf("%w: empty chromosome", ErrInvalidParams)
	case p.Start < 1:
		return fmt.Errorf("%w: start %d is not 1-based", ErrInvalidParams, p.Start)
	case p.Start > p.Stop:
		return fmt.Errorf("%w: start %d > stop %d", ErrInvalidParams, p.Start, p.Stop)
	case !p.Strand.Valid():
		return fmt.Errorf("%w: strand %d", ErrInvalidParams, p.Strand)
	case int(p.Stranded) >= len(strandednessNames):
		return fmt.Errorf("%w: %s", ErrInvalidParams, p.Stranded)
	case int(p.Method) >= len(methodNames):
		return fmt.Errorf("%w: %s", ErrInvalidParams, p.Method)
	case p.Shape > Positional:
		return fmt.Errorf("%w: shape %d", ErrInvalidParams, p.Shape)
	case len(p.Datasets) == 0:
		return fmt.Errorf("%w: no dataset", ErrInvalidParams)
	}
	return nil
}

// Region formats the query interval as chrom:start-stop.
func (p *Params) Region() string {
	return fmt.Sprintf("%s:%d-%d", p.Chrom, p.Start, p.Stop)
}

// WithChrom returns a shallow copy querying a different chromosome name.
func (p *Params) WithChrom(chrom string) *Params {
	q := *p
	q.Chrom = chrom
	return &q
}

// WithDatasets returns a shallow copy with replaced datasets.
func (p *Params) WithDatasets(datasets ...string) *Params {
	q := *p
	q.Datasets = datasets
	return &q
}

// Accepts applies the strand matching rule for a record on strand rs: any
// record matches when strandedness is all or the record is unstranded;
// otherwise sense needs equal and antisense different strands. An
// unstranded query is compared like any other strand.
func (p *Params) Accepts(rs Strand) bool {
	if p.Stranded == All || rs == NoStrand {
		return true
	}
	if p.Stranded == Sense {
		return rs == p.Strand
	}
	return rs != p.Strand
}
