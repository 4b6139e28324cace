// Package dataset routes a query descriptor to the adapter of the storage
// family its datasets belong to.
package dataset

import (
	"fmt"
	"strings"

	"github.com/tjparnell/biotoolbox-sub009/internal/bam"
	"github.com/tjparnell/biotoolbox-sub009/internal/bigwig"
	"github.com/tjparnell/biotoolbox-sub009/internal/featdb"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
	"github.com/tjparnell/biotoolbox-sub009/internal/useq"
)

// Family is a storage family.
type Family int

const (
	Unknown Family = iota
	Alignment
	Signal
	Archive
	Features
)

var familyNames = [...]string{
	Unknown:   "unknown",
	Alignment: "alignment",
	Signal:    "signal",
	Archive:   "archive",
	Features:  "features",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

var archiveExts = []string{".useq", ".zip"}

// Detect returns the family of one dataset id. Ids that are not files of a
// known kind are feature types when db is set.
func Detect(id, db string) Family {
	lower := strings.ToLower(id)
	switch {
	case strings.HasSuffix(lower, ".bam"):
		return Alignment
	case bigwig.IsSignalFile(id) || bigwig.IsSet(id):
		return Signal
	}
	for _, ext := range archiveExts {
		if strings.HasSuffix(lower, ext) {
			return Archive
		}
	}
	switch {
	case db == "":
		return Unknown
	case bigwig.IsSet(db):
		return Signal
	}
	return Features
}

// FamilyOf returns the single family shared by every dataset of p.
func FamilyOf(p *score.Params) (Family, error) {
	fam := Unknown
	for _, id := range p.Datasets {
		f := Detect(id, p.DB)
		if f == Unknown {
			return Unknown, fmt.Errorf("%w: cannot determine the storage family of %q", score.ErrInvalidParams, id)
		}
		if fam != Unknown && f != fam {
			return Unknown, fmt.Errorf("%w: datasets mix %s and %s data", score.ErrInvalidParams, fam, f)
		}
		fam = f
	}
	return fam, nil
}

// AdapterFor returns the adapter serving f.
func AdapterFor(f Family) (score.Adapter, error) {
	switch f {
	case Alignment:
		return bam.Adapter{}, nil
	case Signal:
		return bigwig.Adapter{}, nil
	case Archive:
		return useq.Adapter{}, nil
	case Features:
		return featdb.Adapter{}, nil
	}
	return nil, fmt.Errorf("%w: no adapter for %s data", score.ErrInvalidParams, f)
}

func route(p *score.Params) (score.Adapter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	f, err := FamilyOf(p)
	if err != nil {
		return nil, err
	}
	return AdapterFor(f)
}

// Score returns one summary value for the region of p.
func Score(ctx *score.Context, p *score.Params) (float64, error) {
	a, err := route(p)
	if err != nil {
		return score.NoData, err
	}
	return a.Score(ctx, p)
}

// Scores returns the unordered values for the region of p.
func Scores(ctx *score.Context, p *score.Params) ([]float64, error) {
	a, err := route(p)
	if err != nil {
		return nil, err
	}
	return a.Scores(ctx, p)
}

// PositionScores returns the reconciled position map for the region of p.
func PositionScores(ctx *score.Context, p *score.Params) (map[int64]float64, error) {
	a, err := route(p)
	if err != nil {
		return nil, err
	}
	return a.PositionScores(ctx, p)
}

// Open opens and caches every dataset of p and returns the resources.
// Feature types resolve to the feature database itself.
func Open(ctx *score.Context, p *score.Params) ([]score.Resource, error) {
	a, err := route(p)
	if err != nil {
		return nil, err
	}
	ids := p.Datasets
	if Detect(p.Datasets[0], p.DB) == Features || (p.DB != "" && bigwig.IsSet(p.DB)) {
		ids = []string{p.DB}
	}
	out := make([]score.Resource, 0, len(ids))
	for _, id := range ids {
		r, err := a.Open(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
