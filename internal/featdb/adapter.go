package featdb

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/bigwig"
	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
	"github.com/tjparnell/biotoolbox-sub009/internal/intervals"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Attributes naming an external signal file. A feature carrying one stands
// for the signal file rather than for an interval of its own.
var signalAttributes = []string{"bigwigfile", "wigfile"}

// Adapter scores regions from a feature database named by Params.DB.
// Datasets are feature types, optionally qualified as "type:source".
type Adapter struct{}

var _ score.Adapter = Adapter{}

// Open returns the cached store for the database path.
func (Adapter) Open(ctx *score.Context, db string) (score.Resource, error) {
	return ctx.Resource(db, func() (score.Resource, error) {
		s, err := Open(db, ctx.Options.ChromPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func (ad Adapter) store(ctx *score.Context, p *score.Params) (*Store, error) {
	if p.DB == "" {
		return nil, fmt.Errorf("%w: no feature database for %v", score.ErrInvalidParams, p.Datasets)
	}
	r, err := ad.Open(ctx, p.DB)
	if err != nil {
		return nil, err
	}
	s, ok := r.(*Store)
	if !ok {
		return nil, fmt.Errorf("%s is not a feature database", p.DB)
	}
	return s, nil
}

// features runs the region query for d, retrying once with the
// prefix-toggled chromosome name when the first lookup finds nothing.
func features(ctx *score.Context, s *Store, d Dataset, p *score.Params, fn func(*Feature)) error {
	n, err := s.Features(d, p.Chrom, p.Start, p.Stop, fn)
	if err != nil || n > 0 {
		return err
	}
	alt := chrom.Toggle(ctx.Options.ChromPrefix, p.Chrom)
	ctx.Logger.Debug("no features, retrying toggled chromosome",
		zap.String("chrom", p.Chrom), zap.String("retry", alt), zap.Stringer("dataset", d))
	_, err = s.Features(d, alt, p.Start, p.Stop, fn)
	return err
}

// signalFile returns the external signal file a feature points to, made
// relative to the database directory.
func signalFile(s *Store, f *Feature) string {
	for _, key := range signalAttributes {
		path := f.Attributes[key]
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) && s.Path() != "" {
			path = filepath.Join(filepath.Dir(s.Path()), path)
		}
		return path
	}
	return ""
}

// query holds the features of every dataset, or the signal files they
// redirect to.
type query struct {
	c      *intervals.Collector
	signal []string
}

func (ad Adapter) collect(ctx *score.Context, p *score.Params) (*query, error) {
	s, err := ad.store(ctx, p)
	if err != nil {
		return nil, err
	}
	q := &query{c: intervals.NewCollector(p)}
	seen := make(map[string]bool)
	for _, id := range p.Datasets {
		d, err := ParseDataset(id)
		if err != nil {
			return nil, err
		}
		err = features(ctx, s, d, p, func(f *Feature) {
			if path := signalFile(s, f); path != "" {
				if p.Accepts(f.Strand) && !seen[path] {
					seen[path] = true
					q.signal = append(q.signal, path)
				}
				return
			}
			q.c.Add(f.Record())
		})
		if err != nil {
			return nil, err
		}
		q.c.EndDataset()
	}
	return q, nil
}

// redirect returns the descriptor re-targeted at the signal files.
func (q *query) redirect(ctx *score.Context, p *score.Params) *score.Params {
	if len(q.signal) == 0 {
		return nil
	}
	ctx.Logger.Debug("redirecting to signal files",
		zap.String("region", p.Region()), zap.Strings("files", q.signal))
	r := p.WithDatasets(q.signal...)
	r.DB = ""
	return r
}

// Score returns the count or score summary of matching features.
func (ad Adapter) Score(ctx *score.Context, p *score.Params) (float64, error) {
	q, err := ad.collect(ctx, p)
	if err != nil {
		return score.NoData, err
	}
	if r := q.redirect(ctx, p); r != nil {
		return bigwig.Adapter{}.Score(ctx, r)
	}
	return q.c.Score(), nil
}

// Scores returns feature scores, or one entry per counted feature.
func (ad Adapter) Scores(ctx *score.Context, p *score.Params) ([]float64, error) {
	q, err := ad.collect(ctx, p)
	if err != nil {
		return nil, err
	}
	if r := q.redirect(ctx, p); r != nil {
		return bigwig.Adapter{}.Scores(ctx, r)
	}
	return q.c.Scores(), nil
}

// PositionScores keys feature values by midpoint.
func (ad Adapter) PositionScores(ctx *score.Context, p *score.Params) (map[int64]float64, error) {
	q, err := ad.collect(ctx, p)
	if err != nil {
		return nil, err
	}
	if r := q.redirect(ctx, p); r != nil {
		return bigwig.Adapter{}.PositionScores(ctx, r)
	}
	return q.c.Positions(), nil
}
