package useq

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/intervals"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Adapter scores regions of interval archives. Count methods use the same
// containment rules as alignments; other methods summarize record scores.
type Adapter struct{}

var _ score.Adapter = Adapter{}

// Open returns the cached archive for path.
func (Adapter) Open(ctx *score.Context, path string) (score.Resource, error) {
	return ctx.Resource(path, func() (score.Resource, error) {
		a, err := Open(path, ctx.Options.ChromPrefix)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}

func (ad Adapter) archive(ctx *score.Context, path string) (*Archive, error) {
	r, err := ad.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	a, ok := r.(*Archive)
	if !ok {
		return nil, fmt.Errorf("%s is not an interval archive", path)
	}
	return a, nil
}

// collect offers the records of every dataset to a collector.
func (ad Adapter) collect(ctx *score.Context, p *score.Params) (*intervals.Collector, error) {
	c := intervals.NewCollector(p)
	beg, end := c.Window()
	for _, path := range p.Datasets {
		a, err := ad.archive(ctx, path)
		if err != nil {
			return nil, err
		}
		name, ok := a.Chroms().Resolve(p.Chrom)
		if !ok {
			ctx.Logger.Debug("chromosome not in archive",
				zap.String("chrom", p.Chrom), zap.String("archive", path))
			continue
		}
		err = a.Records(name, beg, end, func(r Record) { c.Add(r) })
		if err != nil {
			return nil, err
		}
		c.EndDataset()
	}
	return c, nil
}

// Score returns the count of matching records or a summary of their scores.
func (ad Adapter) Score(ctx *score.Context, p *score.Params) (float64, error) {
	c, err := ad.collect(ctx, p)
	if err != nil {
		return score.NoData, err
	}
	return c.Score(), nil
}

// Scores returns record scores, or one entry per counted record.
func (ad Adapter) Scores(ctx *score.Context, p *score.Params) ([]float64, error) {
	c, err := ad.collect(ctx, p)
	if err != nil {
		return nil, err
	}
	return c.Scores(), nil
}

// PositionScores keys values by record midpoint. Midpoints outside the
// query interval are dropped even when the record overlaps it.
func (ad Adapter) PositionScores(ctx *score.Context, p *score.Params) (map[int64]float64, error) {
	c, err := ad.collect(ctx, p)
	if err != nil {
		return nil, err
	}
	return c.Positions(), nil
}
