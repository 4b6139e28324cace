package bam

import (
	"fmt"

	"github.com/biogo/hts/sam"
	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/posmap"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Adapter scores regions of BAM datasets. Count methods run the dispatched
// alignment routine; every other method summarizes base coverage.
type Adapter struct{}

var _ score.Adapter = Adapter{}

// Open returns the cached handle for path, opening it on first use.
func (Adapter) Open(ctx *score.Context, path string) (score.Resource, error) {
	return ctx.Resource(path, func() (score.Resource, error) {
		f, err := Open(path, ctx.Options.ChromPrefix, ctx.Logger)
		if err != nil {
			return nil, err
		}
		return f, nil
	})
}

func (a Adapter) file(ctx *score.Context, path string) (*File, error) {
	r, err := a.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	f, ok := r.(*File)
	if !ok {
		return nil, fmt.Errorf("%s is not an alignment resource", path)
	}
	return f, nil
}

// window resolves the query chromosome and clamps the interval to it.
func window(ctx *score.Context, f *File, p *score.Params) (string, int, int, bool) {
	name, ok := f.Chroms().Resolve(p.Chrom)
	if !ok {
		ctx.Logger.Debug("chromosome not in alignment file",
			zap.String("chrom", p.Chrom), zap.String("bam", f.Path()))
		return "", 0, 0, false
	}
	beg, end := score.HalfOpen(p.Start, p.Stop)
	beg, end = score.Clamp(beg, end, f.Chroms().Length(name))
	return name, beg, end, beg < end
}

// collect runs the routine for p over every dataset into c.
func (a Adapter) collect(ctx *score.Context, p *score.Params, path string, shape score.Shape, c *Collector) error {
	routine, err := DispatcherFor(ctx).Lookup(Key{
		Stranded: p.Stranded,
		Strand:   p.Strand,
		Method:   p.Method,
		Shape:    shape,
	})
	if err != nil {
		return err
	}
	f, err := a.file(ctx, path)
	if err != nil {
		return err
	}
	name, beg, end, ok := window(ctx, f, p)
	if !ok {
		return nil
	}
	return f.Fetch(name, beg, end, func(rec *sam.Record) {
		routine.Apply(rec, beg, end, c)
	})
}

// count returns the scalar count over all datasets. Counts from several
// files add up; named counts share one name set.
func (a Adapter) count(ctx *score.Context, p *score.Params) (int, error) {
	c := NewCollector(ctx.Options.MinMapQ)
	for _, path := range p.Datasets {
		if err := a.collect(ctx, p, path, score.Scalar, c); err != nil {
			return 0, err
		}
	}
	return c.Count(), nil
}

// coverage returns the depth over the window of one dataset, or nil when no
// alignment overlapped it.
func (a Adapter) coverage(ctx *score.Context, p *score.Params, path string) ([]float64, int, error) {
	f, err := a.file(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	name, beg, end, ok := window(ctx, f, p)
	if !ok {
		return nil, 0, nil
	}
	depth, n, err := f.Coverage(name, beg, end)
	if err != nil || n == 0 {
		return nil, 0, err
	}
	return depth, beg, nil
}

// Score returns one summary value for the region.
func (a Adapter) Score(ctx *score.Context, p *score.Params) (float64, error) {
	if p.Method.IsCount() {
		n, err := a.count(ctx, p)
		return float64(n), err
	}
	values, err := a.Scores(ctx, p)
	if err != nil {
		return score.NoData, err
	}
	return score.Summarize(p.Method, values), nil
}

// Scores returns the raw values for the region: one entry per counted
// alignment or one depth value per covered base.
func (a Adapter) Scores(ctx *score.Context, p *score.Params) ([]float64, error) {
	if p.Method.IsCount() {
		n, err := a.count(ctx, p)
		if err != nil {
			return nil, err
		}
		values := make([]float64, n)
		for i := range values {
			values[i] = 1
		}
		return values, nil
	}
	var values []float64
	for _, path := range p.Datasets {
		depth, _, err := a.coverage(ctx, p, path)
		if err != nil {
			return nil, err
		}
		values = append(values, depth...)
	}
	return values, nil
}

// PositionScores returns values keyed by 1-based position. Each dataset
// yields its own map; positions reported by several datasets are averaged.
func (a Adapter) PositionScores(ctx *score.Context, p *score.Params) (map[int64]float64, error) {
	acc := posmap.New()
	for _, path := range p.Datasets {
		if p.Method.IsCount() {
			c := NewCollector(ctx.Options.MinMapQ)
			c.Start, c.Stop = p.Start, p.Stop
			if err := a.collect(ctx, p, path, score.Positional, c); err != nil {
				return nil, err
			}
			acc.Merge(c.Positions())
			continue
		}
		depth, beg, err := a.coverage(ctx, p, path)
		if err != nil {
			return nil, err
		}
		for i, v := range depth {
			acc.Add(int64(beg+i+1), v)
		}
	}
	return acc.Finalize(), nil
}
