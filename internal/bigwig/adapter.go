package bigwig

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/posmap"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Adapter scores regions of signal files and signal sets. Datasets are
// file paths or set directories; when Params.DB names a set directory the
// datasets select its entries by name or type.
type Adapter struct{}

var _ score.Adapter = Adapter{}

// Open returns the cached file or set for path.
func (Adapter) Open(ctx *score.Context, path string) (score.Resource, error) {
	return ctx.Resource(path, func() (score.Resource, error) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			s, err := OpenSet(path, ctx.Options.ChromPrefix)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		src, err := OpenSource(path, ctx.Options.ChromPrefix, ctx.Logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	})
}

// IsSet reports whether path is a directory.
func IsSet(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// sources expands the query into the signal files that contribute to it.
func (a Adapter) sources(ctx *score.Context, p *score.Params) ([]Source, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(entries []Entry) {
		for _, e := range entries {
			if !seen[e.Path] {
				seen[e.Path] = true
				paths = append(paths, e.Path)
			}
		}
	}

	if p.DB != "" && IsSet(p.DB) {
		r, err := a.Open(ctx, p.DB)
		if err != nil {
			return nil, err
		}
		set := r.(*Set)
		for _, id := range p.Datasets {
			selected := set.Select(id, p)
			if len(selected) == 0 {
				ctx.Logger.Debug("no signal set entry matches",
					zap.String("set", p.DB), zap.String("dataset", id))
			}
			add(selected)
		}
	} else {
		for _, id := range p.Datasets {
			r, err := a.Open(ctx, id)
			if err != nil {
				return nil, err
			}
			if set, ok := r.(*Set); ok {
				add(set.Select("", p))
				continue
			}
			add([]Entry{{Path: id}})
		}
	}

	out := make([]Source, 0, len(paths))
	for _, path := range paths {
		r, err := a.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		src, ok := r.(Source)
		if !ok {
			return nil, fmt.Errorf("%s is not a signal file", path)
		}
		out = append(out, src)
	}
	return out, nil
}

// window resolves the chromosome in src and clamps the interval to its
// declared length.
func window(ctx *score.Context, src Source, p *score.Params) (string, int, int, bool) {
	name, ok := src.Chroms().Resolve(p.Chrom)
	if !ok {
		ctx.Logger.Debug("chromosome not in signal file",
			zap.String("chrom", p.Chrom), zap.String("path", src.Path()))
		return "", 0, 0, false
	}
	beg, end := score.HalfOpen(p.Start, p.Stop)
	beg, end = score.Clamp(beg, end, src.Chroms().Length(name))
	return name, beg, end, beg < end
}

func checkMethod(m score.Method) error {
	if m == score.PCount || m == score.NCount {
		return fmt.Errorf("%w: method %s on signal data", score.ErrUnsupported, m)
	}
	return nil
}

// Score prefers the summary index. Median needs full resolution.
func (a Adapter) Score(ctx *score.Context, p *score.Params) (float64, error) {
	if err := checkMethod(p.Method); err != nil {
		return score.NoData, err
	}
	if p.Method == score.Median {
		values, err := a.Scores(ctx, p)
		if err != nil {
			return score.NoData, err
		}
		return score.Summarize(p.Method, values), nil
	}
	srcs, err := a.sources(ctx, p)
	if err != nil {
		return score.NoData, err
	}
	var parts []Summary
	for _, src := range srcs {
		name, beg, end, ok := window(ctx, src, p)
		if !ok {
			continue
		}
		s, err := src.Summary(name, beg, end)
		if err != nil {
			return score.NoData, err
		}
		parts = append(parts, s)
	}
	return Combine(p.Method, parts)
}

// Scores returns one value per covered base from every contributing file.
func (a Adapter) Scores(ctx *score.Context, p *score.Params) ([]float64, error) {
	if err := checkMethod(p.Method); err != nil {
		return nil, err
	}
	srcs, err := a.sources(ctx, p)
	if err != nil {
		return nil, err
	}
	var values []float64
	for _, src := range srcs {
		name, beg, end, ok := window(ctx, src, p)
		if !ok {
			continue
		}
		ivs, err := src.Intervals(name, beg, end)
		if err != nil {
			return nil, err
		}
		for _, iv := range ivs {
			for i := iv.Beg; i < iv.End; i++ {
				values = append(values, iv.Value)
			}
		}
	}
	return values, nil
}

// PositionScores returns the value at every covered base. Positions
// covered by several files are averaged.
func (a Adapter) PositionScores(ctx *score.Context, p *score.Params) (map[int64]float64, error) {
	if err := checkMethod(p.Method); err != nil {
		return nil, err
	}
	srcs, err := a.sources(ctx, p)
	if err != nil {
		return nil, err
	}
	acc := posmap.New()
	for _, src := range srcs {
		name, beg, end, ok := window(ctx, src, p)
		if !ok {
			continue
		}
		ivs, err := src.Intervals(name, beg, end)
		if err != nil {
			return nil, err
		}
		own := make(map[int64]float64)
		for _, iv := range ivs {
			for i := iv.Beg; i < iv.End; i++ {
				own[int64(i)+1] = iv.Value
			}
		}
		acc.Merge(own)
	}
	return acc.Finalize(), nil
}
