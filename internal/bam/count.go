package bam

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// countable reports whether rec contributes to the whole-file total. Paired
// records count once per fragment: proper pairs only, forward mate only.
func countable(rec *sam.Record, minMapQ uint8) bool {
	if rec.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary) != 0 || rec.MapQ < minMapQ {
		return false
	}
	if rec.Flags&sam.Paired == 0 {
		return true
	}
	return rec.Flags&sam.ProperPair != 0 &&
		rec.Flags&sam.Duplicate == 0 &&
		rec.Flags&sam.Reverse == 0
}

// countReference counts usable alignments on one reference.
func (f *File) countReference(ctx context.Context, ref *sam.Reference, minMapQ uint8) (int64, error) {
	chunks, err := f.idx.Chunks(ref, 0, ref.Len())
	if err != nil {
		if errors.Is(err, index.ErrNoReference) || errors.Is(err, index.ErrInvalid) {
			return 0, nil
		}
		return 0, fmt.Errorf("query index %s: %w", ref.Name(), err)
	}
	f.r.Omit(bam.AllVariableLengthData)
	var n int64
	err = f.iterate(chunks, func(rec *sam.Record) bool {
		if rec.Ref == nil || rec.Ref.ID() != ref.ID() {
			return rec.Ref == nil || rec.Ref.ID() < ref.ID()
		}
		if countable(rec, minMapQ) {
			n++
		}
		return ctx.Err() == nil
	})
	if err != nil {
		return 0, err
	}
	return n, ctx.Err()
}

// CountAlignments returns the number of usable fragments in the alignment
// file at path. References are partitioned across at most
// sc.Options.Workers goroutines, each with its own file handle. If Workers
// is 0, runtime.NumCPU() is used. Any partition failure fails the whole
// count.
func CountAlignments(sc *score.Context, path string) (int64, error) {
	parent, err := Adapter{}.file(sc, path)
	if err != nil {
		return 0, err
	}
	refs := parent.References()
	minMapQ := sc.Options.MinMapQ
	counts := make([]int64, len(refs))

	g, ctx := errgroup.WithContext(context.Background())
	workers := sc.Options.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			f, err := parent.Clone()
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := f.countReference(ctx, ref, minMapQ)
			if err != nil {
				return fmt.Errorf("count %s: %w", ref.Name(), err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	sc.Logger.Debug("counted alignments",
		zap.String("bam", path),
		zap.Int("references", len(refs)),
		zap.Int64("total", total))
	return total, nil
}
