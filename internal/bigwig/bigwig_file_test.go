package bigwig

import (
	"path/filepath"
	"testing"

	"github.com/pbenner/gonetics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// writeBigWig exports one chromosome of fixed-size bins. Values must be
// non-zero so the writer keeps every bin.
func writeBigWig(t *testing.T, dir, name string, binSize int, values ...float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	genome := gonetics.NewGenome([]string{"chrI"}, []int{binSize * len(values)})
	track, err := gonetics.NewSimpleTrack(name, [][]float64{values}, genome, binSize)
	require.NoError(t, err)
	require.NoError(t, track.ExportBigWig(path))
	return path
}

func TestOpenBigWig_ChromosomeTable(t *testing.T) {
	path := writeBigWig(t, t.TempDir(), "signal.bw", 10, 1, 2, 2, 4)
	bw, err := OpenBigWig(path, "chr")
	require.NoError(t, err)
	defer bw.Close()

	name, ok := bw.Chroms().Resolve("I")
	require.True(t, ok)
	assert.Equal(t, "chrI", name)
	assert.Equal(t, 40, bw.Chroms().Length("chrI"))
	_, ok = bw.Chroms().Resolve("chrII")
	assert.False(t, ok)
}

func TestBigWig_SingleBinSummary(t *testing.T) {
	path := writeBigWig(t, t.TempDir(), "signal.bw", 10, 1, 2, 2, 4)
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()
	a := Adapter{}

	tests := []struct {
		method score.Method
		want   float64
	}{
		{score.Mean, 2.25},
		{score.Min, 1},
		{score.Max, 4},
	}
	for _, tt := range tests {
		got, err := a.Score(ctx, query(t, "chrI", 1, 40, tt.method, score.Scalar, path))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.method.String())
	}

	n, err := a.Score(ctx, query(t, "chrI", 1, 40, score.Count, score.Scalar, path))
	require.NoError(t, err)
	assert.Positive(t, n)

	// Bounds past the chromosome end are clamped.
	clamped, err := a.Score(ctx, query(t, "chrI", 1, 5000, score.Mean, score.Scalar, path))
	require.NoError(t, err)
	assert.Equal(t, 2.25, clamped)
	assert.Equal(t, 1, ctx.ResourceCount())
}

func TestBigWig_FullResolution(t *testing.T) {
	path := writeBigWig(t, t.TempDir(), "signal.bw", 10, 2, 2, 2)
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()
	a := Adapter{}

	got, err := a.PositionScores(ctx, query(t, "chrI", 5, 25, score.Mean, score.Positional, path))
	require.NoError(t, err)
	require.Len(t, got, 21)
	for pos := int64(5); pos <= 25; pos++ {
		assert.Equal(t, 2.0, got[pos], "position %d", pos)
	}

	values, err := a.Scores(ctx, query(t, "chrI", 5, 25, score.Score, score.Scalar, path))
	require.NoError(t, err)
	assert.Len(t, values, 21)

	median, err := a.Score(ctx, query(t, "chrI", 5, 25, score.Median, score.Scalar, path))
	require.NoError(t, err)
	assert.Equal(t, 2.0, median)
}

func TestBigWig_MultiFileMerge(t *testing.T) {
	dir := t.TempDir()
	a := writeBigWig(t, dir, "a.bw", 10, 1, 2, 2, 4)
	b := writeBigWig(t, dir, "b.bw", 10, 3, 3, 3, 3)
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()
	ad := Adapter{}

	mean, err := ad.Score(ctx, query(t, "chrI", 1, 40, score.Mean, score.Scalar, a, b))
	require.NoError(t, err)
	assert.Equal(t, 2.625, mean)

	lo, err := ad.Score(ctx, query(t, "chrI", 1, 40, score.Min, score.Scalar, a, b))
	require.NoError(t, err)
	assert.Equal(t, 1.0, lo)
	hi, err := ad.Score(ctx, query(t, "chrI", 1, 40, score.Max, score.Scalar, a, b))
	require.NoError(t, err)
	assert.Equal(t, 4.0, hi)

	one, err := ad.Score(ctx, query(t, "chrI", 1, 40, score.Count, score.Scalar, a))
	require.NoError(t, err)
	both, err := ad.Score(ctx, query(t, "chrI", 1, 40, score.Count, score.Scalar, a, b))
	require.NoError(t, err)
	assert.Equal(t, 2*one, both, "both files cover the same bases")

	_, err = ad.Score(ctx, query(t, "chrI", 1, 40, score.StdDev, score.Scalar, a, b))
	assert.ErrorIs(t, err, score.ErrNotCombinable)
}
