package featdb

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", "chr")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixture() []*Feature {
	return []*Feature{
		{SeqID: "chrI", Source: "manual", Type: "gene", Start: 11, Stop: 20, Strand: score.Forward, Score: 5, Name: "g1"},
		{SeqID: "chrI", Source: "sgd", Type: "gene", Start: 16, Stop: 40, Strand: score.Forward, Score: 3, Name: "g2"},
		{SeqID: "chrI", Source: "manual", Type: "gene", Start: 13, Stop: 18, Strand: score.Reverse, Score: 7, Name: "g3"},
		{SeqID: "chrI", Source: "manual", Type: "gene", Start: 101, Stop: 110, Strand: score.Forward, Score: score.NoData, Name: "g4"},
		{SeqID: "chrI", Source: "manual", Type: "exon", Start: 11, Stop: 15, Strand: score.Forward, Score: 1, Name: "e1"},
		{SeqID: "chrII", Source: "manual", Type: "gene", Start: 1, Stop: 50, Strand: score.Forward, Score: 2, Name: "g5"},
	}
}

// writeDB creates a feature database file holding features.
func writeDB(t *testing.T, dir string, features []*Feature) string {
	t.Helper()
	path := filepath.Join(dir, "features.duckdb")
	s, err := Open(path, "chr")
	require.NoError(t, err)
	require.NoError(t, s.AddFeatures(features))
	require.NoError(t, s.Close())
	return path
}

func params(t *testing.T, chrom string, start, stop int64, strand score.Strand, stranded score.Strandedness,
	method score.Method, shape score.Shape, db string, datasets ...string) *score.Params {
	t.Helper()
	p, err := score.NewParams(chrom, start, stop, strand, stranded, method, shape, db, datasets...)
	require.NoError(t, err)
	return p
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.Empty(t, s.Path())
	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.Chroms().Names())
}

func TestParseDataset(t *testing.T) {
	d, err := ParseDataset("gene:sgd")
	require.NoError(t, err)
	assert.Equal(t, Dataset{Type: "gene", Source: "sgd"}, d)
	assert.Equal(t, "gene:sgd", d.String())

	d, err = ParseDataset("gene")
	require.NoError(t, err)
	assert.Equal(t, "gene", d.String())

	_, err = ParseDataset(":sgd")
	assert.ErrorIs(t, err, score.ErrInvalidParams)
}

func TestAttributes(t *testing.T) {
	enc := encodeAttributes(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, "a=1;b=2", enc)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, decodeAttributes(enc))
	assert.Empty(t, encodeAttributes(nil))
	assert.Nil(t, decodeAttributes(""))
}

func TestAddFeatures_Query(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.AddFeatures(fixture()))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	chroms, err := s.Chromosomes()
	require.NoError(t, err)
	assert.Equal(t, []string{"chrI", "chrII"}, chroms)
	name, ok := s.Chroms().Resolve("II")
	require.True(t, ok)
	assert.Equal(t, "chrII", name)

	var got []string
	n2, err := s.Features(Dataset{Type: "gene"}, "chrI", 19, 30, func(f *Feature) {
		got = append(got, f.Name)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n2)
	assert.Equal(t, []string{"g1", "g2"}, got)

	var unscored *Feature
	_, err = s.Features(Dataset{Type: "gene"}, "chrI", 101, 101, func(f *Feature) { unscored = f })
	require.NoError(t, err)
	require.NotNil(t, unscored)
	assert.True(t, score.IsNoData(unscored.Score))
	assert.Equal(t, score.Forward, unscored.Strand)

	err = s.AddFeatures([]*Feature{{SeqID: "chrI", Type: "gene", Start: 0, Stop: 5}})
	assert.Error(t, err)

	// A bad feature late in the batch keeps the valid ones before it out.
	err = s.AddFeatures([]*Feature{
		{SeqID: "chrIII", Type: "gene", Start: 1, Stop: 5, Score: 1, Name: "ok"},
		{SeqID: "chrIII", Type: "gene", Start: 9, Stop: 3, Score: 1, Name: "bad"},
	})
	assert.Error(t, err)
	n, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestLoadGFF(t *testing.T) {
	s := openInMemory(t)
	gff := strings.Join([]string{
		"chrI\tsgd\tgene\t11\t20\t5\t+\t.\t.",
		"chrI\tsgd\tgene\t31\t60\t.\t-\t.\t.",
	}, "\n") + "\n"
	n, err := s.LoadGFF(strings.NewReader(gff))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var got []*Feature
	_, err = s.Features(Dataset{Type: "gene", Source: "sgd"}, "chrI", 1, 100, func(f *Feature) { got = append(got, f) })
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(11), got[0].Start)
	assert.Equal(t, int64(20), got[0].Stop)
	assert.Equal(t, score.Forward, got[0].Strand)
	assert.Equal(t, 5.0, got[0].Score)
	assert.Equal(t, score.Reverse, got[1].Strand)
	assert.True(t, score.IsNoData(got[1].Score))
}

func TestScore_Methods(t *testing.T) {
	db := writeDB(t, t.TempDir(), fixture())
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()
	ad := Adapter{}

	tests := []struct {
		name     string
		stranded score.Strandedness
		method   score.Method
		dataset  string
		want     float64
	}{
		{"all count", score.All, score.Count, "gene", 3},
		{"all pcount", score.All, score.PCount, "gene", 2},
		{"sense mean", score.Sense, score.Mean, "gene", 4},
		{"antisense max", score.Antisense, score.Max, "gene", 7},
		{"by source", score.All, score.Count, "gene:sgd", 1},
		{"other type", score.All, score.Sum, "exon", 1},
		{"two datasets", score.All, score.Count, "gene,exon", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ad.Score(ctx, params(t, "chrI", 11, 30, score.Forward, tt.stranded, tt.method, score.Scalar,
				db, strings.Split(tt.dataset, ",")...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, 1, ctx.ResourceCount())
}

func TestScore_ToggledChromosome(t *testing.T) {
	db := writeDB(t, t.TempDir(), fixture())
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()

	got, err := Adapter{}.Score(ctx, params(t, "I", 11, 30, score.Forward, score.All, score.Count, score.Scalar, db, "gene"))
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = Adapter{}.Score(ctx, params(t, "chrXV", 11, 30, score.Forward, score.All, score.Count, score.Scalar, db, "gene"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestScore_EmptyRegion(t *testing.T) {
	db := writeDB(t, t.TempDir(), fixture())
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()
	ad := Adapter{}

	n, err := ad.Score(ctx, params(t, "chrI", 500, 600, score.Forward, score.All, score.Count, score.Scalar, db, "gene"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, n)
	mean, err := ad.Score(ctx, params(t, "chrI", 500, 600, score.Forward, score.All, score.Mean, score.Scalar, db, "gene"))
	require.NoError(t, err)
	assert.True(t, score.IsNoData(mean))
	pos, err := ad.PositionScores(ctx, params(t, "chrI", 500, 600, score.Forward, score.All, score.Count, score.Positional, db, "gene"))
	require.NoError(t, err)
	assert.Empty(t, pos)

	// An unscored feature counts but has no value.
	n, err = ad.Score(ctx, params(t, "chrI", 101, 110, score.Forward, score.All, score.Count, score.Scalar, db, "gene"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, n)
	mean, err = ad.Score(ctx, params(t, "chrI", 101, 110, score.Forward, score.All, score.Mean, score.Scalar, db, "gene"))
	require.NoError(t, err)
	assert.True(t, score.IsNoData(mean))
}

func TestPositionScores_Midpoints(t *testing.T) {
	db := writeDB(t, t.TempDir(), fixture())
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()

	got, err := Adapter{}.PositionScores(ctx, params(t, "chrI", 11, 30, score.Forward, score.Sense, score.Count, score.Positional, db, "gene"))
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{16: 1, 28: 1}, got)

	got, err = Adapter{}.PositionScores(ctx, params(t, "chrI", 11, 30, score.Forward, score.Antisense, score.Score, score.Positional, db, "gene"))
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{16: 7}, got)
}

func TestScores_List(t *testing.T) {
	db := writeDB(t, t.TempDir(), fixture())
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()

	vals, err := Adapter{}.Scores(ctx, params(t, "chrI", 11, 30, score.Forward, score.All, score.Score, score.Scalar, db, "gene"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{5, 3, 7}, vals)

	ones, err := Adapter{}.Scores(ctx, params(t, "chrI", 11, 30, score.Forward, score.All, score.Count, score.Scalar, db, "gene"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, ones)
}

func TestLegacySignalRedirect(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "signal.bdg.gz"))
	require.NoError(t, err)
	w := bgzf.NewWriter(f, 1)
	_, err = io.WriteString(w, "chrI\t9\t20\t2\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	db := writeDB(t, dir, []*Feature{{
		SeqID: "chrI", Source: "legacy", Type: "signal", Start: 1, Stop: 1000,
		Strand: score.NoStrand, Score: score.NoData, Name: "signal_chrI",
		Attributes: map[string]string{"bigwigfile": "signal.bdg.gz"},
	}})
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()
	ad := Adapter{}

	mean, err := ad.Score(ctx, params(t, "chrI", 5, 25, score.Forward, score.All, score.Mean, score.Scalar, db, "signal"))
	require.NoError(t, err)
	assert.Equal(t, 2.0, mean)

	pos, err := ad.PositionScores(ctx, params(t, "chrI", 5, 25, score.Forward, score.All, score.Mean, score.Positional, db, "signal"))
	require.NoError(t, err)
	assert.Len(t, pos, 11)
	for p, v := range pos {
		assert.True(t, p >= 10 && p <= 20, "position %d", p)
		assert.Equal(t, 2.0, v)
	}
	assert.True(t, ctx.Cached(filepath.Join(dir, "signal.bdg.gz")))
}

func TestAdapter_RequiresDatabase(t *testing.T) {
	ctx := score.NewContext(score.DefaultOptions())
	defer ctx.Close()
	_, err := Adapter{}.Score(ctx, params(t, "chrI", 1, 10, score.Forward, score.All, score.Count, score.Scalar, "", "gene"))
	assert.ErrorIs(t, err, score.ErrInvalidParams)
}
