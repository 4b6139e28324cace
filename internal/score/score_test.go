package score

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
)

func TestNewParams_Validation(t *testing.T) {
	_, err := NewParams("chr1", 10, 20, Forward, Sense, Count, Scalar, "", "a.bam")
	require.NoError(t, err)

	tests := []struct {
		name string
		p    Params
	}{
		{"start after stop", Params{Chrom: "1", Start: 20, Stop: 10, Datasets: []string{"x"}}},
		{"zero start", Params{Chrom: "1", Start: 0, Stop: 10, Datasets: []string{"x"}}},
		{"no chromosome", Params{Start: 1, Stop: 10, Datasets: []string{"x"}}},
		{"bad strand", Params{Chrom: "1", Start: 1, Stop: 10, Strand: 2, Datasets: []string{"x"}}},
		{"no dataset", Params{Chrom: "1", Start: 1, Stop: 10}},
		{"bad method", Params{Chrom: "1", Start: 1, Stop: 10, Method: 99, Datasets: []string{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParams))
		})
	}
}

func TestParseMethod(t *testing.T) {
	for _, name := range methodNames {
		m, err := ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	m, err := ParseMethod("precise_count")
	require.NoError(t, err)
	assert.Equal(t, PCount, m)

	_, err = ParseMethod("mode")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestParseStrand(t *testing.T) {
	for in, want := range map[string]Strand{"+": Forward, "1": Forward, "-1": Reverse, "-": Reverse, ".": NoStrand, "0": NoStrand} {
		got, err := ParseStrand(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStrand("2")
	assert.Error(t, err)
}

func TestAccepts(t *testing.T) {
	sense := &Params{Strand: Forward, Stranded: Sense}
	anti := &Params{Strand: Forward, Stranded: Antisense}
	all := &Params{Strand: Forward, Stranded: All}

	assert.True(t, sense.Accepts(Forward))
	assert.False(t, sense.Accepts(Reverse))
	assert.True(t, sense.Accepts(NoStrand), "unstranded records always match")

	assert.False(t, anti.Accepts(Forward))
	assert.True(t, anti.Accepts(Reverse))

	assert.True(t, all.Accepts(Forward))
	assert.True(t, all.Accepts(Reverse))

	// Sense on an unstranded query only matches unstranded records while
	// antisense matches every strand.
	unstrandedSense := &Params{Strand: NoStrand, Stranded: Sense}
	assert.False(t, unstrandedSense.Accepts(Forward))
	assert.False(t, unstrandedSense.Accepts(Reverse))
	assert.True(t, unstrandedSense.Accepts(NoStrand))
	unstrandedAnti := &Params{Strand: NoStrand, Stranded: Antisense}
	assert.True(t, unstrandedAnti.Accepts(Forward))
	assert.True(t, unstrandedAnti.Accepts(Reverse))
	assert.True(t, unstrandedAnti.Accepts(NoStrand))
}

func TestHalfOpen_RoundTrip(t *testing.T) {
	for _, iv := range [][2]int64{{1, 1}, {1, 100}, {500, 1500}} {
		beg, end := HalfOpen(iv[0], iv[1])
		assert.Equal(t, int(iv[0]-1), beg)
		assert.Equal(t, int(iv[1]-iv[0]+1), end-beg, "length preserved")
		start, stop := Inclusive(beg, end)
		assert.Equal(t, iv[0], start)
		assert.Equal(t, iv[1], stop)
	}
}

func TestClamp(t *testing.T) {
	beg, end := Clamp(-5, 200, 100)
	assert.Equal(t, 0, beg)
	assert.Equal(t, 100, end)

	beg, end = Clamp(150, 200, 100)
	assert.GreaterOrEqual(t, beg, end, "interval past the end is empty")

	beg, end = Clamp(10, 20, 0)
	assert.Equal(t, 10, beg)
	assert.Equal(t, 20, end)
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, int64(15), Midpoint(9, 20)) // 10..20
	assert.Equal(t, int64(15), Midpoint(9, 19)) // 10..19, 14.5 rounds up
	assert.Equal(t, int64(1), Midpoint(0, 1))   // single base
}

func TestSummarize(t *testing.T) {
	values := []float64{1, 3, 5, 7}
	assert.Equal(t, 4.0, Summarize(Mean, values))
	assert.Equal(t, 4.0, Summarize(Score, values))
	assert.Equal(t, 4.0, Summarize(Median, values))
	assert.Equal(t, 1.0, Summarize(Min, values))
	assert.Equal(t, 7.0, Summarize(Max, values))
	assert.Equal(t, 16.0, Summarize(Sum, values))
	assert.Equal(t, 4.0, Summarize(Count, values))
	assert.InDelta(t, 2.5819889, Summarize(StdDev, values), 1e-6)
	assert.Equal(t, 3.0, Summarize(Median, []float64{5, 1, 3}))
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Summarize(Count, nil))
	assert.Equal(t, 0.0, Summarize(Sum, nil))
	for _, m := range []Method{Mean, Median, Min, Max, StdDev, Score} {
		v := Summarize(m, nil)
		assert.True(t, IsNoData(v), m.String())
		assert.NotEqual(t, 0.0, v)
	}
}

type fakeResource struct {
	path   string
	closed bool
}

func (f *fakeResource) Path() string       { return f.path }
func (f *fakeResource) Chroms() *chrom.Map { return chrom.FromNames("chr", []string{"1"}) }

func (f *fakeResource) Close() error {
	f.closed = true
	return nil
}

func TestContext_ResourceCache(t *testing.T) {
	ctx := NewContext(DefaultOptions())
	opens := 0
	open := func() (Resource, error) {
		opens++
		return &fakeResource{path: "a"}, nil
	}

	r1, err := ctx.Resource("a", open)
	require.NoError(t, err)
	r2, err := ctx.Resource("a", open)
	require.NoError(t, err)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, opens)

	_, err = ctx.Resource("b", func() (Resource, error) { return nil, errors.New("boom") })
	assert.Error(t, err)
	assert.False(t, ctx.Cached("b"), "failed opens are not cached")

	fork := ctx.Fork()
	assert.Equal(t, 0, fork.ResourceCount())
	assert.Equal(t, 1, ctx.ResourceCount())

	require.NoError(t, ctx.Close())
	assert.True(t, r1.(*fakeResource).closed)
	assert.Equal(t, 0, ctx.ResourceCount())
}

func TestContext_Local(t *testing.T) {
	type key struct{}
	ctx := NewContext(DefaultOptions())
	builds := 0
	build := func() any {
		builds++
		return &builds
	}

	a := ctx.Local(key{}, build)
	b := ctx.Local(key{}, build)
	assert.Same(t, a, b)
	assert.Equal(t, 1, builds)
}
