package posmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalize_MeanOfThreeSources(t *testing.T) {
	a := New()
	sources := []map[int64]float64{
		{100: 1, 101: 7},
		{100: 3},
		{100: 5, 102: 2},
	}
	for _, s := range sources {
		a.Merge(s)
	}
	assert.Equal(t, 1, a.Collisions())

	got := a.Finalize()
	require.Len(t, got, 3)
	assert.Equal(t, 3.0, got[100])
	assert.Equal(t, 7.0, got[101])
	assert.Equal(t, 2.0, got[102])
}

func TestFinalize_NoCollisions(t *testing.T) {
	a := New()
	for pos := int64(1); pos <= 5; pos++ {
		a.Add(pos, float64(pos))
	}
	assert.Equal(t, 0, a.Collisions())
	assert.Equal(t, 5, a.Len())

	got := a.Finalize()
	assert.Equal(t, map[int64]float64{1: 1, 2: 2, 3: 3, 4: 4, 5: 5}, got)
}

func TestFinalize_Empty(t *testing.T) {
	got := New().Finalize()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFinalize_ZeroValueCollision(t *testing.T) {
	a := New()
	a.Add(10, 0)
	a.Add(10, 4)
	assert.Equal(t, 2.0, a.Finalize()[10])
}

func TestTally(t *testing.T) {
	tl := Tally{}
	tl.Inc(5)
	tl.Inc(5)
	tl.Inc(9)
	assert.Equal(t, 2.0, tl[5])
	assert.Equal(t, 1.0, tl[9])
}

func TestNames(t *testing.T) {
	n := Names{}
	n.Add(5, "readA")
	n.Add(5, "readA")
	n.Add(5, "readB")
	n.Add(8, "readC")
	assert.Equal(t, map[int64]float64{5: 2, 8: 1}, n.Counts())
}
