package chrom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Bidirectional(t *testing.T) {
	m := NewMap("chr", []Seq{{Name: "1", Length: 1000}, {Name: "chrX", Length: 500}})

	for _, name := range []string{"1", "chr1", "Chr1"} {
		got, ok := m.Resolve(name)
		require.True(t, ok, name)
		assert.Equal(t, "1", got, name)
	}
	for _, name := range []string{"chrX", "X"} {
		got, ok := m.Resolve(name)
		require.True(t, ok, name)
		assert.Equal(t, "chrX", got, name)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	m := NewMap("chr", []Seq{{Name: "1"}})
	first, ok1 := m.Resolve("chr1")
	second, ok2 := m.Resolve("chr1")
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)

	canonical, _ := m.Resolve(first)
	assert.Equal(t, first, canonical)
}

func TestResolve_NotFound(t *testing.T) {
	m := NewMap("chr", []Seq{{Name: "1"}})
	_, ok := m.Resolve("chr2")
	assert.False(t, ok)
	_, ok = m.Resolve("2")
	assert.False(t, ok)

	var empty *Map
	_, ok = empty.Resolve("1")
	assert.False(t, ok)
}

func TestResolve_NativeNameWins(t *testing.T) {
	// A resource holding both spellings keeps each name pointing at itself.
	m := NewMap("chr", []Seq{{Name: "chr1"}, {Name: "1"}})

	got, _ := m.Resolve("1")
	assert.Equal(t, "1", got)
	got, _ = m.Resolve("chr1")
	assert.Equal(t, "chr1", got)
}

func TestEveryKeyMapsToNativeName(t *testing.T) {
	m := NewMap("chr", []Seq{{Name: "chrI"}, {Name: "2L"}, {Name: "MT"}})
	native := map[string]bool{}
	for _, n := range m.Names() {
		native[n] = true
	}
	for key, canonical := range m.names {
		assert.True(t, native[canonical], "key %q maps to %q", key, canonical)
	}
}

func TestLength(t *testing.T) {
	m := NewMap("", []Seq{{Name: "chrI", Length: 230218}})
	assert.Equal(t, 230218, m.Length("I"))
	assert.Equal(t, 230218, m.Length("chrI"))
	assert.Equal(t, 0, m.Length("chrII"))
}

func TestToggle(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"chr1", "1"},
		{"1", "chr1"},
		{"CHR7", "7"},
		{"chr", "chrchr"},
		{"scaffold_12", "chrscaffold_12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Toggle("chr", tt.name))
		})
	}
}

func TestCustomPrefix(t *testing.T) {
	m := FromNames("Chr", []string{"Chr01", "Chr02"})
	got, ok := m.Resolve("01")
	require.True(t, ok)
	assert.Equal(t, "Chr01", got)
	assert.Equal(t, "02", m.Toggle("Chr02"))
}
