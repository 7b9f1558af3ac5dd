package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlat(t *testing.T) {
	tests := []struct {
		name    string
		dim     int
		wantErr bool
	}{
		{name: "valid dimension", dim: 768},
		{name: "zero dimension", dim: 0, wantErr: true},
		{name: "negative dimension", dim: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := NewFlat(tt.dim)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDimension)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, idx.Len())
		})
	}
}

func TestFlat_Insert(t *testing.T) {
	idx, err := NewFlat(3)
	require.NoError(t, err)

	require.NoError(t, idx.Insert([]float32{1, 0, 0}))
	require.NoError(t, idx.Insert([]float32{0, 1, 0}))
	assert.Equal(t, 2, idx.Len())

	err = idx.Insert([]float32{1, 2})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 2, idx.Len())
}

func TestFlat_Insert_CopiesVector(t *testing.T) {
	idx, err := NewFlat(2)
	require.NoError(t, err)

	vec := []float32{1, 1}
	require.NoError(t, idx.Insert(vec))
	vec[0] = 99

	results, err := idx.Search([]float32{1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float32(0), results[0].Distance)
}

func TestFlat_Search_Ordering(t *testing.T) {
	idx, err := NewFlat(2)
	require.NoError(t, err)

	require.NoError(t, idx.Insert([]float32{10, 0})) // distance 100
	require.NoError(t, idx.Insert([]float32{1, 0}))  // distance 1
	require.NoError(t, idx.Insert([]float32{3, 0}))  // distance 9
	require.NoError(t, idx.Insert([]float32{2, 0}))  // distance 4

	results, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []int{1, 3, 2}, positions(results))
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestFlat_Search_KLargerThanCorpus(t *testing.T) {
	idx, err := NewFlat(2)
	require.NoError(t, err)

	require.NoError(t, idx.Insert([]float32{1, 0}))
	require.NoError(t, idx.Insert([]float32{2, 0}))

	results, err := idx.Search([]float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, positions(results))
}

func TestFlat_Search_Empty(t *testing.T) {
	idx, err := NewFlat(4)
	require.NoError(t, err)

	results, err := idx.Search([]float32{0, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFlat_Search_TieBreakByInsertionOrder(t *testing.T) {
	idx, err := NewFlat(2)
	require.NoError(t, err)

	// Equidistant from origin.
	require.NoError(t, idx.Insert([]float32{0, 1}))
	require.NoError(t, idx.Insert([]float32{1, 0}))
	require.NoError(t, idx.Insert([]float32{0, -1}))

	for i := 0; i < 5; i++ {
		results, err := idx.Search([]float32{0, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, positions(results))
	}
}

func TestFlat_Search_DimensionMismatch(t *testing.T) {
	idx, err := NewFlat(3)
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 2}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlat_Rebuild(t *testing.T) {
	vectors := [][]float32{
		{5, 0},
		{1, 0},
		{2, 0},
	}

	sequential, err := NewFlat(2)
	require.NoError(t, err)
	for _, v := range vectors {
		require.NoError(t, sequential.Insert(v))
	}

	rebuilt, err := NewFlat(2)
	require.NoError(t, err)
	require.NoError(t, rebuilt.Rebuild(vectors))
	require.Equal(t, sequential.Len(), rebuilt.Len())

	query := []float32{0, 0}
	want, err := sequential.Search(query, 3)
	require.NoError(t, err)
	got, err := rebuilt.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFlat_Rebuild_DimensionMismatch(t *testing.T) {
	idx, err := NewFlat(2)
	require.NoError(t, err)
	require.NoError(t, idx.Insert([]float32{1, 1}))

	err = idx.Rebuild([][]float32{{1, 2, 3}})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	// Failed rebuild leaves prior contents in place.
	assert.Equal(t, 1, idx.Len())
}

func positions(results []Result) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Position
	}
	return out
}
