// Package index provides an exact nearest-neighbor index over fixed-dimension
// vectors.
package index

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the
	// index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidDimension indicates a non-positive index dimension.
	ErrInvalidDimension = errors.New("invalid index dimension")
)

// Result is a single search hit. Position is the insertion-order position of
// the matched vector, Distance the squared Euclidean distance to the query.
type Result struct {
	Position int
	Distance float32
}

// Flat is a brute-force exact L2 index. Vectors are append-only: positions
// never change once assigned, so they can be used as stable references into
// a parallel document sequence.
//
// Flat is not safe for concurrent use; callers serialize access.
type Flat struct {
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	return &Flat{dim: dim}, nil
}

// Insert appends a vector to the index. The vector is copied, so the caller
// may reuse the slice.
func (f *Flat) Insert(vec []float32) error {
	if len(vec) != f.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), f.dim)
	}
	cp := make([]float32, f.dim)
	copy(cp, vec)
	f.vectors = append(f.vectors, cp)
	return nil
}

// Rebuild replaces the index contents with the given vectors, producing the
// same index as inserting each vector one at a time in order.
func (f *Flat) Rebuild(vectors [][]float32) error {
	rebuilt := make([][]float32, 0, len(vectors))
	for _, vec := range vectors {
		if len(vec) != f.dim {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), f.dim)
		}
		cp := make([]float32, f.dim)
		copy(cp, vec)
		rebuilt = append(rebuilt, cp)
	}
	f.vectors = rebuilt
	return nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	return len(f.vectors)
}

// Search returns the k nearest vectors to the query by squared Euclidean
// distance, ascending. Ties are broken by insertion order, earlier position
// first, so repeated identical queries are deterministic. If fewer than k
// vectors exist, all of them are returned. An empty index yields nil.
func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}

	results := make([]Result, len(f.vectors))
	for i, vec := range f.vectors {
		results[i] = Result{Position: i, Distance: squaredL2(query, vec)}
	}

	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
