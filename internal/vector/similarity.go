// Package vector provides similarity scoring for normalized embedding vectors.
package vector

import (
	"fmt"
	"math"
)

// ErrDimensionMismatch reports that two vectors of different lengths were
// compared, or that a vector's length disagrees with the corpus dimensionality.
// It is always fatal to the call that produced it: scoring incompatible
// vectors is a caller bug, never a transient condition.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Dot returns the inner product of two equal-length vectors. Corpus embeddings
// and queries are produced unit-normalized upstream, so the inner product
// equals cosine similarity; Dot never normalizes its inputs. For inputs that
// drift from unit norm the scores remain monotonic within one query but are
// not bounded to [-1, 1] and must not be read as probabilities.
//
// The accumulator is float64 to keep long sums stable. Dot has no side
// effects and is safe for concurrent use.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// L2Norm returns the L2 norm of x. Used by corpus loaders to diagnose
// embeddings that drift from the unit-norm contract, and by tests.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
