package embedding

import (
	"fmt"
	"math"
)

// NormalizeVector scales v to unit length and returns a new slice.
// A zero vector stays zero. Stored and query vectors are both normalized,
// so a dot product equals their cosine similarity.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sumSquares == 0 {
		return out
	}
	scale := 1 / math.Sqrt(sumSquares)
	for i, x := range v {
		out[i] = float32(float64(x) * scale)
	}
	return out
}

// CheckDimensions returns the common length of vectors.
// It fails with ErrDimensionMismatch on an empty vector, on vectors of
// different lengths, or when want is positive and differs from that length.
func CheckDimensions(vectors [][]float32, want int) (int, error) {
	dim := want
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, fmt.Errorf("%w: vector %d is empty", ErrDimensionMismatch, i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}
