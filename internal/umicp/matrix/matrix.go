// Package matrix provides the pure-Go vector helpers spec §11 asks for.
// No SIMD, no cgo, no external numeric library: the spec explicitly scopes
// hardware-accelerated vector math out (non-goal), so this stays plain
// range loops in the teacher's style rather than reaching for a BLAS
// binding none of the example repos use anyway.
package matrix

import (
	"math"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
)

// Add returns the element-wise sum of a and b. Both must have equal length.
func Add(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, errs.Field(errs.InvalidArgument, "length", "vectors must have equal length")
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out, nil
}

// Dot returns the dot product of a and b. Both must have equal length.
func Dot(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.Field(errs.InvalidArgument, "length", "vectors must have equal length")
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}

// Scale returns a scaled by s.
func Scale(a []float64, s float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * s
	}
	return out
}

// Norm returns the Euclidean (L2) norm of a.
func Norm(a []float64) float64 {
	sum, _ := Dot(a, a)
	return math.Sqrt(sum)
}
