package service

import (
	"gonum.org/v1/gonum/floats"
)

// Distance metric helper functions. Callers check lengths first; gonum
// panics on mismatched slices.

func cosineSimilarity(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

func euclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// normalize scales v to unit L2 norm in place and returns the original norm.
// Zero vectors are left untouched.
func normalize(v []float64) float64 {
	norm := floats.Norm(v, 2)
	if norm > 0 {
		floats.Scale(1/norm, v)
	}
	return norm
}

// Clone returns an independent copy of the vector
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Norm returns the L2 norm
func (v Vector) Norm() float64 {
	return floats.Norm(v, 2)
}
