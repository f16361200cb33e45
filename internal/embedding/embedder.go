// Package embedding produces fixed-length dense vectors from onboarding profiles.
//
// The shipped HashingEmbedder is deterministic and runs offline. A model-backed
// provider can be plugged in by implementing Embedder; callers validate the
// returned length with Valid and discard mismatched vectors.
package embedding

import "context"

// DefaultDimension is the configured embedding length
const DefaultDimension = 1536

// Embedder converts serialized profile text into a dense vector of Dimensions() length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Valid reports whether vec is a usable embedding of the given dimension.
func Valid(vec []float32, dimension int) bool {
	return dimension > 0 && len(vec) == dimension
}
