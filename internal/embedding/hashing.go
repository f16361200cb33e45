package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// emptyTextToken stands in for empty input so the vector never has zero norm
const emptyTextToken = "__empty_profile__"

// HashingEmbedder is the offline fallback: a signed feature-hashing bag of
// unigrams and bigrams, L2-normalized. Equal text always yields an equal vector.
type HashingEmbedder struct {
	dimension int
}

// NewHashingEmbedder creates a HashingEmbedder producing vectors of the given dimension.
func NewHashingEmbedder(dimension int) (*HashingEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	return &HashingEmbedder{dimension: dimension}, nil
}

// Dimensions returns the vector length
func (h *HashingEmbedder) Dimensions() int {
	return h.dimension
}

// Embed hashes the tokens of text into a unit-norm vector.
func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		tokens = []string{emptyTextToken}
	}

	acc := make([]float64, h.dimension)
	for i, tok := range tokens {
		h.add(acc, tok, 1.0)
		if i > 0 {
			h.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dimension)
	if norm == 0 {
		return out, nil
	}
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (h *HashingEmbedder) add(acc []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	idx := int(sum % uint64(h.dimension))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	acc[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
