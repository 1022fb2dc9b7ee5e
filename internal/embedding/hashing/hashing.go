package hashing

import (
	"context"
	"hash/fnv"
	"strconv"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/embedding"
)

var _ domain.Embedder = (*Embedder)(nil)

// DefaultDimension is used when no dimension is configured.
const DefaultDimension = 256

// Embedder is an offline embedding provider using the hashing trick: every
// non-stopword term is hashed into one of dimension buckets with a signed
// weight, term frequencies are accumulated and the vector is L2-normalized.
// Unlike a corpus-fitted TF-IDF model its output never changes between runs,
// which is what a persistent store needs.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashing embedder producing vectors of the given length.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the provider identity, which includes the dimension.
func (e *Embedder) Name() string { return embedding.Identity("hashing", strconv.Itoa(e.dimension)) }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed term-frequency vector for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	for _, term := range chunker.Terms(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimension))
		// The top bit decides the sign so colliding terms tend to cancel out.
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	embedding.Normalize(vec)
	return vec, nil
}
