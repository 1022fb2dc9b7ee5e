// Package vectorstore defines the append-only similarity index shared by the
// indexing and retrieval stages, along with the pieces every backend reuses:
// batch validation, exact squared-L2 ranking and the float32 codec.
package vectorstore

import (
	"context"

	"docqa/internal/domain"
)

// Storage persists vectors with their chunk metadata and supports exact search.
// Vectors and metadata are linked only by insertion order.
type Storage interface {
	// Append adds vectors and records in input order, then persists both.
	// The first successful append fixes the dimension and provider identity.
	Append(ctx context.Context, records []domain.ChunkRecord, vectors [][]float32, provider string) error

	// Search returns up to k records closest to query, ascending by squared L2 distance.
	Search(ctx context.Context, query []float32, k int, provider string) ([]domain.SearchResult, error)

	// Stats reports the number of stored vectors and the fixed configuration.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// Stats describes the current contents of a store.
type Stats struct {
	Count     int
	Dimension int
	Provider  string
}
