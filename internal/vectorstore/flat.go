package vectorstore

import (
	"fmt"
	"sort"

	"docqa/internal/domain"
)

// Flat is the in-memory state of a store: a fixed configuration plus parallel
// vectors and records. Backends load it fully, mutate a copy and persist it.
type Flat struct {
	Dimension int
	Provider  string
	Vectors   [][]float32
	Records   []domain.ChunkRecord
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int { return len(f.Vectors) }

// Stats summarises the store.
func (f *Flat) Stats() Stats {
	return Stats{Count: len(f.Vectors), Dimension: f.Dimension, Provider: f.Provider}
}

// Consistent reports whether vectors and records are still parallel.
func (f *Flat) Consistent() bool { return len(f.Vectors) == len(f.Records) }

// CheckAppend validates a batch against the store without mutating it and
// returns the dimension the store will have after the append.
func (f *Flat) CheckAppend(records []domain.ChunkRecord, vectors [][]float32, provider string) (int, error) {
	if len(records) != len(vectors) {
		return 0, fmt.Errorf("%w: %d records, %d vectors", domain.ErrLengthMismatch, len(records), len(vectors))
	}
	if len(vectors) == 0 {
		return f.Dimension, nil
	}
	if f.Provider == "" && provider == "" {
		return 0, fmt.Errorf("%w: empty embedding provider", domain.ErrInvalidInput)
	}
	if f.Provider != "" && provider != f.Provider {
		return 0, fmt.Errorf("%w: store uses %q, got %q", domain.ErrProviderMismatch, f.Provider, provider)
	}
	dim := f.Dimension
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return 0, fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
		}
	}
	for _, v := range vectors {
		if len(v) != dim {
			return 0, &domain.DimensionMismatchError{Want: dim, Got: len(v)}
		}
	}
	return dim, nil
}

// Appended returns a new Flat holding f's entries followed by the batch.
// The batch must have passed CheckAppend.
func (f *Flat) Appended(records []domain.ChunkRecord, vectors [][]float32, provider string, dim int) *Flat {
	if len(vectors) == 0 {
		return f
	}
	next := &Flat{
		Dimension: dim,
		Provider:  f.Provider,
		Vectors:   make([][]float32, 0, len(f.Vectors)+len(vectors)),
		Records:   make([]domain.ChunkRecord, 0, len(f.Records)+len(records)),
	}
	if next.Provider == "" {
		next.Provider = provider
	}
	next.Vectors = append(next.Vectors, f.Vectors...)
	for _, v := range vectors {
		next.Vectors = append(next.Vectors, append([]float32(nil), v...))
	}
	next.Records = append(next.Records, f.Records...)
	next.Records = append(next.Records, records...)
	return next
}

// Search ranks every stored vector against query.
func (f *Flat) Search(query []float32, k int, provider string) ([]domain.SearchResult, error) {
	if len(f.Vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if f.Provider != "" && provider != f.Provider {
		return nil, fmt.Errorf("%w: store uses %q, got %q", domain.ErrProviderMismatch, f.Provider, provider)
	}
	if len(query) != f.Dimension {
		return nil, &domain.DimensionMismatchError{Want: f.Dimension, Got: len(query)}
	}
	hits := Rank(f.Vectors, query, k)
	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = domain.SearchResult{Record: f.Records[h.Ordinal], Distance: h.Distance}
	}
	return results, nil
}

// Hit is one ranked vector, addressed by its insertion ordinal.
type Hit struct {
	Ordinal  int
	Distance float64
}

// Rank performs exact nearest-neighbour search with squared Euclidean distance.
// Results are ascending by distance; ties keep insertion order.
func Rank(vectors [][]float32, query []float32, k int) []Hit {
	hits := make([]Hit, len(vectors))
	for i, v := range vectors {
		hits[i] = Hit{Ordinal: i, Distance: SquaredL2(v, query)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// SquaredL2 returns the squared Euclidean distance between a and b.
// Both vectors must have the same length.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
