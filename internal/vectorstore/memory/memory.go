package memory

import (
	"context"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Storage is a non-persistent store with the same append-only semantics as the
// file backend. Useful for tests and one-shot runs.
type Storage struct {
	mu    sync.RWMutex
	state *vectorstore.Flat
}

func NewStorage() *Storage { return &Storage{state: &vectorstore.Flat{}} }

func (s *Storage) Append(_ context.Context, records []domain.ChunkRecord, vectors [][]float32, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dim, err := s.state.CheckAppend(records, vectors, provider)
	if err != nil {
		return err
	}
	s.state = s.state.Appended(records, vectors, provider, dim)
	return nil
}

func (s *Storage) Search(_ context.Context, query []float32, k int, provider string) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Search(query, k, provider)
}

func (s *Storage) Stats(_ context.Context) (vectorstore.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Stats(), nil
}

func (s *Storage) Close() error { return nil }
