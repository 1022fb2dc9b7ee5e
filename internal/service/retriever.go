package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Retriever finds the chunks closest to a query.
type Retriever struct {
	embedder domain.Embedder
	store    vectorstore.Storage
	log      *slog.Logger
}

// NewRetriever creates a Retriever. embedder must be the provider the store was built with.
func NewRetriever(embedder domain.Embedder, store vectorstore.Storage, log *slog.Logger) *Retriever {
	return &Retriever{embedder: embedder, store: store, log: orDiscard(log)}
}

// Retrieve returns the texts of the k chunks closest to query, closest first.
// It fails with domain.ErrEmptyStore when nothing has been indexed.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	results, err := r.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Record.Text
	}
	return texts, nil
}

// Search is Retrieve keeping distances and source files.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	stats, err := r.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.Count == 0 {
		return nil, domain.ErrEmptyStore
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.store.Search(ctx, vec, k, r.embedder.Name())
	if err != nil {
		return nil, err
	}
	r.log.Debug("retrieved chunks", "k", k, "count", len(results), "store_size", stats.Count)
	return results, nil
}
