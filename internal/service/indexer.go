// Package service implements the indexing, retrieval and orchestration stages.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/message"
	"docqa/internal/vectorstore"
)

// Indexer embeds chunks and appends them to the vector store.
type Indexer struct {
	embedder domain.Embedder
	store    vectorstore.Storage
	workers  int
	log      *slog.Logger

	// mu serializes Apply within the process; the store serializes across processes.
	mu sync.Mutex
}

// NewIndexer creates an Indexer embedding with at most workers concurrent calls.
func NewIndexer(embedder domain.Embedder, store vectorstore.Storage, workers int, log *slog.Logger) *Indexer {
	if workers <= 0 {
		workers = embedding.DefaultWorkers
	}
	return &Indexer{embedder: embedder, store: store, workers: workers, log: orDiscard(log)}
}

// Index embeds chunks, tags them with sourceFile and appends them to the store.
// It returns the number of entries added. Indexing the same chunks twice adds
// them twice.
func (ix *Indexer) Index(ctx context.Context, chunks []string, sourceFile string) (int, error) {
	p, err := ix.Embed(ctx, chunks, sourceFile)
	if err != nil {
		return 0, err
	}
	return ix.Apply(ctx, p)
}

// Embed computes the embeddings of chunks without touching the store.
func (ix *Indexer) Embed(ctx context.Context, chunks []string, sourceFile string) (message.Index, error) {
	vectors, err := embedding.EmbedAll(ctx, ix.embedder, chunks, ix.workers)
	if err != nil {
		return message.Index{}, fmt.Errorf("embed %s: %w", sourceFile, err)
	}
	p := message.Index{
		Chunks:     append([]string{}, chunks...),
		Embeddings: vectors,
		SourceFile: sourceFile,
	}
	if p.Embeddings == nil {
		p.Embeddings = [][]float32{}
	}
	return p, nil
}

// Apply appends an embedded batch under the embedder's provider identity.
// Calls are serialized.
func (ix *Indexer) Apply(ctx context.Context, p message.Index) (int, error) {
	if len(p.Chunks) != len(p.Embeddings) {
		return 0, fmt.Errorf("%w: %d chunks, %d embeddings", domain.ErrLengthMismatch, len(p.Chunks), len(p.Embeddings))
	}
	if len(p.Chunks) == 0 {
		return 0, nil
	}
	records := make([]domain.ChunkRecord, len(p.Chunks))
	for i, c := range p.Chunks {
		records[i] = domain.ChunkRecord{Text: c, SourceFile: p.SourceFile}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.store.Append(ctx, records, p.Embeddings, ix.embedder.Name()); err != nil {
		return 0, fmt.Errorf("append %s: %w", p.SourceFile, err)
	}
	ix.log.Debug("indexed chunks", "source_file", p.SourceFile, "count", len(records))
	return len(records), nil
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return log
}
