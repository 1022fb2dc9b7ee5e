package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
)

// recordingStore wraps a memory store and records the source file of every append.
type recordingStore struct {
	*memory.Storage
	mu      sync.Mutex
	appends []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Storage: memory.NewStorage()}
}

func (s *recordingStore) Append(ctx context.Context, records []domain.ChunkRecord, vectors [][]float32, provider string) error {
	if err := s.Storage.Append(ctx, records, vectors, provider); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(records) > 0 {
		s.appends = append(s.appends, records[0].SourceFile)
	}
	return nil
}

var _ vectorstore.Storage = (*recordingStore)(nil)

// failingEmbedder fails for texts listed in fail and delegates the rest.
type failingEmbedder struct {
	domain.Embedder
	fail map[string]bool
}

func (e failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.fail[text] {
		return nil, errors.New("embedding service unavailable")
	}
	return e.Embedder.Embed(ctx, text)
}

// stubGenerator returns a fixed answer or error, or blocks until ctx is done.
type stubGenerator struct {
	answer string
	err    error
	block  bool
}

func (g stubGenerator) Name() string { return "stub" }

func (g stubGenerator) Generate(ctx context.Context, _ string, _ []string) (string, error) {
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.answer, g.err
}

func testEmbedder() domain.Embedder { return hashing.NewEmbedder(256) }

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
