package domain

import "context"

// Document represents a single file loaded into the system.
type Document struct {
	Path    string
	Type    string
	Content string
}

// ChunkRecord is the metadata stored alongside every indexed vector.
type ChunkRecord struct {
	Text       string `json:"chunk"`
	SourceFile string `json:"source_file"`
}

// SearchResult represents a matching chunk with its squared L2 distance to the query.
type SearchResult struct {
	Record   ChunkRecord
	Distance float64
}

// Embedder converts free text into a fixed-length vector.
// Name identifies the provider and model; vectors from different names are not comparable.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits document text into indexable chunks.
type Chunker interface {
	Chunk(text string) []string
}

// Ingestor turns a file path into chunk texts.
type Ingestor interface {
	Ingest(ctx context.Context, path string) ([]string, error)
}

// Generator produces an answer grounded in the retrieved context.
type Generator interface {
	Name() string
	Generate(ctx context.Context, question string, contexts []string) (string, error)
}
