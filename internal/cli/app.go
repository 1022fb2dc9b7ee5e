package cli

import (
	"fmt"
	"log/slog"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/embedding/openai"
	"docqa/internal/generation/extractive"
	genopenai "docqa/internal/generation/openai"
	"docqa/internal/ingest"
	"docqa/internal/service"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/file"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/sqlite"
)

// app holds the components assembled from config for one command.
type app struct {
	cfg   *config.AppConfig
	log   *slog.Logger
	store vectorstore.Storage
}

func newApp(cfg *config.AppConfig, log *slog.Logger) (*app, error) {
	st, err := openStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: st}, nil
}

func (a *app) Close() error { return a.store.Close() }

// pipeline assembles the stages. gen may be nil when only IndexFiles is used.
func (a *app) pipeline(gen domain.Generator) (*service.Pipeline, error) {
	emb, err := newEmbedder(a.cfg.Embedder)
	if err != nil {
		return nil, err
	}
	in := ingest.New(
		chunker.NewSentenceChunker(a.cfg.Chunker.SentencesPerChunk, a.cfg.Chunker.OverlapSentences),
		chunker.NewRowChunker(a.cfg.Chunker.CSVRowsPerChunk),
	)
	return service.NewPipeline(
		in,
		service.NewIndexer(emb, a.store, 0, a.log),
		service.NewRetriever(emb, a.store, a.log),
		gen,
		service.Options{
			TopK:            a.cfg.Retrieval.TopK,
			Workers:         a.cfg.Pipeline.Workers,
			GenerateTimeout: time.Duration(a.cfg.Generator.TimeoutSecs) * time.Second,
		},
		a.log,
	), nil
}

func (a *app) retriever() (*service.Retriever, error) {
	emb, err := newEmbedder(a.cfg.Embedder)
	if err != nil {
		return nil, err
	}
	return service.NewRetriever(emb, a.store, a.log), nil
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case config.EmbedderHashing, "":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case config.EmbedderOpenAI:
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			Dimensions:        cfg.Dimension,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func openStore(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case config.StoreFile, "":
		st, err := file.Open(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreSQLite:
		st, err := sqlite.Open(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreMemory:
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func newGenerator(cfg config.GeneratorConfig) (domain.Generator, error) {
	switch cfg.Type {
	case config.GeneratorExtractive, "":
		return extractive.NewGenerator(cfg.MaxSentences), nil
	case config.GeneratorOpenAI:
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		gen, err := genopenai.NewGenerator(genopenai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}
