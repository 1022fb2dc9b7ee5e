package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, 15, cfg.Retrieval.TopK)
	assert.Equal(t, StoreFile, cfg.VectorStore.Type)
	assert.Equal(t, EmbedderHashing, cfg.Embedder.Type)
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := writeConfig(t, "vector_store:\n  type: sqlite\n  dir: /tmp/docqa\nretrieval:\n  top_k: 5\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.VectorStore.Type)
	assert.Equal(t, "/tmp/docqa", cfg.VectorStore.Dir)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 256, cfg.Embedder.Dimension)
	assert.Equal(t, 5, cfg.Chunker.SentencesPerChunk)
	assert.Equal(t, 20, cfg.Chunker.CSVRowsPerChunk)
	assert.Equal(t, GeneratorExtractive, cfg.Generator.Type)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_OpenAIDefaults(t *testing.T) {
	path := writeConfig(t, "embedder:\n  type: openai\ngenerator:\n  type: openai\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 30, cfg.Embedder.OpenAI.TimeoutSecs)
	assert.Zero(t, cfg.Embedder.Dimension)

	require.NotNil(t, cfg.Generator.OpenAI)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.OpenAI.Model)
	assert.InDelta(t, 0.3, cfg.Generator.OpenAI.Temperature, 1e-6)
	assert.Equal(t, 1024, cfg.Generator.OpenAI.MaxTokens)
}

func TestLoad_RejectsUnknownTypes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"embedder", "embedder:\n  type: tfidf\n", "unknown embedder"},
		{"store", "vector_store:\n  type: qdrant\n", "unknown vector store"},
		{"generator", "generator:\n  type: llama\n", "unknown generator"},
		{"chunker", "chunker:\n  type: token\n", "unknown chunker"},
		{"overlap", "chunker:\n  sentences_per_chunk: 2\n  overlap_sentences: 2\n", "overlap_sentences"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "embedder: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 7

	require.NoError(t, Save(path, cfg))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "docqa", "config.yaml"), path)
	assert.Equal(t, defaultConfig(), cfg)
	assert.FileExists(t, path)
}

func TestLoadDefault_PrefersWorkingDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("retrieval:\n  top_k: 3\n"), 0o644))

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
}
