package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Component type names accepted in the config file.
const (
	EmbedderHashing = "hashing"
	EmbedderOpenAI  = "openai"

	ChunkerSentence = "sentence"

	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	GeneratorExtractive = "extractive"
	GeneratorOpenAI     = "openai"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type string `yaml:"type"`
	// Dimension is the hashing vector length, or a shortened OpenAI vector length when set.
	Dimension int                   `yaml:"dimension,omitempty"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
	CSVRowsPerChunk   int    `yaml:"csv_rows_per_chunk"`
}

// VectorStoreConfig selects the vector store backend and where it keeps its files.
type VectorStoreConfig struct {
	Type string `yaml:"type"`
	Dir  string `yaml:"dir"`
}

// OpenAIGeneratorConfig holds configuration for the chat completion generator.
type OpenAIGeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type         string                 `yaml:"type"`
	MaxSentences int                    `yaml:"max_sentences"`
	TimeoutSecs  int                    `yaml:"timeout_secs"`
	OpenAI       *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
}

// RetrievalConfig configures the retrieval stage.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// PipelineConfig configures the orchestrator.
type PipelineConfig struct {
	// Workers bounds how many files are ingested and embedded at once.
	Workers int `yaml:"workers"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown component types and out-of-range values.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case EmbedderHashing, EmbedderOpenAI:
	default:
		return fmt.Errorf("unknown embedder: %q", c.Embedder.Type)
	}
	if c.Chunker.Type != ChunkerSentence {
		return fmt.Errorf("unknown chunker: %q", c.Chunker.Type)
	}
	if c.Chunker.OverlapSentences >= c.Chunker.SentencesPerChunk {
		return fmt.Errorf("chunker: overlap_sentences (%d) must be less than sentences_per_chunk (%d)",
			c.Chunker.OverlapSentences, c.Chunker.SentencesPerChunk)
	}
	switch c.VectorStore.Type {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown vector store: %q", c.VectorStore.Type)
	}
	switch c.Generator.Type {
	case GeneratorExtractive, GeneratorOpenAI:
	default:
		return fmt.Errorf("unknown generator: %q", c.Generator.Type)
	}
	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval: top_k must not be negative")
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: EmbedderHashing, Dimension: 256},
		Chunker:     ChunkerConfig{Type: ChunkerSentence, SentencesPerChunk: 5, OverlapSentences: 1, CSVRowsPerChunk: 20},
		VectorStore: VectorStoreConfig{Type: StoreFile, Dir: "vector_store"},
		Generator:   GeneratorConfig{Type: GeneratorExtractive, MaxSentences: 3, TimeoutSecs: 60},
		Retrieval:   RetrievalConfig{TopK: 15},
		Pipeline:    PipelineConfig{Workers: 4},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Type == EmbedderHashing && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = def.Embedder.Dimension
	}
	if cfg.Embedder.Type == EmbedderOpenAI {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = def.Chunker.Type
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = def.Chunker.SentencesPerChunk
	}
	if cfg.Chunker.CSVRowsPerChunk == 0 {
		cfg.Chunker.CSVRowsPerChunk = def.Chunker.CSVRowsPerChunk
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	if cfg.VectorStore.Dir == "" {
		cfg.VectorStore.Dir = def.VectorStore.Dir
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = def.Generator.Type
	}
	if cfg.Generator.MaxSentences == 0 {
		cfg.Generator.MaxSentences = def.Generator.MaxSentences
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = def.Generator.TimeoutSecs
	}
	if cfg.Generator.Type == GeneratorOpenAI {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIGeneratorConfig{}
		}
		o := cfg.Generator.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-4o-mini"
		}
		if o.Temperature == 0 {
			o.Temperature = 0.3
		}
		if o.MaxTokens == 0 {
			o.MaxTokens = 1024
		}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = def.Pipeline.Workers
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
