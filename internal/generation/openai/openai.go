// Package openai provides an answer generator backed by an OpenAI-compatible chat API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
	"docqa/internal/generation"
)

var _ domain.Generator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultModel   = openai.GPT4oMini
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the chat generator.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	// Temperature of zero means generation.DefaultTemperature.
	Temperature float32
	// MaxTokens of zero means generation.DefaultMaxTokens.
	MaxTokens int
}

// Generator answers questions with a single chat completion per call.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewGenerator creates a chat generator. The API key is read from cfg.APIKeyEnv.
func NewGenerator(cfg Config) (*Generator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = generation.DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = generation.DefaultMaxTokens
	}
	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Generator{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name identifies the generator in logs.
func (g *Generator) Name() string { return "openai:" + g.model }

// Generate asks the model to answer question from contexts only.
func (g *Generator) Generate(ctx context.Context, question string, contexts []string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generation.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: generation.BuildPrompt(question, contexts)},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, errors.New("no choices in response"))
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", domain.ErrGeneration)
	}
	return answer, nil
}
