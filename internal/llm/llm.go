// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the language model and embedding services used by the
// pipeline stages. A single Model interface serves both capability tiers; the
// tier picks the configured model name inside each client.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/litreview/pkg/types"
)

// Tier selects a model capability level.
type Tier int

const (
	// Fast is used for per-paper extraction and analysis.
	Fast Tier = iota
	// Capable is used for report synthesis.
	Capable
)

// String returns the tier name used in logs and metric labels.
func (t Tier) String() string {
	switch t {
	case Fast:
		return "fast"
	case Capable:
		return "capable"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Model answers a single prompt at the requested tier.
type Model interface {
	Ask(ctx context.Context, prompt string, tier Tier) (string, error)
}

// Embedder maps texts to fixed-dimension vectors. All vectors from one
// Embedder share a dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const (
	defaultMaxTokens  = 4096
	defaultMaxRetries = 3
	defaultTimeout    = 120 * time.Second
)

// NewModel builds the Model selected by cfg.Provider.
func NewModel(cfg types.AIConfig) (Model, error) {
	switch cfg.Provider {
	case types.ProviderClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude: %w", ErrMissingAPIKey)
		}
		return &ClaudeClient{
			APIKey:       cfg.APIKey,
			FastModel:    cfg.FastModel,
			CapableModel: cfg.CapableModel,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.Temperature,
			MaxRetries:   cfg.MaxRetries,
			Client:       newHTTPClient(cfg.Timeout),
		}, nil
	case types.ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
		}
		return &GeminiClient{
			APIKey:       cfg.APIKey,
			FastModel:    cfg.FastModel,
			CapableModel: cfg.CapableModel,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.Temperature,
			MaxRetries:   cfg.MaxRetries,
			Client:       newHTTPClient(cfg.Timeout),
		}, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// NewEmbedder builds the Embedder selected by cfg.Provider.
func NewEmbedder(cfg types.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case types.ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini embeddings: %w", ErrMissingAPIKey)
		}
		return &GeminiClient{
			APIKey:         cfg.APIKey,
			EmbeddingModel: cfg.Model,
			Client:         newHTTPClient(cfg.Timeout),
		}, nil
	case types.ProviderHash, "":
		return NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
