// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the pipeline configuration from defaults, an
// optional litreview.yaml file, and LITREVIEW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/pkg/types"
)

// EnvPrefix is prepended to every environment override, e.g.
// LITREVIEW_SEARCH_MAX_RESULTS.
const EnvPrefix = "LITREVIEW"

// FileName is the config file name searched for without an explicit --config.
const FileName = "litreview"

// New returns a viper instance that reads cfgFile when set, or searches for
// litreview.yaml in the working directory and ~/.config/litreview/.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return v
	}
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", FileName))
	}
	return v
}

// Load applies defaults and environment overrides to v, reads its config
// file if one is found, and unmarshals the result. A missing config file
// is not an error.
func Load(v *viper.Viper) (types.PipelineConfig, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.PipelineConfig{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// Search
	v.SetDefault("search.timeout", "30s")
	v.SetDefault("search.user_agent", "litreview/0.1")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.enable_arxiv", true)
	v.SetDefault("search.enable_semantic_scholar", false)
	v.SetDefault("search.semantic_scholar_api_key", "")
	v.SetDefault("search.requests_per_second", 0.34) // arXiv asks for one request every three seconds

	// AI
	v.SetDefault("ai.timeout", "120s")
	v.SetDefault("ai.user_agent", "litreview/0.1")
	v.SetDefault("ai.provider", string(types.ProviderClaude))
	v.SetDefault("ai.fast_model", "")
	v.SetDefault("ai.capable_model", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.max_retries", 3)

	// Embedding
	v.SetDefault("embedding.timeout", "60s")
	v.SetDefault("embedding.user_agent", "litreview/0.1")
	v.SetDefault("embedding.provider", string(types.ProviderHash))
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dimension", 256)

	// Batch
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.requests_per_second", 0)
	v.SetDefault("batch.failure_policy", string(types.FailFast))

	// Memory
	v.SetDefault("memory.index_path", filepath.Join("memory", "index.db"))
	v.SetDefault("memory.default_k", 5)

	v.SetDefault("report.include_references", true)
	v.SetDefault("output.dir", "runs")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("metrics.addr", "")
}

// Validate checks enumerations and ranges. API keys are not checked here;
// they may still arrive from .secrets/ after loading.
func Validate(cfg types.PipelineConfig) error {
	if cfg.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", cfg.Search.MaxResults)
	}
	if cfg.Search.RequestsPerSecond < 0 {
		return fmt.Errorf("search.requests_per_second must not be negative")
	}

	switch cfg.AI.Provider {
	case types.ProviderClaude, types.ProviderGemini:
	default:
		return fmt.Errorf("unsupported ai.provider %q: use claude or gemini", cfg.AI.Provider)
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got %g", cfg.AI.Temperature)
	}
	if cfg.AI.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must not be negative")
	}

	switch cfg.Embedding.Provider {
	case types.ProviderHash, types.ProviderGemini:
	default:
		return fmt.Errorf("unsupported embedding.provider %q: use hash or gemini", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Provider == types.ProviderHash && cfg.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive for the hash embedder")
	}

	if cfg.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be positive, got %d", cfg.Batch.Concurrency)
	}
	switch cfg.Batch.FailurePolicy {
	case types.FailFast, types.ContinueOnError:
	default:
		return fmt.Errorf("unsupported batch.failure_policy %q: use fail_fast or continue", cfg.Batch.FailurePolicy)
	}

	if cfg.Memory.DefaultK <= 0 {
		return fmt.Errorf("memory.default_k must be positive, got %d", cfg.Memory.DefaultK)
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
		"error": true, "disabled": true, "off": true,
	}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid logging.level: %s", cfg.Logging.Level)
	}
	return nil
}
