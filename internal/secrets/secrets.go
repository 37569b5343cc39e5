// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: anthropic-api-key, gemini-api-key, semantic-scholar-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/pkg/types"
)

// Key file names recognised by Apply.
const (
	AnthropicAPIKey       = "anthropic-api-key"
	GeminiAPIKey          = "gemini-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
)

// envFallbacks maps each key to the environment variables consulted when no
// key file is present. The first non-empty variable wins.
var envFallbacks = map[string][]string{
	AnthropicAPIKey:       {"ANTHROPIC_API_KEY"},
	GeminiAPIKey:          {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	SemanticScholarAPIKey: {"S2_API_KEY", "SEMANTIC_SCHOLAR_API_KEY"},
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, logger zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// MergeEnv fills keys missing from s with values from the process
// environment (which includes anything godotenv loaded from .env).
func MergeEnv(s map[string]string) {
	for key, vars := range envFallbacks {
		if s[key] != "" {
			continue
		}
		for _, v := range vars {
			if val := strings.TrimSpace(os.Getenv(v)); val != "" {
				s[key] = val
				break
			}
		}
	}
}

// Apply copies secrets into cfg wherever the config did not already carry a
// key. The model key is chosen by the configured provider.
func Apply(s map[string]string, cfg *types.PipelineConfig) {
	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case types.ProviderClaude:
			cfg.AI.APIKey = s[AnthropicAPIKey]
		case types.ProviderGemini:
			cfg.AI.APIKey = s[GeminiAPIKey]
		}
	}
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == types.ProviderGemini {
		cfg.Embedding.APIKey = s[GeminiAPIKey]
	}
	if cfg.Search.SemanticScholarAPIKey == "" {
		cfg.Search.SemanticScholarAPIKey = s[SemanticScholarAPIKey]
	}
}
