package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litreview/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults caps the number of papers handed to extraction (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnableArxiv controls whether the arXiv backend is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// EnableSemanticScholar controls whether the Semantic Scholar backend is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// RequestsPerSecond throttles calls to each backend (arXiv asks for
	// one request every three seconds). Zero disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Provider names a language model or embedding vendor.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderGemini Provider = "gemini"
	ProviderHash   Provider = "hash"
)

// AIConfig holds settings for the language model service.
type AIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the backend: claude or gemini.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// FastModel is the model used for the fast tier (per-paper calls).
	FastModel string `json:"fast_model" yaml:"fast_model" mapstructure:"fast_model"`

	// CapableModel is the model used for the capable tier (report synthesis).
	CapableModel string `json:"capable_model" yaml:"capable_model" mapstructure:"capable_model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps the completion length per call (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Temperature is the sampling temperature (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxRetries is the number of retry attempts for transient API failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// EmbeddingConfig holds settings for the embedding provider behind the
// semantic memory.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the backend: gemini or hash.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the embedding model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the embedding API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Dimension is the vector size produced by the hash embedder.
	Dimension int `json:"dimension" yaml:"dimension" mapstructure:"dimension"`
}

// FailurePolicy decides what a per-item stage does when one item fails.
type FailurePolicy string

const (
	// FailFast aborts the whole stage on the first item failure.
	FailFast FailurePolicy = "fail_fast"

	// ContinueOnError records the failure on the item and keeps going.
	ContinueOnError FailurePolicy = "continue"
)

// BatchConfig holds settings for the per-item extraction and analysis stages.
type BatchConfig struct {
	// Concurrency bounds in-flight model calls within a stage (default 1).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// RequestsPerSecond throttles model calls within a stage. Zero disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// FailurePolicy is fail_fast (default) or continue.
	FailurePolicy FailurePolicy `json:"failure_policy" yaml:"failure_policy" mapstructure:"failure_policy"`
}

// MemoryConfig holds settings for the semantic memory store.
type MemoryConfig struct {
	// IndexPath is the persisted index file.
	IndexPath string `json:"index_path" yaml:"index_path" mapstructure:"index_path"`

	// DefaultK is the number of neighbors returned when a caller does not ask for a count.
	DefaultK int `json:"default_k" yaml:"default_k" mapstructure:"default_k"`
}

// ReportConfig holds settings for the report synthesis stage.
type ReportConfig struct {
	// IncludeReferences appends a numbered reference list to the report.
	IncludeReferences bool `json:"include_references" yaml:"include_references" mapstructure:"include_references"`
}

// OutputConfig holds settings for run artifacts.
type OutputConfig struct {
	// Dir is the base directory for run artifacts (report.md, state.yaml).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output is stdout or stderr.
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// MetricsConfig holds Prometheus exposure settings.
type MetricsConfig struct {
	// Addr serves /metrics while a command runs when non-empty (e.g. ":9091").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	AI        AIConfig        `json:"ai" yaml:"ai" mapstructure:"ai"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Batch     BatchConfig     `json:"batch" yaml:"batch" mapstructure:"batch"`
	Memory    MemoryConfig    `json:"memory" yaml:"memory" mapstructure:"memory"`
	Report    ReportConfig    `json:"report" yaml:"report" mapstructure:"report"`
	Output    OutputConfig    `json:"output" yaml:"output" mapstructure:"output"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}
