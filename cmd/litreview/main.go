// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litreview CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/config"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/memory"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by the root command before any subcommand runs.
var (
	pipelineCfg types.PipelineConfig
	logger      = zerolog.Nop()
	metrics     *observability.Metrics
)

// rootCmd is the base command for the litreview CLI.
var rootCmd = &cobra.Command{
	Use:   "litreview",
	Short: "Automated literature reviews backed by a semantic memory",
	Long: `litreview searches academic sources for a topic, extracts and analyzes
each paper with a language model, stores the analyses in a local semantic
memory, and synthesizes a literature review.

API keys are read from .secrets/ (anthropic-api-key, gemini-api-key,
semantic-scholar-api-key), then from the environment and .env.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		cfgFile, _ := cmd.Flags().GetString("config")
		v := config.New(cfgFile)
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			cfg.Logging.Level = "debug"
		}
		logger = observability.NewLogger(cfg.Logging)
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug().Str("file", used).Msg("using config file")
		}

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		secrets.MergeEnv(s)
		secrets.Apply(s, &cfg)
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}

		pipelineCfg = cfg
		metrics = observability.NewMetrics()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litreview.yaml or ~/.config/litreview/litreview.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory holding API key files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
}

// openMemory builds the semantic memory store from configuration and loads
// its index. A missing or unreadable index leaves the store empty.
func openMemory(ctx context.Context) (*memory.Store, error) {
	embedder, err := llm.NewEmbedder(pipelineCfg.Embedding)
	if err != nil {
		return nil, err
	}
	store := memory.New(embedder, pipelineCfg.Memory.IndexPath,
		memory.WithLogger(logger.With().Str("component", "memory").Logger()),
		memory.WithMetrics(metrics),
		memory.WithDefaultK(pipelineCfg.Memory.DefaultK),
	)
	if err := store.Load(ctx); err != nil {
		logger.Warn().Err(err).Str("path", store.Path()).Msg("memory index unreadable, starting empty")
	}
	return store, nil
}

// serveMetrics exposes /metrics on addr until the returned stop func is called.
// An empty addr serves nothing.
func serveMetrics(addr string) (stop func()) {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
