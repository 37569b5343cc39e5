// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/pipeline"
	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/pkg/types"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Run a full literature review for a topic",
	Long: `Run searches for papers on the topic, extracts and analyzes each one,
stores the analyses in semantic memory, and prints a synthesized review.

Stage progress goes to stderr; the review goes to stdout. Unless
--no-artifacts is set, report.md, state.yaml and references.bib are written
under <output-dir>/<run-id>/.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")
	cfg := applyRunFlags(cmd, pipelineCfg)

	stopMetrics := serveMetrics(cfg.Metrics.Addr)
	defer stopMetrics()

	model, err := llm.NewModel(cfg.AI)
	if err != nil {
		return err
	}
	store, err := openMemory(ctx)
	if err != nil {
		return err
	}

	deps := pipeline.Dependencies{
		Searcher: search.NewService(cfg.Search, logger.With().Str("component", "search").Logger(), metrics),
		Model:    &llm.Instrumented{Model: model, Logger: logger.With().Str("component", "llm").Logger(), Metrics: metrics},
		Memory:   store,
	}
	orch := pipeline.New(deps, cfg,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithProgress(os.Stderr),
	)

	res, err := orch.Invoke(ctx, query)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, res.FinalReport)

	if res.PersistErr != nil {
		fmt.Fprintf(os.Stderr, "warning: memory index not saved: %v\n", res.PersistErr)
	}
	if err := store.Save(ctx); err != nil {
		logger.Warn().Err(err).Msg("saving memory index at session end failed")
	}

	if noArtifacts, _ := cmd.Flags().GetBool("no-artifacts"); !noArtifacts {
		dir, err := pipeline.WriteArtifacts(cfg.Output.Dir, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Artifacts written to %s\n", dir)
	}
	return nil
}

// applyRunFlags overlays explicitly set flags on cfg.
func applyRunFlags(cmd *cobra.Command, cfg types.PipelineConfig) types.PipelineConfig {
	flags := cmd.Flags()
	if flags.Changed("max-results") {
		cfg.Search.MaxResults, _ = flags.GetInt("max-results")
	}
	if flags.Changed("concurrency") {
		cfg.Batch.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("continue-on-error") {
		if cont, _ := flags.GetBool("continue-on-error"); cont {
			cfg.Batch.FailurePolicy = types.ContinueOnError
		} else {
			cfg.Batch.FailurePolicy = types.FailFast
		}
	}
	if flags.Changed("semantic-scholar") {
		cfg.Search.EnableSemanticScholar, _ = flags.GetBool("semantic-scholar")
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("no-references") {
		noRefs, _ := flags.GetBool("no-references")
		cfg.Report.IncludeReferences = !noRefs
	}
	return cfg
}

// registerRunFlags declares the flags applyRunFlags reads.
func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-results", 10, "maximum number of papers to review")
	cmd.Flags().Int("concurrency", 1, "parallel model calls per stage")
	cmd.Flags().Bool("continue-on-error", false, "record per-paper failures instead of aborting")
	cmd.Flags().Bool("semantic-scholar", false, "also search Semantic Scholar")
	cmd.Flags().String("output-dir", "runs", "base directory for run artifacts")
	cmd.Flags().Bool("no-artifacts", false, "do not write run artifacts")
	cmd.Flags().Bool("no-references", false, "omit the reference list from the review")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running (e.g. :9091)")
}

func init() {
	registerRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
