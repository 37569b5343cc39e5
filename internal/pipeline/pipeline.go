// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the literature review workflow: search, extract,
// analyze, persist to semantic memory, and report. The stage order is fixed.
// Each stage reads the current State and returns a new one; any stage
// failure aborts the run with a *StageError naming the stage.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/analyze"
	"github.com/pdiddy/litreview/internal/batch"
	"github.com/pdiddy/litreview/internal/extract"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/internal/report"
	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/pkg/types"
)

// Memory is the part of the semantic memory store the persist stage uses.
type Memory interface {
	Insert(ctx context.Context, texts, ids []string, metas ...map[string]string) error
	Save(ctx context.Context) error
}

// Dependencies are the external collaborators of a run.
type Dependencies struct {
	Searcher search.Searcher
	Model    llm.Model
	Memory   Memory
}

// Result is what a caller gets back from Invoke.
type Result struct {
	RunID       string                   `json:"run_id" yaml:"run_id"`
	Query       string                   `json:"query" yaml:"query"`
	Papers      []types.PaperRecord      `json:"papers" yaml:"papers"`
	Extractions []types.ExtractionRecord `json:"extractions" yaml:"extractions"`
	Analyses    []types.AnalysisRecord   `json:"analyses" yaml:"analyses"`
	FinalReport string                   `json:"final_report" yaml:"final_report"`

	// PersistErr is the non-fatal memory save failure, if any.
	PersistErr error `json:"-" yaml:"-"`
}

// Orchestrator wires the stages to their dependencies.
type Orchestrator struct {
	deps       Dependencies
	maxResults int

	extractPool *batch.Pool
	analyzePool *batch.Pool
	includeRefs bool

	extract *extract.Stage
	analyze *analyze.Stage
	report  *report.Stage

	logger   zerolog.Logger
	metrics  *observability.Metrics
	progress io.Writer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the run logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics records stage durations and run outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithProgress writes one human-readable line per finished stage to w.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) { o.progress = w }
}

// New builds an Orchestrator. The memory store in deps is used as given;
// the orchestrator never opens one itself.
func New(deps Dependencies, cfg types.PipelineConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:       deps,
		maxResults: cfg.Search.MaxResults,
		logger:     zerolog.Nop(),
		progress:   io.Discard,
	}
	for _, opt := range opts {
		opt(o)
	}

	// Each per-item stage gets its own pool so limiter state is not shared.
	o.extractPool = batch.New(cfg.Batch)
	o.analyzePool = batch.New(cfg.Batch)
	o.includeRefs = cfg.Report.IncludeReferences
	o.bindStages()
	return o
}

// bindStages builds the stages around the current logger.
func (o *Orchestrator) bindStages() {
	o.extract = &extract.Stage{Model: o.deps.Model, Pool: o.extractPool, Logger: observability.WithStage(o.logger, StageExtract)}
	o.analyze = &analyze.Stage{Model: o.deps.Model, Pool: o.analyzePool, Logger: observability.WithStage(o.logger, StageAnalyze)}
	o.report = &report.Stage{Model: o.deps.Model, Logger: observability.WithStage(o.logger, StageReport), IncludeReferences: o.includeRefs}
}

type stageFunc func(ctx context.Context, s State) (State, error)

// Run executes every stage in order starting from initial, which must
// carry a query and no stage output.
func (o *Orchestrator) Run(ctx context.Context, initial State) (State, error) {
	if err := initial.validateInitial(); err != nil {
		return initial, err
	}

	steps := []struct {
		name string
		fn   stageFunc
	}{
		{StageSearch, o.runSearch},
		{StageExtract, o.runExtract},
		{StageAnalyze, o.runAnalyze},
		{StagePersist, o.runPersist},
		{StageReport, o.runReport},
	}

	state := initial
	for _, step := range steps {
		log := observability.WithStage(o.logger, step.name)
		log.Info().Msg("stage started")
		start := time.Now()

		next, err := step.fn(ctx, state)
		if err == nil {
			err = next.Validate(step.name)
		}
		elapsed := time.Since(start)
		if o.metrics != nil {
			o.metrics.RecordStage(step.name, elapsed.Seconds(), err != nil)
		}
		if err != nil {
			log.Error().Err(err).Dur("duration", elapsed).Msg("stage failed")
			return state, &StageError{Stage: step.name, Err: err}
		}
		log.Info().Dur("duration", elapsed).Msg("stage finished")
		state = next
	}
	return state, nil
}

// Invoke runs the pipeline for query under a fresh run ID.
func (o *Orchestrator) Invoke(ctx context.Context, query string) (Result, error) {
	runID := uuid.NewString()
	runLogger := observability.WithRun(o.logger, runID, query)

	// Stages log through the run logger for this invocation only.
	run := *o
	run.logger = runLogger
	run.bindStages()

	state, err := run.Run(ctx, NewState(query))
	if o.metrics != nil {
		o.metrics.RecordRun(err != nil)
	}
	if err != nil {
		runLogger.Error().Err(err).Msg("run failed")
		return Result{RunID: runID, Query: query}, err
	}
	runLogger.Info().Int("papers", len(state.papers)).Msg("run completed")

	return Result{
		RunID:       runID,
		Query:       state.Query(),
		Papers:      state.Papers(),
		Extractions: state.Extractions(),
		Analyses:    state.Analyses(),
		FinalReport: state.FinalReport(),
		PersistErr:  state.PersistErr(),
	}, nil
}

func (o *Orchestrator) runSearch(ctx context.Context, s State) (State, error) {
	papers := o.deps.Searcher.Search(ctx, s.Query(), o.maxResults)
	if err := ctx.Err(); err != nil {
		return s, err
	}
	if o.metrics != nil {
		o.metrics.PapersFound.Observe(float64(len(papers)))
	}
	fmt.Fprintf(o.progress, "search: found %d papers\n", len(papers))
	return s.WithPapers(papers), nil
}

func (o *Orchestrator) runExtract(ctx context.Context, s State) (State, error) {
	out, err := o.extract.Run(ctx, s.papers)
	if err != nil {
		return s, err
	}
	fmt.Fprintf(o.progress, "extract: %d extractions (%d failed)\n", len(out), countFailed(out, types.ExtractionRecord.Failed))
	return s.WithExtractions(out), nil
}

func (o *Orchestrator) runAnalyze(ctx context.Context, s State) (State, error) {
	out, err := o.analyze.Run(ctx, s.extractions)
	if err != nil {
		return s, err
	}
	fmt.Fprintf(o.progress, "analyze: %d analyses (%d failed)\n", len(out), countFailed(out, types.AnalysisRecord.Failed))
	return s.WithAnalyses(out), nil
}

func (o *Orchestrator) runReport(ctx context.Context, s State) (State, error) {
	r, err := o.report.Run(ctx, s.Query(), s.analyses)
	if err != nil {
		return s, err
	}
	fmt.Fprintf(o.progress, "report: %d characters\n", len(r))
	return s.WithReport(r), nil
}

func countFailed[T any](items []T, failed func(T) bool) int {
	n := 0
	for _, it := range items {
		if failed(it) {
			n++
		}
	}
	return n
}
