// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"

	"github.com/pdiddy/litreview/pkg/types"
)

// Stage names, in execution order.
const (
	StageSearch  = "search"
	StageExtract = "extract"
	StageAnalyze = "analyze"
	StagePersist = "persist"
	StageReport  = "report"
)

// Stages lists the fixed stage order.
var Stages = []string{StageSearch, StageExtract, StageAnalyze, StagePersist, StageReport}

// State is the record threaded through the stages. It is a value: the With
// methods return a new State and never share slices with the receiver, so
// an earlier State cannot be changed through a later one.
type State struct {
	query       string
	papers      []types.PaperRecord
	extractions []types.ExtractionRecord
	analyses    []types.AnalysisRecord
	finalReport string
	persistErr  error
}

// NewState returns the initial State for query.
func NewState(query string) State {
	return State{query: query}
}

func (s State) Query() string { return s.query }

func (s State) Papers() []types.PaperRecord { return clone(s.papers) }

func (s State) Extractions() []types.ExtractionRecord { return clone(s.extractions) }

func (s State) Analyses() []types.AnalysisRecord { return clone(s.analyses) }

func (s State) FinalReport() string { return s.finalReport }

// PersistErr is the non-fatal failure of saving the memory index, if any.
func (s State) PersistErr() error { return s.persistErr }

func (s State) WithPapers(p []types.PaperRecord) State {
	s.papers = clone(p)
	return s
}

func (s State) WithExtractions(e []types.ExtractionRecord) State {
	s.extractions = clone(e)
	return s
}

func (s State) WithAnalyses(a []types.AnalysisRecord) State {
	s.analyses = clone(a)
	return s
}

func (s State) WithReport(r string) State {
	s.finalReport = r
	return s
}

func (s State) WithPersistErr(err error) State {
	s.persistErr = err
	return s
}

// Validate checks the invariants that must hold once stage has run.
func (s State) Validate(stage string) error {
	switch stage {
	case StageExtract:
		if len(s.extractions) != len(s.papers) {
			return &StateInvariantError{Stage: stage, Reason: fmt.Sprintf("%d extractions for %d papers", len(s.extractions), len(s.papers))}
		}
		for i := range s.papers {
			if s.extractions[i].ID != s.papers[i].ID {
				return &StateInvariantError{Stage: stage, Reason: fmt.Sprintf("extraction %d has ID %q, paper has %q", i, s.extractions[i].ID, s.papers[i].ID)}
			}
		}
	case StageAnalyze:
		if len(s.analyses) != len(s.extractions) {
			return &StateInvariantError{Stage: stage, Reason: fmt.Sprintf("%d analyses for %d extractions", len(s.analyses), len(s.extractions))}
		}
		for i := range s.extractions {
			if s.analyses[i].ID != s.extractions[i].ID {
				return &StateInvariantError{Stage: stage, Reason: fmt.Sprintf("analysis %d has ID %q, extraction has %q", i, s.analyses[i].ID, s.extractions[i].ID)}
			}
		}
	case StageReport:
		if s.finalReport == "" {
			return &StateInvariantError{Stage: stage, Reason: "empty final report"}
		}
	}
	return nil
}

// validateInitial requires a query and nothing else.
func (s State) validateInitial() error {
	switch {
	case s.query == "":
		return &StateInvariantError{Stage: "start", Reason: "empty query"}
	case len(s.papers) > 0 || len(s.extractions) > 0 || len(s.analyses) > 0 || s.finalReport != "":
		return &StateInvariantError{Stage: "start", Reason: "initial state already carries stage output"}
	}
	return nil
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
