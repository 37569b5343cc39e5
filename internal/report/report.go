// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report synthesizes the final literature review from per-paper
// analyses using the capable model tier.
package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/pkg/types"
)

// NoSourcesNotice is the report returned when no analyses are available.
const NoSourcesNotice = "No sources were found for this topic, so no literature review could be produced."

// FailedSourcesNotice is the report returned when sources were found but
// every one of them failed extraction or analysis.
func FailedSourcesNotice(n int) string {
	return fmt.Sprintf("All %d sources found for this topic failed extraction or analysis, so no literature review could be produced.", n)
}

// separator divides per-paper analyses in the synthesis prompt.
const separator = "\n\n---\n\n"

var reportPromptTmpl = template.Must(template.New("report").Parse(`Produce a final literature review{{if .Query}} on "{{.Query}}"{{end}}.

The review should synthesize the papers below into a coherent narrative: group related work, compare approaches, identify consensus and open problems, and refer to papers by their bracketed number.

{{.Combined}}
`))

// Stage is the report synthesis stage.
type Stage struct {
	Model  llm.Model
	Logger zerolog.Logger

	// IncludeReferences appends a numbered reference list to the model's review.
	IncludeReferences bool
}

// Run returns the literature review for analyses. Failed analyses are left
// out. When nothing usable remains the model is not called: NoSourcesNotice
// is returned for an empty input and FailedSourcesNotice otherwise.
func (s *Stage) Run(ctx context.Context, query string, analyses []types.AnalysisRecord) (string, error) {
	usable := Usable(analyses)
	if len(usable) == 0 {
		if len(analyses) > 0 {
			s.Logger.Warn().Int("failed", len(analyses)).Msg("every analysis failed, nothing to synthesize")
			return FailedSourcesNotice(len(analyses)), nil
		}
		s.Logger.Info().Msg("no analyses to synthesize")
		return NoSourcesNotice, nil
	}

	prompt, err := RenderPrompt(query, usable)
	if err != nil {
		return "", fmt.Errorf("rendering report prompt: %w", err)
	}

	review, err := s.Model.Ask(ctx, prompt, llm.Capable)
	if err != nil {
		return "", fmt.Errorf("synthesizing report: %w", err)
	}
	s.Logger.Info().Int("sources", len(usable)).Int("chars", len(review)).Msg("report synthesized")

	if s.IncludeReferences {
		review = strings.TrimRight(review, "\n") + "\n\n" + References(usable)
	}
	return review, nil
}

// Usable filters out analyses that failed or came back empty.
func Usable(analyses []types.AnalysisRecord) []types.AnalysisRecord {
	var out []types.AnalysisRecord
	for _, a := range analyses {
		if a.Failed() || strings.TrimSpace(a.Analysis) == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Combine joins analyses in order, each under a numbered header.
func Combine(analyses []types.AnalysisRecord) string {
	parts := make([]string, len(analyses))
	for i, a := range analyses {
		parts[i] = fmt.Sprintf("## [%d] %s\n\n%s", i+1, a.Title, strings.TrimSpace(a.Analysis))
	}
	return strings.Join(parts, separator)
}

// RenderPrompt builds the synthesis prompt for query and analyses.
func RenderPrompt(query string, analyses []types.AnalysisRecord) (string, error) {
	var buf bytes.Buffer
	err := reportPromptTmpl.Execute(&buf, struct {
		Query    string
		Combined string
	}{Query: query, Combined: Combine(analyses)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
