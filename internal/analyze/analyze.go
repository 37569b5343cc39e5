// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze produces a critical assessment of each extracted paper.
package analyze

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/batch"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/pkg/types"
)

var analysisPromptTmpl = template.Must(template.New("analysis").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`Perform a critical analysis of this research paper:

Title: {{.Title}}
Authors: {{join .Authors ", "}}

Extracted Information:
{{.Extraction}}

Provide:
1. Strengths of the research
2. Limitations and weaknesses
3. Significance and impact
4. How it relates to the broader field
5. Future research directions suggested

Be analytical and constructive.
`))

// RenderPrompt executes the analysis prompt template for one extraction.
func RenderPrompt(ex types.ExtractionRecord) (string, error) {
	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, ex); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Stage runs one fast-tier model call per extraction.
type Stage struct {
	Model  llm.Model
	Pool   *batch.Pool
	Logger zerolog.Logger
}

// Run returns one AnalysisRecord per extraction, in input order. An
// extraction that already failed is not sent to the model; its error is
// carried onto the analysis record.
func (s *Stage) Run(ctx context.Context, extractions []types.ExtractionRecord) ([]types.AnalysisRecord, error) {
	texts, errs, err := batch.Map(ctx, s.Pool, extractions, func(ctx context.Context, _ int, ex types.ExtractionRecord) (string, error) {
		if ex.Failed() {
			return "", nil
		}
		return s.analyzeOne(ctx, ex)
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing papers: %w", err)
	}

	records := make([]types.AnalysisRecord, len(extractions))
	for i, ex := range extractions {
		records[i] = types.AnalysisRecord{
			ID:         ex.ID,
			Title:      ex.Title,
			Authors:    ex.Authors,
			Extraction: ex.Extraction,
			Analysis:   texts[i],
			PDFURL:     ex.PDFURL,
			Published:  ex.Published,
			Error:      ex.Error,
		}
		if errs != nil && errs[i] != nil {
			records[i].Error = errs[i].Error()
		}
	}
	return records, nil
}

func (s *Stage) analyzeOne(ctx context.Context, ex types.ExtractionRecord) (string, error) {
	log := observability.WithPaper(s.Logger, ex.ID, ex.Title)

	prompt, err := RenderPrompt(ex)
	if err != nil {
		return "", fmt.Errorf("rendering prompt for %s: %w", ex.ID, err)
	}
	text, err := s.Model.Ask(ctx, prompt, llm.Fast)
	if err != nil {
		log.Warn().Err(err).Msg("analysis failed")
		return "", fmt.Errorf("paper %s: %w", ex.ID, err)
	}
	log.Debug().Int("chars", len(text)).Msg("analyzed")
	return text, nil
}
