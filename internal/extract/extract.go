// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns each searched paper into a structured summary of its
// research question, methodology, findings, and contributions.
package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/batch"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/pkg/types"
)

// Stage runs one fast-tier model call per paper.
type Stage struct {
	Model  llm.Model
	Pool   *batch.Pool
	Logger zerolog.Logger
}

// Run returns one ExtractionRecord per paper, in input order. Under the
// continue policy a failed paper yields a record with Error set; under
// fail-fast the first failure aborts the stage.
func (s *Stage) Run(ctx context.Context, papers []types.PaperRecord) ([]types.ExtractionRecord, error) {
	texts, errs, err := batch.Map(ctx, s.Pool, papers, func(ctx context.Context, _ int, p types.PaperRecord) (string, error) {
		return s.extractOne(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("extracting papers: %w", err)
	}

	records := make([]types.ExtractionRecord, len(papers))
	for i, p := range papers {
		records[i] = types.ExtractionRecord{
			ID:         p.ID,
			Title:      p.Title,
			Authors:    p.Authors,
			Extraction: texts[i],
			PDFURL:     p.PDFURL,
			Published:  p.Published,
		}
		if errs != nil && errs[i] != nil {
			records[i].Error = errs[i].Error()
		}
	}
	return records, nil
}

func (s *Stage) extractOne(ctx context.Context, p types.PaperRecord) (string, error) {
	log := observability.WithPaper(s.Logger, p.ID, p.Title)

	prompt, err := RenderPrompt(p)
	if err != nil {
		return "", fmt.Errorf("rendering prompt for %s: %w", p.ID, err)
	}
	text, err := s.Model.Ask(ctx, prompt, llm.Fast)
	if err != nil {
		log.Warn().Err(err).Msg("extraction failed")
		return "", fmt.Errorf("paper %s: %w", p.ID, err)
	}
	log.Debug().Int("chars", len(text)).Msg("extracted")
	return text, nil
}
