// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/internal/report"
	"github.com/pdiddy/litreview/pkg/types"
)

// runPersist stores every usable analysis in semantic memory and saves the
// index. Insert failures abort the run; a failed save is recorded on the
// State and the run continues to the report.
func (o *Orchestrator) runPersist(ctx context.Context, s State) (State, error) {
	log := observability.WithStage(o.logger, StagePersist)
	if o.deps.Memory == nil {
		log.Warn().Msg("no memory store configured, skipping persist")
		return s, nil
	}

	usable := report.Usable(s.analyses)
	if len(usable) == 0 {
		fmt.Fprintln(o.progress, "persist: nothing to store")
		return s, nil
	}

	texts := make([]string, len(usable))
	ids := make([]string, len(usable))
	metas := make([]map[string]string, len(usable))
	for i, a := range usable {
		texts[i] = a.Analysis
		ids[i] = a.ID
		metas[i] = entryMetadata(s.Query(), a)
	}

	if err := o.deps.Memory.Insert(ctx, texts, ids, metas...); err != nil {
		return s, fmt.Errorf("inserting analyses: %w", err)
	}

	if err := o.deps.Memory.Save(ctx); err != nil {
		log.Warn().Err(err).Msg("saving memory index failed")
		fmt.Fprintf(o.progress, "persist: stored %d analyses (save failed: %v)\n", len(usable), err)
		return s.WithPersistErr(err), nil
	}
	fmt.Fprintf(o.progress, "persist: stored %d analyses\n", len(usable))
	return s, nil
}

func entryMetadata(query string, a types.AnalysisRecord) map[string]string {
	meta := map[string]string{
		"paper_id": a.ID,
		"title":    a.Title,
		"query":    query,
	}
	if len(a.Authors) > 0 {
		meta["authors"] = strings.Join(a.Authors, "; ")
	}
	if d := types.PublishedDate(a.Published); d != "" {
		meta["published"] = d
	}
	if a.PDFURL != "" {
		meta["pdf_url"] = a.PDFURL
	}
	return meta
}
