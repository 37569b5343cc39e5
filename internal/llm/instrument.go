// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/observability"
)

// Instrumented wraps a Model with request logging and metrics. A nil
// Metrics records nothing.
type Instrumented struct {
	Model   Model
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Ask forwards to the wrapped Model.
func (m *Instrumented) Ask(ctx context.Context, prompt string, tier Tier) (string, error) {
	start := time.Now()
	out, err := m.Model.Ask(ctx, prompt, tier)
	elapsed := time.Since(start)

	if m.Metrics != nil {
		m.Metrics.RecordLLMRequest(tier.String(), elapsed.Seconds(), err != nil)
	}
	ev := m.Logger.Debug()
	if err != nil {
		ev = m.Logger.Warn().Err(err)
	}
	ev.Str("tier", tier.String()).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(out)).
		Dur("duration", elapsed).
		Msg("model request")
	return out, err
}
