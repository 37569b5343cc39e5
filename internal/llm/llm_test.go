// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/pkg/types"
)

func TestMain(m *testing.M) {
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "fast", Fast.String())
	assert.Equal(t, "capable", Capable.String())
	assert.Equal(t, "tier(7)", Tier(7).String())
}

func TestProviderError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{0, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		err := &ProviderError{Provider: "claude", StatusCode: tt.status, Message: "x"}
		assert.Equal(t, tt.transient, err.IsTransient(), "status %d", tt.status)
		assert.ErrorIs(t, err, ErrProvider)
	}
}

func claudeServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() { claudeAPIURL = old })
}

func TestClaudeClient_AskMapsTier(t *testing.T) {
	var gotModels []string
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req claudeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModels = append(gotModels, req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
		if !assert.Len(t, req.Messages, 1) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "user", req.Messages[0].Role)

		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{
			{Type: "text", Text: "answer to " + req.Messages[0].Content},
		}})
	})

	c := &ClaudeClient{APIKey: "test-key", FastModel: "small", CapableModel: "large", Temperature: 0.7}

	out, err := c.Ask(context.Background(), "q1", Fast)
	require.NoError(t, err)
	assert.Equal(t, "answer to q1", out)

	_, err = c.Ask(context.Background(), "q2", Capable)
	require.NoError(t, err)

	assert.Equal(t, []string{"small", "large"}, gotModels)
}

func TestZeroTemperatureIsSent(t *testing.T) {
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.0, req["temperature"])
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	})
	geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			GenerationConfig map[string]any `json:"generationConfig"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.0, req.GenerationConfig["temperature"])
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	_, err := (&ClaudeClient{APIKey: "k", Temperature: 0}).Ask(context.Background(), "q", Fast)
	require.NoError(t, err)
	_, err = (&GeminiClient{APIKey: "k", Temperature: 0}).Ask(context.Background(), "q", Fast)
	require.NoError(t, err)
}

func TestClaudeClient_RetriesTransient(t *testing.T) {
	var calls int32
	claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{{Type: "text", Text: "ok"}}})
	})

	c := &ClaudeClient{APIKey: "k", MaxRetries: 3}
	out, err := c.Ask(context.Background(), "q", Fast)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClaudeClient_PermanentErrorNotRetried(t *testing.T) {
	var calls int32
	claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	})

	c := &ClaudeClient{APIKey: "k", MaxRetries: 3}
	_, err := c.Ask(context.Background(), "q", Fast)
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Contains(t, pe.Message, "bad key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClaudeClient_ExhaustsRetries(t *testing.T) {
	var calls int32
	claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c := &ClaudeClient{APIKey: "k", MaxRetries: 2}
	_, err := c.Ask(context.Background(), "q", Fast)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClaudeClient_EmptyContent(t *testing.T) {
	claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	})

	c := &ClaudeClient{APIKey: "k"}
	_, err := c.Ask(context.Background(), "q", Fast)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func geminiServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	old := geminiBaseURL
	geminiBaseURL = ts.URL
	t.Cleanup(func() { geminiBaseURL = old })
}

func TestGeminiClient_Ask(t *testing.T) {
	var gotPath string
	geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "gk", r.Header.Get("x-goog-api-key"))

		var req geminiGenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Contents, 1) && assert.Len(t, req.Contents[0].Parts, 1) {
			assert.Equal(t, "summarize", req.Contents[0].Parts[0].Text)
		}

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sum"},{"text":"mary"}]}}]}`))
	})

	g := &GeminiClient{APIKey: "gk"}
	out, err := g.Ask(context.Background(), "summarize", Capable)
	require.NoError(t, err)
	assert.Equal(t, "summary", out)
	assert.Equal(t, "/models/gemini-2.5-pro:generateContent", gotPath)
}

func TestGeminiClient_Embed(t *testing.T) {
	geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/embedding-001:batchEmbedContents", r.URL.Path)

		var req geminiBatchEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Requests, 2) {
			assert.Equal(t, "models/embedding-001", req.Requests[0].Model)
		}

		w.Write([]byte(`{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`))
	})

	g := &GeminiClient{APIKey: "gk"}
	vecs, err := g.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestGeminiClient_EmbedCountMismatch(t *testing.T) {
	geminiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"embeddings":[{"values":[1,0]}]}`))
	})

	g := &GeminiClient{APIKey: "gk"}
	_, err := g.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(64)
	vecs, err := h.Embed(context.Background(), []string{
		"graph neural networks for molecules",
		"graph neural networks for molecules",
		"protein folding with diffusion",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	for _, v := range vecs {
		assert.Len(t, v, 64)
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, norm, 1e-5)
	}
	assert.Equal(t, vecs[0], vecs[1])
	assert.NotEqual(t, vecs[0], vecs[2])
}

func TestHashEmbedder_DefaultDimension(t *testing.T) {
	assert.Equal(t, defaultHashDimension, NewHashEmbedder(0).Dimension())
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(types.AIConfig{Provider: types.ProviderClaude, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &ClaudeClient{}, m)

	m, err = NewModel(types.AIConfig{Provider: types.ProviderGemini, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, m)

	_, err = NewModel(types.AIConfig{Provider: types.ProviderClaude})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewModel(types.AIConfig{Provider: "openai", APIKey: "k"})
	assert.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(types.EmbeddingConfig{Provider: types.ProviderHash, Dimension: 32})
	require.NoError(t, err)
	require.IsType(t, &HashEmbedder{}, e)
	assert.Equal(t, 32, e.(*HashEmbedder).Dimension())

	_, err = NewEmbedder(types.EmbeddingConfig{Provider: types.ProviderGemini})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

type stubModel struct {
	out string
	err error
}

func (s stubModel) Ask(context.Context, string, Tier) (string, error) { return s.out, s.err }

func TestInstrumented_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics()

	ok := &Instrumented{Model: stubModel{out: "x"}, Logger: zerolog.Nop(), Metrics: metrics}
	_, err := ok.Ask(context.Background(), "p", Fast)
	require.NoError(t, err)

	bad := &Instrumented{Model: stubModel{err: errors.New("boom")}, Logger: zerolog.Nop(), Metrics: metrics}
	_, err = bad.Ask(context.Background(), "p", Capable)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("fast", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("capable", "error")))
}
