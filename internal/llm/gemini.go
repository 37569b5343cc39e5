// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// geminiBaseURL is the Generative Language API root. Package-level var for test substitution.
var geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const defaultGeminiEmbeddingModel = "models/embedding-001"

// GeminiClient calls the Gemini generateContent and batchEmbedContents
// endpoints. It implements both Model and Embedder.
type GeminiClient struct {
	APIKey         string
	FastModel      string
	CapableModel   string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float64
	MaxRetries     int
	Client         *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Ask calls generateContent on the model configured for tier.
func (g *GeminiClient) Ask(ctx context.Context, prompt string, tier Tier) (string, error) {
	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.Temperature,
			MaxOutputTokens: orDefault(g.MaxTokens, defaultMaxTokens),
		},
	}
	endpoint := fmt.Sprintf("%s/%s:generateContent", geminiBaseURL, modelPath(g.model(tier)))

	return callWithRetry(ctx, orDefault(g.MaxRetries, defaultMaxRetries), func() (string, error) {
		var gResp geminiGenerateResponse
		if err := g.post(ctx, endpoint, reqBody, &gResp); err != nil {
			return "", err
		}
		var parts []string
		for _, c := range gResp.Candidates {
			for _, p := range c.Content.Parts {
				if p.Text != "" {
					parts = append(parts, p.Text)
				}
			}
			if len(parts) > 0 {
				break
			}
		}
		if len(parts) == 0 {
			return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
		}
		return strings.Join(parts, ""), nil
	})
}

// Embed calls batchEmbedContents with one request per text.
func (g *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := modelPath(orDefaultString(g.EmbeddingModel, defaultGeminiEmbeddingModel))
	reqBody := geminiBatchEmbedRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, t := range texts {
		reqBody.Requests[i] = geminiEmbedRequest{
			Model:   model,
			Content: geminiContent{Parts: []geminiPart{{Text: t}}},
		}
	}
	endpoint := fmt.Sprintf("%s/%s:batchEmbedContents", geminiBaseURL, model)

	return callWithRetry(ctx, orDefault(g.MaxRetries, defaultMaxRetries), func() ([][]float32, error) {
		var eResp geminiBatchEmbedResponse
		if err := g.post(ctx, endpoint, reqBody, &eResp); err != nil {
			return nil, err
		}
		if len(eResp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("gemini: got %d embeddings for %d texts", len(eResp.Embeddings), len(texts))
		}
		out := make([][]float32, len(texts))
		for i, e := range eResp.Embeddings {
			out[i] = e.Values
		}
		return out, nil
	})
}

func (g *GeminiClient) post(ctx context.Context, endpoint string, body, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ProviderError{Provider: "gemini", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ProviderError{Provider: "gemini", StatusCode: resp.StatusCode, Message: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding Gemini response: %w", err)
	}
	return nil
}

func (g *GeminiClient) model(tier Tier) string {
	if tier == Capable {
		return orDefaultString(g.CapableModel, "gemini-2.5-pro")
	}
	return orDefaultString(g.FastModel, "gemini-2.5-flash")
}

// modelPath prefixes bare model names with "models/".
func modelPath(name string) string {
	if strings.HasPrefix(name, "models/") {
		return name
	}
	return "models/" + name
}
