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

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// ClaudeClient calls the Anthropic Messages API. FastModel and CapableModel
// name the models behind each tier.
type ClaudeClient struct {
	APIKey       string
	FastModel    string
	CapableModel string
	MaxTokens    int
	Temperature  float64
	MaxRetries   int
	Client       *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Ask sends prompt as a single user message and returns the concatenated
// text blocks of the reply.
func (c *ClaudeClient) Ask(ctx context.Context, prompt string, tier Tier) (string, error) {
	reqBody := claudeRequest{
		Model:       c.model(tier),
		MaxTokens:   orDefault(c.MaxTokens, defaultMaxTokens),
		Temperature: c.Temperature,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	return callWithRetry(ctx, orDefault(c.MaxRetries, defaultMaxRetries), func() (string, error) {
		return c.send(ctx, bodyBytes)
	})
}

func (c *ClaudeClient) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ProviderError{Provider: "claude", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &ProviderError{Provider: "claude", StatusCode: resp.StatusCode, Message: string(b)}
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var parts []string
	for _, block := range cResp.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("claude: %w", ErrEmptyResponse)
	}
	return strings.Join(parts, ""), nil
}

func (c *ClaudeClient) model(tier Tier) string {
	if tier == Capable {
		return orDefaultString(c.CapableModel, "claude-sonnet-4-5")
	}
	return orDefaultString(c.FastModel, "claude-haiku-4-5")
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
