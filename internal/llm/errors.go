// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProvider is wrapped by every ProviderError.
	ErrProvider = errors.New("model provider error")

	// ErrEmptyResponse is returned when a provider answers without any text.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrMissingAPIKey is returned by the factories when a remote provider has no key.
	ErrMissingAPIKey = errors.New("missing API key")
)

// ProviderError is a failure reported by a model or embedding API.
type ProviderError struct {
	// Provider is the vendor name ("claude", "gemini").
	Provider string
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	// Message is the body or transport error text.
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match ErrProvider.
func (e *ProviderError) Unwrap() error {
	return ErrProvider
}

// IsTransient reports whether a retry may succeed: network failures,
// rate limiting and server errors.
func (e *ProviderError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// isTransient reports whether err carries a transient ProviderError.
func isTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsTransient()
	}
	return false
}
