// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memory is the semantic memory of past analyses: an in-memory
// vector index with cosine k-nearest-neighbor search, persisted to a SQLite
// index file between sessions.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/observability"
)

// DefaultK is the neighbor count used when Search is called with k <= 0.
const DefaultK = 5

var (
	// ErrIndexCorrupt is returned when the index file cannot be read back
	// or cannot be written. Callers treat it as non-fatal.
	ErrIndexCorrupt = errors.New("memory index corrupt")

	// ErrLengthMismatch is returned by Insert when texts and ids differ in length.
	ErrLengthMismatch = errors.New("texts and ids differ in length")

	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Entry is one stored text with its vector.
type Entry struct {
	ID       string            `json:"id" yaml:"id"`
	Text     string            `json:"text" yaml:"text"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Vector   []float32         `json:"-" yaml:"-"`
}

// Result is a search hit with its cosine similarity to the query.
type Result struct {
	Entry Entry   `json:"entry" yaml:"entry"`
	Score float64 `json:"score" yaml:"score"`
}

// Store holds entries in insertion order. Individual calls are safe for
// concurrent use; a single process should own a given index file.
type Store struct {
	embedder llm.Embedder
	path     string
	logger   zerolog.Logger
	metrics  *observability.Metrics
	defaultK int

	mu      sync.RWMutex
	entries []Entry
	dim     int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics keeps the memory entries gauge current.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithDefaultK overrides DefaultK.
func WithDefaultK(k int) Option {
	return func(s *Store) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// New returns an empty store that embeds with embedder and persists to path.
// An empty path keeps the store purely in memory.
func New(embedder llm.Embedder, path string, opts ...Option) *Store {
	s := &Store{
		embedder: embedder,
		path:     path,
		logger:   zerolog.Nop(),
		defaultK: DefaultK,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the index file path.
func (s *Store) Path() string { return s.path }

// Insert embeds texts and appends them. When ids is nil every entry gets a
// generated UUID. metas, when given, is matched to texts by position.
// Duplicate IDs are kept as separate entries.
func (s *Store) Insert(ctx context.Context, texts, ids []string, metas ...map[string]string) error {
	if ids != nil && len(ids) != len(texts) {
		return fmt.Errorf("inserting %d texts with %d ids: %w", len(texts), len(ids), ErrLengthMismatch)
	}
	if len(metas) > 0 && len(metas) != len(texts) {
		return fmt.Errorf("inserting %d texts with %d metadata maps: %w", len(texts), len(metas), ErrLengthMismatch)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return fmt.Errorf("text %d has dimension %d, index has %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
	}

	for i, text := range texts {
		id := ""
		if ids != nil {
			id = ids[i]
		} else {
			id = uuid.NewString()
		}
		var meta map[string]string
		if len(metas) > 0 && metas[i] != nil {
			meta = make(map[string]string, len(metas[i]))
			for k, v := range metas[i] {
				meta[k] = v
			}
		}
		s.entries = append(s.entries, Entry{ID: id, Text: text, Metadata: meta, Vector: vectors[i]})
	}
	s.dim = dim
	s.observe()

	s.logger.Debug().Int("inserted", len(texts)).Int("total", len(s.entries)).Msg("memory insert")
	return nil
}

// Search returns the entries nearest to query, most similar first.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Entry, error) {
	results, err := s.SearchWithScore(ctx, query, k)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(results))
	for i, r := range results {
		entries[i] = r.Entry
	}
	return entries, nil
}

// SearchWithScore returns up to k results ordered by descending cosine
// similarity. Equal scores keep insertion order. An empty store returns an
// empty slice without calling the embedder.
func (s *Store) SearchWithScore(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = s.defaultK
	}
	if s.Len() == 0 {
		return []Result{}, nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vecs))
	}
	q := vecs[0]

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return []Result{}, nil
	}
	if len(q) != s.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w", len(q), s.dim, ErrDimensionMismatch)
	}

	results := make([]Result, len(s.entries))
	for i, e := range s.entries {
		results[i] = Result{Entry: e, Score: cosine(q, e.Vector)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Entry = results[i].Entry.clone()
	}
	return results, nil
}

// Clear drops all in-memory entries. The index file is untouched until the
// next Save.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.dim = 0
	s.observe()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimension returns the vector dimension, or 0 for an empty store.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Entries returns a copy of all entries in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// clone returns e with its own Metadata map and Vector slice.
func (e Entry) clone() Entry {
	if e.Metadata != nil {
		meta := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		e.Metadata = meta
	}
	if e.Vector != nil {
		e.Vector = append([]float32(nil), e.Vector...)
	}
	return e
}

// observe updates the entries gauge. Callers hold s.mu.
func (s *Store) observe() {
	if s.metrics != nil {
		s.metrics.MemoryEntries.Set(float64(len(s.entries)))
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
