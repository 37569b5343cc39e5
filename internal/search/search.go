// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic APIs and returns unified, deduplicated
// paper records. Provider failures never reach the caller: they are logged
// and the affected backend contributes no papers.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/pkg/types"
)

// DefaultMaxResults caps a search when the caller passes no limit.
const DefaultMaxResults = 10

// Searcher finds papers for a free-text topic. It never fails: an empty
// slice means nothing was found or every provider was unavailable.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []types.PaperRecord
}

// Backend searches a single academic API. Unlike Searcher, a Backend
// reports its failures.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]types.PaperRecord, error)
}

// Service fans a query out to its backends, merges duplicates, ranks by
// relevance, and caps the result.
type Service struct {
	Backends   []Backend
	MaxResults int
	Logger     zerolog.Logger
	Metrics    *observability.Metrics
}

// NewService builds the backends enabled in cfg. Each backend gets its own
// rate limiter so one slow provider does not throttle another.
func NewService(cfg types.SearchConfig, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	client := &http.Client{Timeout: cfg.Timeout}
	var backends []Backend
	if cfg.EnableArxiv {
		backends = append(backends, &ArxivBackend{
			Client:    client,
			UserAgent: cfg.UserAgent,
			Limiter:   httputil.NewLimiter(cfg.RequestsPerSecond, 1),
		})
	}
	if cfg.EnableSemanticScholar {
		backends = append(backends, &SemanticScholarBackend{
			Client:    client,
			APIKey:    cfg.SemanticScholarAPIKey,
			UserAgent: cfg.UserAgent,
			Limiter:   httputil.NewLimiter(cfg.RequestsPerSecond, 1),
		})
	}
	return &Service{
		Backends:   backends,
		MaxResults: cfg.MaxResults,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// Search implements Searcher.
func (s *Service) Search(ctx context.Context, query string, maxResults int) []types.PaperRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		s.Logger.Warn().Msg("empty search query")
		return []types.PaperRecord{}
	}
	if maxResults <= 0 {
		maxResults = s.MaxResults
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if len(s.Backends) == 0 {
		s.Logger.Warn().Msg("no search backends configured")
		return []types.PaperRecord{}
	}

	type backendResult struct {
		papers []types.PaperRecord
		err    error
		name   string
	}

	results := make([]backendResult, len(s.Backends))
	var wg sync.WaitGroup
	for i, b := range s.Backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			papers, err := b.Search(ctx, query, maxResults)
			results[i] = backendResult{papers: papers, err: err, name: b.Name()}
		}()
	}
	wg.Wait()

	var all []types.PaperRecord
	for _, br := range results {
		if br.err != nil {
			s.Logger.Warn().Err(br.err).Str("backend", br.name).Msg("search backend failed")
			if s.Metrics != nil {
				s.Metrics.SearchBackendErrors.WithLabelValues(br.name).Inc()
			}
			continue
		}
		all = append(all, br.papers...)
	}

	deduped, removed := deduplicate(all)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].RelevanceScore > deduped[j].RelevanceScore
	})
	if len(deduped) > maxResults {
		deduped = deduped[:maxResults]
	}

	s.Logger.Info().
		Str("query", query).
		Int("papers", len(deduped)).
		Int("duplicates_removed", removed).
		Msg("search complete")
	if deduped == nil {
		deduped = []types.PaperRecord{}
	}
	return deduped
}

// deduplicate merges records that share an ID or normalized title.
func deduplicate(papers []types.PaperRecord) ([]types.PaperRecord, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.PaperRecord
	removed := 0

	for _, p := range papers {
		idKey := ""
		if p.ID != "" {
			idKey = "id:" + p.ID
		}
		titleKey := ""
		if t := normalizeTitle(p.Title); t != "" {
			titleKey = "title:" + t
		}

		if idx, ok := lookup(seen, idKey, titleKey); ok {
			mergeInto(&deduped[idx], p)
			removed++
			continue
		}

		idx := len(deduped)
		deduped = append(deduped, p)
		if idKey != "" {
			seen[idKey] = idx
		}
		if titleKey != "" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

func lookup(seen map[string]int, keys ...string) (int, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if idx, ok := seen[k]; ok {
			return idx, true
		}
	}
	return 0, false
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.PaperRecord, src types.PaperRecord) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Published == nil {
		dst.Published = src.Published
	}
	if len(dst.Categories) == 0 {
		dst.Categories = src.Categories
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	if src.RelevanceScore > dst.RelevanceScore {
		dst.RelevanceScore = src.RelevanceScore
	}
	if src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		if dst.Source == "" {
			dst.Source = src.Source
		} else {
			dst.Source = dst.Source + "," + src.Source
		}
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// positionScore gives the first of total results 1.0 and the last 0.1.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// FormatTable writes papers as a human-readable table to w.
func FormatTable(papers []types.PaperRecord, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-10s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Published", "Score", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, p := range papers {
		title := truncate(p.Title, 60)
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-10s  %-6.2f  %s\n",
			i+1, title, formatAuthors(p.Authors), types.PublishedDate(p.Published), p.RelevanceScore, p.ID)
	}

	fmt.Fprintf(w, "\n%d results\n", len(papers))
}

// FormatJSON writes papers as indented JSON to w.
func FormatJSON(papers []types.PaperRecord, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(papers)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
