// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,fieldsOfStudy,openAccessPdf"

// SemanticScholarBackend queries the Semantic Scholar API.
type SemanticScholarBackend struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	Limiter   *httputil.Limiter
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search queries the Semantic Scholar API.
func (b *SemanticScholarBackend) Search(ctx context.Context, query string, maxResults int) ([]types.PaperRecord, error) {
	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}
	reqURL := semanticAPIBase + "?" + params.Encode()

	if err := b.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	total := len(sr.Data)
	var papers []types.PaperRecord
	for i, paper := range sr.Data {
		p := types.PaperRecord{
			Title:          paper.Title,
			Abstract:       paper.Abstract,
			Categories:     paper.FieldsOfStudy,
			Source:         "semantic_scholar",
			RelevanceScore: positionScore(i, total),
		}
		for _, a := range paper.Authors {
			p.Authors = append(p.Authors, a.Name)
		}

		if paper.PublicationDate != "" {
			if t, parseErr := time.Parse("2006-01-02", paper.PublicationDate); parseErr == nil {
				p.Published = &t
			}
		} else if paper.Year > 0 {
			t := time.Date(paper.Year, 1, 1, 0, 0, 0, 0, time.UTC)
			p.Published = &t
		}

		// Prefer the arXiv ID so results merge with the arXiv backend, then DOI.
		switch {
		case paper.ExternalIDs.ArXiv != "":
			p.ID = paper.ExternalIDs.ArXiv
			p.PDFURL = "https://arxiv.org/pdf/" + paper.ExternalIDs.ArXiv
		case paper.ExternalIDs.DOI != "":
			p.ID = paper.ExternalIDs.DOI
		default:
			p.ID = paper.PaperID
		}
		if paper.OpenAccessPDF != nil && paper.OpenAccessPDF.URL != "" {
			p.PDFURL = paper.OpenAccessPDF.URL
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	FieldsOfStudy   []string            `json:"fieldsOfStudy"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF   *semanticPDF        `json:"openAccessPdf"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}

type semanticPDF struct {
	URL string `json:"url"`
}
