// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/litreview/pkg/types"
)

func semanticServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	old := semanticAPIBase
	semanticAPIBase = ts.URL
	t.Cleanup(func() { semanticAPIBase = old })
}

func respondJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

// --- Request construction (URL params, headers) ---

func TestSemanticSearchRequestParams(t *testing.T) {
	var capturedReq *http.Request
	semanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		respondJSON(`{"total":0,"offset":0,"data":[]}`)(w, r)
	})

	b := &SemanticScholarBackend{Client: http.DefaultClient, UserAgent: "litreview-test"}
	if _, err := b.Search(context.Background(), "  graph   attention ", 15); err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := capturedReq.URL.Query()
	if got := q.Get("query"); got != "graph attention" {
		t.Errorf("query param = %q, want %q", got, "graph attention")
	}
	if got := q.Get("limit"); got != "15" {
		t.Errorf("limit param = %q, want %q", got, "15")
	}
	fields := q.Get("fields")
	for _, f := range []string{"title", "abstract", "authors", "externalIds", "publicationDate", "openAccessPdf"} {
		if !strings.Contains(fields, f) {
			t.Errorf("fields param %q missing %q", fields, f)
		}
	}
	if got := capturedReq.Header.Get("User-Agent"); got != "litreview-test" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestSemanticSearchAPIKeyHeader(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
	}{
		{"with API key", "test-key-123"},
		{"without API key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			semanticServer(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("x-api-key")
				respondJSON(`{"data":[]}`)(w, r)
			})

			b := &SemanticScholarBackend{Client: http.DefaultClient, APIKey: tt.apiKey}
			if _, err := b.Search(context.Background(), "test", 5); err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got != tt.apiKey {
				t.Errorf("x-api-key header = %q, want %q", got, tt.apiKey)
			}
		})
	}
}

// --- Identifier preference ---

func TestSemanticSearchIdentifierPreference(t *testing.T) {
	tests := []struct {
		name    string
		paper   string // JSON for a single paper
		wantID  string
		wantPDF string
	}{
		{
			"arXiv preferred over DOI",
			`{"paperId":"abc","title":"P","authors":[],"externalIds":{"ArXiv":"1706.03762","DOI":"10.555/test"}}`,
			"1706.03762",
			"https://arxiv.org/pdf/1706.03762",
		},
		{
			"DOI when no arXiv",
			`{"paperId":"def","title":"P","authors":[],"externalIds":{"DOI":"10.555/test"},"openAccessPdf":{"url":"https://oa.example/p.pdf"}}`,
			"10.555/test",
			"https://oa.example/p.pdf",
		},
		{
			"PaperID when no arXiv or DOI",
			`{"paperId":"ghi789","title":"P","authors":[],"externalIds":{}}`,
			"ghi789",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			semanticServer(t, respondJSON(fmt.Sprintf(`{"total":1,"offset":0,"data":[%s]}`, tt.paper)))

			b := &SemanticScholarBackend{Client: http.DefaultClient}
			papers, err := b.Search(context.Background(), "test", 5)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(papers) != 1 {
				t.Fatalf("len(papers) = %d, want 1", len(papers))
			}
			if papers[0].ID != tt.wantID {
				t.Errorf("ID = %q, want %q", papers[0].ID, tt.wantID)
			}
			if papers[0].PDFURL != tt.wantPDF {
				t.Errorf("PDFURL = %q, want %q", papers[0].PDFURL, tt.wantPDF)
			}
		})
	}
}

// --- Error cases ---

func TestSemanticSearchHTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    string
	}{
		{"400 bad request", http.StatusBadRequest, "HTTP 400"},
		{"429 rate limit", http.StatusTooManyRequests, "HTTP 429"},
		{"500 server error", http.StatusInternalServerError, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			semanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			b := &SemanticScholarBackend{Client: http.DefaultClient}
			_, err := b.Search(context.Background(), "test", 5)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSemanticSearchMalformedJSON(t *testing.T) {
	semanticServer(t, respondJSON(`{invalid json`))

	b := &SemanticScholarBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), "test", 5)
	if err == nil || !strings.Contains(err.Error(), "parsing Semantic Scholar response") {
		t.Errorf("error = %v", err)
	}
}

func TestSemanticSearchEmptyQuery(t *testing.T) {
	b := &SemanticScholarBackend{Client: http.DefaultClient}
	if _, err := b.Search(context.Background(), "   ", 5); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestSemanticSearchZeroResults(t *testing.T) {
	semanticServer(t, respondJSON(`{"total":0,"offset":0,"data":[]}`))

	b := &SemanticScholarBackend{Client: http.DefaultClient}
	papers, err := b.Search(context.Background(), "nothing", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("len(papers) = %d, want 0", len(papers))
	}
}

// --- Field mapping ---

func TestSemanticSearchFieldMapping(t *testing.T) {
	semanticServer(t, respondJSON(`{"data":[
		{"paperId":"a","title":"First","abstract":"abs","authors":[{"authorId":"1","name":"Ada"},{"authorId":"2","name":"Alan"}],
		 "publicationDate":"2021-05-04","fieldsOfStudy":["Computer Science"],"externalIds":{}},
		{"paperId":"b","title":"Second","authors":[],"year":2019,"externalIds":{}},
		{"paperId":"c","title":"Third","authors":[],"externalIds":{}}
	]}`))

	b := &SemanticScholarBackend{Client: http.DefaultClient}
	papers, err := b.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 3 {
		t.Fatalf("len(papers) = %d, want 3", len(papers))
	}

	if strings.Join(papers[0].Authors, ",") != "Ada,Alan" {
		t.Errorf("Authors = %v", papers[0].Authors)
	}
	if types.PublishedDate(papers[0].Published) != "2021-05-04" {
		t.Errorf("Published = %v", papers[0].Published)
	}
	if len(papers[0].Categories) != 1 || papers[0].Categories[0] != "Computer Science" {
		t.Errorf("Categories = %v", papers[0].Categories)
	}
	if types.PublishedDate(papers[1].Published) != "2019-01-01" {
		t.Errorf("year-only Published = %v", papers[1].Published)
	}
	if papers[2].Published != nil {
		t.Errorf("missing date should be nil, got %v", papers[2].Published)
	}

	for _, p := range papers {
		if p.Source != "semantic_scholar" {
			t.Errorf("Source = %q", p.Source)
		}
	}
	if papers[0].RelevanceScore != 1.0 || !approx(papers[1].RelevanceScore, 0.55) || !approx(papers[2].RelevanceScore, 0.1) {
		t.Errorf("scores = %f, %f, %f", papers[0].RelevanceScore, papers[1].RelevanceScore, papers[2].RelevanceScore)
	}
}

func TestSemanticScholarBackendName(t *testing.T) {
	b := &SemanticScholarBackend{}
	if b.Name() != "semantic_scholar" {
		t.Errorf("Name() = %q", b.Name())
	}
}
