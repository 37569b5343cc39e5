// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litreview pipeline:
// the per-paper records each stage produces and the configuration structs
// each stage consumes.
package types

import "time"

// PaperRecord is an immutable snapshot of a paper as returned by a search
// backend. Stages never mutate a PaperRecord after the search stage
// produces it.
type PaperRecord struct {
	// ID is unique per paper (arXiv ID, DOI, or provider paper ID).
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Published is the publication or preprint date. Nil when unknown.
	Published *time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Categories are the subject tags assigned by the source (e.g. "cs.LG").
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// PDFURL links to the full text.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// Source identifies which backend found this paper (e.g. "arxiv").
	Source string `json:"source" yaml:"source"`

	// RelevanceScore is a value between 0.0 and 1.0 indicating relevance to the query.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}

// ExtractionRecord is the structured summary produced from exactly one
// PaperRecord. ID, Title, Authors, PDFURL, and Published are copied from
// the source paper.
type ExtractionRecord struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Authors    []string   `json:"authors" yaml:"authors"`
	Extraction string     `json:"extraction" yaml:"extraction"`
	PDFURL     string     `json:"pdf_url" yaml:"pdf_url"`
	Published  *time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Error records a per-item failure kept under the continue-on-error
	// policy. Empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the extraction carries a recorded failure.
func (r ExtractionRecord) Failed() bool { return r.Error != "" }

// AnalysisRecord is the critical assessment produced from exactly one
// ExtractionRecord. The extraction text is carried through unchanged.
type AnalysisRecord struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Authors    []string   `json:"authors" yaml:"authors"`
	Extraction string     `json:"extraction" yaml:"extraction"`
	Analysis   string     `json:"analysis" yaml:"analysis"`
	PDFURL     string     `json:"pdf_url" yaml:"pdf_url"`
	Published  *time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Error records a per-item failure kept under the continue-on-error
	// policy, including failures inherited from the extraction.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the analysis carries a recorded failure.
func (r AnalysisRecord) Failed() bool { return r.Error != "" }

// PublishedDate formats a nullable publication date as YYYY-MM-DD, or ""
// when unknown.
func PublishedDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
