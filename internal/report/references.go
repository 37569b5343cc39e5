// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/litreview/pkg/types"
)

// References renders a numbered Markdown reference list. Numbers match the
// bracketed headers used in the synthesis prompt.
func References(analyses []types.AnalysisRecord) string {
	var b strings.Builder
	b.WriteString("## References\n\n")
	for i, a := range analyses {
		fmt.Fprintf(&b, "%d. ", i+1)
		if len(a.Authors) > 0 {
			fmt.Fprintf(&b, "%s. ", formatAuthors(a.Authors))
		}
		if d := types.PublishedDate(a.Published); d != "" {
			fmt.Fprintf(&b, "(%s). ", d[:4])
		}
		fmt.Fprintf(&b, "*%s*.", a.Title)
		if a.PDFURL != "" {
			fmt.Fprintf(&b, " %s", a.PDFURL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatAuthors(authors []string) string {
	if len(authors) > 3 {
		return authors[0] + " et al"
	}
	return strings.Join(authors, ", ")
}

// BibTeX produces one @article entry per analysis, keyed AuthorYear with a
// letter suffix on collisions.
func BibTeX(analyses []types.AnalysisRecord) string {
	var b strings.Builder
	keys := CitationKeys(analyses)
	for i, a := range analyses {
		fmt.Fprintf(&b, "@article{%s,\n", keys[i])
		fmt.Fprintf(&b, "  title = {%s},\n", a.Title)
		if len(a.Authors) > 0 {
			fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(a.Authors, " and "))
		}
		if d := types.PublishedDate(a.Published); d != "" {
			fmt.Fprintf(&b, "  year = {%s},\n", d[:4])
		}
		if a.PDFURL != "" {
			fmt.Fprintf(&b, "  url = {%s},\n", a.PDFURL)
		}
		fmt.Fprintf(&b, "  note = {%s},\n", a.ID)
		fmt.Fprintf(&b, "}\n\n")
	}
	return b.String()
}

// CitationKeys returns an AuthorYear key per analysis, unique within the slice.
func CitationKeys(analyses []types.AnalysisRecord) []string {
	keys := make([]string, len(analyses))
	seen := make(map[string]int)
	for i, a := range analyses {
		base := citationBase(a)
		n := seen[base]
		seen[base] = n + 1
		if n == 0 {
			keys[i] = base
			continue
		}
		keys[i] = fmt.Sprintf("%s%c", base, 'a'+rune(n-1)%26)
	}
	return keys
}

func citationBase(a types.AnalysisRecord) string {
	name := "Anon"
	if len(a.Authors) > 0 {
		fields := strings.Fields(a.Authors[0])
		if len(fields) > 0 {
			name = fields[len(fields)-1]
		}
	}
	year := "0000"
	if d := types.PublishedDate(a.Published); d != "" {
		year = d[:4]
	}
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		b.WriteString("Anon")
	}
	return b.String() + year
}
