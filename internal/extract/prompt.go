// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/litreview/pkg/types"
)

// extractionPromptTmpl asks the fast tier for a structured summary of one paper.
var extractionPromptTmpl = template.Must(template.New("extraction").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`Extract the key information from this research paper:

Title: {{.Title}}
Authors: {{join .Authors ", "}}
{{- if .Categories}}
Categories: {{join .Categories ", "}}
{{- end}}
Summary: {{.Abstract}}

Provide:
1. Main research question
2. Methodology
3. Key findings
4. Contributions

Be concise and structured.
`))

// RenderPrompt executes the extraction prompt template for paper.
func RenderPrompt(paper types.PaperRecord) (string, error) {
	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, paper); err != nil {
		return "", err
	}
	return buf.String(), nil
}
