// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memory

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is the exported form of an Entry. Vectors are omitted.
type ExportEntry struct {
	ID       string            `json:"id" yaml:"id"`
	Text     string            `json:"text" yaml:"text"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ExportYAML writes all entries to w as a YAML sequence.
func (s *Store) ExportYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.exportEntries()); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes all entries to w as an indented JSON array.
func (s *Store) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.exportEntries()); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportEntries() []ExportEntry {
	entries := s.Entries()
	out := make([]ExportEntry, len(entries))
	for i, e := range entries {
		out[i] = ExportEntry{ID: e.ID, Text: e.Text, Metadata: e.Metadata}
	}
	return out
}
