// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/internal/report"
)

const (
	reportFile     = "report.md"
	stateFile      = "state.yaml"
	referencesFile = "references.bib"
)

// runSnapshot is the on-disk form of a Result.
type runSnapshot struct {
	Result       `yaml:",inline"`
	WrittenAt    time.Time `yaml:"written_at"`
	PersistError string    `yaml:"persist_error,omitempty"`
}

// WriteArtifacts writes report.md, state.yaml and, when any paper was
// analyzed, references.bib under dir/<run ID>/. It returns the run directory.
func WriteArtifacts(dir string, res Result) (string, error) {
	if res.RunID == "" {
		return "", fmt.Errorf("result has no run ID")
	}
	runDir := filepath.Join(dir, res.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(runDir, reportFile), []byte(res.FinalReport), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	snap := runSnapshot{Result: res, WrittenAt: time.Now().UTC()}
	if res.PersistErr != nil {
		snap.PersistError = res.PersistErr.Error()
	}
	if err := writeYAML(filepath.Join(runDir, stateFile), snap); err != nil {
		return "", err
	}

	if usable := report.Usable(res.Analyses); len(usable) > 0 {
		if err := os.WriteFile(filepath.Join(runDir, referencesFile), []byte(report.BibTeX(usable)), 0o644); err != nil {
			return "", fmt.Errorf("writing references: %w", err)
		}
	}
	return runDir, nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
