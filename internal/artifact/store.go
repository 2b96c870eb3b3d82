// Package artifact persists plan-run reports and per-step output under
// a run-scoped directory. The executor itself never persists anything;
// callers opt in after a run completes.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store manages artifact storage for one plan run.
type Store struct {
	RunID   string
	BaseDir string // defaults to .planwright/runs/<run_id>
}

// New creates a store for a given run ID, rooted at workDir.
func New(runID, workDir string) (*Store, error) {
	base := filepath.Join(workDir, ".planwright", "runs", runID)
	if err := os.MkdirAll(filepath.Join(base, "steps"), 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &Store{RunID: runID, BaseDir: base}, nil
}

// WriteStepOutput writes captured stdout/stderr for a step.
func (s *Store) WriteStepOutput(stepID, stdout, stderr string) error {
	if stdout != "" {
		if err := os.WriteFile(filepath.Join(s.BaseDir, "steps", stepID+".stdout"), []byte(stdout), 0o644); err != nil {
			return err
		}
	}
	if stderr != "" {
		if err := os.WriteFile(filepath.Join(s.BaseDir, "steps", stepID+".stderr"), []byte(stderr), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// WriteOutputFile writes one captured sandbox output file for a step.
func (s *Store) WriteOutputFile(stepID, name, content string) error {
	dir := filepath.Join(s.BaseDir, "steps", stepID+".files")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

// WriteReport writes the final report JSON.
func (s *Store) WriteReport(report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.BaseDir, "report.json"), data, 0o644)
}
