package main

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/planwright/planwright/internal/artifact"
	"github.com/planwright/planwright/internal/executor"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/sandbox"
)

func pythonOrSkip(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"python3", "python"} {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	t.Skip("no python interpreter available")
	return ""
}

func writePlanFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadPlanFile(t *testing.T, path string) *plan.Plan {
	t.Helper()
	p, err := plan.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMixedPlanE2E(t *testing.T) {
	interp := pythonOrSkip(t)
	dir := t.TempDir()
	path := writePlanFile(t, dir, "plan.yaml", `
name: mixed
steps:
  - step_id: compute
    type: python_script
    description: Compute a value
    details:
      script_content: print(6 * 7)
  - step_id: announce
    type: informational
    details:
      message: computation finished
  - step_id: review
    type: human_review_gate
    details:
      prompt_to_user: check the number
`)
	p := loadPlanFile(t, path)
	if err := plan.Validate(p); err != nil {
		t.Fatal(err)
	}
	ex := &executor.Executor{Runner: &sandbox.Runner{Interpreter: interp}}
	report := ex.Execute(context.Background(), p, executor.RunOptions{ProjectName: "mixed"})

	if report.OverallStatus != executor.OverallSuccess {
		t.Fatalf("expected overall success, got %s (%s)", report.OverallStatus, report.ErrorMessage)
	}
	if len(report.StepResults) != 3 {
		t.Fatalf("expected 3 step results, got %d", len(report.StepResults))
	}
	out, ok := report.StepResults[0].Output.(executor.ScriptOutput)
	if !ok {
		t.Fatalf("expected script output, got %T", report.StepResults[0].Output)
	}
	if out.Stdout != "42" {
		t.Fatalf("expected stdout 42, got %q", out.Stdout)
	}
	if report.StepResults[2].Status != executor.StepSimulatedApproved {
		t.Fatalf("expected simulated approval, got %s", report.StepResults[2].Status)
	}
}

func TestFailFastE2E(t *testing.T) {
	interp := pythonOrSkip(t)
	dir := t.TempDir()
	path := writePlanFile(t, dir, "plan.yaml", `
name: failfast
steps:
  - step_id: ok
    type: python_script
    details:
      script_content: print("ok")
  - step_id: boom
    type: python_script
    details:
      script_content: |
        import sys
        sys.exit(3)
  - step_id: never
    type: informational
    details:
      message: unreachable
`)
	p := loadPlanFile(t, path)
	ex := &executor.Executor{Runner: &sandbox.Runner{Interpreter: interp}}
	report := ex.Execute(context.Background(), p, executor.RunOptions{})

	if report.OverallStatus != executor.OverallFailed {
		t.Fatalf("expected overall failure, got %s", report.OverallStatus)
	}
	if report.NumStepsProcessed != 2 {
		t.Fatalf("expected 2 processed steps, got %d", report.NumStepsProcessed)
	}
	if report.StepResults[1].Status != executor.StepError {
		t.Fatalf("expected error status, got %s", report.StepResults[1].Status)
	}
}

func TestOutputFilePersistenceE2E(t *testing.T) {
	interp := pythonOrSkip(t)
	dir := t.TempDir()
	path := writePlanFile(t, dir, "plan.json", `{
  "name": "artifacts",
  "steps": [
    {
      "step_id": "produce",
      "type": "python_script",
      "details": {
        "script_content": "with open('result.txt', 'w') as f:\n    f.write('hello artifact')",
        "output_files_to_capture": ["result.txt"]
      }
    }
  ]
}`)
	p := loadPlanFile(t, path)
	ex := &executor.Executor{Runner: &sandbox.Runner{Interpreter: interp}}
	report := ex.Execute(context.Background(), p, executor.RunOptions{})

	if report.OverallStatus != executor.OverallSuccess {
		t.Fatalf("expected success, got %s", report.OverallStatus)
	}
	out := report.StepResults[0].Output.(executor.ScriptOutput)
	if out.OutputFiles["result.txt"] != "hello artifact" {
		t.Fatalf("expected captured output file, got %v", out.OutputFiles)
	}

	store, err := artifact.New(report.RunID, dir)
	if err != nil {
		t.Fatal(err)
	}
	for name, content := range out.OutputFiles {
		if err := store.WriteOutputFile("produce", name, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.WriteReport(report); err != nil {
		t.Fatal(err)
	}

	runDir := filepath.Join(dir, ".planwright", "runs", report.RunID)
	data, err := os.ReadFile(filepath.Join(runDir, "report.json"))
	if err != nil {
		t.Fatalf("report.json should exist: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("report.json should be valid JSON: %v", err)
	}
	if parsed["run_id"] != report.RunID {
		t.Fatal("run_id mismatch in report.json")
	}
}

func TestTimeoutE2E(t *testing.T) {
	interp := pythonOrSkip(t)
	dir := t.TempDir()
	path := writePlanFile(t, dir, "plan.yaml", `
name: slow
steps:
  - step_id: sleepy
    type: python_script
    details:
      script_content: |
        import time
        time.sleep(30)
      timeout_seconds: 1
`)
	p := loadPlanFile(t, path)
	ex := &executor.Executor{Runner: &sandbox.Runner{Interpreter: interp}}
	report := ex.Execute(context.Background(), p, executor.RunOptions{})

	if report.OverallStatus != executor.OverallFailed {
		t.Fatalf("expected failure, got %s", report.OverallStatus)
	}
	if report.StepResults[0].Status != executor.StepTimeout {
		t.Fatalf("expected timeout status, got %s", report.StepResults[0].Status)
	}
	if !strings.Contains(report.StepResults[0].ErrorMessage, "timed out") {
		t.Fatalf("expected timeout message, got %q", report.StepResults[0].ErrorMessage)
	}
}
