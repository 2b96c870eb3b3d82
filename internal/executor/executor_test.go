package executor

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	t.Skip("no python interpreter on PATH")
	return ""
}

func scriptStep(id, script string) plan.Step {
	return plan.Step{
		ID:     id,
		Type:   plan.TypePythonScript,
		Script: &plan.ScriptDetails{ScriptContent: script, TimeoutSeconds: 10},
	}
}

type recordingReporter struct {
	parentIDs []string
	updates   []StepUpdate
}

func (r *recordingReporter) ReportStep(parentTaskID string, update StepUpdate) {
	r.parentIDs = append(r.parentIDs, parentTaskID)
	r.updates = append(r.updates, update)
}

type panickyReporter struct{}

func (panickyReporter) ReportStep(string, StepUpdate) { panic("reporter down") }

func TestExecuteEmptyPlan(t *testing.T) {
	e := &Executor{}
	report := e.Execute(context.Background(), &plan.Plan{}, RunOptions{})
	assert.Equal(t, OverallError, report.OverallStatus)
	assert.Equal(t, "No project plan provided.", report.ErrorMessage)
	assert.Empty(t, report.StepResults)
	assert.Zero(t, report.NumStepsProcessed)
}

func TestExecuteNilPlan(t *testing.T) {
	e := &Executor{}
	report := e.Execute(context.Background(), nil, RunOptions{})
	assert.Equal(t, OverallError, report.OverallStatus)
}

func TestExecuteSingleScriptSuccess(t *testing.T) {
	py := pythonOrSkip(t)
	e := &Executor{Runner: &sandbox.Runner{Interpreter: py}}
	p := &plan.Plan{Steps: []plan.Step{
		scriptStep("s1", "print('ok')\nimport sys; sys.exit(0)"),
	}}
	report := e.Execute(context.Background(), p, RunOptions{ProjectName: "demo"})
	require.Equal(t, OverallSuccess, report.OverallStatus)
	require.Len(t, report.StepResults, 1)
	sr := report.StepResults[0]
	assert.Equal(t, StepSuccess, sr.Status)
	out, ok := sr.Output.(ScriptOutput)
	require.True(t, ok, "script step output should be a ScriptOutput")
	assert.Contains(t, out.Stdout, "ok")
	assert.Equal(t, 0, out.ReturnCode)
}

func TestExecuteFailFastOnScriptError(t *testing.T) {
	py := pythonOrSkip(t)
	e := &Executor{Runner: &sandbox.Runner{Interpreter: py}}
	p := &plan.Plan{Steps: []plan.Step{
		scriptStep("s1", "import sys; sys.exit(1)"),
		{ID: "s2", Type: plan.TypeInformational, Info: &plan.InfoDetails{Message: "never runs"}},
	}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, OverallFailed, report.OverallStatus)
	assert.Equal(t, 1, report.NumStepsProcessed)
	require.Len(t, report.StepResults, 1)
	assert.Equal(t, StepError, report.StepResults[0].Status)
	assert.NotEmpty(t, report.StepResults[0].ErrorMessage)
}

func TestExecuteScriptTimeout(t *testing.T) {
	py := pythonOrSkip(t)
	e := &Executor{Runner: &sandbox.Runner{Interpreter: py}}
	p := &plan.Plan{Steps: []plan.Step{{
		ID:   "slow",
		Type: plan.TypePythonScript,
		Script: &plan.ScriptDetails{
			ScriptContent:  "import time; time.sleep(10)",
			TimeoutSeconds: 1,
		},
	}}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, OverallFailed, report.OverallStatus)
	require.Len(t, report.StepResults, 1)
	assert.Equal(t, StepTimeout, report.StepResults[0].Status)
	out := report.StepResults[0].Output.(ScriptOutput)
	assert.Equal(t, -1, out.ReturnCode)
}

func TestExecuteHumanReviewGateSimulated(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{{
		ID:     "gate",
		Type:   plan.TypeHumanReviewGate,
		Review: &plan.ReviewDetails{PromptToUser: "OK?"},
	}}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, OverallSuccess, report.OverallStatus)
	require.Len(t, report.StepResults, 1)
	assert.Equal(t, StepSimulatedApproved, report.StepResults[0].Status)
}

func TestExecuteInformationalStep(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{{
		ID:   "note",
		Type: plan.TypeInformational,
		Info: &plan.InfoDetails{Message: "directories planned"},
	}}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, OverallSuccess, report.OverallStatus)
	assert.Equal(t, "directories planned", report.StepResults[0].Output)
}

func TestExecuteUnknownTypeFailsFast(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "bad", Type: plan.TypeUnknown},
		{ID: "after", Type: plan.TypeInformational},
	}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, OverallFailed, report.OverallStatus)
	assert.Equal(t, 1, report.NumStepsProcessed)
	assert.Equal(t, StepFailedUnknownType, report.StepResults[0].Status)
}

func TestExecuteFutureTypeSkippedAlone(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{{ID: "f", Type: "future_type"}}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, OverallNoActionTaken, report.OverallStatus)
	assert.Equal(t, StepSkipped, report.StepResults[0].Status)
}

func TestExecuteFutureTypeWithRealWorkIsPartial(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "f", Type: "future_type"},
		{ID: "note", Type: plan.TypeInformational, Info: &plan.InfoDetails{Message: "hi"}},
	}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, OverallPartialSuccess, report.OverallStatus)
	assert.Equal(t, 2, report.NumStepsProcessed)
}

func TestExecuteMisconfiguredScriptStep(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Type: plan.TypePythonScript},
		{ID: "s2", Type: plan.TypeInformational},
	}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, OverallFailed, report.OverallStatus)
	assert.Equal(t, 1, report.NumStepsProcessed)
	assert.Equal(t, StepMisconfigured, report.StepResults[0].Status)
	assert.Equal(t, "Misconfigured: Missing script_content.", report.StepResults[0].ErrorMessage)
}

func TestExecuteDefaultsStepIDsPositionally(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{
		{Type: plan.TypeInformational},
		{Type: plan.TypeInformational},
	}}
	report := e.Execute(context.Background(), p, RunOptions{})
	assert.Equal(t, "step_1", report.StepResults[0].StepID)
	assert.Equal(t, "step_2", report.StepResults[1].StepID)
}

func TestExecuteReportsProgressPerStep(t *testing.T) {
	rep := &recordingReporter{}
	e := &Executor{Reporter: rep}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "a", Type: plan.TypeInformational, Info: &plan.InfoDetails{Message: "one"}},
		{ID: "b", Type: "future_type"},
	}}
	e.Execute(context.Background(), p, RunOptions{ParentTaskID: "task_123"})
	require.Len(t, rep.updates, 2)
	assert.Equal(t, []string{"task_123", "task_123"}, rep.parentIDs)
	assert.Equal(t, "a", rep.updates[0].StepID)
	assert.Equal(t, "success", rep.updates[0].Status)
	assert.Equal(t, "skipped", rep.updates[1].Status)
}

func TestExecuteNoReportingWithoutParentTask(t *testing.T) {
	rep := &recordingReporter{}
	e := &Executor{Reporter: rep}
	p := &plan.Plan{Steps: []plan.Step{{ID: "a", Type: plan.TypeInformational}}}
	e.Execute(context.Background(), p, RunOptions{})
	assert.Empty(t, rep.updates)
}

func TestExecuteSurvivesPanickingReporter(t *testing.T) {
	e := &Executor{Reporter: panickyReporter{}}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "a", Type: plan.TypeInformational},
		{ID: "b", Type: plan.TypeInformational},
	}}
	report := e.Execute(context.Background(), p, RunOptions{ParentTaskID: "task_x"})
	assert.Equal(t, OverallSuccess, report.OverallStatus)
	assert.Equal(t, 2, report.NumStepsProcessed)
}

func TestClassifyTable(t *testing.T) {
	mk := func(statuses ...string) []StepResult {
		out := make([]StepResult, len(statuses))
		for i, s := range statuses {
			out[i] = StepResult{Status: s}
		}
		return out
	}
	cases := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"no steps", nil, OverallError},
		{"all success", []string{StepSuccess, StepSuccess}, OverallSuccess},
		{"approvals count as success", []string{StepSuccess, StepSimulatedApproved}, OverallSuccess},
		{"any error fails", []string{StepSuccess, StepError}, OverallFailed},
		{"timeout fails", []string{StepTimeout}, OverallFailed},
		{"misconfigured fails", []string{StepMisconfigured}, OverallFailed},
		{"unknown type fails", []string{StepFailedUnknownType}, OverallFailed},
		{"skip plus work is partial", []string{StepSkipped, StepSuccess}, OverallPartialSuccess},
		{"approval plus skip is partial", []string{StepSimulatedApproved, StepSkipped}, OverallPartialSuccess},
		{"only skips is no action", []string{StepSkipped, StepSkipped}, OverallNoActionTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(mk(tc.statuses...)))
		})
	}
}

func TestExecutionLogPreviewIsBounded(t *testing.T) {
	e := &Executor{}
	steps := make([]plan.Step, 10)
	for i := range steps {
		steps[i] = plan.Step{Type: plan.TypeInformational}
	}
	report := e.Execute(context.Background(), &plan.Plan{Steps: steps}, RunOptions{})
	assert.LessOrEqual(t, len(report.ExecutionLogPreview), logPreviewLines)
	assert.Contains(t, report.ExecutionLogPreview[len(report.ExecutionLogPreview)-1], "overall status")
}

func TestExecutePauseOnReviewSuspends(t *testing.T) {
	rep := &recordingReporter{}
	e := &Executor{Reporter: rep}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "note", Type: plan.TypeInformational, Info: &plan.InfoDetails{Message: "before gate"}},
		{ID: "gate", Type: plan.TypeHumanReviewGate, Review: &plan.ReviewDetails{PromptToUser: "Ship it?"}},
		{ID: "after", Type: plan.TypeInformational, Info: &plan.InfoDetails{Message: "after gate"}},
	}}
	report := e.Execute(context.Background(), p, RunOptions{ParentTaskID: "task_1", PauseOnReview: true})

	assert.Equal(t, OverallPaused, report.OverallStatus)
	assert.Equal(t, "gate", report.PendingStepID)
	require.Len(t, report.StepResults, 2)
	assert.Equal(t, StepAwaitingReview, report.StepResults[1].Status)
	assert.Equal(t, "Ship it?", report.StepResults[1].Output)

	require.Len(t, rep.updates, 2)
	assert.Equal(t, "paused", rep.updates[1].Status)
}

func TestResumeApprovedContinues(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "gate", Type: plan.TypeHumanReviewGate},
		{ID: "after", Type: plan.TypeInformational, Info: &plan.InfoDetails{Message: "done"}},
	}}
	opts := RunOptions{PauseOnReview: true}
	report := e.Execute(context.Background(), p, opts)
	require.Equal(t, OverallPaused, report.OverallStatus)

	report = e.Resume(context.Background(), p, report, opts, true)
	assert.Equal(t, OverallSuccess, report.OverallStatus)
	assert.Empty(t, report.PendingStepID)
	require.Len(t, report.StepResults, 2)
	assert.Equal(t, StepApproved, report.StepResults[0].Status)
	assert.Equal(t, StepSuccess, report.StepResults[1].Status)
}

func TestResumeRejectedFails(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "gate", Type: plan.TypeHumanReviewGate},
		{ID: "after", Type: plan.TypeInformational, Info: &plan.InfoDetails{Message: "never"}},
	}}
	opts := RunOptions{PauseOnReview: true}
	report := e.Execute(context.Background(), p, opts)
	require.Equal(t, OverallPaused, report.OverallStatus)

	report = e.Resume(context.Background(), p, report, opts, false)
	assert.Equal(t, OverallFailed, report.OverallStatus)
	require.Len(t, report.StepResults, 1)
	assert.Equal(t, StepRejected, report.StepResults[0].Status)
	assert.Equal(t, 1, report.NumStepsProcessed)
}

func TestResumeIgnoresNonPausedReport(t *testing.T) {
	e := &Executor{}
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "note", Type: plan.TypeInformational, Info: &plan.InfoDetails{Message: "hi"}},
	}}
	report := e.Execute(context.Background(), p, RunOptions{})
	require.Equal(t, OverallSuccess, report.OverallStatus)

	same := e.Resume(context.Background(), p, report, RunOptions{}, true)
	assert.Equal(t, report, same)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 60)
	got := truncate(long, 101)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("é", 50)+"...", got)

	assert.Equal(t, "short", truncate("short", 100))
}
