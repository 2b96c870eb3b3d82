// Package executor runs project plans step by step: python scripts in
// the sandbox, simulated human-review gates, informational messages.
// Disqualifying step statuses halt the remaining plan.
package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/sandbox"
)

// DefaultStepTimeout applies to script steps that do not set their own.
// Plan steps are expected to be heavier than ad-hoc sandbox calls, so
// this is deliberately larger than the sandbox default.
const DefaultStepTimeout = 30 * time.Second

const logPreviewLines = 5

// Executor executes plans sequentially. Fields are explicit
// configuration; there are no package-level defaults to mutate.
type Executor struct {
	// Runner executes python_script steps. Nil uses a zero-value
	// sandbox.Runner.
	Runner *sandbox.Runner

	// Reporter, when set, receives a StepUpdate after every processed
	// step.
	Reporter Reporter

	// Logger receives progress logging. Nil disables it.
	Logger *zap.Logger
}

// RunOptions carries per-run context.
type RunOptions struct {
	// ProjectName labels the report; the plan's own name is used when
	// empty.
	ProjectName string

	// ParentTaskID tags progress updates for the task-tracking
	// collaborator. Empty disables reporting.
	ParentTaskID string

	// PauseOnReview suspends the run at a human_review_gate step
	// instead of simulating approval. The paused report is re-entered
	// through Resume once a decision arrives.
	PauseOnReview bool
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Executor) runner() *sandbox.Runner {
	if e.Runner == nil {
		return &sandbox.Runner{}
	}
	return e.Runner
}

// Execute processes the plan's steps strictly in order and returns the
// aggregate report. It never returns a Go error: every expected failure
// mode is captured in the report.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan, opts RunOptions) *Report {
	projectName := opts.ProjectName
	if projectName == "" && p != nil {
		projectName = p.Name
	}
	report := &Report{
		RunID:       uuid.New().String(),
		ProjectName: projectName,
		StepResults: []StepResult{},
	}

	if p == nil || len(p.Steps) == 0 {
		report.OverallStatus = OverallError
		report.ErrorMessage = "No project plan provided."
		report.ExecutionLogPreview = []string{report.ErrorMessage}
		return report
	}

	label := projectName
	if label == "" {
		label = "Unnamed Project"
	}
	log := []string{fmt.Sprintf("Starting execution of project plan for: %s", label)}
	return e.runFrom(ctx, p, opts, report, 0, log)
}

// Resume re-enters a paused run with the review decision. Approval
// marks the pending gate and continues with the remaining steps;
// rejection fails the gate and finalizes the report.
func (e *Executor) Resume(ctx context.Context, p *plan.Plan, report *Report, opts RunOptions, approved bool) *Report {
	if report == nil || report.OverallStatus != OverallPaused || len(report.StepResults) == 0 {
		return report
	}
	idx := len(report.StepResults) - 1
	sr := &report.StepResults[idx]
	report.PendingStepID = ""
	report.OverallStatus = ""

	log := []string{fmt.Sprintf("Resuming plan at review gate %s (approved=%t)", sr.StepID, approved)}
	if approved {
		sr.Status = StepApproved
		sr.Output = "Human review approved."
		sr.ErrorMessage = ""
		e.notify(opts.ParentTaskID, StepUpdate{
			StepID:        sr.StepID,
			Description:   sr.Description,
			Status:        "success",
			OutputPreview: "Human review approved.",
		})
		if p == nil {
			return e.finalize(report, log)
		}
		return e.runFrom(ctx, p, opts, report, idx+1, log)
	}

	sr.Status = StepRejected
	sr.ErrorMessage = "Human review rejected."
	e.notify(opts.ParentTaskID, StepUpdate{
		StepID:       sr.StepID,
		Description:  sr.Description,
		Status:       "failed",
		ErrorMessage: sr.ErrorMessage,
	})
	log = append(log, fmt.Sprintf("Review gate %s rejected. Stopping plan execution.", sr.StepID))
	return e.finalize(report, log)
}

func (e *Executor) runFrom(ctx context.Context, p *plan.Plan, opts RunOptions, report *Report, start int, log []string) *Report {
	for i := start; i < len(p.Steps); i++ {
		step := p.Steps[i]
		stepID := step.ID
		if stepID == "" {
			stepID = fmt.Sprintf("step_%d", i+1)
		}
		description := step.Description
		if description == "" {
			description = "No description"
		}
		stepType := step.Type
		if stepType == "" {
			stepType = plan.TypeUnknown
		}

		log = append(log, fmt.Sprintf("Processing Step ID: %s, Type: %s, Description: %s", stepID, stepType, description))
		e.logger().Info("processing plan step",
			zap.String("step_id", stepID),
			zap.String("type", stepType))

		sr := StepResult{StepID: stepID, Description: description, Type: stepType}
		var update StepUpdate

		switch stepType {
		case plan.TypePythonScript:
			sr, update, log = e.runScriptStep(ctx, step, sr, log)

		case plan.TypeHumanReviewGate:
			prompt := "Generic review prompt: Please review the current state."
			if step.Review != nil && step.Review.PromptToUser != "" {
				prompt = step.Review.PromptToUser
			}
			if opts.PauseOnReview {
				log = append(log, fmt.Sprintf("Pausing at human review gate %q. Prompt: %q", description, prompt))
				sr.Status = StepAwaitingReview
				sr.Output = prompt
				report.StepResults = append(report.StepResults, sr)
				report.NumStepsProcessed = len(report.StepResults)
				report.OverallStatus = OverallPaused
				report.PendingStepID = stepID
				report.ExecutionLogPreview = tail(log, logPreviewLines)
				e.notify(opts.ParentTaskID, StepUpdate{
					StepID:        stepID,
					Description:   description,
					Status:        "paused",
					OutputPreview: truncate(prompt, 100),
				})
				return report
			}
			log = append(log, fmt.Sprintf("Simulating human review gate %q. Prompt: %q", description, prompt))
			sr.Status = StepSimulatedApproved
			sr.Output = "Human review simulated as approved."
			update = StepUpdate{Status: "success", OutputPreview: "Human review gate simulated as approved."}

		case plan.TypeInformational:
			message := "No informational message provided."
			if step.Info != nil && step.Info.Message != "" {
				message = step.Info.Message
			}
			log = append(log, fmt.Sprintf("Informational step %q: %s", description, message))
			sr.Status = StepSuccess
			sr.Output = message
			update = StepUpdate{Status: "success", OutputPreview: truncate(message, 100)}

		case plan.TypeUnknown:
			log = append(log, fmt.Sprintf("Encountered step with unknown type for step %q. Marking as failed.", description))
			sr.Status = StepFailedUnknownType
			sr.Output = "Unknown step type: unknown."
			sr.ErrorMessage = "Unknown step type: unknown."
			update = StepUpdate{Status: "failed", ErrorMessage: sr.ErrorMessage}

		default:
			log = append(log, fmt.Sprintf("Step type %q not yet implemented. Skipping step: %q", stepType, description))
			sr.Status = StepSkipped
			sr.Output = fmt.Sprintf("Step type %q is not implemented.", stepType)
			update = StepUpdate{Status: "skipped", OutputPreview: fmt.Sprintf("Step type %q not implemented.", stepType)}
		}

		report.StepResults = append(report.StepResults, sr)

		update.StepID = stepID
		update.Description = description
		e.notify(opts.ParentTaskID, update)

		if !nonFailing(sr.Status) {
			log = append(log, fmt.Sprintf("Stopping plan execution due to failure in step %s (%q). Status: %s", stepID, description, sr.Status))
			break
		}
	}

	return e.finalize(report, log)
}

func (e *Executor) finalize(report *Report, log []string) *Report {
	report.NumStepsProcessed = len(report.StepResults)
	report.OverallStatus = classify(report.StepResults)
	log = append(log, fmt.Sprintf("Project plan execution finished with overall status: %s", report.OverallStatus))
	report.ExecutionLogPreview = tail(log, logPreviewLines)

	e.logger().Info("plan execution finished",
		zap.String("run_id", report.RunID),
		zap.String("overall_status", report.OverallStatus),
		zap.Int("steps_processed", report.NumStepsProcessed))
	return report
}

func (e *Executor) runScriptStep(ctx context.Context, step plan.Step, sr StepResult, log []string) (StepResult, StepUpdate, []string) {
	if step.Script == nil || step.Script.ScriptContent == "" {
		log = append(log, fmt.Sprintf("No script_content provided for python_script step %q", sr.Description))
		sr.Status = StepMisconfigured
		sr.Output = "Missing script_content in details."
		sr.ErrorMessage = "Misconfigured: Missing script_content."
		return sr, StepUpdate{Status: "failed", ErrorMessage: sr.ErrorMessage}, log
	}

	timeout := DefaultStepTimeout
	if step.Script.TimeoutSeconds > 0 {
		timeout = time.Duration(step.Script.TimeoutSeconds) * time.Second
	}
	log = append(log, fmt.Sprintf("Executing python_script %q (timeout %s)", sr.Description, timeout))

	res := e.runner().Run(ctx, sandbox.Request{
		ScriptContent:   step.Script.ScriptContent,
		InputFiles:      step.Script.InputFiles,
		OutputFilenames: step.Script.OutputFilesToCapture,
		Timeout:         timeout,
		Interpreter:     step.Script.InterpreterPath,
	})

	sr.Status = res.Status
	sr.Output = ScriptOutput{
		Stdout:       res.Stdout,
		Stderr:       res.Stderr,
		ReturnCode:   res.ReturnCode,
		OutputFiles:  res.OutputFiles,
		SandboxError: res.ErrorMessage,
	}
	log = append(log, fmt.Sprintf("Script execution result: status %s, rc %d", res.Status, res.ReturnCode))

	var update StepUpdate
	if res.Status == sandbox.StatusSuccess {
		preview := res.Stdout
		if preview == "" {
			preview = "Script executed successfully."
		}
		preview = truncate(preview, 100)
		if len(res.OutputFiles) > 0 {
			preview += fmt.Sprintf(" (Output files: %s)", strings.Join(sortedKeys(res.OutputFiles), ", "))
		}
		update = StepUpdate{Status: "success", OutputPreview: preview}
	} else {
		errMsg := res.ErrorMessage
		if errMsg == "" {
			errMsg = res.Stderr
		}
		if errMsg == "" {
			errMsg = "Unknown script error/timeout"
		}
		sr.ErrorMessage = errMsg
		update = StepUpdate{Status: "failed", ErrorMessage: errMsg, OutputPreview: truncate(errMsg, 100)}
	}
	return sr, update, log
}

// notify forwards a progress update to the reporter. Reporter failures
// are contained here so they can never abort plan execution.
func (e *Executor) notify(parentTaskID string, update StepUpdate) {
	if e.Reporter == nil || parentTaskID == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger().Warn("progress reporter panicked", zap.Any("panic", r))
		}
	}()
	e.Reporter.ReportStep(parentTaskID, update)
}

// truncate caps s at n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable output-file previews regardless of map order.
	sort.Strings(keys)
	return keys
}
