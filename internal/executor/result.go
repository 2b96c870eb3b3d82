package executor

// Per-step statuses. Script steps mirror the sandbox statuses
// (success / error / timeout); the rest are executor-assigned.
const (
	StepSuccess           = "success"
	StepError             = "error"
	StepTimeout           = "timeout"
	StepMisconfigured     = "error_misconfigured"
	StepSimulatedApproved = "simulated_approved"
	StepFailedUnknownType = "failed_unknown_type"
	StepSkipped           = "skipped_unimplemented"

	// Statuses of the pause-on-review path: a gate the run suspended
	// on, and the two outcomes a resume decision assigns to it.
	StepAwaitingReview = "awaiting_review"
	StepApproved       = "approved"
	StepRejected       = "rejected"
)

// Aggregate plan statuses.
const (
	OverallError          = "error"
	OverallFailed         = "failed"
	OverallSuccess        = "success"
	OverallPartialSuccess = "partial_success"
	OverallNoActionTaken  = "no_action_taken"
	OverallPaused         = "paused_awaiting_review"
)

// StepResult is the immutable outcome of one processed step, appended
// to the report in step order.
type StepResult struct {
	StepID       string `json:"step_id"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Output       any    `json:"output,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ScriptOutput is the Output payload of a python_script step.
type ScriptOutput struct {
	Stdout       string            `json:"stdout"`
	Stderr       string            `json:"stderr"`
	ReturnCode   int               `json:"return_code"`
	OutputFiles  map[string]string `json:"output_files"`
	SandboxError string            `json:"error_message_from_sandbox,omitempty"`
}

// Report is the aggregate result of one plan run. A paused report
// carries the step id the run suspended on and can be handed back to
// Resume together with the plan.
type Report struct {
	RunID               string       `json:"run_id"`
	OverallStatus       string       `json:"overall_status"`
	ProjectName         string       `json:"project_name,omitempty"`
	ErrorMessage        string       `json:"error_message,omitempty"`
	NumStepsProcessed   int          `json:"num_steps_processed"`
	StepResults         []StepResult `json:"step_results"`
	ExecutionLogPreview []string     `json:"execution_log_preview"`
	PendingStepID       string       `json:"pending_step_id,omitempty"`
}

// StepUpdate is the fire-and-forget progress notification sent to the
// task-tracking collaborator after each processed step. Status is the
// coarse task-level view (success / failed / skipped), not the full
// step-status vocabulary.
type StepUpdate struct {
	StepID        string `json:"step_id"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message,omitempty"`
	OutputPreview string `json:"output_preview,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Reporter receives per-step progress keyed by a parent task id. The
// executor never reads the collaborator's state back, and a failing
// reporter must not abort plan execution.
type Reporter interface {
	ReportStep(parentTaskID string, update StepUpdate)
}

// nonFailing statuses do not trigger the fail-fast stop.
func nonFailing(status string) bool {
	switch status {
	case StepSuccess, StepSimulatedApproved, StepApproved, StepSkipped:
		return true
	}
	return false
}

// classify derives the aggregate status from the processed step
// results. Fail-fast guarantees every result before a failure is
// non-failing, which makes this table exhaustive without a fallback.
func classify(results []StepResult) string {
	if len(results) == 0 {
		return OverallError
	}
	anySkipped := false
	anyRealWork := false
	for _, sr := range results {
		switch {
		case !nonFailing(sr.Status):
			return OverallFailed
		case sr.Status == StepSkipped:
			anySkipped = true
		default:
			anyRealWork = true
		}
	}
	if !anySkipped {
		return OverallSuccess
	}
	if anyRealWork {
		return OverallPartialSuccess
	}
	return OverallNoActionTaken
}
