package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	pwerrors "github.com/planwright/planwright/internal/errors"
	"github.com/planwright/planwright/internal/executor"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/sandbox"
	"github.com/planwright/planwright/internal/tasks"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// writeError maps RunError types onto HTTP statuses; anything else is a
// 500 with a generic internal error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var re *pwerrors.RunError
	if !errors.As(err, &re) {
		re = &pwerrors.RunError{Type: pwerrors.Internal, Message: err.Error()}
	}
	status := http.StatusInternalServerError
	switch re.Type {
	case pwerrors.ValidationError, pwerrors.SchemaError, pwerrors.Misconfigured:
		status = http.StatusBadRequest
	case pwerrors.ProjectExists:
		status = http.StatusConflict
	case pwerrors.ProjectNotFound:
		status = http.StatusNotFound
	case pwerrors.LLMError:
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, re)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type executeScriptRequest struct {
	ScriptContent  string            `json:"script_content"`
	InputFiles     map[string]string `json:"input_files,omitempty"`
	OutputFiles    []string          `json:"output_files_to_capture,omitempty"`
	TimeoutSeconds float64           `json:"timeout_seconds,omitempty"`
	Interpreter    string            `json:"interpreter_path,omitempty"`
}

func (s *Server) handleExecuteScript(w http.ResponseWriter, r *http.Request) {
	var req executeScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, pwerrors.NewValidationError("invalid request body: "+err.Error(), ""))
		return
	}
	sreq := sandbox.Request{
		ScriptContent:   req.ScriptContent,
		InputFiles:      req.InputFiles,
		OutputFilenames: req.OutputFiles,
		Interpreter:     req.Interpreter,
	}
	if req.TimeoutSeconds > 0 {
		sreq.Timeout = time.Duration(req.TimeoutSeconds * float64(time.Second))
	}
	res := s.runner.Run(r.Context(), sreq)
	s.writeJSON(w, http.StatusOK, res)
}

type executePlanRequest struct {
	ProjectName   string          `json:"project_name,omitempty"`
	Plan          json.RawMessage `json:"plan"`
	PauseOnReview bool            `json:"pause_on_review,omitempty"`
}

func (s *Server) handleExecutePlan(w http.ResponseWriter, r *http.Request) {
	var req executePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, pwerrors.NewValidationError("invalid request body: "+err.Error(), ""))
		return
	}
	if len(req.Plan) == 0 {
		s.writeError(w, pwerrors.NewValidationError("missing plan", ""))
		return
	}
	if err := plan.ValidateDocument(req.Plan); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := plan.Load(req.Plan)
	if err != nil {
		s.writeError(w, err)
		return
	}

	task := s.tasks.Add(tasks.TypePlanExecution,
		fmt.Sprintf("Executing project plan with %d steps", len(p.Steps)), req.ProjectName)

	opts := executor.RunOptions{
		ProjectName:   req.ProjectName,
		ParentTaskID:  task.ID,
		PauseOnReview: req.PauseOnReview,
	}
	report := s.executor.Execute(r.Context(), p, opts)
	s.settleRun(p, report, opts, task.ID)
	s.writeJSON(w, http.StatusOK, report)
}

// settleRun records a paused run for later resumption, or closes out
// the parent task for a finished one.
func (s *Server) settleRun(p *plan.Plan, report *executor.Report, opts executor.RunOptions, taskID string) {
	if report.OverallStatus == executor.OverallPaused {
		s.mu.Lock()
		s.paused[report.RunID] = &pausedRun{plan: p, report: report, opts: opts, taskID: taskID}
		s.mu.Unlock()
		return
	}
	switch report.OverallStatus {
	case executor.OverallError, executor.OverallFailed:
		s.tasks.UpdateStatus(taskID, tasks.StatusFailed, report.ErrorMessage, "")
	default:
		s.tasks.UpdateStatus(taskID, tasks.StatusCompleted, "", "")
	}
}

type resumePlanRequest struct {
	Approved bool `json:"approved"`
}

func (s *Server) handleResumePlan(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	var req resumePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, pwerrors.NewValidationError("invalid request body: "+err.Error(), ""))
		return
	}

	s.mu.Lock()
	run, ok := s.paused[runID]
	if ok {
		delete(s.paused, runID)
	}
	s.mu.Unlock()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, &pwerrors.RunError{
			Type:    pwerrors.ValidationError,
			Message: fmt.Sprintf("no paused run with id %q", runID),
		})
		return
	}

	report := s.executor.Resume(r.Context(), run.plan, run.report, run.opts, req.Approved)
	s.settleRun(run.plan, report, run.opts, run.taskID)
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleValidatePlan(w http.ResponseWriter, r *http.Request) {
	var req executePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, pwerrors.NewValidationError("invalid request body: "+err.Error(), ""))
		return
	}
	if err := plan.ValidateDocument(req.Plan); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := plan.Load(req.Plan)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := plan.Validate(p); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"valid": true, "num_steps": len(p.Steps)})
}

type initiateProjectRequest struct {
	ProjectName string `json:"project_name"`
	Description string `json:"description"`
}

func (s *Server) handleInitiateProject(w http.ResponseWriter, r *http.Request) {
	var req initiateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, pwerrors.NewValidationError("invalid request body: "+err.Error(), ""))
		return
	}
	task := s.tasks.Add(tasks.TypeProjectScaffolding,
		fmt.Sprintf("Initiating project %q", req.ProjectName), req.ProjectName)
	s.tasks.UpdateStatus(task.ID, tasks.StatusPlanning, "", "")

	m, err := s.projects.Initiate(r.Context(), req.ProjectName, req.Description)
	if err != nil {
		s.tasks.UpdateStatus(task.ID, tasks.StatusFailed, err.Error(), "")
		s.writeError(w, err)
		return
	}
	s.tasks.UpdateStatus(task.ID, tasks.StatusCompleted, "", "")
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"task_id":  task.ID,
		"manifest": m,
	})
}

type generateFileRequest struct {
	Filename string `json:"filename"`
}

func (s *Server) handleGenerateFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req generateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, pwerrors.NewValidationError("invalid request body: "+err.Error(), ""))
		return
	}
	task := s.tasks.Add(tasks.TypeFileGeneration,
		fmt.Sprintf("Generating %s for project %q", req.Filename, name), name)
	s.tasks.UpdateStatus(task.ID, tasks.StatusGeneratingCode, "", "")

	if err := s.projects.GenerateFile(r.Context(), name, req.Filename); err != nil {
		s.tasks.UpdateStatus(task.ID, tasks.StatusFailed, err.Error(), "")
		s.writeError(w, err)
		return
	}
	s.tasks.UpdateStatus(task.ID, tasks.StatusCompleted, "", "")
	s.writeJSON(w, http.StatusOK, map[string]string{
		"task_id":  task.ID,
		"filename": req.Filename,
		"status":   "generated",
	})
}

func (s *Server) handleExecuteCodingPlan(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	task := s.tasks.Add(tasks.TypeFileGeneration,
		fmt.Sprintf("Executing coding plan for project %q", name), name)
	s.tasks.UpdateStatus(task.ID, tasks.StatusGeneratingCode, "", "")

	report, err := s.projects.ExecuteCodingPlan(r.Context(), name)
	if err != nil {
		s.tasks.UpdateStatus(task.ID, tasks.StatusFailed, err.Error(), "")
		s.writeError(w, err)
		return
	}
	if len(report.Failed) > 0 {
		s.tasks.UpdateStatus(task.ID, tasks.StatusFailed,
			fmt.Sprintf("%d file(s) failed to generate", len(report.Failed)), "")
	} else {
		s.tasks.UpdateStatus(task.ID, tasks.StatusCompleted, "", "")
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tasks.List())
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, ok := s.tasks.Get(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, &pwerrors.RunError{
			Type:    pwerrors.ValidationError,
			Message: fmt.Sprintf("no task with id %q", id),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	s.writeJSON(w, http.StatusOK, s.tasks.Notifications().List(unreadOnly))
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.tasks.Notifications().MarkRead(id) {
		s.writeJSON(w, http.StatusNotFound, &pwerrors.RunError{
			Type:    pwerrors.ValidationError,
			Message: fmt.Sprintf("no notification with id %q", id),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
