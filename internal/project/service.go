// Package project scaffolds AI-managed software projects: directory
// layout, LLM-planned manifests, and per-file code generation for the
// tasks the plan recorded.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	pwerrors "github.com/planwright/planwright/internal/errors"
	"github.com/planwright/planwright/internal/llm"
	"github.com/planwright/planwright/internal/manifest"
)

// Service manages projects under a base directory. All configuration is
// explicit; there are no package-level defaults.
type Service struct {
	// BaseDir is the root under which project directories are created.
	BaseDir string

	// Client generates plans and file contents.
	Client llm.Client

	// Logger receives progress logging. Nil disables it.
	Logger *zap.Logger
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Dir returns the directory a project name maps to.
func (s *Service) Dir(projectName string) string {
	return filepath.Join(s.BaseDir, SanitizeProjectName(projectName))
}

// Initiate scaffolds a new project: directory structure, README, and a
// manifest whose development tasks come from an LLM-generated plan.
func (s *Service) Initiate(ctx context.Context, projectName, description string) (*manifest.Manifest, error) {
	if strings.TrimSpace(projectName) == "" {
		return nil, pwerrors.NewValidationError("project name must be a non-empty string", "")
	}
	if strings.TrimSpace(description) == "" {
		return nil, pwerrors.NewValidationError("project description must be a non-empty string", "")
	}

	sanitized := SanitizeProjectName(projectName)
	dir := filepath.Join(s.BaseDir, sanitized)
	if _, err := os.Stat(filepath.Join(dir, manifest.Filename)); err == nil {
		return nil, &pwerrors.RunError{
			Type:    pwerrors.ProjectExists,
			Message: fmt.Sprintf("project %q already has a manifest at %s", projectName, dir),
			Hint:    "Pick a different name or generate code for the existing project.",
		}
	}

	for _, sub := range []string{"src", "tests"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating project directory structure: %w", err)
		}
	}
	readme := fmt.Sprintf("# %s\n\n%s\n", projectName, description)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(readme), 0o644); err != nil {
		s.logger().Warn("failed to write README", zap.String("project", sanitized), zap.Error(err))
	}

	planned, err := llm.GeneratePlan(ctx, s.Client, description)
	if err != nil {
		return nil, err
	}
	s.logger().Info("project plan generated",
		zap.String("project", sanitized),
		zap.Int("files", len(planned)))

	m := manifest.New(projectName, sanitized, dir, description)
	for i, f := range planned {
		m.DevelopmentTasks = append(m.DevelopmentTasks, manifest.DevelopmentTask{
			TaskID:      fmt.Sprintf("TASK%03d", i+1),
			TaskType:    "CREATE_FILE",
			Description: fmt.Sprintf("Define structure and generate code for %s", f.Filename),
			Details: manifest.TaskDetails{
				Filename:            f.Filename,
				OriginalDescription: f.Description,
				KeyComponents:       f.KeyComponents,
				FileDependencies:    f.Dependencies,
			},
			Status: manifest.TaskPlanned,
		})
	}
	if err := m.Save(); err != nil {
		return nil, &pwerrors.RunError{
			Type:    pwerrors.ManifestError,
			Message: fmt.Sprintf("project scaffolded but manifest could not be written: %v", err),
		}
	}
	return m, nil
}

// GenerateFile generates code for one planned file and records the
// outcome in the manifest.
func (s *Service) GenerateFile(ctx context.Context, projectName, filename string) error {
	m, err := manifest.Load(s.Dir(projectName))
	if err != nil {
		return &pwerrors.RunError{
			Type:    pwerrors.ProjectNotFound,
			Message: fmt.Sprintf("no manifest for project %q: %v", projectName, err),
		}
	}
	task := m.TaskForFile(filename)
	if task == nil {
		return pwerrors.NewValidationError(
			fmt.Sprintf("no development task targets %q", filename), "")
	}
	err = s.generateTask(ctx, m, task)
	if saveErr := m.Save(); saveErr != nil {
		s.logger().Warn("failed to save manifest", zap.Error(saveErr))
	}
	return err
}

// CodingPlanReport summarizes an execute-coding-plan run.
type CodingPlanReport struct {
	ProjectName string   `json:"project_name"`
	Successful  []string `json:"successful"`
	Failed      []string `json:"failed"`
	Skipped     []string `json:"skipped"`
}

// ExecuteCodingPlan generates code for every task still in the planned
// state. Individual generation failures are recorded and do not stop
// the remaining tasks; only loading the manifest is fatal.
func (s *Service) ExecuteCodingPlan(ctx context.Context, projectName string) (*CodingPlanReport, error) {
	m, err := manifest.Load(s.Dir(projectName))
	if err != nil {
		return nil, &pwerrors.RunError{
			Type:    pwerrors.ProjectNotFound,
			Message: fmt.Sprintf("no manifest for project %q: %v", projectName, err),
		}
	}

	report := &CodingPlanReport{ProjectName: m.ProjectName}
	for i := range m.DevelopmentTasks {
		task := &m.DevelopmentTasks[i]
		if task.Status != manifest.TaskPlanned {
			report.Skipped = append(report.Skipped, task.Details.Filename)
			continue
		}
		if err := s.generateTask(ctx, m, task); err != nil {
			report.Failed = append(report.Failed,
				fmt.Sprintf("%s (Task ID: %s): %v", task.Details.Filename, task.TaskID, err))
			continue
		}
		report.Successful = append(report.Successful, task.Details.Filename)
	}

	if err := m.Save(); err != nil {
		s.logger().Warn("failed to save manifest after coding plan", zap.Error(err))
	}
	return report, nil
}

func (s *Service) generateTask(ctx context.Context, m *manifest.Manifest, task *manifest.DevelopmentTask) error {
	code, err := llm.GenerateFileCode(ctx, s.Client, llm.CodeRequest{
		ProjectDescription: m.ProjectDescription,
		Filename:           task.Details.Filename,
		FileDescription:    task.Details.OriginalDescription,
		KeyComponents:      task.Details.KeyComponents,
		Dependencies:       task.Details.FileDependencies,
	})
	if err != nil {
		task.MarkTask(manifest.TaskFailed, err.Error())
		return err
	}

	path, err := projectFilePath(m.ProjectDirectory, task.Details.Filename)
	if err != nil {
		task.MarkTask(manifest.TaskFailed, err.Error())
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		task.MarkTask(manifest.TaskFailed, err.Error())
		return fmt.Errorf("creating parent directory for %s: %w", task.Details.Filename, err)
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		task.MarkTask(manifest.TaskFailed, err.Error())
		return fmt.Errorf("writing %s: %w", task.Details.Filename, err)
	}

	task.MarkTask(manifest.TaskGenerated, "")
	s.logger().Info("file generated",
		zap.String("project", m.SanitizedProjectName),
		zap.String("file", task.Details.Filename))
	return nil
}

// projectFilePath joins a planned filename onto the project directory,
// rejecting names that would escape it.
func projectFilePath(projectDir, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", pwerrors.NewValidationError(fmt.Sprintf("invalid planned filename %q", name), "")
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", pwerrors.NewValidationError(fmt.Sprintf("planned filename %q escapes the project directory", name), "")
	}
	return filepath.Join(projectDir, cleaned), nil
}
