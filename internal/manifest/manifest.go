// Package manifest reads and writes the _ai_project_manifest.json file
// that tracks an AI-managed project's planned and generated files.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Filename is the manifest's fixed name inside a project directory.
const Filename = "_ai_project_manifest.json"

const manifestVersion = "1.1.0"

// Development task statuses.
const (
	TaskPlanned   = "planned"
	TaskGenerated = "generated"
	TaskFailed    = "failed"
)

// DevelopmentTask is one planned unit of work, typically the creation
// of a single source file.
type DevelopmentTask struct {
	TaskID       string      `json:"task_id"`
	TaskType     string      `json:"task_type"` // currently always CREATE_FILE
	Description  string      `json:"description"`
	Details      TaskDetails `json:"details"`
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	LastAttempt  *time.Time  `json:"last_attempt_timestamp,omitempty"`
}

// TaskDetails carries the file-creation fields of a development task.
type TaskDetails struct {
	Filename            string   `json:"filename"`
	OriginalDescription string   `json:"original_description"`
	KeyComponents       []string `json:"key_components"`
	FileDependencies    []string `json:"file_dependencies"`
}

// Manifest is the persisted project state.
type Manifest struct {
	ProjectName          string            `json:"project_name"`
	SanitizedProjectName string            `json:"sanitized_project_name"`
	ProjectDirectory     string            `json:"project_directory"`
	ProjectDescription   string            `json:"project_description"`
	CreationTimestamp    time.Time         `json:"creation_timestamp"`
	LastModified         time.Time         `json:"last_modified_timestamp"`
	ManifestVersion      string            `json:"manifest_version"`
	Version              string            `json:"version"`
	ProjectType          string            `json:"project_type"`
	DevelopmentTasks     []DevelopmentTask `json:"development_tasks"`
	EntryPoints          map[string]string `json:"entry_points"`
	Dependencies         []string          `json:"dependencies"`
	ProjectGoals         []string          `json:"project_goals"`
}

// New creates a manifest for a freshly scaffolded project.
func New(projectName, sanitizedName, dir, description string) *Manifest {
	now := time.Now().UTC()
	return &Manifest{
		ProjectName:          projectName,
		SanitizedProjectName: sanitizedName,
		ProjectDirectory:     dir,
		ProjectDescription:   description,
		CreationTimestamp:    now,
		LastModified:         now,
		ManifestVersion:      manifestVersion,
		Version:              "0.1.0",
		ProjectType:          "python",
		DevelopmentTasks:     []DevelopmentTask{},
		EntryPoints:          map[string]string{},
		Dependencies:         []string{},
		ProjectGoals:         []string{},
	}
}

// Load reads the manifest from a project directory.
func Load(projectDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, Filename))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest into its project directory, refreshing the
// last-modified timestamp.
func (m *Manifest) Save() error {
	m.LastModified = time.Now().UTC()
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(m.ProjectDirectory, Filename), data, 0o644)
}

// Task returns a pointer to the task with the given id, or nil.
func (m *Manifest) Task(taskID string) *DevelopmentTask {
	for i := range m.DevelopmentTasks {
		if m.DevelopmentTasks[i].TaskID == taskID {
			return &m.DevelopmentTasks[i]
		}
	}
	return nil
}

// TaskForFile returns a pointer to the first task targeting filename,
// or nil.
func (m *Manifest) TaskForFile(filename string) *DevelopmentTask {
	for i := range m.DevelopmentTasks {
		if m.DevelopmentTasks[i].Details.Filename == filename {
			return &m.DevelopmentTasks[i]
		}
	}
	return nil
}

// PlannedTasks returns the tasks still awaiting code generation.
func (m *Manifest) PlannedTasks() []*DevelopmentTask {
	var out []*DevelopmentTask
	for i := range m.DevelopmentTasks {
		if m.DevelopmentTasks[i].Status == TaskPlanned {
			out = append(out, &m.DevelopmentTasks[i])
		}
	}
	return out
}

// MarkTask records a generation attempt's outcome on a task.
func (t *DevelopmentTask) MarkTask(status, errorMessage string) {
	now := time.Now().UTC()
	t.Status = status
	t.ErrorMessage = errorMessage
	t.LastAttempt = &now
}
