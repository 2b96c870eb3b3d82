// Package tasks tracks the agent's active work items in memory and
// feeds a bounded notification feed. The task manager doubles as the
// executor's progress reporter.
package tasks

import (
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/executor"
)

// Task statuses.
const (
	StatusInitializing   = "initializing"
	StatusPlanning       = "planning"
	StatusGeneratingCode = "generating_code"
	StatusExecutingPlan  = "executing_project_plan"
	StatusCompleted      = "completed_successfully"
	StatusFailed         = "failed"
	StatusCancelled      = "user_cancelled"
)

// Task types.
const (
	TypeProjectScaffolding = "project_scaffolding"
	TypeFileGeneration     = "project_file_generation"
	TypePlanExecution      = "plan_execution"
	TypeScriptExecution    = "script_execution"
)

const defaultArchiveLimit = 100

// ActiveTask is one tracked unit of agent work.
type ActiveTask struct {
	ID            string                 `json:"task_id"`
	Type          string                 `json:"task_type"`
	Description   string                 `json:"description"`
	Status        string                 `json:"status"`
	StatusReason  string                 `json:"status_reason,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"last_updated_at"`
	RelatedItemID string                 `json:"related_item_id,omitempty"`
	CurrentStep   string                 `json:"current_step_description,omitempty"`
	StepUpdates   []executor.StepUpdate  `json:"plan_step_updates,omitempty"`
}

func terminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Manager tracks active tasks and archives terminal ones. Safe for
// concurrent use.
type Manager struct {
	mu           sync.Mutex
	active       map[string]*ActiveTask
	archive      []*ActiveTask
	archiveLimit int

	notifier *NotificationManager
	logger   *zap.Logger
}

// NewManager creates a task manager. notifier and logger may be nil.
func NewManager(notifier *NotificationManager, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		active:       map[string]*ActiveTask{},
		archiveLimit: defaultArchiveLimit,
		notifier:     notifier,
		logger:       logger,
	}
}

// Notifications exposes the notification manager so callers can list
// and acknowledge events. Returns a usable manager even when the
// Manager was built without one.
func (m *Manager) Notifications() *NotificationManager {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifier == nil {
		m.notifier = NewNotificationManager()
	}
	return m.notifier
}

// Add registers a new task and returns it.
func (m *Manager) Add(taskType, description, relatedItemID string) *ActiveTask {
	now := time.Now().UTC()
	task := &ActiveTask{
		ID:            "task_" + uuid.New().String()[:8],
		Type:          taskType,
		Description:   description,
		Status:        StatusInitializing,
		CreatedAt:     now,
		UpdatedAt:     now,
		RelatedItemID: relatedItemID,
	}
	m.mu.Lock()
	m.active[task.ID] = task
	m.mu.Unlock()

	m.logger.Info("task added",
		zap.String("task_id", task.ID),
		zap.String("task_type", taskType))
	return task
}

// Get returns a copy of a task, active or archived.
func (m *Manager) Get(taskID string) (ActiveTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.active[taskID]; ok {
		return *t, true
	}
	for _, t := range m.archive {
		if t.ID == taskID {
			return *t, true
		}
	}
	return ActiveTask{}, false
}

// List returns copies of all active tasks, most recently updated first.
func (m *Manager) List() []ActiveTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ActiveTask, 0, len(m.active))
	for _, t := range m.active {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// UpdateStatus moves a task to a new status. Terminal statuses archive
// the task and emit a notification.
func (m *Manager) UpdateStatus(taskID, status, reason, stepDesc string) bool {
	m.mu.Lock()
	task, ok := m.active[taskID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	task.Status = status
	task.StatusReason = reason
	if stepDesc != "" {
		task.CurrentStep = stepDesc
	}
	task.UpdatedAt = time.Now().UTC()

	var archived *ActiveTask
	if terminal(status) {
		delete(m.active, taskID)
		m.archive = append(m.archive, task)
		if len(m.archive) > m.archiveLimit {
			m.archive = m.archive[len(m.archive)-m.archiveLimit:]
		}
		archived = task
	}
	m.mu.Unlock()

	m.logger.Info("task status updated",
		zap.String("task_id", taskID),
		zap.String("status", status))

	if archived != nil && m.notifier != nil {
		kind := NotificationTaskCompleted
		if status != StatusCompleted {
			kind = NotificationTaskFailed
		}
		summary := fmt.Sprintf("Task %q %s.", truncate(archived.Description, 50), status)
		if reason != "" {
			summary += " Reason: " + reason
		}
		m.notifier.Add(kind, summary, archived.ID)
	}
	return true
}

// ReportStep implements executor.Reporter: it records a per-step plan
// update against the parent task and keeps the task in the
// executing-plan state.
func (m *Manager) ReportStep(parentTaskID string, update executor.StepUpdate) {
	m.mu.Lock()
	task, ok := m.active[parentTaskID]
	if ok {
		task.Status = StatusExecutingPlan
		task.CurrentStep = update.Description
		task.StepUpdates = append(task.StepUpdates, update)
		task.UpdatedAt = time.Now().UTC()
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("step update for unknown task", zap.String("task_id", parentTaskID))
		return
	}
	m.logger.Debug("plan step update",
		zap.String("task_id", parentTaskID),
		zap.String("step_id", update.StepID),
		zap.String("status", update.Status))
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
