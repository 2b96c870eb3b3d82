package manifest

import (
	"testing"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := New("My Web App", "my_web_app", dir, "a small web app")
	m.DevelopmentTasks = append(m.DevelopmentTasks, DevelopmentTask{
		TaskID:      "TASK001",
		TaskType:    "CREATE_FILE",
		Description: "Define structure and generate code for main.py",
		Details: TaskDetails{
			Filename:            "main.py",
			OriginalDescription: "entry point",
			KeyComponents:       []string{"main"},
			FileDependencies:    []string{},
		},
		Status: TaskPlanned,
	})
	if err := m.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ProjectName != "My Web App" {
		t.Errorf("expected project name preserved, got %q", loaded.ProjectName)
	}
	if len(loaded.DevelopmentTasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(loaded.DevelopmentTasks))
	}
	if loaded.DevelopmentTasks[0].Details.Filename != "main.py" {
		t.Errorf("task details lost: %+v", loaded.DevelopmentTasks[0].Details)
	}
}

func TestLoadMissingManifest(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestPlannedTasksAndMark(t *testing.T) {
	m := New("p", "p", t.TempDir(), "")
	m.DevelopmentTasks = []DevelopmentTask{
		{TaskID: "TASK001", Status: TaskPlanned, Details: TaskDetails{Filename: "a.py"}},
		{TaskID: "TASK002", Status: TaskGenerated, Details: TaskDetails{Filename: "b.py"}},
		{TaskID: "TASK003", Status: TaskPlanned, Details: TaskDetails{Filename: "c.py"}},
	}
	planned := m.PlannedTasks()
	if len(planned) != 2 {
		t.Fatalf("expected 2 planned tasks, got %d", len(planned))
	}

	planned[0].MarkTask(TaskGenerated, "")
	if m.DevelopmentTasks[0].Status != TaskGenerated {
		t.Error("MarkTask should mutate the manifest's task in place")
	}
	if m.DevelopmentTasks[0].LastAttempt == nil {
		t.Error("MarkTask should record the attempt timestamp")
	}

	if got := m.TaskForFile("c.py"); got == nil || got.TaskID != "TASK003" {
		t.Errorf("TaskForFile lookup failed: %+v", got)
	}
	if m.Task("TASK999") != nil {
		t.Error("expected nil for unknown task id")
	}
}
