// Package sandbox executes script strings in disposable working
// directories. The isolation is deliberately weak: a fresh temp dir, an
// unprivileged subprocess, and interpreter flags that skip user
// site-packages. It is not a security boundary.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Execution statuses.
const (
	StatusSuccess = "success"
	StatusTimeout = "timeout"
	StatusError   = "error"
)

const (
	// scriptFilename is the fixed name the script is written to inside
	// the sandbox directory.
	scriptFilename = "main_script.py"

	// DefaultTimeout applies when a request does not set one.
	DefaultTimeout = 10 * time.Second

	// DefaultInterpreter is used when neither the request nor the
	// runner overrides it.
	DefaultInterpreter = "python"

	// waitDelay bounds how long Wait may linger on the stdout/stderr
	// pipes after the deadline kill. Without it a descendant process
	// holding the inherited pipes keeps Run blocked past the timeout.
	waitDelay = 2 * time.Second
)

// Request describes a single sandboxed execution.
type Request struct {
	// ScriptContent is the script source. Empty content fails the call
	// before any resources are allocated.
	ScriptContent string

	// InputFiles maps bare filenames to contents, materialized in the
	// sandbox directory before the script runs. Any unsafe name aborts
	// the whole call.
	InputFiles map[string]string

	// OutputFilenames lists files expected to exist after the run,
	// collected best-effort into Result.OutputFiles.
	OutputFilenames []string

	// Timeout caps wall-clock execution. Zero means DefaultTimeout.
	Timeout time.Duration

	// Interpreter overrides the runner's interpreter for this call.
	Interpreter string
}

// Result is the structured outcome of a sandboxed execution. It is
// fully self-contained and never mutated after being returned.
type Result struct {
	Status       string            `json:"status"`
	ReturnCode   int               `json:"return_code"`
	Stdout       string            `json:"stdout"`
	Stderr       string            `json:"stderr"`
	OutputFiles  map[string]string `json:"output_files"`
	ErrorMessage string            `json:"error_message,omitempty"`

	// ScriptPath is where the script was written, for diagnostics. The
	// directory is already gone by the time the caller sees it.
	ScriptPath string `json:"executed_script_path,omitempty"`
}

// Runner executes scripts. The zero value is usable; fields supply
// per-runner defaults so call sites never reach for package globals.
type Runner struct {
	// Interpreter is the default interpreter, "python" if empty.
	Interpreter string

	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func errorResult(msg string) *Result {
	return &Result{
		Status:       StatusError,
		ReturnCode:   -1,
		OutputFiles:  map[string]string{},
		ErrorMessage: msg,
	}
}

// Run executes a single request to completion or timeout. Expected
// failure modes (bad input, non-zero exit, timeout, missing
// interpreter) are reported through the Result, never as an error.
func (r *Runner) Run(ctx context.Context, req Request) *Result {
	if strings.TrimSpace(req.ScriptContent) == "" {
		return errorResult("No script content provided.")
	}

	interpreter := req.Interpreter
	if interpreter == "" {
		interpreter = r.Interpreter
	}
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dir, err := os.MkdirTemp("", "planwright-sandbox-")
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to create sandbox directory: %v", err))
	}
	defer os.RemoveAll(dir)

	scriptPath := filepath.Join(dir, scriptFilename)
	if err := os.WriteFile(scriptPath, []byte(req.ScriptContent), 0o644); err != nil {
		return errorResult(fmt.Sprintf("Failed to write script to temp file: %v", err))
	}

	// Atomic precondition: one unsafe input name fails the whole call
	// before any subprocess is spawned.
	for name, content := range req.InputFiles {
		if !SafeFilename(name) {
			return errorResult(fmt.Sprintf("Invalid input filename (contains path separators): %s", name))
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return errorResult(fmt.Sprintf("Failed to write input file %q: %v", name, err))
		}
	}

	r.logger().Debug("running sandboxed script",
		zap.String("interpreter", interpreter),
		zap.Duration("timeout", timeout),
		zap.Int("input_files", len(req.InputFiles)))

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// -I implies isolated mode; -s and -S additionally skip user
	// site-packages and site customization on older interpreters.
	cmd := exec.CommandContext(runCtx, interpreter, "-I", "-s", "-S", scriptFilename)
	cmd.Dir = dir
	// The script runs in its own process group so the deadline kill
	// reaches any children it spawned; WaitDelay then abandons the
	// pipes in case a survivor still holds them open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res := &Result{
		Stdout:      stdout.String(),
		Stderr:      stderr.String(),
		OutputFiles: map[string]string{},
		ScriptPath:  scriptPath,
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		res.Status = StatusTimeout
		res.ReturnCode = -1
		msg := fmt.Sprintf("Script execution timed out after %g seconds.", timeout.Seconds())
		res.Stderr = msg
		res.ErrorMessage = msg

	case runErr == nil:
		res.Status = StatusSuccess
		res.ReturnCode = 0

	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// Exit code is data at this layer, not a Go error.
			res.Status = StatusError
			res.ReturnCode = exitErr.ExitCode()
			if res.Stderr != "" {
				res.ErrorMessage = res.Stderr
			} else {
				res.ErrorMessage = fmt.Sprintf("Script exited with code %d but no stderr.", res.ReturnCode)
			}
		} else if errors.Is(runErr, exec.ErrNotFound) {
			res.Status = StatusError
			res.ReturnCode = -1
			msg := fmt.Sprintf("Interpreter %q not found. Ensure it is in PATH or specify a full path.", interpreter)
			res.Stderr = msg
			res.ErrorMessage = msg
		} else {
			res.Status = StatusError
			res.ReturnCode = -1
			msg := fmt.Sprintf("An unexpected error occurred during script execution: %v", runErr)
			res.Stderr = msg
			res.ErrorMessage = msg
		}
	}

	r.collectOutputs(dir, req.OutputFilenames, res)

	res.Stdout = strings.TrimSpace(res.Stdout)
	res.Stderr = strings.TrimSpace(res.Stderr)
	res.ErrorMessage = strings.TrimSpace(res.ErrorMessage)
	return res
}

// collectOutputs reads requested output files regardless of execution
// status. Unsafe or missing names degrade to stderr warnings; the
// script itself may have succeeded even if an artifact is absent.
func (r *Runner) collectOutputs(dir string, names []string, res *Result) {
	appendWarning := func(w string) {
		if res.Stderr != "" {
			res.Stderr += "\n"
		}
		res.Stderr += w
	}

	for _, name := range names {
		if !SafeFilename(name) {
			appendWarning(fmt.Sprintf("Warning: Invalid output filename requested (contains path separators), skipped: %s", name))
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			appendWarning(fmt.Sprintf("Warning: Requested output file %q not found in execution directory.", name))
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			appendWarning(fmt.Sprintf("Warning: Could not read output file %q: %v", name, err))
			continue
		}
		res.OutputFiles[name] = string(content)
	}
}
