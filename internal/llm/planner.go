package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pwerrors "github.com/planwright/planwright/internal/errors"
)

const planningPrompt = `You are an AI software project planner.
Based on the following project description, produce a JSON object with a
single key "project_plan": a list of files to create, where each entry has
"filename", "description", "key_components" (list of strings) and
"dependencies" (list of other planned filenames).

Project description:
%s

If the description is too simple for a multi-file breakdown, plan a single
file named after the project or main.py, with empty lists for
key_components and dependencies. Use conventional filenames (.py for
Python); assume Python if no language is stated.
Output only the JSON object, with no surrounding text or markdown fences.`

const codegenPrompt = `You are an AI assistant writing code for a software project.
Overall project description:
%s

File to generate: %s
Purpose of this file: %s

Key components for this file:
%s

Other project files this file depends on:
%s

Generate the complete code for %s. The code must be functional and follow
common conventions for the inferred language (assume Python if
unspecified). Output only the raw file content, with no explanations and
no markdown fences. If the file interacts with other planned files, write
it assuming they exist and provide the described functionality.`

// PlannedFile is one entry of an LLM-produced project plan.
type PlannedFile struct {
	Filename      string   `json:"filename"`
	Description   string   `json:"description"`
	KeyComponents []string `json:"key_components"`
	Dependencies  []string `json:"dependencies"`
}

type projectPlanDoc struct {
	ProjectPlan []PlannedFile `json:"project_plan"`
}

// GeneratePlan asks the model for a file-level project plan and parses
// the response. Malformed entries are dropped, not fatal; a malformed
// document is.
func GeneratePlan(ctx context.Context, c Client, projectDescription string) ([]PlannedFile, error) {
	raw, err := c.Generate(ctx, fmt.Sprintf(planningPrompt, projectDescription))
	if err != nil {
		return nil, pwerrors.NewLLMError(fmt.Sprintf("failed to get project plan from model: %v", err))
	}
	cleaned := StripFences(raw)
	if cleaned == "" {
		return nil, pwerrors.NewLLMError("model returned an empty project plan")
	}

	var doc projectPlanDoc
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &pwerrors.RunError{
			Type:    pwerrors.LLMError,
			Message: fmt.Sprintf("model returned invalid JSON for project plan: %v", err),
		}
	}
	if doc.ProjectPlan == nil {
		return nil, &pwerrors.RunError{
			Type:    pwerrors.LLMError,
			Message: "model returned an invalid plan structure (missing project_plan list)",
		}
	}

	var out []PlannedFile
	for _, f := range doc.ProjectPlan {
		if f.Filename == "" || f.Description == "" {
			continue
		}
		if f.KeyComponents == nil {
			f.KeyComponents = []string{}
		}
		if f.Dependencies == nil {
			f.Dependencies = []string{}
		}
		out = append(out, f)
	}
	return out, nil
}

// CodeRequest describes one file to generate.
type CodeRequest struct {
	ProjectDescription string
	Filename           string
	FileDescription    string
	KeyComponents      []string
	Dependencies       []string
}

// GenerateFileCode asks the model for the content of a single project
// file.
func GenerateFileCode(ctx context.Context, c Client, req CodeRequest) (string, error) {
	components := "None specified."
	if len(req.KeyComponents) > 0 {
		components = "- " + strings.Join(req.KeyComponents, "\n- ")
	}
	deps := "None."
	if len(req.Dependencies) > 0 {
		deps = "- " + strings.Join(req.Dependencies, "\n- ")
	}
	prompt := fmt.Sprintf(codegenPrompt,
		req.ProjectDescription, req.Filename, req.FileDescription,
		components, deps, req.Filename)

	raw, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", pwerrors.NewLLMError(fmt.Sprintf("failed to generate code for %s: %v", req.Filename, err))
	}
	code := StripFences(raw)
	if strings.TrimSpace(code) == "" {
		return "", pwerrors.NewLLMError(fmt.Sprintf("model returned empty code for %s", req.Filename))
	}
	return code, nil
}
