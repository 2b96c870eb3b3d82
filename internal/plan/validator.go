package plan

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	pwerrors "github.com/planwright/planwright/internal/errors"
)

const planSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "oneOf": [
    {"$ref": "#/definitions/stepList"},
    {
      "type": "object",
      "required": ["steps"],
      "properties": {
        "name": {"type": "string"},
        "description": {"type": "string"},
        "steps": {"$ref": "#/definitions/stepList"}
      }
    }
  ],
  "definitions": {
    "stepList": {
      "type": "array",
      "items": {"$ref": "#/definitions/step"}
    },
    "step": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "step_id": {"type": "string"},
        "description": {"type": "string"},
        "type": {"type": "string", "minLength": 1},
        "details": {"type": "object"}
      }
    }
  }
}`

var planSchemaLoader = gojsonschema.NewStringLoader(planSchemaJSON)

// ValidateDocument checks a raw JSON plan document against the plan
// schema before it is decoded. Intended for externally supplied and
// LLM-produced documents.
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(planSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &pwerrors.RunError{
			Type:    pwerrors.SchemaError,
			Code:    "invalid_json",
			Message: fmt.Sprintf("plan document is not valid JSON: %v", err),
		}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return &pwerrors.RunError{
			Type:    pwerrors.SchemaError,
			Code:    "schema_violation",
			Message: fmt.Sprintf("plan document failed schema validation: %s", first.String()),
			Hint:    "Each step needs at least a non-empty \"type\" field.",
		}
	}
	return nil
}

// Validate checks a decoded plan for structural problems the executor
// would otherwise surface mid-run. The executor itself accepts any plan;
// this stricter check backs the validate command and the API surface.
func Validate(p *Plan) error {
	if p == nil || len(p.Steps) == 0 {
		return &pwerrors.RunError{
			Type:    pwerrors.ValidationError,
			Code:    "empty_plan",
			Message: "plan has no steps",
			Hint:    "Provide at least one step.",
		}
	}

	seen := map[string]bool{}
	for i, s := range p.Steps {
		if s.ID != "" {
			if seen[s.ID] {
				return &pwerrors.RunError{
					Type:    pwerrors.ValidationError,
					Code:    "duplicate_step_id",
					Message: fmt.Sprintf("duplicate step id %q", s.ID),
				}
			}
			seen[s.ID] = true
		}
		if s.Type == "" {
			return &pwerrors.RunError{
				Type:    pwerrors.ValidationError,
				Code:    "missing_type",
				Message: fmt.Sprintf("step at index %d has no type", i),
			}
		}
		if s.Type == TypePythonScript && (s.Script == nil || s.Script.ScriptContent == "") {
			return &pwerrors.RunError{
				Type:    pwerrors.Misconfigured,
				Code:    "missing_script_content",
				StepID:  s.ID,
				Message: fmt.Sprintf("python_script step at index %d has no script_content", i),
				Hint:    "Add details.script_content or remove the step.",
			}
		}
		if s.Type == TypePythonScript && s.Script != nil {
			if s.Script.TimeoutSeconds < 0 {
				return &pwerrors.RunError{
					Type:    pwerrors.Misconfigured,
					Code:    "negative_timeout",
					StepID:  s.ID,
					Message: fmt.Sprintf("python_script step at index %d has negative timeout_seconds", i),
				}
			}
		}
	}
	return nil
}
