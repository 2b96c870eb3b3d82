// Package plan defines the project-plan structure consumed by the
// executor: an ordered list of typed steps, loadable from JSON or YAML.
package plan

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Step types with defined execution semantics. Any other type string is
// carried through and skipped by the executor as unimplemented.
const (
	TypePythonScript    = "python_script"
	TypeHumanReviewGate = "human_review_gate"
	TypeInformational   = "informational"
	TypeUnknown         = "unknown"
)

// Plan is an ordered list of steps with an optional project label.
type Plan struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// Step is one unit of work. Exactly one of the detail variants is
// populated, selected by Type during decoding; unrecognized types carry
// no details.
type Step struct {
	ID          string
	Description string
	Type        string

	Script *ScriptDetails
	Review *ReviewDetails
	Info   *InfoDetails
}

// ScriptDetails configures a python_script step.
type ScriptDetails struct {
	ScriptContent        string            `json:"script_content" yaml:"script_content"`
	InputFiles           map[string]string `json:"input_files,omitempty" yaml:"input_files,omitempty"`
	OutputFilesToCapture []string          `json:"output_files_to_capture,omitempty" yaml:"output_files_to_capture,omitempty"`
	TimeoutSeconds       int               `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	InterpreterPath      string            `json:"interpreter_path,omitempty" yaml:"interpreter_path,omitempty"`
}

// ReviewDetails configures a human_review_gate step.
type ReviewDetails struct {
	PromptToUser string `json:"prompt_to_user,omitempty" yaml:"prompt_to_user,omitempty"`
}

// InfoDetails configures an informational step.
type InfoDetails struct {
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

type stepEnvelope struct {
	ID          string          `json:"step_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// UnmarshalJSON decodes the wire form {step_id, description, type,
// details} into the variant matching the step type. Details for
// unrecognized types are dropped rather than rejected.
func (s *Step) UnmarshalJSON(data []byte) error {
	var env stepEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	s.ID = env.ID
	s.Description = env.Description
	s.Type = env.Type
	s.Script, s.Review, s.Info = nil, nil, nil

	if len(env.Details) == 0 {
		return nil
	}
	switch env.Type {
	case TypePythonScript:
		s.Script = &ScriptDetails{}
		if err := json.Unmarshal(env.Details, s.Script); err != nil {
			return fmt.Errorf("decoding python_script details: %w", err)
		}
	case TypeHumanReviewGate:
		s.Review = &ReviewDetails{}
		if err := json.Unmarshal(env.Details, s.Review); err != nil {
			return fmt.Errorf("decoding human_review_gate details: %w", err)
		}
	case TypeInformational:
		s.Info = &InfoDetails{}
		if err := json.Unmarshal(env.Details, s.Info); err != nil {
			return fmt.Errorf("decoding informational details: %w", err)
		}
	}
	return nil
}

// MarshalJSON re-emits the wire form with the populated variant under
// "details".
func (s Step) MarshalJSON() ([]byte, error) {
	env := stepEnvelope{ID: s.ID, Description: s.Description, Type: s.Type}
	var details any
	switch {
	case s.Script != nil:
		details = s.Script
	case s.Review != nil:
		details = s.Review
	case s.Info != nil:
		details = s.Info
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, err
		}
		env.Details = raw
	}
	return json.Marshal(env)
}

type yamlStepEnvelope struct {
	ID          string    `yaml:"step_id"`
	Description string    `yaml:"description"`
	Type        string    `yaml:"type"`
	Details     yaml.Node `yaml:"details"`
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML plan files.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var env yamlStepEnvelope
	if err := node.Decode(&env); err != nil {
		return err
	}
	s.ID = env.ID
	s.Description = env.Description
	s.Type = env.Type
	s.Script, s.Review, s.Info = nil, nil, nil

	if env.Details.IsZero() {
		return nil
	}
	switch env.Type {
	case TypePythonScript:
		s.Script = &ScriptDetails{}
		return env.Details.Decode(s.Script)
	case TypeHumanReviewGate:
		s.Review = &ReviewDetails{}
		return env.Details.Decode(s.Review)
	case TypeInformational:
		s.Info = &InfoDetails{}
		return env.Details.Decode(s.Info)
	}
	return nil
}
