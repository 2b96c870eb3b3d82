package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a plan file, dispatching on extension.
// Files ending in .json are parsed as JSON, anything else as YAML.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return Load(data)
	}
	return LoadYAML(data)
}

// Load parses plan JSON. Both a full plan object and a bare step list
// (the form LLM planners produce) are accepted.
func Load(data []byte) (*Plan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var steps []Step
		if err := json.Unmarshal(trimmed, &steps); err != nil {
			return nil, fmt.Errorf("parsing JSON step list: %w", err)
		}
		return &Plan{Steps: steps}, nil
	}
	var p Plan
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("parsing JSON plan: %w", err)
	}
	return &p, nil
}

// LoadYAML parses plan YAML bytes.
func LoadYAML(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing YAML plan: %w", err)
	}
	return &p, nil
}
