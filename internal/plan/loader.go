// Package plan loads workflow plans from YAML or JSON documents and ships
// the built-in workflow catalog.
package plan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dvera/autopilot/pkg/schema"
)

// Load reads a plan file. The format is picked by extension: .json is JSON,
// everything else is parsed as YAML (which also accepts JSON).
func Load(path string) (*schema.WorkflowPlan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "read plan file: %s", err.Error()).WithCause(err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(raw)
	}
	return ParseYAML(raw)
}

// ParseYAML decodes a YAML plan document.
func ParseYAML(raw []byte) (*schema.WorkflowPlan, error) {
	var plan schema.WorkflowPlan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse plan yaml: %s", err.Error()).WithCause(err)
	}
	applyDefaults(&plan)
	return &plan, nil
}

// ParseJSON decodes a JSON plan document.
func ParseJSON(raw []byte) (*schema.WorkflowPlan, error) {
	var plan schema.WorkflowPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse plan json: %s", err.Error()).WithCause(err)
	}
	applyDefaults(&plan)
	return &plan, nil
}

// applyDefaults fills in per-step defaults a document may omit.
func applyDefaults(plan *schema.WorkflowPlan) {
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.RetryDelaySecs == 0 && step.Retries > 0 {
			step.RetryDelaySecs = 1.0
		}
	}
}
