// Package validation checks workflow plan documents before execution, so a
// malformed plan fails fast instead of mid-run.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dvera/autopilot/pkg/schema"
)

// planSchemaJSON is the JSON Schema for WorkflowPlan documents.
// Embedded as a constant to avoid filesystem dependencies.
const planSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://autopilot.dev/schemas/plan.json",
  "type": "object",
  "required": ["name", "steps"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "description": { "type": "string" },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/step" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "step": {
      "type": "object",
      "required": ["action"],
      "properties": {
        "action": {
          "type": "string",
          "minLength": 1
        },
        "args": { "type": "object" },
        "save_as": { "type": "string" },
        "description": { "type": "string" },
        "condition": { "type": "string" },
        "retries": {
          "type": "integer",
          "minimum": 0
        },
        "retry_delay_seconds": {
          "type": "number",
          "minimum": 0
        },
        "continue_on_error": { "type": "boolean" }
      },
      "additionalProperties": false
    }
  }
}`

// PlanValidator validates workflow plans against the embedded JSON Schema.
// It is safe for concurrent use.
type PlanValidator struct {
	planSchema *jsonschema.Schema
}

// NewPlanValidator compiles the plan schema.
func NewPlanValidator() (*PlanValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(planSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal plan schema: %w", err)
	}
	if err := c.AddResource("https://autopilot.dev/schemas/plan.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add plan schema resource: %w", err)
	}
	compiled, err := c.Compile("https://autopilot.dev/schemas/plan.json")
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	return &PlanValidator{planSchema: compiled}, nil
}

// ValidatePlan checks a plan document. Beyond the schema it also rejects
// step outputs bound to engine-reserved state keys.
func (v *PlanValidator) ValidatePlan(plan *schema.WorkflowPlan) error {
	if plan == nil {
		return schema.NewError(schema.ErrCodeValidation, "plan is nil")
	}

	doc, err := toJSONValue(plan)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize plan").WithCause(err)
	}
	if err := v.planSchema.Validate(doc); err != nil {
		return toPilotError(err)
	}

	for i, step := range plan.Steps {
		if reservedStateKeys[step.SaveAs] {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"step %d: save_as %q is an engine-reserved state key", i+1, step.SaveAs)
		}
	}
	return nil
}

// reservedStateKeys are written by the engine itself; plans may read them
// but must not bind step outputs to them.
var reservedStateKeys = map[string]bool{
	"last_error":             true,
	"last_command_exit_code": true,
	"last_command_output":    true,
	"last_run_history_path":  true,
	"adapter_policy_profile": true,
	"last_sensitive_prepare": true,
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toPilotError converts a jsonschema.ValidationError into a PilotError with
// one message per violated location.
func toPilotError(err error) *schema.PilotError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "plan validation failed with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf messages
// with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
