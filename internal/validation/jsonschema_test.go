package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvera/autopilot/pkg/schema"
)

func newValidator(t *testing.T) *PlanValidator {
	t.Helper()
	v, err := NewPlanValidator()
	require.NoError(t, err)
	return v
}

func validPlan() *schema.WorkflowPlan {
	return &schema.WorkflowPlan{
		Name:        "smoke",
		Description: "a valid plan",
		Steps: []schema.TaskStep{
			{Action: "log", Args: map[string]any{"message": "hi"}},
			{Action: "wait", Args: map[string]any{"seconds": 0.5}, Retries: 2, RetryDelaySecs: 1.5},
		},
	}
}

func TestValidPlanPasses(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.ValidatePlan(validPlan()))
}

func TestNilPlanFails(t *testing.T) {
	v := newValidator(t)
	err := v.ValidatePlan(nil)
	require.Error(t, err)
}

func TestPlanRequiresName(t *testing.T) {
	v := newValidator(t)
	plan := validPlan()
	plan.Name = ""

	err := v.ValidatePlan(plan)
	require.Error(t, err)

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestPlanRequiresSteps(t *testing.T) {
	v := newValidator(t)
	plan := validPlan()
	plan.Steps = nil

	assert.Error(t, v.ValidatePlan(plan))
}

func TestStepRequiresAction(t *testing.T) {
	v := newValidator(t)
	plan := validPlan()
	plan.Steps[0].Action = ""

	err := v.ValidatePlan(plan)
	require.Error(t, err)

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, perr.Details["violations"])
}

func TestNegativeRetriesRejected(t *testing.T) {
	v := newValidator(t)
	plan := validPlan()
	plan.Steps[1].Retries = -1

	assert.Error(t, v.ValidatePlan(plan))
}

func TestNegativeRetryDelayRejected(t *testing.T) {
	v := newValidator(t)
	plan := validPlan()
	plan.Steps[1].RetryDelaySecs = -0.5

	assert.Error(t, v.ValidatePlan(plan))
}

func TestReservedSaveAsRejected(t *testing.T) {
	v := newValidator(t)
	for _, key := range []string{"last_error", "last_run_history_path", "adapter_policy_profile"} {
		plan := validPlan()
		plan.Steps[0].SaveAs = key

		err := v.ValidatePlan(plan)
		require.Error(t, err, "save_as %s should be rejected", key)
		assert.Contains(t, err.Error(), "reserved")
	}
}

func TestOrdinarySaveAsAccepted(t *testing.T) {
	v := newValidator(t)
	plan := validPlan()
	plan.Steps[0].SaveAs = "greeting"

	assert.NoError(t, v.ValidatePlan(plan))
}
