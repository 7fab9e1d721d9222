package schema

import "time"

// StepLog is one per-step entry in a run history record.
type StepLog struct {
	Index           int            `json:"index"`
	Action          string         `json:"action"`
	Description     string         `json:"description,omitempty"`
	Condition       string         `json:"condition,omitempty"`
	AttemptsAllowed int            `json:"attempts_allowed,omitempty"`
	AttemptsUsed    int            `json:"attempts_used,omitempty"`
	Status          string         `json:"status"`
	Args            map[string]any `json:"args,omitempty"`
	Result          any            `json:"result,omitempty"`
	Error           string         `json:"error,omitempty"`
	StartedAt       string         `json:"started_at,omitempty"`
	FinishedAt      string         `json:"finished_at,omitempty"`
}

// RunRecord is the durable per-run history document, one JSON file per run.
type RunRecord struct {
	PlanName         string         `json:"plan_name"`
	PlanDescription  string         `json:"plan_description,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
	Success          bool           `json:"success"`
	CompletedSteps   int            `json:"completed_steps"`
	TotalSteps       int            `json:"total_steps"`
	StateSnapshot    map[string]any `json:"state_snapshot"`
	AdapterTelemetry map[string]any `json:"adapter_telemetry,omitempty"`
	Steps            []StepLog      `json:"steps"`
}
