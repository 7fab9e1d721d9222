package schema

// TaskStep is a single declarative unit of work within a plan.
// A step is immutable once constructed; the executing engine never mutates it.
type TaskStep struct {
	Action          string         `json:"action" yaml:"action"`
	Args            map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	SaveAs          string         `json:"save_as,omitempty" yaml:"save_as,omitempty"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty"`
	Condition       string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	Retries         int            `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetryDelaySecs  float64        `json:"retry_delay_seconds,omitempty" yaml:"retry_delay_seconds,omitempty"`
	ContinueOnError bool           `json:"continue_on_error,omitempty" yaml:"continue_on_error,omitempty"`
}

// WorkflowPlan is a named, ordered list of steps executed as one run.
type WorkflowPlan struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []TaskStep `json:"steps" yaml:"steps"`
}

// ExecutionResult is the outcome of one engine run.
type ExecutionResult struct {
	Success        bool           `json:"success"`
	CompletedSteps int            `json:"completed_steps"`
	TotalSteps     int            `json:"total_steps"`
	State          map[string]any `json:"state"`
}

// RunStatus is the per-run lifecycle state.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Step outcome statuses as recorded in run history.
const (
	StepStatusOK             = "ok"
	StepStatusSkipped        = "skipped"
	StepStatusFailed         = "failed"
	StepStatusFailedContinue = "failed_continue"
)
