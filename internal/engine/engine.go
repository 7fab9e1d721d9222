package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dvera/autopilot/internal/actions"
	"github.com/dvera/autopilot/internal/adapter"
	"github.com/dvera/autopilot/internal/expressions"
	"github.com/dvera/autopilot/internal/logging"
	"github.com/dvera/autopilot/pkg/schema"
)

// HistoryWriter persists one run record and returns where it landed.
type HistoryWriter interface {
	Write(record *schema.RunRecord) (string, error)
}

// Config wires an Engine's collaborators. Registry is required; everything
// else has a working default or is optional.
type Config struct {
	Registry *actions.Registry
	History  HistoryWriter
	Adapters *adapter.Manager
	Limiter  *ActionLimiter
	Logger   *slog.Logger
}

// Engine executes workflow plans: steps run strictly in order, each gated by
// its condition, the rate limiter, and a bounded retry loop. One Engine owns
// one state store; concurrent runs need separate engines.
//
// Exactly one history record is written per run, on every exit path.
type Engine struct {
	logger   *slog.Logger
	registry *actions.Registry
	history  HistoryWriter
	adapters *adapter.Manager
	limiter  *ActionLimiter

	mu    sync.Mutex
	state map[string]any

	cancelled atomic.Bool

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Engine from cfg. A nil Registry is a programming error and
// panics; a nil Limiter gets the default pacing; a nil History writer means
// runs leave no durable record.
func New(cfg Config) *Engine {
	if cfg.Registry == nil {
		panic("engine: Config.Registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewActionLimiter(logger, DefaultMaxPerMinute, DefaultMinInterval)
	}
	return &Engine{
		logger:   logger,
		registry: cfg.Registry,
		history:  cfg.History,
		adapters: cfg.Adapters,
		limiter:  limiter,
		state:    make(map[string]any),
		sleep:    WaitForRetry,
	}
}

// Cancel requests cooperative cancellation. The run stops at the next
// per-step checkpoint; an in-flight action is never interrupted.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
	e.logger.Info("cancellation requested; stopping at next checkpoint")
}

// State returns a shallow snapshot of the run state.
func (e *Engine) State() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := make(map[string]any, len(e.state))
	for k, v := range e.state {
		snapshot[k] = v
	}
	return snapshot
}

// Put writes an engine-reserved state key. Engine implements
// actions.StateSink so actions like run_command can publish their exit code.
func (e *Engine) Put(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state[key] = value
}

// RunPlan executes a plan from its first step.
func (e *Engine) RunPlan(ctx context.Context, plan *schema.WorkflowPlan) (*schema.ExecutionResult, error) {
	if plan == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "plan is nil")
	}
	return e.RunSteps(ctx, plan.Steps, plan.Name, plan.Description)
}

// RunSteps executes an ordered step list as one run. Cancellation (either
// Cancel or ctx) yields a failed result and a nil error; a fatal step
// failure yields the partial result alongside the error. The state store is
// reset at run start.
func (e *Engine) RunSteps(ctx context.Context, steps []schema.TaskStep, planName, planDescription string) (*schema.ExecutionResult, error) {
	e.cancelled.Store(false)
	e.mu.Lock()
	e.state = make(map[string]any)
	e.mu.Unlock()

	if planName == "" {
		planName = "dynamic_plan"
	}
	ctx = logging.WithRunID(ctx, uuid.New().String())
	ctx = logging.WithPlanName(ctx, planName)

	e.logger.InfoContext(ctx, "running workflow",
		slog.String("plan", planName),
		slog.Int("steps", len(steps)))

	run := &runState{
		planName:        planName,
		planDescription: planDescription,
		startedAt:       time.Now().UTC(),
		total:           len(steps),
	}

	for idx, step := range steps {
		stepCtx := logging.WithStepIndex(ctx, idx+1)
		stepCtx = logging.WithAction(stepCtx, step.Action)

		if e.cancelled.Load() || ctx.Err() != nil {
			e.logger.InfoContext(stepCtx, "execution cancelled")
			return e.finish(stepCtx, run, false), nil
		}

		if !e.conditionAllows(step) {
			e.logger.InfoContext(stepCtx, "step skipped",
				slog.String("condition", step.Condition))
			run.steps = append(run.steps, schema.StepLog{
				Index:       idx + 1,
				Action:      step.Action,
				Description: step.Description,
				Condition:   step.Condition,
				Status:      schema.StepStatusSkipped,
			})
			run.completed++
			continue
		}

		stepLog, err := e.runStep(stepCtx, idx+1, step)
		run.steps = append(run.steps, stepLog)
		if err != nil {
			if isCancellation(err) {
				e.logger.InfoContext(stepCtx, "execution cancelled")
				return e.finish(stepCtx, run, false), nil
			}
			e.Put("last_error", err.Error())
			result := e.finish(stepCtx, run, false)
			return result, wrapStepError(err, idx+1, step.Action)
		}
		run.completed++
	}

	e.logger.InfoContext(ctx, "workflow completed",
		slog.Int("completed_steps", run.completed))
	return e.finish(ctx, run, true), nil
}

// runState accumulates one run's bookkeeping until history is written.
type runState struct {
	planName        string
	planDescription string
	startedAt       time.Time
	total           int
	completed       int
	steps           []schema.StepLog
}

// runStep drives one step's retry loop. The returned StepLog is always
// populated; a non-nil error means the failure was not absorbed.
func (e *Engine) runStep(ctx context.Context, index int, step schema.TaskStep) (schema.StepLog, error) {
	attempts := step.Retries + 1
	if attempts < 1 {
		attempts = 1
	}
	retryDelay := time.Duration(step.RetryDelaySecs * float64(time.Second))

	e.logger.InfoContext(ctx, "executing step",
		slog.String("description", step.Description),
		slog.Int("attempts_allowed", attempts))

	stepLog := schema.StepLog{
		Index:           index,
		Action:          step.Action,
		Description:     step.Description,
		Condition:       step.Condition,
		AttemptsAllowed: attempts,
		Args:            expressions.RenderArgs(step.Args, e.State()),
		StartedAt:       time.Now().UTC().Format(time.RFC3339Nano),
	}

	var result any
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		// Args are re-rendered against the live state each attempt so a
		// value saved by an earlier step mid-run is picked up.
		rendered := expressions.RenderArgs(step.Args, e.State())

		if err := e.limiter.BeforeAction(ctx, step.Action); err != nil {
			stepLog.Status = schema.StepStatusFailed
			stepLog.Error = err.Error()
			stepLog.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
			return stepLog, err
		}

		result, lastErr = e.dispatch(ctx, step.Action, rendered)
		stepLog.AttemptsUsed = attempt
		if lastErr == nil {
			if step.SaveAs != "" {
				e.Put(step.SaveAs, result)
				e.logger.InfoContext(ctx, "saved step output", slog.String("save_as", step.SaveAs))
			}
			break
		}

		if attempt < attempts && IsRetryableError(lastErr) {
			e.logger.WarnContext(ctx, "step failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("attempts_allowed", attempts),
				slog.Float64("retry_delay_seconds", step.RetryDelaySecs),
				slog.String("error", lastErr.Error()))
			if err := e.sleep(ctx, retryDelay); err != nil {
				stepLog.Status = schema.StepStatusFailed
				stepLog.Error = err.Error()
				stepLog.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
				return stepLog, err
			}
			continue
		}
		break
	}

	stepLog.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)

	if lastErr != nil {
		stepLog.Error = lastErr.Error()
		if step.ContinueOnError && !isCancellation(lastErr) {
			e.logger.WarnContext(ctx, "step failed, continuing",
				slog.String("error", lastErr.Error()))
			e.Put("last_error", lastErr.Error())
			stepLog.Status = schema.StepStatusFailedContinue
			return stepLog, nil
		}
		stepLog.Status = schema.StepStatusFailed
		return stepLog, lastErr
	}

	stepLog.Status = schema.StepStatusOK
	stepLog.Result = result
	return stepLog, nil
}

// dispatch resolves and executes one action by identifier.
func (e *Engine) dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	action, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return action.Execute(ctx, actions.Request{Args: args, State: e})
}

// conditionAllows renders and evaluates the step's condition.
func (e *Engine) conditionAllows(step schema.TaskStep) bool {
	rendered := expressions.RenderString(step.Condition, e.State())
	return expressions.EvaluateCondition(rendered, e.State())
}

// finish writes the run history record and builds the final result. It is
// the single exit funnel, so history lands exactly once per run.
func (e *Engine) finish(ctx context.Context, run *runState, success bool) *schema.ExecutionResult {
	record := &schema.RunRecord{
		PlanName:        run.planName,
		PlanDescription: run.planDescription,
		StartedAt:       run.startedAt,
		FinishedAt:      time.Now().UTC(),
		Success:         success,
		CompletedSteps:  run.completed,
		TotalSteps:      run.total,
		StateSnapshot:   e.State(),
		Steps:           run.steps,
	}
	if e.adapters != nil {
		record.AdapterTelemetry = e.adapters.Telemetry()
	}

	if e.history != nil {
		path, err := e.history.Write(record)
		if err != nil {
			e.logger.ErrorContext(ctx, "failed to write run history", slog.String("error", err.Error()))
		} else {
			e.Put("last_run_history_path", path)
			e.logger.InfoContext(ctx, "run history written", slog.String("path", path))
		}
	}

	return &schema.ExecutionResult{
		Success:        success,
		CompletedSteps: run.completed,
		TotalSteps:     run.total,
		State:          e.State(),
	}
}

func isCancellation(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var perr *schema.PilotError
	return errors.As(err, &perr) && perr.Code == schema.ErrCodeCancelled
}

func wrapStepError(err error, index int, action string) error {
	var perr *schema.PilotError
	if errors.As(err, &perr) {
		return perr.WithStep(index)
	}
	return schema.NewErrorf(schema.ErrCodeExecution, "step %d (%s) failed: %s", index, action, err.Error()).
		WithStep(index).WithCause(err)
}
