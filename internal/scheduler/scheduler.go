// Package scheduler runs workflow plans on recurring cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dvera/autopilot/pkg/schema"
)

// PlanRunner executes one plan. Satisfied by a thin wrapper that builds a
// fresh engine per run, so scheduled runs never share state.
type PlanRunner interface {
	Run(ctx context.Context, plan *schema.WorkflowPlan) error
}

// Job is one recurring plan schedule.
type Job struct {
	ID             string               `json:"id"`
	CronExpression string               `json:"cron_expression"`
	Plan           *schema.WorkflowPlan `json:"plan"`
	Enabled        bool                 `json:"enabled"`
	LastRunAt      *time.Time           `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time           `json:"next_run_at,omitempty"`
	LastRunStatus  string               `json:"last_run_status,omitempty"`
}

// Scheduler ticks once a minute and runs every enabled job whose next-run
// time has arrived. A job never overlaps itself; a tick that finds it still
// running skips it.
type Scheduler struct {
	runner PlanRunner
	parser cron.Parser
	logger *slog.Logger

	mu     sync.Mutex
	jobs   map[string]*Job
	cancel context.CancelFunc
	done   chan struct{}

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	now func() time.Time
}

// New creates a Scheduler using standard five-field cron expressions.
func New(runner PlanRunner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		jobs:     make(map[string]*Job),
		inflight: make(map[string]struct{}),
		now:      time.Now,
	}
}

// AddJob registers a recurring plan. The cron expression is validated up
// front and the first run time computed immediately.
func (s *Scheduler) AddJob(cronExpr string, plan *schema.WorkflowPlan) (*Job, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "scheduled plan needs at least one step")
	}
	next, err := s.CalculateNextRun(cronExpr, s.now().UTC())
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid cron expression %q: %s", cronExpr, err.Error()).WithCause(err)
	}

	job := &Job{
		ID:             uuid.New().String(),
		CronExpression: cronExpr,
		Plan:           plan,
		Enabled:        true,
		NextRunAt:      &next,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.Info("scheduled job added",
		slog.String("job_id", job.ID),
		slog.String("plan", plan.Name),
		slog.String("cron", cronExpr),
		slog.Time("next_run_at", next))
	return job, nil
}

// RemoveJob unregisters a job.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "scheduled job %q not found", id)
	}
	delete(s.jobs, id)
	return nil
}

// SetEnabled flips one job's enabled flag.
func (s *Scheduler) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "scheduled job %q not found", id)
	}
	job.Enabled = enabled
	return nil
}

// ListJobs returns registered jobs sorted by plan name.
func (s *Scheduler) ListJobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Plan.Name == jobs[j].Plan.Name {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].Plan.Name < jobs[j].Plan.Name
	})
	return jobs
}

// Start launches the background scheduling loop with a 60s ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	schedCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.loop(schedCtx, done)
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	// Run an initial tick immediately.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs every enabled job that is due.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().UTC()

	s.mu.Lock()
	due := make([]*Job, 0)
	for _, job := range s.jobs {
		if job.Enabled && job.NextRunAt != nil && !job.NextRunAt.After(now) {
			due = append(due, job)
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		if !s.tryAcquire(job.ID) {
			continue
		}
		s.runJob(ctx, job, now)
		s.release(job.ID)
	}
}

// runJob executes one due job and updates its timestamps.
func (s *Scheduler) runJob(ctx context.Context, job *Job, now time.Time) {
	s.logger.Info("running scheduled job",
		slog.String("job_id", job.ID),
		slog.String("plan", job.Plan.Name))

	err := s.runner.Run(ctx, job.Plan)
	status := "success"
	if err != nil {
		status = "error"
		s.logger.Error("scheduled job execution failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
	}

	next, calcErr := s.CalculateNextRun(job.CronExpression, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	ranAt := now
	job.LastRunAt = &ranAt
	job.LastRunStatus = status
	if calcErr == nil {
		job.NextRunAt = &next
	}
}

// tryAcquire marks the job in-flight unless it already is.
func (s *Scheduler) tryAcquire(jobID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[jobID]; ok {
		return false
	}
	s.inflight[jobID] = struct{}{}
	return true
}

func (s *Scheduler) release(jobID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, jobID)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler and waits for the loop to drain.
// The wait happens outside the mutex: an in-flight job still needs the lock
// to record its timestamps before the loop can exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	s.logger.Info("scheduler stopped")
	return nil
}
