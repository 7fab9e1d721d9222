package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvera/autopilot/internal/scheduler"
	"github.com/dvera/autopilot/pkg/schema"
)

var scheduleCron string

var scheduleCmd = &cobra.Command{
	Use:   "schedule [plan-file]",
	Short: "Run a plan on a cron schedule until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if scheduleCron == "" {
			return fmt.Errorf("--cron is required")
		}
		p, err := resolvePlan(args)
		if err != nil {
			return err
		}

		a, err := newApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.validator.ValidatePlan(p); err != nil {
			return err
		}

		sched := scheduler.New(&scheduledRunner{app: a}, a.logger)
		job, err := sched.AddJob(scheduleCron, p)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := sched.Start(ctx); err != nil {
			return err
		}
		fmt.Printf("Scheduled plan %q (%s); next run at %s. Ctrl-C to stop.\n",
			p.Name, scheduleCron, job.NextRunAt.Format(time.RFC3339))

		<-ctx.Done()
		return sched.Stop()
	},
}

// scheduledRunner adapts the app's engine to the scheduler's runner contract.
type scheduledRunner struct {
	app *app
}

func (r *scheduledRunner) Run(ctx context.Context, p *schema.WorkflowPlan) error {
	started := time.Now().UTC()
	result, err := r.app.engine.RunPlan(ctx, p)
	if result != nil {
		indexRun(ctx, r.app, p, result, started)
	}
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("plan %q stopped after %d/%d steps", p.Name, result.CompletedSteps, result.TotalSteps)
	}
	return nil
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "Five-field cron expression, e.g. \"0 9 * * 1-5\"")
	scheduleCmd.Flags().StringVar(&runBuiltin, "builtin", "", "Built-in workflow to schedule")
	scheduleCmd.Flags().StringVar(&runParam, "param", "", "Parameter for the built-in workflow")
	rootCmd.AddCommand(scheduleCmd)
}
