package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dvera/autopilot/internal/plan"
	"github.com/dvera/autopilot/internal/store"
	"github.com/dvera/autopilot/pkg/schema"
)

var (
	runBuiltin string
	runParam   string
)

var runCmd = &cobra.Command{
	Use:   "run [plan-file]",
	Short: "Execute a workflow plan",
	Long:  "Execute a plan from a YAML/JSON file, or a built-in workflow via --builtin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		started := time.Now().UTC()
		result, runErr := a.engine.RunPlan(ctx, p)
		if result != nil {
			indexRun(ctx, a, p, result, started)
		}
		if runErr != nil {
			return runErr
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		if result.Success {
			fmt.Printf("Plan %q completed: %d/%d steps.\n", p.Name, result.CompletedSteps, result.TotalSteps)
		} else {
			fmt.Printf("Plan %q stopped after %d/%d steps.\n", p.Name, result.CompletedSteps, result.TotalSteps)
		}
		if path, ok := result.State["last_run_history_path"].(string); ok && path != "" {
			fmt.Printf("Run record: %s\n", path)
		}
		return nil
	},
}

func resolvePlan(args []string) (*schema.WorkflowPlan, error) {
	if runBuiltin != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("pass either a plan file or --builtin, not both")
		}
		return builtinPlan(runBuiltin, runParam)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("a plan file or --builtin is required")
	}
	return plan.Load(args[0])
}

func builtinPlan(name, param string) (*schema.WorkflowPlan, error) {
	switch name {
	case "search":
		if param == "" {
			return nil, fmt.Errorf("--param is required for the search workflow")
		}
		return plan.SearchWorkflow(param), nil
	case "open_target":
		if param == "" {
			return nil, fmt.Errorf("--param is required for the open_target workflow")
		}
		return plan.OpenTargetWorkflow(param), nil
	case "website_builder":
		return plan.WebsiteBuilderWorkflow(param), nil
	case "research_paper":
		return plan.ResearchPaperWorkflow(param), nil
	case "console_fix_assist":
		return plan.ConsoleFixAssistWorkflow(param), nil
	default:
		return nil, fmt.Errorf("unknown built-in workflow %q", name)
	}
}

// indexRun records the run in the queryable index, best-effort.
func indexRun(ctx context.Context, a *app, p *schema.WorkflowPlan, result *schema.ExecutionResult, started time.Time) {
	if a.store == nil {
		return
	}
	entry := &store.RunIndexEntry{
		ID:             uuid.New().String(),
		PlanName:       p.Name,
		StartedAt:      started,
		FinishedAt:     time.Now().UTC(),
		Success:        result.Success,
		CompletedSteps: result.CompletedSteps,
		TotalSteps:     result.TotalSteps,
	}
	if path, ok := result.State["last_run_history_path"].(string); ok {
		entry.HistoryPath = path
	}
	if lastErr, ok := result.State["last_error"].(string); ok {
		entry.LastError = lastErr
	}
	if err := a.store.IndexRun(ctx, entry); err != nil {
		a.logger.Warn("failed to index run", "plan", p.Name, "error", err)
	}
}

func init() {
	runCmd.Flags().StringVar(&runBuiltin, "builtin", "", "Built-in workflow: search, open_target, website_builder, research_paper, console_fix_assist")
	runCmd.Flags().StringVar(&runParam, "param", "", "Parameter for the built-in workflow")
	rootCmd.AddCommand(runCmd)
}
