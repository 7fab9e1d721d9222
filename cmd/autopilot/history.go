package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvera/autopilot/internal/history"
	"github.com/dvera/autopilot/internal/store"
)

var (
	historyLimit int
	historyPlan  string
	organizeDo   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past workflow runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		// Prefer the run index; fall back to scanning the runs directory.
		if entries, ok := listFromIndex(cmd.Context(), cfg); ok {
			return printListing(entries)
		}

		records, err := history.List(cfg.RunsDir)
		if err != nil {
			return err
		}
		entries := make([]*store.RunIndexEntry, 0, len(records))
		for i := len(records) - 1; i >= 0 && len(entries) < historyLimit; i-- {
			rec := records[i].Record
			if historyPlan != "" && rec.PlanName != historyPlan {
				continue
			}
			entries = append(entries, &store.RunIndexEntry{
				PlanName:       rec.PlanName,
				StartedAt:      rec.StartedAt,
				FinishedAt:     rec.FinishedAt,
				Success:        rec.Success,
				CompletedSteps: rec.CompletedSteps,
				TotalSteps:     rec.TotalSteps,
				HistoryPath:    records[i].Path,
			})
		}
		return printListing(entries)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <record-file>",
	Short: "Print one run record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := history.Load(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

var historyQueryCmd = &cobra.Command{
	Use:   "query <jq-expression>",
	Short: "Evaluate a jq expression against every run record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		results, err := history.Query(cfg.RunsDir, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	},
}

var historyOrganizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Move flat run files into per-run folders",
	Long:  "Migrate flat <stamp>_<plan>.json run files into readable per-run folders. Dry-run by default; pass --apply to move files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		migrations, err := history.Organize(cfg.RunsDir, organizeDo)
		if err != nil {
			return err
		}
		if len(migrations) == 0 {
			fmt.Println("Nothing to organize.")
			return nil
		}
		if jsonOutput {
			fmt.Println(history.FormatMigrations(migrations))
			return nil
		}
		for _, m := range migrations {
			fmt.Printf("%s -> %s\n", m.Source, m.TargetDir)
		}
		if !organizeDo {
			fmt.Printf("%d run(s) would move. Re-run with --apply to organize.\n", len(migrations))
		} else {
			fmt.Printf("Organized %d run(s).\n", len(migrations))
		}
		return nil
	},
}

func listFromIndex(ctx context.Context, cfg Config) ([]*store.RunIndexEntry, bool) {
	s, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return nil, false
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return nil, false
	}
	entries, err := s.ListRuns(ctx, store.RunFilter{PlanName: historyPlan, Limit: historyLimit})
	if err != nil || len(entries) == 0 {
		return nil, false
	}
	return entries, true
}

func printListing(entries []*store.RunIndexEntry) error {
	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
		}
		fmt.Printf("%s  %-24s %-6s %d/%d  %s\n",
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.PlanName, status, e.CompletedSteps, e.TotalSteps, e.HistoryPath)
	}
	return nil
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
	historyListCmd.Flags().StringVar(&historyPlan, "plan", "", "Filter by plan name")
	historyOrganizeCmd.Flags().BoolVar(&organizeDo, "apply", false, "Actually move files instead of printing the plan")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyQueryCmd, historyOrganizeCmd)
	rootCmd.AddCommand(historyCmd)
}
