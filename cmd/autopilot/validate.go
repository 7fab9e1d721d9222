package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvera/autopilot/internal/plan"
	"github.com/dvera/autopilot/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan-file>",
	Short: "Validate a plan file without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		validator, err := validation.NewPlanValidator()
		if err != nil {
			return err
		}
		if err := validator.ValidatePlan(p); err != nil {
			return err
		}
		fmt.Printf("Plan %q is valid: %d steps.\n", p.Name, len(p.Steps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
