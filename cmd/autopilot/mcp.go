package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dvera/autopilot/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine over MCP stdio",
	Long:  "Expose run, cancel, history, sensitive-action, and telemetry tools to MCP clients over stdin/stdout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.close()

		srv := mcp.NewAutopilotServer(mcp.AutopilotServerDeps{
			Engine:     a.engine,
			Validator:  a.validator,
			Adapters:   a.adapters,
			Store:      a.store,
			HistoryDir: a.cfg.RunsDir,
			Logger:     a.logger,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
