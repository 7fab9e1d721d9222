package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dvera/autopilot/internal/adapter"
	"github.com/dvera/autopilot/internal/engine"
	"github.com/dvera/autopilot/internal/store"
	"github.com/dvera/autopilot/internal/validation"
)

// AutopilotServerDeps holds the dependencies for creating an AutopilotServer.
type AutopilotServerDeps struct {
	Engine     *engine.Engine
	Validator  *validation.PlanValidator
	Adapters   *adapter.Manager
	Store      store.Store
	HistoryDir string
	Logger     *slog.Logger
}

// AutopilotServer wraps an MCP server with autopilot-specific tool handlers.
// A single Engine backs the whole session, so runs are sequential and the
// cancel tool always targets the run in flight.
type AutopilotServer struct {
	engine     *engine.Engine
	validator  *validation.PlanValidator
	adapters   *adapter.Manager
	store      store.Store
	historyDir string
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// NewAutopilotServer creates a new AutopilotServer with all 6 tools registered.
func NewAutopilotServer(deps AutopilotServerDeps) *AutopilotServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &AutopilotServer{
		engine:     deps.Engine,
		validator:  deps.Validator,
		adapters:   deps.Adapters,
		store:      deps.Store,
		historyDir: deps.HistoryDir,
		logger:     logger,
	}

	mcpSrv := server.NewMCPServer(
		"autopilot",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Autopilot executes desktop and web workflow plans on the local machine. Use autopilot.run for built-in workflows, autopilot.run_plan for an inline plan, autopilot.cancel to stop the current run, autopilot.history to inspect past runs, autopilot.sensitive to manage confirmation tokens and policy, and autopilot.telemetry for adapter usage counters."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *AutopilotServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *AutopilotServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 6 registered MCP tools as ServerTool entries.
func (s *AutopilotServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: runPlanTool(), Handler: s.handleRunPlan},
		{Tool: cancelTool(), Handler: s.handleCancel},
		{Tool: historyTool(), Handler: s.handleHistory},
		{Tool: sensitiveTool(), Handler: s.handleSensitive},
		{Tool: telemetryTool(), Handler: s.handleTelemetry},
	}
}

// --- Tool definitions ---

func runTool() mcp.Tool {
	return mcp.NewTool("autopilot.run",
		mcp.WithDescription("Execute a built-in workflow"),
		mcp.WithString("workflow", mcp.Required(),
			mcp.Enum("search", "open_target", "website_builder", "research_paper", "console_fix_assist"),
			mcp.Description("Name of the built-in workflow to execute"),
		),
		mcp.WithString("param", mcp.Description("Workflow parameter: search query, open target, site topic, paper topic, or local URL")),
	)
}

func runPlanTool() mcp.Tool {
	return mcp.NewTool("autopilot.run_plan",
		mcp.WithDescription("Execute an inline workflow plan"),
		mcp.WithObject("plan", mcp.Required(), mcp.Description("Plan document with name, optional description, and a steps array")),
	)
}

func cancelTool() mcp.Tool {
	return mcp.NewTool("autopilot.cancel",
		mcp.WithDescription("Request cancellation of the workflow run currently in flight"),
	)
}

func historyTool() mcp.Tool {
	return mcp.NewTool("autopilot.history",
		mcp.WithDescription("Inspect past workflow runs"),
		mcp.WithString("mode", mcp.Required(),
			mcp.Enum("list", "query"),
			mcp.Description("list returns run summaries, query evaluates a jq expression against each run record"),
		),
		mcp.WithString("expression", mcp.Description("jq expression (required for query mode)")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return in list mode (default 20)")),
	)
}

func sensitiveTool() mcp.Tool {
	return mcp.NewTool("autopilot.sensitive",
		mcp.WithDescription("Manage sensitive-action confirmation and the active policy profile"),
		mcp.WithString("operation", mcp.Required(),
			mcp.Enum("prepare", "confirm", "set_policy"),
			mcp.Description("Operation to perform"),
		),
		mcp.WithString("adapter", mcp.Description("Adapter name (prepare)")),
		mcp.WithString("action", mcp.Description("Adapter action name (prepare)")),
		mcp.WithObject("params", mcp.Description("Action parameters (prepare)")),
		mcp.WithString("token", mcp.Description("Confirmation token (confirm)")),
		mcp.WithString("profile", mcp.Enum("strict", "balanced", "trusted"), mcp.Description("Policy profile (set_policy)")),
	)
}

func telemetryTool() mcp.Tool {
	return mcp.NewTool("autopilot.telemetry",
		mcp.WithDescription("Return adapter usage counters and the current policy profile"),
	)
}
