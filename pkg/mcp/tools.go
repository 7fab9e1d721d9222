package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dvera/autopilot/internal/history"
	"github.com/dvera/autopilot/internal/plan"
	"github.com/dvera/autopilot/internal/store"
	"github.com/dvera/autopilot/pkg/schema"
)

// handleRun executes one of the built-in workflows.
func (s *AutopilotServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflow, err := req.RequireString("workflow")
	if err != nil {
		return mcp.NewToolResultError("workflow is required"), nil
	}
	param := req.GetString("param", "")

	var p *schema.WorkflowPlan
	switch workflow {
	case "search":
		if param == "" {
			return mcp.NewToolResultError("param is required for the search workflow"), nil
		}
		p = plan.SearchWorkflow(param)
	case "open_target":
		if param == "" {
			return mcp.NewToolResultError("param is required for the open_target workflow"), nil
		}
		p = plan.OpenTargetWorkflow(param)
	case "website_builder":
		p = plan.WebsiteBuilderWorkflow(param)
	case "research_paper":
		p = plan.ResearchPaperWorkflow(param)
	case "console_fix_assist":
		p = plan.ConsoleFixAssistWorkflow(param)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown workflow %q", workflow)), nil
	}

	return s.runPlan(ctx, p)
}

// handleRunPlan executes an inline plan document.
func (s *AutopilotServer) handleRunPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := mcp.ParseStringMap(req, "plan", nil)
	if doc == nil {
		return mcp.NewToolResultError("plan is required"), nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid plan document: %v", err)), nil
	}
	p, parseErr := plan.ParseJSON(raw)
	if parseErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid plan document: %v", parseErr)), nil
	}

	return s.runPlan(ctx, p)
}

// runPlan validates, executes, and indexes a plan, then returns a run summary.
func (s *AutopilotServer) runPlan(ctx context.Context, p *schema.WorkflowPlan) (*mcp.CallToolResult, error) {
	if s.validator != nil {
		if err := s.validator.ValidatePlan(p); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("plan validation failed: %v", err)), nil
		}
	}

	started := time.Now().UTC()
	result, runErr := s.engine.RunPlan(ctx, p)
	if runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow execution failed: %v", runErr)), nil
	}

	historyPath, _ := result.State["last_run_history_path"].(string)
	s.indexRun(ctx, p, result, started, historyPath)

	return marshalResult(map[string]any{
		"plan_name":       p.Name,
		"success":         result.Success,
		"completed_steps": result.CompletedSteps,
		"total_steps":     result.TotalSteps,
		"history_path":    historyPath,
	})
}

// indexRun records the run in the queryable index. Failures are logged; the
// run itself already succeeded or failed on its own terms.
func (s *AutopilotServer) indexRun(ctx context.Context, p *schema.WorkflowPlan, result *schema.ExecutionResult, started time.Time, historyPath string) {
	if s.store == nil {
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
		HistoryPath:    historyPath,
	}
	if lastErr, ok := result.State["last_error"].(string); ok {
		entry.LastError = lastErr
	}

	if err := s.store.IndexRun(ctx, entry); err != nil {
		s.logger.Warn("failed to index run", "plan", p.Name, "error", err)
	}
}

// handleCancel flags the current run for cancellation.
func (s *AutopilotServer) handleCancel(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.Cancel()
	return marshalResult(map[string]any{
		"ok":        true,
		"cancelled": true,
	})
}

// handleHistory lists run summaries or evaluates a jq expression over records.
func (s *AutopilotServer) handleHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError("mode is required"), nil
	}

	switch mode {
	case "list":
		limit := req.GetInt("limit", 20)
		entries, listErr := history.List(s.historyDir)
		if listErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history listing failed: %v", listErr)), nil
		}
		// Newest first, capped at limit.
		summaries := make([]map[string]any, 0, limit)
		for i := len(entries) - 1; i >= 0 && len(summaries) < limit; i-- {
			e := entries[i]
			summaries = append(summaries, map[string]any{
				"path":            e.Path,
				"plan_name":       e.Record.PlanName,
				"started_at":      e.Record.StartedAt,
				"success":         e.Record.Success,
				"completed_steps": e.Record.CompletedSteps,
				"total_steps":     e.Record.TotalSteps,
			})
		}
		return marshalResult(summaries)

	case "query":
		expression := req.GetString("expression", "")
		if expression == "" {
			return mcp.NewToolResultError("expression is required for query mode"), nil
		}
		results, queryErr := history.Query(s.historyDir, expression)
		if queryErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history query failed: %v", queryErr)), nil
		}
		return marshalResult(results)

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q", mode)), nil
	}
}

// handleSensitive manages confirmation tokens and the active policy profile.
func (s *AutopilotServer) handleSensitive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.adapters == nil {
		return mcp.NewToolResultError("no adapter gateway configured"), nil
	}

	operation, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError("operation is required"), nil
	}

	switch operation {
	case "prepare":
		adapterName := req.GetString("adapter", "")
		action := req.GetString("action", "")
		if adapterName == "" || action == "" {
			return mcp.NewToolResultError("adapter and action are required for prepare"), nil
		}
		params := mcp.ParseStringMap(req, "params", nil)
		pending, prepErr := s.adapters.PrepareSensitiveAction(adapterName, action, params)
		if prepErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("prepare failed: %v", prepErr)), nil
		}
		return marshalResult(pending)

	case "confirm":
		token := req.GetString("token", "")
		if token == "" {
			return mcp.NewToolResultError("token is required for confirm"), nil
		}
		result, confirmErr := s.adapters.ConfirmSensitiveAction(ctx, token)
		if confirmErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("confirm failed: %v", confirmErr)), nil
		}
		return marshalResult(map[string]any{
			"ok":     true,
			"result": result,
		})

	case "set_policy":
		profile := req.GetString("profile", "")
		if profile == "" {
			return mcp.NewToolResultError("profile is required for set_policy"), nil
		}
		applied, policyErr := s.adapters.SetPolicy(profile)
		if policyErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("set_policy failed: %v", policyErr)), nil
		}
		return marshalResult(map[string]any{
			"ok":     true,
			"policy": string(applied),
		})

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown operation %q", operation)), nil
	}
}

// handleTelemetry returns adapter usage counters and the active policy profile.
func (s *AutopilotServer) handleTelemetry(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.adapters == nil {
		return mcp.NewToolResultError("no adapter gateway configured"), nil
	}
	return marshalResult(map[string]any{
		"policy":                string(s.adapters.Policy()),
		"pending_confirmations": s.adapters.PendingCount(),
		"telemetry":             s.adapters.Telemetry(),
	})
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
