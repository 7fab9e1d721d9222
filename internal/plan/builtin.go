package plan

import (
	"fmt"
	"strings"

	"github.com/dvera/autopilot/pkg/schema"
)

// SearchWorkflow builds a one-step Google search plan.
func SearchWorkflow(query string) *schema.WorkflowPlan {
	return &schema.WorkflowPlan{
		Name:        "search",
		Description: fmt.Sprintf("Search Google for: %s", query),
		Steps: []schema.TaskStep{
			{
				Action:      "search_google",
				Args:        map[string]any{"query": query},
				Description: fmt.Sprintf("Search Google for '%s'", query),
			},
		},
	}
}

// wellKnownTargets maps friendly names to URLs for OpenTargetWorkflow.
var wellKnownTargets = map[string]string{
	"overleaf": "https://www.overleaf.com",
	"casa":     "https://www.casa.ai",
	"casa ai":  "https://www.casa.ai",
	"grok":     "https://grok.com",
	"deepseek": "https://chat.deepseek.com",
}

// OpenTargetWorkflow opens an application or website by friendly name.
func OpenTargetWorkflow(target string) *schema.WorkflowPlan {
	normalized := strings.ToLower(strings.TrimSpace(target))
	switch normalized {
	case "vscode", "vs code", "code":
		return &schema.WorkflowPlan{
			Name:        "open_vscode",
			Description: "Open Visual Studio Code.",
			Steps: []schema.TaskStep{
				{Action: "open_vscode", Description: "Open VS Code"},
			},
		}
	}
	if url, ok := wellKnownTargets[normalized]; ok {
		target = url
	}
	return &schema.WorkflowPlan{
		Name:        "open_target",
		Description: fmt.Sprintf("Open target: %s", target),
		Steps: []schema.TaskStep{
			{
				Action:      "open_url",
				Args:        map[string]any{"url": target},
				Description: fmt.Sprintf("Open %s", target),
			},
		},
	}
}

// WebsiteBuilderWorkflow opens the coding stack and preps a build loop.
func WebsiteBuilderWorkflow(topic string) *schema.WorkflowPlan {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "new product"
	}
	return &schema.WorkflowPlan{
		Name:        "website_builder",
		Description: "Open your coding stack and prep a website build flow.",
		Steps: []schema.TaskStep{
			{Action: "open_vscode", Description: "Open VS Code"},
			{Action: "open_url", Args: map[string]any{"url": "https://www.casa.ai"}, Description: "Open CASA AI"},
			{Action: "open_url", Args: map[string]any{"url": "https://grok.com"}, Description: "Open Grok"},
			{
				Action:      "search_google",
				Args:        map[string]any{"query": fmt.Sprintf("best modern website layout ideas for %s", topic)},
				Description: "Gather design references",
			},
			{
				Action:      "log",
				Args:        map[string]any{"message": "Workspace is ready. Next loop: ask CASA/Grok for code, run in browser, capture errors, iterate."},
				Description: "Log next action guidance",
			},
		},
	}
}

// ResearchPaperWorkflow opens research tools and preps a paper draft flow.
func ResearchPaperWorkflow(topic string) *schema.WorkflowPlan {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "AI systems"
	}
	return &schema.WorkflowPlan{
		Name:        "research_paper",
		Description: "Open research tools and prep paper draft flow.",
		Steps: []schema.TaskStep{
			{Action: "open_url", Args: map[string]any{"url": "https://grok.com"}, Description: "Open Grok"},
			{Action: "open_url", Args: map[string]any{"url": "https://chat.deepseek.com"}, Description: "Open DeepSeek"},
			{Action: "open_url", Args: map[string]any{"url": "https://www.overleaf.com"}, Description: "Open Overleaf"},
			{
				Action:      "search_google",
				Args:        map[string]any{"query": fmt.Sprintf("latest peer-reviewed references on %s", topic)},
				Description: "Collect supporting references",
			},
			{
				Action:      "log",
				Args:        map[string]any{"message": "Research stack is open. Prompt an LLM for LaTeX draft and paste into Overleaf for compilation."},
				Description: "Log paper drafting guidance",
			},
		},
	}
}

// ConsoleFixAssistWorkflow opens a local app and gathers console diagnostics.
func ConsoleFixAssistWorkflow(localURL string) *schema.WorkflowPlan {
	if localURL == "" {
		localURL = "http://localhost:3000"
	}
	return &schema.WorkflowPlan{
		Name:        "console_fix_assist",
		Description: "Open local app and gather console diagnostics.",
		Steps: []schema.TaskStep{
			{Action: "open_url", Args: map[string]any{"url": localURL}, Description: "Open local app"},
			{Action: "wait", Args: map[string]any{"seconds": 2}, Description: "Wait for app to settle"},
			{
				Action:      "browser_read_console_errors",
				SaveAs:      "console_errors",
				Description: "Capture browser console-like errors",
			},
			{
				Action:      "clipboard_set",
				Args:        map[string]any{"text": "{console_errors}"},
				Description: "Copy captured errors to clipboard",
			},
			{
				Action:      "log",
				Args:        map[string]any{"message": "Console errors copied to clipboard. Paste into your coding assistant to request a fix."},
				Description: "Log next action guidance",
			},
		},
	}
}

// Builtin returns the catalog of ready-made workflows keyed by name.
func Builtin() map[string]*schema.WorkflowPlan {
	return map[string]*schema.WorkflowPlan{
		"website_builder":    WebsiteBuilderWorkflow(""),
		"research_paper":     ResearchPaperWorkflow(""),
		"console_fix_assist": ConsoleFixAssistWorkflow(""),
	}
}
