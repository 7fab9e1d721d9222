package actions

import (
	"context"
	"fmt"
)

// Action is one executable capability reachable from a workflow step.
type Action interface {
	Name() string
	Description() string
	Execute(ctx context.Context, req Request) (any, error)
}

// Request is the data provided to an action at execution time. Args are
// already rendered against the run state.
type Request struct {
	Args  map[string]any
	State StateSink
}

// StateSink lets actions publish engine-reserved state keys, such as
// last_command_exit_code after run_command.
type StateSink interface {
	Put(key string, value any)
}

// discardSink is used when an action runs without an owning engine.
type discardSink struct{}

func (discardSink) Put(string, any) {}

// DiscardState is a StateSink that drops everything.
var DiscardState StateSink = discardSink{}

// funcAction adapts a plain function to the Action interface.
type funcAction struct {
	name        string
	description string
	fn          func(ctx context.Context, req Request) (any, error)
}

func (a *funcAction) Name() string        { return a.name }
func (a *funcAction) Description() string { return a.description }

func (a *funcAction) Execute(ctx context.Context, req Request) (any, error) {
	return a.fn(ctx, req)
}

// NewFunc wraps a function as an Action.
func NewFunc(name, description string, fn func(ctx context.Context, req Request) (any, error)) Action {
	return &funcAction{name: name, description: description, fn: fn}
}

// --- Arg helpers ---

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v), nil
	}
	return s, nil
}

func stringArgDefault(args map[string]any, key, fallback string) string {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func floatArgDefault(args map[string]any, key string, fallback float64) float64 {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return fallback
	}
}

func intArgDefault(args map[string]any, key string, fallback int) int {
	return int(floatArgDefault(args, key, float64(fallback)))
}

func boolArgDefault(args map[string]any, key string, fallback bool) bool {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func mapArg(args map[string]any, key string) (map[string]any, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an object", key)
	}
	return m, nil
}
