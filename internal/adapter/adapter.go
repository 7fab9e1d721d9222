// Package adapter contains the confirmation/policy gateway that fronts
// per-application action adapters. Concrete adapters (web automation,
// desktop control) live outside this module; they plug in through the
// Adapter interface and are gated here before anything executes.
package adapter

import "context"

// ActionSpec describes one action exposed by an adapter.
type ActionSpec struct {
	Description string `json:"description"`
	// RequiresConfirmation marks the action as sensitive: it may only run
	// with explicit approval, subject to the manager's policy profile.
	RequiresConfirmation bool `json:"requires_confirmation"`
	// LoginRecovery marks the action as the adapter's always-safe login
	// recovery entry point; the pre-dispatch session check is skipped for it.
	LoginRecovery bool `json:"login_recovery,omitempty"`
}

// Adapter is one pluggable application controller.
type Adapter interface {
	Name() string
	// Actions returns the adapter's action catalog keyed by action name.
	Actions() map[string]ActionSpec
	// Execute runs a previously validated action. Confirmation gating is the
	// manager's job; by the time Execute is called the action is approved.
	Execute(ctx context.Context, action string, params map[string]any) (any, error)
}

// SessionChecker is optionally implemented by adapters that can tell whether
// their underlying session looks authenticated. The manager consults it
// best-effort before dispatch; a check failure never blocks the call.
type SessionChecker interface {
	SessionAuthenticated(ctx context.Context) (bool, error)
}

// Library is the serializable action catalog of one adapter, as returned by
// Manager.ListAdapters.
type Library map[string]ActionSpec
