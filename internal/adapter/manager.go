package adapter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvera/autopilot/pkg/schema"
)

// PendingTTL is how long a prepared sensitive-action token stays valid.
const PendingTTL = 300 * time.Second

// PendingSensitiveAction is a prepared-but-unconfirmed sensitive action.
// The token authorizes exactly one execution before ExpiresAt.
type PendingSensitiveAction struct {
	Token     string         `json:"token"`
	Adapter   string         `json:"adapter"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Manager is the confirmation/policy gateway in front of all registered
// adapters. It classifies sensitive actions according to the active policy
// profile, issues single-use confirmation tokens, and accumulates telemetry.
//
// A Manager may be shared between a control surface and a background run;
// the pending-token map and policy are mutex-guarded.
type Manager struct {
	logger    *slog.Logger
	telemetry *Tracker

	mu       sync.Mutex
	adapters map[string]Adapter
	policy   schema.PolicyProfile
	pending  map[string]*PendingSensitiveAction
	now      func() time.Time
}

// NewManager creates a Manager with the balanced policy profile.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:    logger,
		telemetry: NewTracker(),
		adapters:  make(map[string]Adapter),
		policy:    schema.PolicyBalanced,
		pending:   make(map[string]*PendingSensitiveAction),
		now:       time.Now,
	}
}

// Register adds an adapter. Duplicate names are rejected.
func (m *Manager) Register(a Adapter) error {
	if a == nil || a.Name() == "" {
		return schema.NewError(schema.ErrCodeValidation, "adapter is nil or unnamed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.adapters[a.Name()]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "adapter %q already registered", a.Name())
	}
	m.adapters[a.Name()] = a
	return nil
}

// ListAdapters returns every adapter's action catalog.
func (m *Manager) ListAdapters() map[string]Library {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Library, len(m.adapters))
	for name, a := range m.adapters {
		lib := make(Library)
		for action, spec := range a.Actions() {
			lib[action] = spec
		}
		out[name] = lib
	}
	return out
}

// SetPolicy validates and stores the policy profile. The new profile affects
// only future calls, never already-prepared tokens.
func (m *Manager) SetPolicy(profile string) (schema.PolicyProfile, error) {
	parsed, err := schema.ParsePolicyProfile(profile)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.policy = parsed
	m.mu.Unlock()
	m.logger.Info("adapter policy changed", slog.String("profile", string(parsed)))
	return parsed, nil
}

// Policy returns the active policy profile.
func (m *Manager) Policy() schema.PolicyProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

// Telemetry returns a snapshot of accumulated action and selector metrics.
func (m *Manager) Telemetry() map[string]any {
	return m.telemetry.Snapshot()
}

// TelemetryTracker exposes the tracker so adapters can record selector
// attempts through TrySelectors.
func (m *Manager) TelemetryTracker() *Tracker {
	return m.telemetry
}

// PrepareSensitiveAction mints a single-use confirmation token for a
// sensitive action. The action must exist and be flagged sensitive.
func (m *Manager) PrepareSensitiveAction(adapterName, action string, params map[string]any) (*PendingSensitiveAction, error) {
	a, spec, err := m.lookup(adapterName, action)
	if err != nil {
		return nil, err
	}
	if !spec.RequiresConfirmation {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"action %s.%s is not sensitive; call it directly", a.Name(), action)
	}

	now := m.now().UTC()
	pending := &PendingSensitiveAction{
		Token:     uuid.New().String(),
		Adapter:   a.Name(),
		Action:    action,
		Params:    params,
		CreatedAt: now,
		ExpiresAt: now.Add(PendingTTL),
	}

	m.mu.Lock()
	m.pending[pending.Token] = pending
	m.mu.Unlock()

	m.logger.Info("sensitive action prepared",
		slog.String("adapter", a.Name()),
		slog.String("adapter_action", action),
		slog.Time("expires_at", pending.ExpiresAt))
	return pending, nil
}

// ConfirmSensitiveAction consumes a confirmation token and executes the
// pending action. The token is deleted whether it succeeds or has expired;
// a token is valid for use at most once and only before its expiry.
func (m *Manager) ConfirmSensitiveAction(ctx context.Context, token string) (any, error) {
	m.mu.Lock()
	pending, ok := m.pending[token]
	if ok {
		delete(m.pending, token)
	}
	m.mu.Unlock()

	if !ok {
		return nil, schema.NewError(schema.ErrCodeToken, "invalid or already used confirmation token")
	}
	if m.now().UTC().After(pending.ExpiresAt) {
		return nil, schema.NewErrorf(schema.ErrCodeToken,
			"confirmation token for %s.%s expired", pending.Adapter, pending.Action)
	}

	m.mu.Lock()
	a := m.adapters[pending.Adapter]
	m.mu.Unlock()
	if a == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "adapter %q no longer registered", pending.Adapter)
	}

	m.logger.Info("sensitive action confirmed",
		slog.String("adapter", pending.Adapter),
		slog.String("adapter_action", pending.Action))
	return m.dispatch(ctx, a, pending.Action, pending.Params)
}

// Call is the normal dispatch path. Sensitive actions are classified by the
// active policy profile: strict rejects an inline confirmed flag entirely,
// trusted auto-confirms, balanced honors the flag as-is. Non-sensitive
// actions ignore policy.
func (m *Manager) Call(ctx context.Context, adapterName, action string, params map[string]any, confirmed bool) (any, error) {
	a, spec, err := m.lookup(adapterName, action)
	if err != nil {
		return nil, err
	}

	if spec.RequiresConfirmation {
		switch m.Policy() {
		case schema.PolicyStrict:
			if confirmed {
				return nil, schema.NewErrorf(schema.ErrCodeConfirmation,
					"strict policy: inline confirmation for %s.%s is rejected; use the prepare/confirm token flow", adapterName, action)
			}
			return nil, schema.NewErrorf(schema.ErrCodeConfirmation,
				"strict policy: %s.%s requires the prepare/confirm token flow", adapterName, action)
		case schema.PolicyTrusted:
			confirmed = true
		}
		if !confirmed {
			return nil, schema.NewErrorf(schema.ErrCodeConfirmation,
				"action %s.%s requires explicit confirmation; re-run with confirmed=true or prepare a token", adapterName, action)
		}
	}

	return m.dispatch(ctx, a, action, params)
}

// dispatch runs an approved action, recording telemetry and running the
// best-effort session check for everything except login-recovery actions.
func (m *Manager) dispatch(ctx context.Context, a Adapter, action string, params map[string]any) (any, error) {
	spec := a.Actions()[action]
	if !spec.LoginRecovery {
		m.warnIfUnauthenticated(ctx, a)
	}

	start := m.now()
	result, err := a.Execute(ctx, action, params)
	m.telemetry.RecordAction(a.Name(), action, m.now().Sub(start), err)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"%s.%s failed: %s", a.Name(), action, err.Error()).WithCause(err)
	}
	return result, nil
}

// warnIfUnauthenticated logs a warning when the adapter's session looks
// unauthenticated. Failures of the check itself never block the call.
func (m *Manager) warnIfUnauthenticated(ctx context.Context, a Adapter) {
	sc, ok := a.(SessionChecker)
	if !ok {
		return
	}
	authed, err := sc.SessionAuthenticated(ctx)
	if err != nil {
		m.logger.Debug("session check failed", slog.String("adapter", a.Name()), slog.String("error", err.Error()))
		return
	}
	if !authed {
		m.logger.Warn("adapter session looks unauthenticated; actions may fail until login",
			slog.String("adapter", a.Name()))
	}
}

// PendingCount reports how many unconsumed tokens exist (expired ones
// included until they are touched).
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manager) lookup(adapterName, action string) (Adapter, ActionSpec, error) {
	m.mu.Lock()
	a, ok := m.adapters[adapterName]
	m.mu.Unlock()
	if !ok {
		return nil, ActionSpec{}, schema.NewErrorf(schema.ErrCodeValidation, "unknown adapter %q", adapterName)
	}
	spec, ok := a.Actions()[action]
	if !ok {
		return nil, ActionSpec{}, schema.NewErrorf(schema.ErrCodeValidation,
			"unknown action %q for adapter %q", action, adapterName)
	}
	return a, spec, nil
}
