package actions

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvera/autopilot/internal/adapter"
	"github.com/dvera/autopilot/pkg/schema"
)

type stubAdapter struct {
	calls []string
}

func (a *stubAdapter) Name() string { return "notes_web" }

func (a *stubAdapter) Actions() map[string]adapter.ActionSpec {
	return map[string]adapter.ActionSpec{
		"read_inbox": {Description: "Read the inbox"},
		"send_note":  {Description: "Send a note", RequiresConfirmation: true},
	}
}

func (a *stubAdapter) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	a.calls = append(a.calls, action)
	return "done:" + action, nil
}

func adapterRegistry(t *testing.T) (*Registry, *adapter.Manager, *stubAdapter) {
	t.Helper()
	mgr := adapter.NewManager(slog.Default())
	stub := &stubAdapter{}
	require.NoError(t, mgr.Register(stub))

	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg, Deps{Clipboard: &memClipboard{}, Adapters: mgr}))
	return reg, mgr, stub
}

func TestAdapterListActions(t *testing.T) {
	reg, _, _ := adapterRegistry(t)

	result, err := run(t, reg, "adapter_list_actions", nil, nil)
	require.NoError(t, err)

	libs, ok := result.(map[string]adapter.Library)
	require.True(t, ok)
	require.Contains(t, libs, "notes_web")
	assert.True(t, libs["notes_web"]["send_note"].RequiresConfirmation)
}

func TestAdapterCallDispatches(t *testing.T) {
	reg, _, stub := adapterRegistry(t)

	result, err := run(t, reg, "adapter_call", map[string]any{
		"adapter":        "notes_web",
		"adapter_action": "read_inbox",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "done:read_inbox", result)
	assert.Equal(t, []string{"read_inbox"}, stub.calls)
}

func TestAdapterCallSensitiveNeedsConfirmation(t *testing.T) {
	reg, _, stub := adapterRegistry(t)

	_, err := run(t, reg, "adapter_call", map[string]any{
		"adapter":        "notes_web",
		"adapter_action": "send_note",
	}, nil)
	require.Error(t, err)

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeConfirmation, perr.Code)
	assert.Empty(t, stub.calls)

	result, err := run(t, reg, "adapter_call", map[string]any{
		"adapter":        "notes_web",
		"adapter_action": "send_note",
		"confirmed":      true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "done:send_note", result)
}

func TestAdapterSetPolicyWritesState(t *testing.T) {
	reg, mgr, _ := adapterRegistry(t)
	sink := newMemSink()

	result, err := run(t, reg, "adapter_set_policy", map[string]any{"profile": "strict"}, sink)
	require.NoError(t, err)
	assert.Equal(t, "strict", result)
	assert.Equal(t, "strict", sink.get("adapter_policy_profile"))
	assert.Equal(t, schema.PolicyStrict, mgr.Policy())

	_, err = run(t, reg, "adapter_set_policy", map[string]any{"profile": "yolo"}, sink)
	require.Error(t, err)
	assert.Equal(t, schema.PolicyStrict, mgr.Policy())
}

func TestAdapterPrepareAndConfirmFlow(t *testing.T) {
	reg, mgr, stub := adapterRegistry(t)
	sink := newMemSink()

	result, err := run(t, reg, "adapter_prepare_sensitive", map[string]any{
		"adapter":        "notes_web",
		"adapter_action": "send_note",
		"params":         map[string]any{"to": "ada"},
	}, sink)
	require.NoError(t, err)

	summary, ok := result.(map[string]any)
	require.True(t, ok)
	token, _ := summary["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, summary, sink.get("last_sensitive_prepare"))
	assert.Equal(t, 1, mgr.PendingCount())

	confirmed, err := run(t, reg, "adapter_confirm_sensitive", map[string]any{"token": token}, nil)
	require.NoError(t, err)
	assert.Equal(t, "done:send_note", confirmed)
	assert.Equal(t, []string{"send_note"}, stub.calls)
	assert.Equal(t, 0, mgr.PendingCount())

	// Tokens are single use.
	_, err = run(t, reg, "adapter_confirm_sensitive", map[string]any{"token": token}, nil)
	require.Error(t, err)
}

func TestAdapterConfirmRequiresToken(t *testing.T) {
	reg, _, _ := adapterRegistry(t)

	_, err := run(t, reg, "adapter_confirm_sensitive", map[string]any{"token": ""}, nil)
	require.Error(t, err)

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestAdapterGetTelemetry(t *testing.T) {
	reg, _, _ := adapterRegistry(t)

	_, err := run(t, reg, "adapter_call", map[string]any{
		"adapter":        "notes_web",
		"adapter_action": "read_inbox",
	}, nil)
	require.NoError(t, err)

	result, err := run(t, reg, "adapter_get_telemetry", nil, nil)
	require.NoError(t, err)

	snap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, snap, "actions")
	assert.Contains(t, snap, "selectors")
}
