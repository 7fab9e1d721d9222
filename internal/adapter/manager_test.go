package adapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvera/autopilot/pkg/schema"
)

// fakeAdapter is a scripted adapter for gateway tests.
type fakeAdapter struct {
	name     string
	specs    map[string]ActionSpec
	executed []string
	result   any
	err      error

	authed  bool
	authErr error
	checked bool
}

func (f *fakeAdapter) Name() string                   { return f.name }
func (f *fakeAdapter) Actions() map[string]ActionSpec { return f.specs }

func (f *fakeAdapter) Execute(_ context.Context, action string, _ map[string]any) (any, error) {
	f.executed = append(f.executed, action)
	return f.result, f.err
}

func (f *fakeAdapter) SessionAuthenticated(context.Context) (bool, error) {
	f.checked = true
	return f.authed, f.authErr
}

func newTestManager(t *testing.T) (*Manager, *fakeAdapter) {
	t.Helper()
	m := NewManager(slog.Default())
	a := &fakeAdapter{
		name:   "notes_web",
		result: "done",
		authed: true,
		specs: map[string]ActionSpec{
			"read_inbox": {Description: "Read inbox"},
			"send_note":  {Description: "Send a note", RequiresConfirmation: true},
			"open_login": {Description: "Open login page", LoginRecovery: true},
		},
	}
	require.NoError(t, m.Register(a))
	return m, a
}

func TestManager_RegisterDuplicate(t *testing.T) {
	m, a := newTestManager(t)
	err := m.Register(a)
	require.Error(t, err)
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeConflict, perr.Code)
}

func TestManager_CallUnknownAdapter(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Call(context.Background(), "nope", "read_inbox", nil, false)
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestManager_CallUnknownAction(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Call(context.Background(), "notes_web", "nope", nil, false)
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestManager_NonSensitiveIgnoresPolicy(t *testing.T) {
	m, a := newTestManager(t)
	_, err := m.SetPolicy("strict")
	require.NoError(t, err)

	result, err := m.Call(context.Background(), "notes_web", "read_inbox", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, []string{"read_inbox"}, a.executed)
}

func TestManager_BalancedHonorsFlag(t *testing.T) {
	m, a := newTestManager(t)

	_, err := m.Call(context.Background(), "notes_web", "send_note", nil, false)
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeConfirmation, perr.Code)
	assert.Empty(t, a.executed)

	_, err = m.Call(context.Background(), "notes_web", "send_note", nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"send_note"}, a.executed)
}

func TestManager_StrictRejectsInlineConfirmed(t *testing.T) {
	m, a := newTestManager(t)
	_, err := m.SetPolicy("strict")
	require.NoError(t, err)

	for _, confirmed := range []bool{true, false} {
		_, err := m.Call(context.Background(), "notes_web", "send_note", nil, confirmed)
		var perr *schema.PilotError
		require.ErrorAs(t, err, &perr, "confirmed=%v", confirmed)
		assert.Equal(t, schema.ErrCodeConfirmation, perr.Code)
	}
	assert.Empty(t, a.executed)
}

func TestManager_TrustedAutoConfirms(t *testing.T) {
	m, a := newTestManager(t)
	_, err := m.SetPolicy("trusted")
	require.NoError(t, err)

	_, err = m.Call(context.Background(), "notes_web", "send_note", nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"send_note"}, a.executed)
}

func TestManager_SetPolicyInvalid(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.SetPolicy("yolo")
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
	assert.Equal(t, schema.PolicyBalanced, m.Policy())
}

func TestManager_PrepareRequiresSensitiveAction(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.PrepareSensitiveAction("notes_web", "read_inbox", nil)
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestManager_TokenLifecycle(t *testing.T) {
	m, a := newTestManager(t)

	pending, err := m.PrepareSensitiveAction("notes_web", "send_note", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, pending.Token)
	assert.Equal(t, "notes_web", pending.Adapter)
	assert.Equal(t, PendingTTL, pending.ExpiresAt.Sub(pending.CreatedAt))
	assert.Equal(t, 1, m.PendingCount())

	result, err := m.ConfirmSensitiveAction(context.Background(), pending.Token)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, []string{"send_note"}, a.executed)
	assert.Zero(t, m.PendingCount())

	// Single use: a second confirm with the same token fails.
	_, err = m.ConfirmSensitiveAction(context.Background(), pending.Token)
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeToken, perr.Code)
}

func TestManager_TokenWorksUnderStrictPolicy(t *testing.T) {
	m, a := newTestManager(t)
	_, err := m.SetPolicy("strict")
	require.NoError(t, err)

	pending, err := m.PrepareSensitiveAction("notes_web", "send_note", nil)
	require.NoError(t, err)

	_, err = m.ConfirmSensitiveAction(context.Background(), pending.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"send_note"}, a.executed)
}

func TestManager_ExpiredTokenEvicted(t *testing.T) {
	m, a := newTestManager(t)

	pending, err := m.PrepareSensitiveAction("notes_web", "send_note", nil)
	require.NoError(t, err)

	// Advance the manager's clock past the TTL.
	m.now = func() time.Time { return pending.ExpiresAt.Add(time.Second) }

	_, err = m.ConfirmSensitiveAction(context.Background(), pending.Token)
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeToken, perr.Code)
	assert.Zero(t, m.PendingCount())
	assert.Empty(t, a.executed)
}

func TestManager_ConfirmUnknownToken(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.ConfirmSensitiveAction(context.Background(), "no-such-token")
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeToken, perr.Code)
}

func TestManager_ExecutionErrorWrapped(t *testing.T) {
	m, a := newTestManager(t)
	a.err = errors.New("page not found")

	_, err := m.Call(context.Background(), "notes_web", "read_inbox", nil, false)
	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeExecution, perr.Code)
	assert.Contains(t, perr.Message, "page not found")
}

func TestManager_SessionCheckSkippedForLoginRecovery(t *testing.T) {
	m, a := newTestManager(t)

	_, err := m.Call(context.Background(), "notes_web", "open_login", nil, false)
	require.NoError(t, err)
	assert.False(t, a.checked)

	_, err = m.Call(context.Background(), "notes_web", "read_inbox", nil, false)
	require.NoError(t, err)
	assert.True(t, a.checked)
}

func TestManager_SessionCheckFailureNeverBlocks(t *testing.T) {
	m, a := newTestManager(t)
	a.authErr = errors.New("page closed")

	_, err := m.Call(context.Background(), "notes_web", "read_inbox", nil, false)
	require.NoError(t, err)
}

func TestManager_TelemetryAccumulates(t *testing.T) {
	m, a := newTestManager(t)

	_, _ = m.Call(context.Background(), "notes_web", "read_inbox", nil, false)
	a.err = errors.New("boom")
	_, _ = m.Call(context.Background(), "notes_web", "read_inbox", nil, false)

	snap := m.Telemetry()
	actions := snap["actions"].(map[string]ActionMetric)
	metric := actions["notes_web.read_inbox"]
	assert.Equal(t, int64(2), metric.Count)
	assert.Equal(t, int64(1), metric.Success)
	assert.Equal(t, int64(1), metric.Failure)
	assert.Equal(t, "boom", metric.LastError)
}
