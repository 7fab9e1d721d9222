package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvera/autopilot/pkg/schema"
)

func sampleRecord(plan string, started time.Time, success bool) *schema.RunRecord {
	return &schema.RunRecord{
		PlanName:       plan,
		StartedAt:      started,
		FinishedAt:     started.Add(5 * time.Second),
		Success:        success,
		CompletedSteps: 2,
		TotalSteps:     2,
		StateSnapshot:  map[string]any{"k": "v"},
		Steps: []schema.StepLog{
			{Index: 1, Action: "log", Status: schema.StepStatusOK},
			{Index: 2, Action: "wait", Status: schema.StepStatusOK},
		},
	}
}

func TestWriterFilenameAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	started := time.Date(2026, 2, 19, 20, 29, 21, 640770000, time.UTC)
	path, err := w.Write(sampleRecord("adapter_ui_call", started, true))
	require.NoError(t, err)

	assert.Equal(t, "20260219_202921_640770_adapter_ui_call.json", filepath.Base(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "adapter_ui_call", loaded.PlanName)
	assert.True(t, loaded.Success)
	assert.Len(t, loaded.Steps, 2)
	assert.Equal(t, "v", loaded.StateSnapshot["k"])
}

func TestWriterSanitizesPlanName(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	path, err := w.Write(sampleRecord("weird/plan name!", time.Now().UTC(), true))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`\d{8}_\d{6}_\d{6}_weird_plan_name\.json$`), path)
}

func TestWriterRejectsNilRecord(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	_, err := w.Write(nil)
	require.Error(t, err)
}

func TestListReturnsRecordsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := w.Write(sampleRecord("second", base.Add(time.Hour), true))
	require.NoError(t, err)
	_, err = w.Write(sampleRecord("first", base, false))
	require.NoError(t, err)

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Record.PlanName)
	assert.Equal(t, "second", entries[1].Record.PlanName)
}

func TestListMissingDirIsEmpty(t *testing.T) {
	entries, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)
	_, err := w.Write(sampleRecord("good", time.Now().UTC(), true))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("not json"), 0o644))

	entries, err := List(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestQuerySelectsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := w.Write(sampleRecord("alpha", base, true))
	require.NoError(t, err)
	_, err = w.Write(sampleRecord("beta", base.Add(time.Minute), false))
	require.NoError(t, err)

	names, err := Query(dir, ".plan_name")
	require.NoError(t, err)
	assert.Equal(t, []any{"alpha", "beta"}, names)

	succeeded, err := Query(dir, "select(.success) | .plan_name")
	require.NoError(t, err)
	assert.Equal(t, []any{"alpha"}, succeeded)

	counts, err := Query(dir, ".steps | length")
	require.NoError(t, err)
	assert.Equal(t, []any{2, 2}, counts)
}

func TestQueryRejectsBadExpression(t *testing.T) {
	_, err := Query(t.TempDir(), ".[unclosed")
	require.Error(t, err)

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestOrganizeDryRunTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)
	path, err := w.Write(sampleRecord("dryrun", time.Now().UTC(), true))
	require.NoError(t, err)

	migrations, err := Organize(dir, false)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, path, migrations[0].Source)

	// File is still where it was.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestOrganizeMovesIntoReadableFolders(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)
	started := time.Date(2026, 2, 19, 20, 29, 21, 0, time.UTC)
	path, err := w.Write(sampleRecord("daily_sync", started, true))
	require.NoError(t, err)

	migrations, err := Organize(dir, true)
	require.NoError(t, err)
	require.Len(t, migrations, 1)

	target := filepath.Join(dir, "daily_sync_2026-02-19_20-29-21")
	assert.Equal(t, target, migrations[0].TargetDir)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	record, err := Load(filepath.Join(target, "history.json"))
	require.NoError(t, err)
	assert.Equal(t, "daily_sync", record.PlanName)

	about, err := os.ReadFile(filepath.Join(target, "about.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(about), "Plan: daily_sync")
	assert.Contains(t, string(about), "Steps: 2/2")

	// Organized folders still show up in List.
	entries, err := List(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOrganizeDeduplicatesTargetFolders(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2026, 2, 19, 20, 29, 21, 0, time.UTC)
	record := sampleRecord("clash", started, true)

	for _, name := range []string{"a_clash.json", "b_clash.json"} {
		raw, err := json.Marshal(record)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o644))
	}

	migrations, err := Organize(dir, true)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.NotEqual(t, migrations[0].TargetDir, migrations[1].TargetDir)
}

func TestFormatMigrations(t *testing.T) {
	out := FormatMigrations([]Migration{{Source: "a.json", TargetDir: "a_dir"}})
	assert.Contains(t, out, "a.json")
	assert.Contains(t, out, "a_dir")
}
