package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dvera/autopilot/pkg/schema"
)

// Migration describes one flat run file and the folder it moves into.
type Migration struct {
	Source    string `json:"source"`
	TargetDir string `json:"target_dir"`
}

// legacyStampRE matches the flat filename format <YYYYMMDD>_<HHMMSS>_<micro>_<plan>.
var legacyStampRE = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})_\d+_(.+)$`)

// Organize migrates flat <stamp>_<plan>.json run files into readable
// per-run folders (<plan>_<YYYY-MM-DD_HH-MM-SS>/history.json plus an
// about.txt summary). With apply=false nothing is touched; the planned
// migrations are returned either way.
func Organize(dir string, apply bool) ([]Migration, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, schema.NewErrorf(schema.ErrCodeStore, "stat runs dir: %s", err.Error()).WithCause(err)
	}
	if !info.IsDir() {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "%s is not a directory", dir)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "read runs dir: %s", err.Error()).WithCause(err)
	}

	var migrations []Migration
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		source := filepath.Join(dir, de.Name())
		folder := folderNameFor(source)
		target := uniqueDir(dir, folder)
		migrations = append(migrations, Migration{Source: source, TargetDir: target})

		if !apply {
			continue
		}
		if err := migrate(source, target); err != nil {
			return migrations, err
		}
	}
	return migrations, nil
}

// folderNameFor derives a readable folder name, preferring the record's own
// plan name and start time over the filename.
func folderNameFor(path string) string {
	if record, err := Load(path); err == nil && !record.StartedAt.IsZero() {
		return fmt.Sprintf("%s_%s", safePlanName(record.PlanName),
			record.StartedAt.UTC().Format("2006-01-02_15-04-05"))
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := legacyStampRE.FindStringSubmatch(stem); m != nil {
		return fmt.Sprintf("%s_%s-%s-%s_%s-%s-%s", safePlanName(m[7]), m[1], m[2], m[3], m[4], m[5], m[6])
	}
	if len(stem) > 50 {
		stem = stem[:50]
	}
	return "run_" + stem
}

// uniqueDir appends a numeric suffix when the target folder already exists.
func uniqueDir(dir, folder string) string {
	target := filepath.Join(dir, folder)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return target
	}
	for suffix := 1; ; suffix++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d", folder, suffix))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func migrate(source, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "create run folder: %s", err.Error()).WithCause(err)
	}
	dest := filepath.Join(targetDir, "history.json")
	if err := os.Rename(source, dest); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "move run file: %s", err.Error()).WithCause(err)
	}
	writeAbout(targetDir, dest)
	return nil
}

// writeAbout is best-effort; a run folder without about.txt is still valid.
func writeAbout(targetDir, historyPath string) {
	lines := []string{
		"Plan: (unknown)",
		"Legacy run (migrated). Contents: history.json only.",
	}
	if record, err := Load(historyPath); err == nil {
		lines = []string{
			"Plan: " + record.PlanName,
			"Started: " + record.StartedAt.UTC().Format("2006-01-02 15:04:05") + " UTC",
			"Finished: " + record.FinishedAt.UTC().Format("2006-01-02 15:04:05") + " UTC",
			fmt.Sprintf("Success: %t", record.Success),
			fmt.Sprintf("Steps: %d/%d", record.CompletedSteps, record.TotalSteps),
			"",
			"Legacy run (migrated). Contents: history.json only.",
		}
	}
	_ = os.WriteFile(filepath.Join(targetDir, "about.txt"), []byte(strings.Join(lines, "\n")), 0o644)
}

// FormatMigrations renders a migration plan for display.
func FormatMigrations(migrations []Migration) string {
	raw, err := json.MarshalIndent(migrations, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(raw)
}
