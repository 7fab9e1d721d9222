// Package history persists and reads back per-run records: one JSON
// document per run in an append-only directory.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvera/autopilot/pkg/schema"
)

// Writer serializes run records into a runs directory. The filename is
// derived from the run's start timestamp and plan name, so lexical order is
// chronological order.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer rooted at dir. The directory is created lazily
// on first write.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the runs directory.
func (w *Writer) Dir() string { return w.dir }

// Write persists one record and returns the file path.
func (w *Writer) Write(record *schema.RunRecord) (string, error) {
	if record == nil {
		return "", schema.NewError(schema.ErrCodeValidation, "run record is nil")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeStore, "create runs dir: %s", err.Error()).WithCause(err)
	}

	started := record.StartedAt.UTC()
	stamp := fmt.Sprintf("%s_%06d", started.Format("20060102_150405"), started.Nanosecond()/1000)
	name := fmt.Sprintf("%s_%s.json", stamp, safePlanName(record.PlanName))
	path := filepath.Join(w.dir, name)

	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeStore, "encode run record: %s", err.Error()).WithCause(err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeStore, "write run record: %s", err.Error()).WithCause(err)
	}
	return path, nil
}

// safePlanName keeps plan-derived filename parts to a conservative charset.
func safePlanName(plan string) string {
	var b strings.Builder
	for _, r := range plan {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "run"
	}
	return cleaned
}
