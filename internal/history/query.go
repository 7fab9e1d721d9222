package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/itchyny/gojq"

	"github.com/dvera/autopilot/pkg/schema"
)

// Entry is one run record found on disk.
type Entry struct {
	Path   string
	Record *schema.RunRecord
}

// Load reads a single run record file.
func Load(path string) (*schema.RunRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "read run record: %s", err.Error()).WithCause(err)
	}
	var record schema.RunRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "decode run record %s: %s", path, err.Error()).WithCause(err)
	}
	return &record, nil
}

// List collects every run record under dir, oldest first. Both layouts are
// read: flat <stamp>_<plan>.json files and organized <folder>/history.json.
// Unreadable files are skipped.
func List(dir string) ([]Entry, error) {
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

	var paths []string
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "read runs dir: %s", err.Error()).WithCause(err)
	}
	for _, de := range dirEntries {
		if de.IsDir() {
			nested := filepath.Join(dir, de.Name(), "history.json")
			if _, statErr := os.Stat(nested); statErr == nil {
				paths = append(paths, nested)
			}
			continue
		}
		if filepath.Ext(de.Name()) == ".json" {
			paths = append(paths, filepath.Join(dir, de.Name()))
		}
	}

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		record, loadErr := Load(p)
		if loadErr != nil {
			continue
		}
		entries = append(entries, Entry{Path: p, Record: record})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Record.StartedAt.Before(entries[j].Record.StartedAt)
	})
	return entries, nil
}

// Query runs a jq expression against every run record under dir and returns
// the produced values in run order. The expression sees one record document
// at a time.
func Query(dir, expression string) ([]any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse query %q: %s", expression, err.Error()).WithCause(err)
	}

	entries, err := List(dir)
	if err != nil {
		return nil, err
	}

	var results []any
	for _, entry := range entries {
		doc, convErr := toDocument(entry.Record)
		if convErr != nil {
			continue
		}
		iter := query.Run(doc)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if _, isErr := v.(error); isErr {
				// A record that doesn't match the expression shape is not
				// an error for the query as a whole.
				continue
			}
			results = append(results, v)
		}
	}
	return results, nil
}

// toDocument converts a record to the plain map/slice shape gojq expects.
func toDocument(record *schema.RunRecord) (any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
