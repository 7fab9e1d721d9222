package adapter

import (
	"sync"
	"time"
)

// ActionMetric accumulates outcome counters for one adapter action.
// Counters are monotonic for the lifetime of the owning Tracker.
type ActionMetric struct {
	Count         int64   `json:"count"`
	Success       int64   `json:"success"`
	Failure       int64   `json:"failure"`
	TotalDuration float64 `json:"total_duration_s"`
	LastError     string  `json:"last_error,omitempty"`
}

// SelectorMetric accumulates outcome counters for one selector string.
type SelectorMetric struct {
	Count         int64   `json:"count"`
	Success       int64   `json:"success"`
	Failure       int64   `json:"failure"`
	TotalDuration float64 `json:"total_duration_s"`
	LastError     string  `json:"last_error,omitempty"`
}

// Tracker collects per-action and per-selector metrics across all adapters.
type Tracker struct {
	mu        sync.Mutex
	actions   map[string]*ActionMetric
	selectors map[string]*SelectorMetric
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		actions:   make(map[string]*ActionMetric),
		selectors: make(map[string]*SelectorMetric),
	}
}

// RecordAction records one dispatch outcome under "adapter.action".
func (t *Tracker) RecordAction(adapterName, action string, dur time.Duration, err error) {
	key := adapterName + "." + action
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.actions[key]
	if m == nil {
		m = &ActionMetric{}
		t.actions[key] = m
	}
	m.Count++
	m.TotalDuration += dur.Seconds()
	if err != nil {
		m.Failure++
		m.LastError = err.Error()
	} else {
		m.Success++
	}
}

// RecordSelector records one selector attempt outcome.
func (t *Tracker) RecordSelector(selector string, dur time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.selectors[selector]
	if m == nil {
		m = &SelectorMetric{}
		t.selectors[selector] = m
	}
	m.Count++
	m.TotalDuration += dur.Seconds()
	if err != nil {
		m.Failure++
		m.LastError = err.Error()
	} else {
		m.Success++
	}
}

// Snapshot returns a copy of all metrics, safe to serialize.
func (t *Tracker) Snapshot() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	actions := make(map[string]ActionMetric, len(t.actions))
	for k, m := range t.actions {
		actions[k] = *m
	}
	selectors := make(map[string]SelectorMetric, len(t.selectors))
	for k, m := range t.selectors {
		selectors[k] = *m
	}
	return map[string]any{
		"actions":   actions,
		"selectors": selectors,
	}
}
