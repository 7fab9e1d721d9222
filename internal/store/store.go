// Package store maintains a queryable index of past runs in an embedded
// libSQL database. The JSON history files stay the source of truth; the
// index exists so runs can be listed and filtered without scanning the
// runs directory.
package store

import (
	"context"
	"time"
)

// RunIndexEntry is one indexed run.
type RunIndexEntry struct {
	ID             string    `json:"id"`
	PlanName       string    `json:"plan_name"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Success        bool      `json:"success"`
	CompletedSteps int       `json:"completed_steps"`
	TotalSteps     int       `json:"total_steps"`
	HistoryPath    string    `json:"history_path"`
	CreatedAt      time.Time `json:"created_at"`
	LastError      string    `json:"last_error,omitempty"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	PlanName string
	Success  *bool
	Since    *time.Time
	Limit    int
	Offset   int
}

// Store is the run index persistence boundary.
type Store interface {
	IndexRun(ctx context.Context, entry *RunIndexEntry) error
	GetRun(ctx context.Context, id string) (*RunIndexEntry, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunIndexEntry, error)
	DeleteRun(ctx context.Context, id string) error
	Close() error
}
