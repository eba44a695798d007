package core

import (
	"time"
)

// CycleKind distinguishes the work a trigger asks for.
type CycleKind string

const (
	// CyclePoll fetches, reconciles and notifies.
	CyclePoll CycleKind = "poll"
	// CycleCleanup fetches and prunes the seen set without notifying.
	CycleCleanup CycleKind = "cleanup"
)

// Run represents a single execution of a poll or cleanup cycle
type Run struct {
	ID          string       `json:"id" yaml:"id"`
	Kind        CycleKind    `json:"kind" yaml:"kind"`
	TriggerType string       `json:"trigger_type" yaml:"trigger_type"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Status      RunStatus    `json:"status" yaml:"status"`
	Targets     int          `json:"targets" yaml:"targets"`
	Discounts   int          `json:"discounts" yaml:"discounts"`
	SourceFails int          `json:"source_failures" yaml:"source_failures"`
	Notified    int          `json:"notified" yaml:"notified"`
	NotifyFails int          `json:"notify_failures" yaml:"notify_failures"`
	Added       []string     `json:"added,omitempty" yaml:"added,omitempty"`
	Removed     []string     `json:"removed,omitempty" yaml:"removed,omitempty"`
	SeenCount   int          `json:"seen_count" yaml:"seen_count"`
	Errors      []CycleError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// RunStatus represents the current state of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusDegraded  RunStatus = "degraded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// CycleError tracks errors that occur during a cycle
type CycleError struct {
	Stage      string    `json:"stage" yaml:"stage"` // "fetch", "quality", "persist", "notify"
	Error      string    `json:"error" yaml:"error"`
	OccurredAt time.Time `json:"occurred_at" yaml:"occurred_at"`
}

// AddError records err against the run.
func (r *Run) AddError(stage string, err error) {
	if r == nil || err == nil {
		return
	}
	r.Errors = append(r.Errors, CycleError{
		Stage:      stage,
		Error:      err.Error(),
		OccurredAt: time.Now().UTC(),
	})
}

// Complete marks the run finished with status.
func (r *Run) Complete(status RunStatus) {
	completedAt := time.Now().UTC()
	r.CompletedAt = &completedAt
	r.Status = status
}
