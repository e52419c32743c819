package models

import "time"

// SourceReport holds reconciliation counts for one feed of one property.
type SourceReport struct {
	Source     string `json:"source"`
	Unchanged  bool   `json:"unchanged"`
	EventsSeen int    `json:"events_seen"`
	Malformed  int    `json:"malformed"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Cancelled  int    `json:"cancelled"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// PropertyReport aggregates one property's sync run.
type PropertyReport struct {
	PropertyID   string         `json:"property_id"`
	PropertyName string         `json:"property_name"`
	Sources      []SourceReport `json:"sources,omitempty"`
	Cleanings    int            `json:"cleanings_created"`
	Orders       int            `json:"orders_created"`
	SkippedLock  bool           `json:"skipped_locked,omitempty"`
	Errors       []string       `json:"errors,omitempty"`
}

// RunReport is the structured output of an orchestrator run, returned by the
// trigger endpoints and consumed by operational tooling.
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	ElapsedMS  int64            `json:"elapsed_ms"`
	Properties []PropertyReport `json:"properties"`
	Errors     []string         `json:"errors,omitempty"`

	TotalEvents    int `json:"total_events"`
	TotalCreated   int `json:"total_created"`
	TotalUpdated   int `json:"total_updated"`
	TotalCancelled int `json:"total_cancelled"`
	TotalSkipped   int `json:"total_skipped"`
}

// Totals recomputes the aggregate counters from the per-property reports.
func (r *RunReport) Totals() {
	r.TotalEvents, r.TotalCreated, r.TotalUpdated, r.TotalCancelled, r.TotalSkipped = 0, 0, 0, 0, 0
	for _, p := range r.Properties {
		for _, s := range p.Sources {
			r.TotalEvents += s.EventsSeen
			r.TotalCreated += s.Created
			r.TotalUpdated += s.Updated
			r.TotalCancelled += s.Cancelled
			r.TotalSkipped += s.Skipped
		}
	}
}
