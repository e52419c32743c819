package models

import "time"

// SyncExclusion prevents sync from re-creating a booking or cleaning for a
// property+day that an operator cancelled on purpose. A nil Source matches
// every source.
type SyncExclusion struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id" validate:"required"`
	Day        string    `json:"day" validate:"required,datetime=2006-01-02"`
	Source     *string   `json:"source,omitempty"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Matches reports whether the exclusion suppresses the given day+source.
func (e *SyncExclusion) Matches(day, source string) bool {
	if e.Day != day {
		return false
	}
	return e.Source == nil || *e.Source == source
}
