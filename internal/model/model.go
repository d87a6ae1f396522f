package model

import "time"

// Occurrence is a single concrete run of a scheduled action, after
// recurrence expansion and time zone normalization.
type Occurrence struct {
	ActionID string `json:"actionId"`

	// InstanceKey identifies one run of an action, derived from the
	// start time.
	InstanceKey string `json:"instanceKey"`

	Summary     string `json:"summary"`
	Description string `json:"description"`
	Channel     string `json:"channel"`

	// Start is in the configured display time zone.
	Start time.Time `json:"start"`
}

// Event is a calendar entry read from an ICS feed before it becomes a
// scheduled action.
type Event struct {
	SourceID string
	UID      string

	Summary     string
	Description string

	// Start carries the event's own time zone.
	Start    time.Time
	TimeZone string
	RRule    string
}
