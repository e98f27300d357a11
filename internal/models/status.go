package models

import "time"

// Outcome constants published for every processed callback.
const (
	OutcomeDispatched = "dispatched"
	OutcomeSkipped    = "skipped"
	OutcomeNotSent    = "not_sent"
	OutcomeRejected   = "rejected"
)

// OutcomeEvent reports what the worker decided for a callback.
type OutcomeEvent struct {
	EventID    string    `json:"event_id"`
	Identifier string    `json:"identifier"`
	EventType  string    `json:"event_type"`
	Canonical  string    `json:"canonical_event,omitempty"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	TraceID    string    `json:"trace_id,omitempty"`
	Duration   int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
