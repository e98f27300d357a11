package models

import "time"

// DLQRecord captures a callback record that could not be decoded or validated.
type DLQRecord struct {
	EventID         string    `json:"event_id,omitempty"`
	Topic           string    `json:"topic"`
	Partition       int32     `json:"partition"`
	Offset          int64     `json:"offset"`
	OriginalMessage string    `json:"original_message"`
	LastError       string    `json:"last_error"`
	FailedAt        time.Time `json:"failed_at"`
}
