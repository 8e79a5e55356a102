package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CollectionStatus is the state of one (repository, month) partition
type CollectionStatus string

const (
	StatusCompleted CollectionStatus = "completed"
	StatusPartial   CollectionStatus = "partial"
	StatusError     CollectionStatus = "error"
)

// CollectionLogEntry records whether a repository's calendar month has been collected.
// Only StatusCompleted entries are skipped by later runs.
type CollectionLogEntry struct {
	Repository   string           `json:"repository"`
	MonthKey     string           `json:"month_key"`
	Status       CollectionStatus `json:"status"`
	CommitCount  int              `json:"commit_count"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	CollectedAt  time.Time        `json:"collected_at"`
}

// IsCompleted reports whether the partition must be skipped.
func (e *CollectionLogEntry) IsCompleted() bool {
	return e != nil && e.Status == StatusCompleted
}

// String returns the JSON string representation of the entry
func (e *CollectionLogEntry) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal collection log entry: %v"}`, err)
	}
	return string(data)
}
