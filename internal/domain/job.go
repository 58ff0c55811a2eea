package domain

import "time"

// JobStatus enumerates job lifecycle states. Completed, failed and cancelled
// are terminal.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job encapsulates one invocation of the generation pipeline.
type Job struct {
	ID              string
	Request         GenerateRequest
	InputPath       string
	Status          JobStatus
	ProgressPercent int
	ProducedCount   int
	Message         string
	Detail          string
	OutputLocation  string
	ErrorKind       Kind
	CancelRequested bool
	CreatedAt       time.Time
	LastTouched     time.Time
}

// ProgressSample is the snapshot delivered to the host while a job runs.
type ProgressSample struct {
	ProgressPercent int    `json:"progress_percent"`
	Message         string `json:"message"`
	Detail          string `json:"detail"`
	ProducedCount   int    `json:"produced_count"`
}
