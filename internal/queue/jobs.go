package queue

import (
	"time"

	"github.com/meetscribe/meetscribe/internal/types"
)

// Job is one recording moving through the pipeline. Workers mutate it
// through the pool's locked setters only; handlers read snapshots.
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	FilePath    string
	Status      string
	Stage       string
	Error       string
	Outcome     *types.Outcome
	CreatedAt   time.Time
}

// NewJob creates a queued job for an uploaded recording.
func NewJob(id, requestName, sourceType, filePath string) *Job {
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		FilePath:    filePath,
		Status:      types.StatusQueued,
		CreatedAt:   time.Now(),
	}
}

// ProgressEvent is pushed to WebSocket subscribers as a job advances
// through the pipeline stages.
type ProgressEvent struct {
	JobID   string    `json:"job_id"`
	Status  string    `json:"status"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Terminal reports whether no further events will follow.
func (e ProgressEvent) Terminal() bool {
	return e.Status == types.StatusCompleted || e.Status == types.StatusFailed
}
