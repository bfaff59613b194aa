package models

import "time"

type JobKind string

const (
	JobThumbnail JobKind = "thumbnail"
	JobWelcome   JobKind = "welcome"
)

type JobStatus string

const (
	JobQueued       JobStatus = "queued"
	JobProcessing   JobStatus = "processing"
	JobCompleted    JobStatus = "completed"
	JobFailed       JobStatus = "failed"
	JobDeadLettered JobStatus = "dead_lettered"
)

// Job is a unit of background work persisted in the jobs table.
// Thumbnail jobs carry UserID and FileID; welcome jobs carry UserID only.
type Job struct {
	ID          int64
	Kind        JobKind
	UserID      string
	FileID      string
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	LastError   string
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Exhausted reports whether another attempt would exceed MaxAttempts.
func (j *Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}
