package domain

import "time"

// JobStatus is the lifecycle state of a background job. Workers outside this service drive it.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Cancellable reports whether a job in this status may still be cancelled.
func (s JobStatus) Cancellable() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// Retryable reports whether a job in this status may be re-queued.
func (s JobStatus) Retryable() bool {
	return s == JobStatusFailed || s == JobStatusCancelled
}

// Terminal reports whether the job has finished one way or another.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is a background task record.
type Job struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	BrandID         *int64     `db:"brand_id" json:"brand_id,omitempty"`
	JobType         string     `db:"job_type" json:"job_type"`
	Status          JobStatus  `db:"status" json:"status"`
	ProgressPercent int        `db:"progress_percent" json:"progress_percent"`
	ProgressMessage *string    `db:"progress_message" json:"progress_message,omitempty"`
	InputData       RawJSON    `db:"input_data" json:"input_data,omitempty"`
	OutputData      RawJSON    `db:"output_data" json:"output_data,omitempty"`
	ErrorData       RawJSON    `db:"error_data" json:"error_data,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
