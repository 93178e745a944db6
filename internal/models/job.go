package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a scrape job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusStarted   JobStatus = "started"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// MaxErrorMessageLen caps error strings persisted on jobs and queue rows
const MaxErrorMessageLen = 500

// ScrapeJob records one scrape attempt. Rows are immutable history:
// status moves forward but jobs are never deleted.
type ScrapeJob struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Status       JobStatus  `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// NewScrapeJob creates a pending job for a URL
func NewScrapeJob(url string) *ScrapeJob {
	return &ScrapeJob{
		ID:        uuid.New().String(),
		URL:       url,
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkStarted transitions the job to started
func (j *ScrapeJob) MarkStarted() {
	now := time.Now().UTC()
	j.Status = JobStatusStarted
	j.StartedAt = &now
}

// MarkCompleted transitions the job to completed
func (j *ScrapeJob) MarkCompleted() {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
}

// MarkFailed transitions the job to failed with a truncated error message
func (j *ScrapeJob) MarkFailed(msg string) {
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.ErrorMessage = TruncateErrorMessage(msg)
}

// TruncateErrorMessage trims an error string to the persisted limit
func TruncateErrorMessage(msg string) string {
	if len(msg) > MaxErrorMessageLen {
		return msg[:MaxErrorMessageLen]
	}
	return msg
}
