package models

import (
	"errors"
	"time"
)

// QueueStatus represents the frontier state of a queued URL
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusDone       QueueStatus = "done"
	QueueStatusFailed     QueueStatus = "failed"
)

// PoisonThreshold is the processing_count at or below which a URL is
// permanently skipped. Each failure decrements the counter; a success
// resets it to 1.
const PoisonThreshold = -5

// Enqueue rejections. Tested with errors.Is at admission boundaries.
var (
	ErrQueueFull      = errors.New("queue is full")
	ErrAlreadyDone    = errors.New("url already done")
	ErrPoisoned       = errors.New("url permanently skipped")
	ErrFilterExcluded = errors.New("url excluded by filter")
	ErrNotRunning     = errors.New("spider is not running")
)

// Reason codes reported at the API boundary
const (
	ReasonQueueFull      = "queue_full"
	ReasonAlreadyDone    = "already_done"
	ReasonPoisoned       = "poisoned"
	ReasonFilterExcluded = "filter_excluded"
	ReasonNotRunning     = "not_running"
	ReasonFetchFailed    = "fetch_failed"
	ReasonParseFailed    = "parse_failed"
)

// AdmitReason maps an enqueue rejection to its boundary reason code.
// Unrecognized errors fall through to their message.
func AdmitReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQueueFull):
		return ReasonQueueFull
	case errors.Is(err, ErrAlreadyDone):
		return ReasonAlreadyDone
	case errors.Is(err, ErrPoisoned):
		return ReasonPoisoned
	case errors.Is(err, ErrFilterExcluded):
		return ReasonFilterExcluded
	case errors.Is(err, ErrNotRunning):
		return ReasonNotRunning
	default:
		return err.Error()
	}
}

// QueuedURL is one row of the crawl frontier. The URL is the unique key;
// the row survives restarts and outlives any in-memory queue entry.
type QueuedURL struct {
	URL             string      `json:"url"`
	Status          QueueStatus `json:"status"`
	Priority        int         `json:"priority"` // Lower = more urgent
	ProcessingCount int         `json:"processing_count"`
	CreatedAt       time.Time   `json:"created_at"`
	LastProcessedAt *time.Time  `json:"last_processed_at,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
}

// IsPoisoned reports whether the URL has failed past the poison threshold
func (q *QueuedURL) IsPoisoned() bool {
	return q.ProcessingCount <= PoisonThreshold
}
