package interfaces

import (
	"context"

	"github.com/ternarybob/aranea/internal/models"
)

// JobListOptions filters job history queries
type JobListOptions struct {
	Status models.JobStatus // Empty matches all statuses
	Limit  int
	Offset int
}

// JobStorage - interface for scrape job persistence
type JobStorage interface {
	// SaveJob inserts or updates a job row by id
	SaveJob(ctx context.Context, job *models.ScrapeJob) error
	GetJob(ctx context.Context, id string) (*models.ScrapeJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.ScrapeJob, error)
	CountJobsByStatus(ctx context.Context) (map[models.JobStatus]int, error)
}

// ResultStorage - interface for denormalized scrape result persistence
type ResultStorage interface {
	// SaveResult writes the result row and its child rows, returning the result id
	SaveResult(ctx context.Context, jobID string, result *models.ScrapeResult) (string, error)
	GetResult(ctx context.Context, id string) (*models.StoredScrapeResult, error)
	GetResultsByJob(ctx context.Context, jobID string) ([]*models.StoredScrapeResult, error)
	GetLatestResultByURL(ctx context.Context, url string) (*models.StoredScrapeResult, error)
}

// QueueStorage - interface for the durable crawl frontier.
// The url_queue table is the source of truth; the scheduler's in-memory
// heap only mirrors its pending rows.
type QueueStorage interface {
	// AdmitURL runs the admission transaction for one URL. A nil return
	// means the row is pending at the given priority (inserted fresh or
	// reset from failed). Terminal rows reject with models.ErrAlreadyDone
	// or models.ErrPoisoned.
	AdmitURL(ctx context.Context, url string, priority int) error

	// ClaimURL attempts the pending->processing transition. Returns false
	// when the row is absent, terminal, or already held by another worker.
	ClaimURL(ctx context.Context, url string) (bool, error)

	// MarkDone finishes a URL permanently: status done, processing_count 1.
	// A non-empty errorMessage records a content-filter exclusion.
	MarkDone(ctx context.Context, url string, errorMessage string) error

	// MarkFailed decrements processing_count and records the error
	MarkFailed(ctx context.Context, url string, errorMessage string) error

	// ResetProcessing returns rows stuck in processing to pending.
	// Called once at boot before any worker starts.
	ResetProcessing(ctx context.Context) (int, error)

	// PendingURLs returns pending rows ordered by (priority, created_at)
	PendingURLs(ctx context.Context, limit int) ([]*models.QueuedURL, error)

	GetQueuedURL(ctx context.Context, url string) (*models.QueuedURL, error)
	CountByStatus(ctx context.Context) (map[models.QueueStatus]int, error)
}

// StorageManager aggregates the relational storages behind one connection
type StorageManager interface {
	JobStorage() JobStorage
	ResultStorage() ResultStorage
	QueueStorage() QueueStorage
	Close() error
}
