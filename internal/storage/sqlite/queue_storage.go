package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
)

// QueueStorage implements the durable crawl frontier over the url_queue
// table. Every transition runs in its own transaction so concurrent
// workers converge through row state, not shared memory.
type QueueStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewQueueStorage creates a new queue storage instance
func NewQueueStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.QueueStorage {
	return &QueueStorage{
		db:     db,
		logger: logger,
	}
}

// AdmitURL runs the admission transaction for one URL
func (s *QueueStorage) AdmitURL(ctx context.Context, url string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var processingCount int
	err = tx.QueryRowContext(ctx,
		`SELECT status, processing_count FROM url_queue WHERE url = ?`, url).
		Scan(&status, &processingCount)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh URL. A concurrent insert of the same URL is a benign
		// duplicate, so the unique violation is swallowed.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO url_queue (url, status, priority, processing_count, created_at)
			VALUES (?, ?, ?, 0, ?)
			ON CONFLICT(url) DO NOTHING`,
			url, string(models.QueueStatusPending), priority, time.Now().UTC().Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert queued url: %w", err)
		}

	case err != nil:
		return fmt.Errorf("failed to read queued url: %w", err)

	case status == string(models.QueueStatusDone):
		return models.ErrAlreadyDone

	case processingCount <= models.PoisonThreshold:
		return models.ErrPoisoned

	default:
		// Re-admit: back to pending at the newly requested priority
		_, err = tx.ExecContext(ctx,
			`UPDATE url_queue SET status = ?, priority = ? WHERE url = ?`,
			string(models.QueueStatusPending), priority, url,
		)
		if err != nil {
			return fmt.Errorf("failed to re-admit queued url: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admission: %w", err)
	}
	return nil
}

// ClaimURL attempts the pending->processing transition. Only a pending
// row can be claimed, so at most one worker ever holds a URL.
func (s *QueueStorage) ClaimURL(ctx context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var processingCount int
	err = tx.QueryRowContext(ctx,
		`SELECT status, processing_count FROM url_queue WHERE url = ?`, url).
		Scan(&status, &processingCount)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read queued url: %w", err)
	}

	if status != string(models.QueueStatusPending) || processingCount <= models.PoisonThreshold {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE url_queue SET status = ?, last_processed_at = ? WHERE url = ?`,
		string(models.QueueStatusProcessing), time.Now().UTC().Unix(), url,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim queued url: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit claim: %w", err)
	}
	return true, nil
}

// MarkDone finishes a URL permanently. Done is terminal for the
// frontier: processing_count resets to 1 and the URL is never
// re-admitted.
func (s *QueueStorage) MarkDone(ctx context.Context, url string, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.db.ExecContext(ctx, `
		UPDATE url_queue
		SET status = ?, processing_count = 1, last_processed_at = ?, error_message = ?
		WHERE url = ?`,
		string(models.QueueStatusDone),
		time.Now().UTC().Unix(),
		nullableString(models.TruncateErrorMessage(errorMessage)),
		url,
	)
	if err != nil {
		return fmt.Errorf("failed to mark url done: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt, decrementing processing_count.
// At or below the poison threshold the URL is permanently skipped.
func (s *QueueStorage) MarkFailed(ctx context.Context, url string, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.db.ExecContext(ctx, `
		UPDATE url_queue
		SET status = ?, processing_count = processing_count - 1, last_processed_at = ?, error_message = ?
		WHERE url = ?`,
		string(models.QueueStatusFailed),
		time.Now().UTC().Unix(),
		nullableString(models.TruncateErrorMessage(errorMessage)),
		url,
	)
	if err != nil {
		return fmt.Errorf("failed to mark url failed: %w", err)
	}
	return nil
}

// ResetProcessing returns rows stuck in processing to pending. Run at
// boot: no worker holds anything before the pool starts.
func (s *QueueStorage) ResetProcessing(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.db.ExecContext(ctx,
		`UPDATE url_queue SET status = ? WHERE status = ?`,
		string(models.QueueStatusPending), string(models.QueueStatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset processing urls: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.logger.Info().Int64("count", affected).Msg("Reset interrupted URLs to pending")
	}
	return int(affected), nil
}

// PendingURLs returns pending rows ordered by (priority, created_at)
func (s *QueueStorage) PendingURLs(ctx context.Context, limit int) ([]*models.QueuedURL, error) {
	query := `
		SELECT url, status, priority, processing_count, created_at, last_processed_at, error_message
		FROM url_queue
		WHERE status = ?
		ORDER BY priority ASC, created_at ASC
	`
	args := []interface{}{string(models.QueueStatusPending)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending urls: %w", err)
	}
	defer rows.Close()

	urls := []*models.QueuedURL{}
	for rows.Next() {
		queued, err := scanQueuedURL(rows)
		if err != nil {
			return nil, err
		}
		urls = append(urls, queued)
	}
	return urls, rows.Err()
}

// GetQueuedURL retrieves one frontier row
func (s *QueueStorage) GetQueuedURL(ctx context.Context, url string) (*models.QueuedURL, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT url, status, priority, processing_count, created_at, last_processed_at, error_message
		FROM url_queue
		WHERE url = ?`, url)

	queued, err := scanQueuedURL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("queued url %s: %w", url, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get queued url: %w", err)
	}
	return queued, nil
}

// CountByStatus returns frontier row counts grouped by status
func (s *QueueStorage) CountByStatus(ctx context.Context) (map[models.QueueStatus]int, error) {
	rows, err := s.db.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM url_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count queued urls: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.QueueStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[models.QueueStatus(status)] = count
	}
	return counts, rows.Err()
}

func scanQueuedURL(row rowScanner) (*models.QueuedURL, error) {
	var queued models.QueuedURL
	var status string
	var createdAt int64
	var lastProcessedAt sql.NullInt64
	var errorMessage sql.NullString

	if err := row.Scan(&queued.URL, &status, &queued.Priority, &queued.ProcessingCount,
		&createdAt, &lastProcessedAt, &errorMessage); err != nil {
		return nil, err
	}

	queued.Status = models.QueueStatus(status)
	queued.CreatedAt = unixToTime(createdAt)
	if lastProcessedAt.Valid {
		t := unixToTime(lastProcessedAt.Int64)
		queued.LastProcessedAt = &t
	}
	if errorMessage.Valid {
		queued.ErrorMessage = errorMessage.String
	}

	return &queued, nil
}
