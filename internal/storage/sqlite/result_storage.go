package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
)

// maxImageURLLen caps stored image URLs; longer values are truncated
const maxImageURLLen = 2048

// ResultStorage implements SQLite storage for denormalized scrape results
type ResultStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewResultStorage creates a new result storage instance
func NewResultStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

// SaveResult writes the result row and its child rows in one transaction
// and returns the new result id
func (s *ResultStorage) SaveResult(ctx context.Context, jobID string, result *models.ScrapeResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	resultID := uuid.New().String()
	now := time.Now().UTC().Unix()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scrape_results (id, job_id, url, html, cleaned_html, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		resultID, jobID, result.URL, result.HTML, result.CleanedHTML, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save result: %w", err)
	}

	for key, value := range result.MetaTags {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO meta_tags (id, result_id, key, value, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), resultID, key, value, now,
		)
		if err != nil {
			return "", fmt.Errorf("failed to save meta tag %q: %w", key, err)
		}
	}

	for _, imageURL := range result.Images {
		if len(imageURL) > maxImageURLLen {
			s.logger.Warn().
				Str("result_id", resultID).
				Int("length", len(imageURL)).
				Msg("Truncating oversized image URL")
			imageURL = imageURL[:maxImageURLLen]
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO image_urls (id, result_id, url, created_at)
			VALUES (?, ?, ?, ?)`,
			uuid.New().String(), resultID, imageURL, now,
		)
		if err != nil {
			return "", fmt.Errorf("failed to save image url: %w", err)
		}
	}

	for _, block := range result.JSONLDBlocks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO json_ld_blocks (id, result_id, content, created_at)
			VALUES (?, ?, ?, ?)`,
			uuid.New().String(), resultID, block, now,
		)
		if err != nil {
			return "", fmt.Errorf("failed to save json-ld block: %w", err)
		}
	}

	for _, link := range result.ArticleLinks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO article_links (id, result_id, url, created_at)
			VALUES (?, ?, ?, ?)`,
			uuid.New().String(), resultID, link, now,
		)
		if err != nil {
			return "", fmt.Errorf("failed to save article link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit result: %w", err)
	}

	s.logger.Debug().
		Str("result_id", resultID).
		Str("job_id", jobID).
		Int("meta_tags", len(result.MetaTags)).
		Int("images", len(result.Images)).
		Int("article_links", len(result.ArticleLinks)).
		Msg("Result saved")

	return resultID, nil
}

// GetResult retrieves a result row with its children
func (s *ResultStorage) GetResult(ctx context.Context, id string) (*models.StoredScrapeResult, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, job_id, url, html, cleaned_html, created_at
		FROM scrape_results
		WHERE id = ?`, id)

	result, err := s.scanResult(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

// GetResultsByJob retrieves all results stored for a job, newest first
func (s *ResultStorage) GetResultsByJob(ctx context.Context, jobID string) ([]*models.StoredScrapeResult, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, job_id, url, html, cleaned_html, created_at
		FROM scrape_results
		WHERE job_id = ?
		ORDER BY created_at DESC, rowid DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []*models.StoredScrapeResult{}
	for rows.Next() {
		result, err := s.scanResult(ctx, rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// GetLatestResultByURL retrieves the newest result for a URL
func (s *ResultStorage) GetLatestResultByURL(ctx context.Context, url string) (*models.StoredScrapeResult, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, job_id, url, html, cleaned_html, created_at
		FROM scrape_results
		WHERE url = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, url)

	result, err := s.scanResult(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("result for %s: %w", url, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

func (s *ResultStorage) scanResult(ctx context.Context, row rowScanner) (*models.StoredScrapeResult, error) {
	var result models.StoredScrapeResult
	var html, cleanedHTML sql.NullString
	var createdAt int64

	if err := row.Scan(&result.ID, &result.JobID, &result.URL, &html, &cleanedHTML, &createdAt); err != nil {
		return nil, err
	}

	result.HTML = html.String
	result.CleanedHTML = cleanedHTML.String
	result.CreatedAt = unixToTime(createdAt)

	if err := s.loadChildren(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// loadChildren populates the child collections of one result row
func (s *ResultStorage) loadChildren(ctx context.Context, result *models.StoredScrapeResult) error {
	result.MetaTags = make(map[string]string)
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT key, value FROM meta_tags WHERE result_id = ?`, result.ID)
	if err != nil {
		return fmt.Errorf("failed to load meta tags: %w", err)
	}
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			rows.Close()
			return err
		}
		result.MetaTags[key] = value.String
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	result.Images, err = s.loadChildURLs(ctx, `SELECT url FROM image_urls WHERE result_id = ? ORDER BY url`, result.ID)
	if err != nil {
		return fmt.Errorf("failed to load image urls: %w", err)
	}

	// rowid preserves insertion order, which is document order for JSON-LD
	result.JSONLDBlocks, err = s.loadChildURLs(ctx, `SELECT content FROM json_ld_blocks WHERE result_id = ? ORDER BY rowid`, result.ID)
	if err != nil {
		return fmt.Errorf("failed to load json-ld blocks: %w", err)
	}

	result.ArticleLinks, err = s.loadChildURLs(ctx, `SELECT url FROM article_links WHERE result_id = ? ORDER BY url`, result.ID)
	if err != nil {
		return fmt.Errorf("failed to load article links: %w", err)
	}

	return nil
}

func (s *ResultStorage) loadChildURLs(ctx context.Context, query string, resultID string) ([]string, error) {
	rows, err := s.db.db.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}
