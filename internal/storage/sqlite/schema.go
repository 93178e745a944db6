package sqlite

import (
	"context"
	"database/sql"
)

const schemaSQL = `
-- Scrape job history. One row per attempt; rows are never deleted.
CREATE TABLE IF NOT EXISTS scrape_jobs (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	started_at INTEGER,
	completed_at INTEGER,
	error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_scrape_jobs_url_status ON scrape_jobs(url, status);
CREATE INDEX IF NOT EXISTS idx_scrape_jobs_created ON scrape_jobs(created_at DESC);

-- Scrape results with denormalized child tables. Children reference the
-- result by id only; no foreign keys, no cascade.
CREATE TABLE IF NOT EXISTS scrape_results (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	url TEXT NOT NULL,
	html TEXT,
	cleaned_html TEXT,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scrape_results_job ON scrape_results(job_id);
CREATE INDEX IF NOT EXISTS idx_scrape_results_url ON scrape_results(url, created_at DESC);

CREATE TABLE IF NOT EXISTS meta_tags (
	id TEXT PRIMARY KEY,
	result_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_meta_tags_result ON meta_tags(result_id);

CREATE TABLE IF NOT EXISTS image_urls (
	id TEXT PRIMARY KEY,
	result_id TEXT NOT NULL,
	url TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_image_urls_result ON image_urls(result_id);

CREATE TABLE IF NOT EXISTS json_ld_blocks (
	id TEXT PRIMARY KEY,
	result_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_json_ld_blocks_result ON json_ld_blocks(result_id);

CREATE TABLE IF NOT EXISTS article_links (
	id TEXT PRIMARY KEY,
	result_id TEXT NOT NULL,
	url TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_article_links_result ON article_links(result_id);

-- Crawl frontier. The url is the unique key; this table is the source of
-- truth for the scheduler, the in-memory queue only mirrors it.
CREATE TABLE IF NOT EXISTS url_queue (
	url TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 0,
	processing_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_processed_at INTEGER,
	error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_url_queue_status ON url_queue(status, priority, created_at);
`

// migrateV1 creates the initial schema
func migrateV1(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, schemaSQL)
	return err
}
