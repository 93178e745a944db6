package models

import (
	"time"
)

// ScrapeRequest identifies a page to scrape
type ScrapeRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ScrapeResult holds everything extracted from one fetched page. Produced
// once per successful fetch and owned by the producing worker until it is
// handed to storage.
type ScrapeResult struct {
	URL            string            `json:"url"`
	HTML           string            `json:"html"`
	CleanedHTML    string            `json:"cleaned_html"`
	MetaTags       map[string]string `json:"meta_tags"`
	Images         []string          `json:"images"`         // Deduped, sorted
	JSONLDBlocks   []string          `json:"json_ld_blocks"` // Document order
	ArticleLinks   []string          `json:"article_links"`  // Deduped, sorted
	JobCreatedAt   *time.Time        `json:"job_created_at,omitempty"`
	JobProcessedAt *time.Time        `json:"job_processed_at,omitempty"`
}

// StoredScrapeResult is a persisted result row with its child rows loaded
type StoredScrapeResult struct {
	ID           string            `json:"id"`
	JobID        string            `json:"job_id"`
	URL          string            `json:"url"`
	HTML         string            `json:"html,omitempty"`
	CleanedHTML  string            `json:"cleaned_html,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	MetaTags     map[string]string `json:"meta_tags"`
	Images       []string          `json:"images"`
	JSONLDBlocks []string          `json:"json_ld_blocks"`
	ArticleLinks []string          `json:"article_links"`
}

// HTTPRequest describes one fetch. Headers merge over client defaults.
type HTTPRequest struct {
	URL     string            `json:"url"`
	Referer string            `json:"referer,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty"`
}

// HTTPResponse is the flattened fetch result shared by both fetch tiers.
// Headers keep the first value seen for each key.
type HTTPResponse struct {
	Content    string            `json:"content"`
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	FinalURL   string            `json:"final_url"`
}

// FetchTier identifies which client produced a response
type FetchTier string

const (
	FetchTierDirect  FetchTier = "direct"
	FetchTierBrowser FetchTier = "browser"
)

// ArchivedFetch is a raw fetched body recorded for later replay
type ArchivedFetch struct {
	ID         string    `json:"id" badgerhold:"key"`
	URL        string    `json:"url" badgerhold:"index"`
	Tier       FetchTier `json:"tier"`
	StatusCode int       `json:"status_code"`
	FinalURL   string    `json:"final_url"`
	Body       string    `json:"body"`
	FetchedAt  time.Time `json:"fetched_at"`
}
