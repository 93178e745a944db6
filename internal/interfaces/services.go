package interfaces

import (
	"context"

	"github.com/ternarybob/aranea/internal/models"
)

// FetchClient - a single fetch tier or the composed fallback pipeline
type FetchClient interface {
	Fetch(ctx context.Context, req *models.HTTPRequest) (*models.HTTPResponse, error)
	Close() error
}

// ScraperService dispatches a URL to its host profile and returns the
// extracted artifacts
type ScraperService interface {
	Scrape(ctx context.Context, url string) (*models.ScrapeResult, error)
}

// FilterService evaluates URL and content exclusion rules. Either
// argument may be empty; the first matching rule wins.
type FilterService interface {
	Exclude(url string, content string) (excluded bool, reason string)
}

// PriorityService scores a URL from its path segments. Excluded URLs
// are rejected before they reach the frontier.
type PriorityService interface {
	Score(url string) (priority int, excluded bool)
}

// SpiderService - the crawl scheduler
type SpiderService interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool

	// EnqueueURL admits one URL. Priority 0 defers to the priority policy.
	EnqueueURL(ctx context.Context, url string, priority int) error

	// EnqueueURLs admits a batch with domain interleaving applied
	EnqueueURLs(ctx context.Context, urls []string, priority int) *models.EnqueueSummary

	Stats(ctx context.Context) (*models.SpiderStats, error)
}

// SeederService feeds the catalog of news sources into the frontier
type SeederService interface {
	SeedAll(ctx context.Context) *models.EnqueueSummary
	Sources() []*models.NewsSource
}

// ArchiveService - write-aside store of raw fetched bodies
type ArchiveService interface {
	// Record stores one fetched body; failures are the caller's to log,
	// never to propagate into a scrape
	Record(ctx context.Context, fetch *models.ArchivedFetch) error

	// Latest returns the most recent archived fetch for a URL
	Latest(ctx context.Context, url string) (*models.ArchivedFetch, error)

	// Replay re-runs distillation on the newest archived body without
	// touching the frontier or result storage
	Replay(ctx context.Context, url string) (*models.ScrapeResult, error)

	Close() error
}

// MarkdownService converts cleaned HTML to markdown
type MarkdownService interface {
	Convert(html string) (string, error)
}
