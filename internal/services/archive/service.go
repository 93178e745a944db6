package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/models"
	"github.com/ternarybob/aranea/internal/services/distiller"
)

// ErrNotArchived is returned when no fetch has been recorded for a URL.
var ErrNotArchived = errors.New("url not archived")

// Service is the write-aside store of raw fetched bodies. Recording is
// best-effort from the fetch path; Replay re-runs distillation on the
// newest archived body so cleaning-rule changes can be exercised without
// refetching.
type Service struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewService opens the BadgerHold store under config.Path.
func NewService(config common.ArchiveConfig, logger arbor.ILogger) (*Service, error) {
	if logger == nil {
		logger = common.GetLogger()
	}

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive store: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Fetch archive opened")

	return &Service{
		store:  store,
		logger: logger,
	}, nil
}

// Record stores one fetched body. Missing IDs and timestamps are filled
// in; the caller decides whether a failure is worth more than a log line.
func (s *Service) Record(ctx context.Context, fetch *models.ArchivedFetch) error {
	if fetch.ID == "" {
		fetch.ID = uuid.New().String()
	}
	if fetch.FetchedAt.IsZero() {
		fetch.FetchedAt = time.Now()
	}

	if err := s.store.Upsert(fetch.ID, fetch); err != nil {
		return fmt.Errorf("failed to archive fetch: %w", err)
	}

	s.logger.Debug().
		Str("url", fetch.URL).
		Str("tier", string(fetch.Tier)).
		Int("bytes", len(fetch.Body)).
		Msg("Fetch archived")
	return nil
}

// Latest returns the most recent archived fetch for a URL.
func (s *Service) Latest(ctx context.Context, url string) (*models.ArchivedFetch, error) {
	var fetches []models.ArchivedFetch
	err := s.store.Find(&fetches, badgerhold.Where("URL").Eq(url).SortBy("FetchedAt").Reverse().Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	if len(fetches) == 0 {
		return nil, ErrNotArchived
	}
	return &fetches[0], nil
}

// Replay re-distills the newest archived body for a URL. Nothing is
// fetched and nothing is written; the frontier and result storage are
// untouched.
func (s *Service) Replay(ctx context.Context, url string) (*models.ScrapeResult, error) {
	fetch, err := s.Latest(ctx, url)
	if err != nil {
		return nil, err
	}

	// Relative links resolve against where the fetch actually landed.
	base := fetch.FinalURL
	if base == "" {
		base = fetch.URL
	}

	d, err := distiller.New(fetch.Body, s.logger)
	if err != nil {
		return nil, err
	}

	meta := d.MetaTags()
	images := d.ImageURLs()
	jsonLD := d.JSONLDBlocks()
	links := d.ArticleLinks(base)

	cleaned, err := d.Clean()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("url", url).
		Str("tier", string(fetch.Tier)).
		Str("fetched_at", fetch.FetchedAt.Format(time.RFC3339)).
		Int("article_links", len(links)).
		Msg("Replayed archived fetch")

	return &models.ScrapeResult{
		URL:          fetch.URL,
		HTML:         fetch.Body,
		CleanedHTML:  cleaned,
		MetaTags:     meta,
		Images:       images,
		JSONLDBlocks: jsonLD,
		ArticleLinks: links,
	}, nil
}

// Close releases the underlying store.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
