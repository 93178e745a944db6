package fetcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
)

// FallbackClient tries the primary tier first and falls back to the
// browser tier on any primary error. When an archive is attached, the
// winning tier's raw response is recorded write-aside; archive failures
// are logged and never fail the fetch.
type FallbackClient struct {
	primary interfaces.FetchClient
	browser interfaces.FetchClient
	archive interfaces.ArchiveService
	logger  arbor.ILogger
}

// NewFallbackClient composes the fetch tiers. browser and archive may
// be nil.
func NewFallbackClient(primary, browser interfaces.FetchClient, archive interfaces.ArchiveService, logger arbor.ILogger) *FallbackClient {
	return &FallbackClient{
		primary: primary,
		browser: browser,
		archive: archive,
		logger:  logger,
	}
}

// Fetch runs the primary tier, then the browser tier if the primary
// failed and a browser is configured.
func (c *FallbackClient) Fetch(ctx context.Context, req *models.HTTPRequest) (*models.HTTPResponse, error) {
	resp, err := c.primary.Fetch(ctx, req)
	if err == nil {
		c.record(ctx, req.URL, models.FetchTierDirect, resp)
		return resp, nil
	}

	if c.browser == nil {
		return nil, err
	}

	c.logger.Info().
		Str("url", req.URL).
		Err(err).
		Msg("Direct fetch failed, falling back to browser")

	resp, browserErr := c.browser.Fetch(ctx, req)
	if browserErr != nil {
		return nil, browserErr
	}

	c.record(ctx, req.URL, models.FetchTierBrowser, resp)
	return resp, nil
}

func (c *FallbackClient) record(ctx context.Context, url string, tier models.FetchTier, resp *models.HTTPResponse) {
	if c.archive == nil {
		return
	}

	err := c.archive.Record(ctx, &models.ArchivedFetch{
		ID:         uuid.New().String(),
		URL:        url,
		Tier:       tier,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.FinalURL,
		Body:       resp.Content,
		FetchedAt:  time.Now().UTC(),
	})
	if err != nil {
		c.logger.Warn().
			Str("url", url).
			Err(err).
			Msg("Failed to archive fetched body")
	}
}

// Close closes both tiers, keeping the first error.
func (c *FallbackClient) Close() error {
	err := c.primary.Close()
	if c.browser != nil {
		if browserErr := c.browser.Close(); err == nil {
			err = browserErr
		}
	}
	return err
}
