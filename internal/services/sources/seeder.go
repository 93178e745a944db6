package sources

import (
	"context"
	"net/url"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
)

// Seeder feeds the source catalog into the crawl frontier. Page sources
// enqueue their seed URL directly; feed sources are fetched, parsed as
// RSS/Atom, and every entry link is enqueued at the source priority.
// Rejections count as skipped and never abort the run.
type Seeder struct {
	spider  interfaces.SpiderService
	client  interfaces.FetchClient
	sources []*models.NewsSource
	logger  arbor.ILogger
}

// NewSeeder creates a seeder over the given catalog. A nil catalog falls
// back to the built-in sources.
func NewSeeder(spider interfaces.SpiderService, client interfaces.FetchClient, catalog []*models.NewsSource, logger arbor.ILogger) *Seeder {
	if logger == nil {
		logger = common.GetLogger()
	}
	if catalog == nil {
		catalog = builtinSources()
	}
	return &Seeder{
		spider:  spider,
		client:  client,
		sources: catalog,
		logger:  logger,
	}
}

// Sources returns the catalog the seeder was built with.
func (s *Seeder) Sources() []*models.NewsSource {
	catalog := make([]*models.NewsSource, len(s.sources))
	copy(catalog, s.sources)
	return catalog
}

// SeedAll runs every catalog entry and reports the per-URL outcomes.
func (s *Seeder) SeedAll(ctx context.Context) *models.EnqueueSummary {
	summary := &models.EnqueueSummary{}
	for _, source := range s.sources {
		switch source.Kind {
		case models.SourceKindFeed:
			s.seedFeed(ctx, source, summary)
		default:
			summary.Add(s.admit(ctx, source, source.SeedURL()))
		}
	}

	s.logger.Info().
		Int("sources", len(s.sources)).
		Int("enqueued", summary.Enqueued).
		Int("skipped", summary.Skipped).
		Msg("Seeding finished")
	return summary
}

// seedFeed fetches and parses one feed source and admits its entry links.
// Fetch and parse failures are recorded against the feed URL itself.
func (s *Seeder) seedFeed(ctx context.Context, source *models.NewsSource, summary *models.EnqueueSummary) {
	feedURL := source.SeedURL()

	resp, err := s.client.Fetch(ctx, &models.HTTPRequest{URL: feedURL})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("source", source.Name).
			Str("url", feedURL).
			Msg("Failed to fetch feed")
		summary.Add(models.AdmitResult{Name: source.Name, URL: feedURL, Reason: models.ReasonFetchFailed})
		return
	}

	feed, err := gofeed.NewParser().ParseString(resp.Content)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("source", source.Name).
			Str("url", feedURL).
			Msg("Failed to parse feed")
		summary.Add(models.AdmitResult{Name: source.Name, URL: feedURL, Reason: models.ReasonParseFailed})
		return
	}

	entries := 0
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		summary.Add(s.admit(ctx, source, resolveEntryLink(feedURL, item.Link)))
		entries++
	}

	s.logger.Debug().
		Str("source", source.Name).
		Int("entries", entries).
		Msg("Feed seeded")
}

func (s *Seeder) admit(ctx context.Context, source *models.NewsSource, target string) models.AdmitResult {
	result := models.AdmitResult{Name: source.Name, URL: target}
	if err := s.spider.EnqueueURL(ctx, target, source.Priority); err != nil {
		result.Reason = models.AdmitReason(err)
		s.logger.Debug().
			Str("source", source.Name).
			Str("url", target).
			Str("reason", result.Reason).
			Msg("Seed URL rejected")
		return result
	}
	result.Admitted = true
	return result
}

// resolveEntryLink makes relative feed entry links absolute against the
// feed URL. Links that do not parse are passed through untouched.
func resolveEntryLink(feedURL, link string) string {
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	base, err := url.Parse(feedURL)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}
