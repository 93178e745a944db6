package sources

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/models"
)

type seededURL struct {
	url      string
	priority int
}

// stubSpider records admissions and rejects URLs per admitFunc.
type stubSpider struct {
	mu        sync.Mutex
	admitted  []seededURL
	admitFunc func(url string, priority int) error
}

func (s *stubSpider) Start(ctx context.Context) error { return nil }
func (s *stubSpider) Stop() error                     { return nil }
func (s *stubSpider) IsRunning() bool                 { return true }

func (s *stubSpider) EnqueueURL(ctx context.Context, url string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.admitFunc != nil {
		if err := s.admitFunc(url, priority); err != nil {
			return err
		}
	}
	s.admitted = append(s.admitted, seededURL{url: url, priority: priority})
	return nil
}

func (s *stubSpider) EnqueueURLs(ctx context.Context, urls []string, priority int) *models.EnqueueSummary {
	summary := &models.EnqueueSummary{}
	for _, u := range urls {
		err := s.EnqueueURL(ctx, u, priority)
		summary.Add(models.AdmitResult{URL: u, Admitted: err == nil, Reason: models.AdmitReason(err)})
	}
	return summary
}

func (s *stubSpider) Stats(ctx context.Context) (*models.SpiderStats, error) {
	return &models.SpiderStats{}, nil
}

func (s *stubSpider) urls() []seededURL {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]seededURL, len(s.admitted))
	copy(out, s.admitted)
	return out
}

// stubFeedClient serves canned fetch responses to the seeder.
type stubFeedClient struct {
	fetch func(req *models.HTTPRequest) (*models.HTTPResponse, error)
}

func (c *stubFeedClient) Fetch(ctx context.Context, req *models.HTTPRequest) (*models.HTTPResponse, error) {
	return c.fetch(req)
}

func (c *stubFeedClient) Close() error { return nil }

const pressFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Press Releases</title>
    <link>https://press.example.gov</link>
    <description>Latest releases</description>
    <item>
      <title>Repo rate unchanged</title>
      <link>https://press.example.gov/releases/repo-rate-unchanged-101</link>
    </item>
    <item>
      <title>Quarterly bulletin</title>
      <link>/releases/quarterly-bulletin-102</link>
    </item>
    <item>
      <title>Entry without a link</title>
    </item>
  </channel>
</rss>`

func TestSeedAll_PageSourcesEnqueueSeedURL(t *testing.T) {
	spider := &stubSpider{}
	catalog := []*models.NewsSource{
		{Name: "Frontpage", BaseURL: "https://news.example.com/", Path: "/", Priority: -10, Kind: models.SourceKindPage},
		{Name: "Press Desk", BaseURL: "https://press.example.gov/", Path: "/press-releases", Priority: -15, Kind: models.SourceKindPage},
	}
	seeder := NewSeeder(spider, &stubFeedClient{}, catalog, arbor.NewLogger())

	summary := seeder.SeedAll(context.Background())

	assert.Equal(t, 2, summary.Enqueued)
	assert.Equal(t, 0, summary.Skipped)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "Frontpage", summary.Results[0].Name)
	assert.True(t, summary.Results[0].Admitted)

	admitted := spider.urls()
	require.Len(t, admitted, 2)
	assert.Equal(t, seededURL{url: "https://news.example.com/", priority: -10}, admitted[0])
	assert.Equal(t, seededURL{url: "https://press.example.gov/press-releases", priority: -15}, admitted[1])
}

func TestSeedAll_FeedSourceEnqueuesEntryLinks(t *testing.T) {
	spider := &stubSpider{}
	client := &stubFeedClient{
		fetch: func(req *models.HTTPRequest) (*models.HTTPResponse, error) {
			require.Equal(t, "https://press.example.gov/feed.xml", req.URL)
			return &models.HTTPResponse{Content: pressFeedXML, StatusCode: 200, FinalURL: req.URL}, nil
		},
	}
	catalog := []*models.NewsSource{
		{Name: "Press Feed", BaseURL: "https://press.example.gov/", Path: "/feed.xml", Priority: -15, Kind: models.SourceKindFeed},
	}
	seeder := NewSeeder(spider, client, catalog, arbor.NewLogger())

	summary := seeder.SeedAll(context.Background())

	// The linkless entry is skipped outright, not reported.
	assert.Equal(t, 2, summary.Enqueued)
	assert.Equal(t, 0, summary.Skipped)

	admitted := spider.urls()
	require.Len(t, admitted, 2)
	assert.Equal(t, seededURL{url: "https://press.example.gov/releases/repo-rate-unchanged-101", priority: -15}, admitted[0])
	assert.Equal(t, seededURL{url: "https://press.example.gov/releases/quarterly-bulletin-102", priority: -15}, admitted[1])
}

func TestSeedAll_FeedFetchFailureRecordedAgainstFeed(t *testing.T) {
	spider := &stubSpider{}
	client := &stubFeedClient{
		fetch: func(req *models.HTTPRequest) (*models.HTTPResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	catalog := []*models.NewsSource{
		{Name: "Dead Feed", BaseURL: "https://down.example.gov/", Path: "/feed.xml", Priority: -15, Kind: models.SourceKindFeed},
		{Name: "Frontpage", BaseURL: "https://news.example.com/", Path: "/", Priority: -10, Kind: models.SourceKindPage},
	}
	seeder := NewSeeder(spider, client, catalog, arbor.NewLogger())

	summary := seeder.SeedAll(context.Background())

	// The feed failure is one skipped result; the page source still seeds.
	assert.Equal(t, 1, summary.Enqueued)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "Dead Feed", summary.Results[0].Name)
	assert.Equal(t, "https://down.example.gov/feed.xml", summary.Results[0].URL)
	assert.False(t, summary.Results[0].Admitted)
	assert.Equal(t, models.ReasonFetchFailed, summary.Results[0].Reason)
	assert.True(t, summary.Results[1].Admitted)
}

func TestSeedAll_FeedParseFailureRecordedAgainstFeed(t *testing.T) {
	spider := &stubSpider{}
	client := &stubFeedClient{
		fetch: func(req *models.HTTPRequest) (*models.HTTPResponse, error) {
			return &models.HTTPResponse{Content: "<html><body>not a feed</body></html>", StatusCode: 200}, nil
		},
	}
	catalog := []*models.NewsSource{
		{Name: "Broken Feed", BaseURL: "https://press.example.gov/", Path: "/feed.xml", Priority: -15, Kind: models.SourceKindFeed},
	}
	seeder := NewSeeder(spider, client, catalog, arbor.NewLogger())

	summary := seeder.SeedAll(context.Background())

	assert.Equal(t, 0, summary.Enqueued)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, models.ReasonParseFailed, summary.Results[0].Reason)
	assert.Empty(t, spider.urls())
}

func TestSeedAll_RejectionsDoNotAbortTheRun(t *testing.T) {
	spider := &stubSpider{
		admitFunc: func(url string, priority int) error {
			if url == "https://b.example.com/" {
				return models.ErrAlreadyDone
			}
			return nil
		},
	}
	catalog := []*models.NewsSource{
		{Name: "A", BaseURL: "https://a.example.com/", Path: "/", Priority: -10, Kind: models.SourceKindPage},
		{Name: "B", BaseURL: "https://b.example.com/", Path: "/", Priority: -10, Kind: models.SourceKindPage},
		{Name: "C", BaseURL: "https://c.example.com/", Path: "/", Priority: -10, Kind: models.SourceKindPage},
	}
	seeder := NewSeeder(spider, &stubFeedClient{}, catalog, arbor.NewLogger())

	summary := seeder.SeedAll(context.Background())

	assert.Equal(t, 2, summary.Enqueued)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, "B", summary.Results[1].Name)
	assert.Equal(t, models.ReasonAlreadyDone, summary.Results[1].Reason)
	assert.Len(t, spider.urls(), 2)
}

func TestNewSeeder_NilCatalogUsesBuiltins(t *testing.T) {
	seeder := NewSeeder(&stubSpider{}, &stubFeedClient{}, nil, arbor.NewLogger())
	assert.Len(t, seeder.Sources(), 11)
}
