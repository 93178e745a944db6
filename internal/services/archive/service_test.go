package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/models"
)

func setupTestArchive(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(common.ArchiveConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "archive"),
	}, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestRecordAndLatest(t *testing.T) {
	svc := setupTestArchive(t)
	ctx := context.Background()

	older := &models.ArchivedFetch{
		URL:        "https://news.example.com/briefing",
		Tier:       models.FetchTierDirect,
		StatusCode: 200,
		Body:       "<html><body><p>old edition</p></body></html>",
		FetchedAt:  time.Now().Add(-time.Hour),
	}
	require.NoError(t, svc.Record(ctx, older))
	assert.NotEmpty(t, older.ID, "record should assign an id")

	newer := &models.ArchivedFetch{
		URL:        "https://news.example.com/briefing",
		Tier:       models.FetchTierBrowser,
		StatusCode: 200,
		FinalURL:   "https://news.example.com/briefing/today",
		Body:       "<html><body><p>new edition</p></body></html>",
		FetchedAt:  time.Now(),
	}
	require.NoError(t, svc.Record(ctx, newer))

	latest, err := svc.Latest(ctx, "https://news.example.com/briefing")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, models.FetchTierBrowser, latest.Tier)
	assert.Equal(t, "https://news.example.com/briefing/today", latest.FinalURL)
	assert.Contains(t, latest.Body, "new edition")
}

func TestLatest_NotArchived(t *testing.T) {
	svc := setupTestArchive(t)

	_, err := svc.Latest(context.Background(), "https://news.example.com/never-fetched")
	require.ErrorIs(t, err, ErrNotArchived)
}

func TestReplay_RedistillsNewestBody(t *testing.T) {
	svc := setupTestArchive(t)
	ctx := context.Background()

	body := `<html><head>
<meta property="og:title" content="Budget Session Highlights"/>
<script>var tracker = 1;</script>
</head><body>
<p>Parliament passed the finance bill.</p>
<a href="/news/budget-session-passes-finance-bill-amendments-556677">Full story</a>
</body></html>`

	require.NoError(t, svc.Record(ctx, &models.ArchivedFetch{
		URL:       "https://short.example.com/b/1",
		Tier:      models.FetchTierDirect,
		Body:      "<html><body><p>stale copy</p></body></html>",
		FetchedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, svc.Record(ctx, &models.ArchivedFetch{
		URL:       "https://short.example.com/b/1",
		Tier:      models.FetchTierDirect,
		FinalURL:  "https://news.example.com/briefing/today",
		Body:      body,
		FetchedAt: time.Now(),
	}))

	result, err := svc.Replay(ctx, "https://short.example.com/b/1")
	require.NoError(t, err)

	assert.Equal(t, "https://short.example.com/b/1", result.URL)
	assert.Equal(t, "Budget Session Highlights", result.MetaTags["og:title"])
	assert.Contains(t, result.CleanedHTML, "Parliament passed the finance bill.")
	assert.NotContains(t, result.CleanedHTML, "<script")

	// Relative links resolve against the redirect target, not the
	// requested URL.
	require.Len(t, result.ArticleLinks, 1)
	assert.Equal(t,
		"https://news.example.com/news/budget-session-passes-finance-bill-amendments-556677",
		result.ArticleLinks[0])
}

func TestReplay_NotArchived(t *testing.T) {
	svc := setupTestArchive(t)

	_, err := svc.Replay(context.Background(), "https://news.example.com/never-fetched")
	require.ErrorIs(t, err, ErrNotArchived)
}
