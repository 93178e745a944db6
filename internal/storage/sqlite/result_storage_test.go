package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/models"
)

func TestResultStorage_SaveAndGetResult(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewResultStorage(db, arbor.NewLogger())
	ctx := context.Background()

	result := &models.ScrapeResult{
		URL:         "https://example.com/markets/story-123",
		HTML:        "<html><body><p>raw</p></body></html>",
		CleanedHTML: "<p>raw</p>",
		MetaTags: map[string]string{
			"og:title": "Story",
			"og:type":  "article",
		},
		Images:       []string{"https://example.com/a.jpg", "https://example.com/b.jpg"},
		JSONLDBlocks: []string{`{"@type":"NewsArticle"}`, `{"@type":"BreadcrumbList"}`},
		ArticleLinks: []string{"https://example.com/markets/other-story-456"},
	}

	resultID, err := storage.SaveResult(ctx, "job-1", result)
	require.NoError(t, err)
	require.NotEmpty(t, resultID)

	stored, err := storage.GetResult(ctx, resultID)
	require.NoError(t, err)
	assert.Equal(t, "job-1", stored.JobID)
	assert.Equal(t, result.URL, stored.URL)
	assert.Equal(t, result.HTML, stored.HTML)
	assert.Equal(t, result.CleanedHTML, stored.CleanedHTML)
	assert.Equal(t, result.MetaTags, stored.MetaTags)
	assert.Equal(t, result.Images, stored.Images)
	assert.Equal(t, result.ArticleLinks, stored.ArticleLinks)

	// JSON-LD blocks keep document order
	assert.Equal(t, result.JSONLDBlocks, stored.JSONLDBlocks)
}

func TestResultStorage_TruncatesOversizedImageURL(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewResultStorage(db, arbor.NewLogger())
	ctx := context.Background()

	oversized := "https://example.com/" + strings.Repeat("x", 3000)
	result := &models.ScrapeResult{
		URL:    "https://example.com/huge-image",
		Images: []string{oversized},
	}

	resultID, err := storage.SaveResult(ctx, "job-1", result)
	require.NoError(t, err)

	stored, err := storage.GetResult(ctx, resultID)
	require.NoError(t, err)
	require.Len(t, stored.Images, 1)
	assert.Len(t, stored.Images[0], maxImageURLLen)
	assert.True(t, strings.HasPrefix(stored.Images[0], "https://example.com/"))
}

func TestResultStorage_GetResultsByJob(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewResultStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := storage.SaveResult(ctx, "job-multi", &models.ScrapeResult{URL: "https://example.com/page"})
		require.NoError(t, err)
	}
	_, err := storage.SaveResult(ctx, "job-other", &models.ScrapeResult{URL: "https://example.com/other"})
	require.NoError(t, err)

	results, err := storage.GetResultsByJob(ctx, "job-multi")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestResultStorage_GetLatestResultByURL(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewResultStorage(db, arbor.NewLogger())
	ctx := context.Background()
	url := "https://example.com/revised-story"

	_, err := storage.SaveResult(ctx, "job-1", &models.ScrapeResult{URL: url, CleanedHTML: "<p>first</p>"})
	require.NoError(t, err)
	latestID, err := storage.SaveResult(ctx, "job-2", &models.ScrapeResult{URL: url, CleanedHTML: "<p>second</p>"})
	require.NoError(t, err)

	latest, err := storage.GetLatestResultByURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, latestID, latest.ID)
	assert.Equal(t, "<p>second</p>", latest.CleanedHTML)

	_, err = storage.GetLatestResultByURL(ctx, "https://example.com/never-scraped")
	assert.ErrorIs(t, err, ErrNotFound)
}
