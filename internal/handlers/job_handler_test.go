package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/models"
)

// stubMarkdownService implements interfaces.MarkdownService for testing
type stubMarkdownService struct {
	convertFunc func(html string) (string, error)
}

func (s *stubMarkdownService) Convert(html string) (string, error) {
	if s.convertFunc != nil {
		return s.convertFunc(html)
	}
	return html, nil
}

func TestListJobsHandler_Defaults(t *testing.T) {
	jobStore := &stubJobStorage{
		jobs: map[string]*models.ScrapeJob{
			"job-1": {ID: "job-1", URL: "https://news.example.com/news/a-1", Status: models.JobStatusCompleted},
			"job-2": {ID: "job-2", URL: "https://news.example.com/news/b-2", Status: models.JobStatusFailed},
		},
	}
	handler := NewJobHandler(jobStore, &stubResultStorage{}, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs", nil)
	rec := httptest.NewRecorder()

	handler.ListJobsHandler(rec, req)

	require.Equal(t, 200, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.EqualValues(t, 2, response["count"])
	assert.EqualValues(t, 50, response["limit"])
	assert.EqualValues(t, 0, response["offset"])
}

func TestListJobsHandler_StatusFilter(t *testing.T) {
	jobStore := &stubJobStorage{
		jobs: map[string]*models.ScrapeJob{
			"job-1": {ID: "job-1", Status: models.JobStatusCompleted},
			"job-2": {ID: "job-2", Status: models.JobStatusFailed},
			"job-3": {ID: "job-3", Status: models.JobStatusFailed},
		},
	}
	handler := NewJobHandler(jobStore, &stubResultStorage{}, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs?status=failed&limit=10", nil)
	rec := httptest.NewRecorder()

	handler.ListJobsHandler(rec, req)

	require.Equal(t, 200, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.EqualValues(t, 2, response["count"])
	assert.EqualValues(t, 10, response["limit"])
}

func TestListJobsHandler_StorageError(t *testing.T) {
	jobStore := &stubJobStorage{listErr: errors.New("database is locked")}
	handler := NewJobHandler(jobStore, &stubResultStorage{}, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs", nil)
	rec := httptest.NewRecorder()

	handler.ListJobsHandler(rec, req)

	assert.Equal(t, 500, rec.Code)
}

func TestGetJobStatsHandler(t *testing.T) {
	jobStore := &stubJobStorage{
		counts: map[models.JobStatus]int{
			models.JobStatusCompleted: 7,
			models.JobStatusFailed:    2,
			models.JobStatusPending:   1,
		},
	}
	handler := NewJobHandler(jobStore, &stubResultStorage{}, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/stats", nil)
	rec := httptest.NewRecorder()

	handler.GetJobStatsHandler(rec, req)

	require.Equal(t, 200, rec.Code)

	var response map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 10, response["total"])
	assert.Equal(t, 7, response["completed"])
	assert.Equal(t, 2, response["failed"])
	assert.Equal(t, 1, response["pending"])
	assert.Equal(t, 0, response["started"])
}

func TestGetJobHandler(t *testing.T) {
	jobStore := &stubJobStorage{
		jobs: map[string]*models.ScrapeJob{
			"job-1": {ID: "job-1", URL: "https://news.example.com/news/a-1", Status: models.JobStatusCompleted},
		},
	}
	handler := NewJobHandler(jobStore, &stubResultStorage{}, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/job-1", nil)
	rec := httptest.NewRecorder()

	handler.GetJobHandler(rec, req)

	require.Equal(t, 200, rec.Code)

	var job models.ScrapeJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestGetJobHandler_NotFound(t *testing.T) {
	handler := NewJobHandler(&stubJobStorage{}, &stubResultStorage{}, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/missing", nil)
	rec := httptest.NewRecorder()

	handler.GetJobHandler(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestGetJobHandler_MissingID(t *testing.T) {
	handler := NewJobHandler(&stubJobStorage{}, &stubResultStorage{}, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/", nil)
	rec := httptest.NewRecorder()

	handler.GetJobHandler(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestGetJobResultsHandler(t *testing.T) {
	resultStore := &stubResultStorage{
		results: map[string]*models.StoredScrapeResult{
			"result-1": {ID: "result-1", JobID: "job-1", URL: "https://news.example.com/news/a-1"},
			"result-2": {ID: "result-2", JobID: "job-2", URL: "https://news.example.com/news/b-2"},
		},
	}
	handler := NewJobHandler(&stubJobStorage{}, resultStore, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/job-1/results", nil)
	rec := httptest.NewRecorder()

	handler.GetJobResultsHandler(rec, req)

	require.Equal(t, 200, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "job-1", response["job_id"])
	assert.EqualValues(t, 1, response["count"])
}

func TestResultMarkdownHandler(t *testing.T) {
	resultStore := &stubResultStorage{
		results: map[string]*models.StoredScrapeResult{
			"result-1": {ID: "result-1", JobID: "job-1", CleanedHTML: "<h1>Rates held</h1>"},
		},
	}
	markdown := &stubMarkdownService{
		convertFunc: func(html string) (string, error) {
			return "# Rates held", nil
		},
	}
	handler := NewJobHandler(&stubJobStorage{}, resultStore, markdown, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/results/result-1/markdown", nil)
	rec := httptest.NewRecorder()

	handler.ResultMarkdownHandler(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "# Rates held", rec.Body.String())
}

func TestResultMarkdownHandler_NotFound(t *testing.T) {
	handler := NewJobHandler(&stubJobStorage{}, &stubResultStorage{}, &stubMarkdownService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/results/missing/markdown", nil)
	rec := httptest.NewRecorder()

	handler.ResultMarkdownHandler(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestResultMarkdownHandler_ConvertError(t *testing.T) {
	resultStore := &stubResultStorage{
		results: map[string]*models.StoredScrapeResult{
			"result-1": {ID: "result-1", CleanedHTML: "<h1>x</h1>"},
		},
	}
	markdown := &stubMarkdownService{
		convertFunc: func(html string) (string, error) {
			return "", errors.New("unbalanced tags")
		},
	}
	handler := NewJobHandler(&stubJobStorage{}, resultStore, markdown, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/results/result-1/markdown", nil)
	rec := httptest.NewRecorder()

	handler.ResultMarkdownHandler(rec, req)

	assert.Equal(t, 500, rec.Code)
}
