package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestHealthHandler(t *testing.T) {
	handler := NewAPIHandler(&stubSpiderService{running: true}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthHandler(rec, req)

	require.Equal(t, 200, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, true, response["spider_running"])
}

func TestHealthHandler_SpiderStopped(t *testing.T) {
	handler := NewAPIHandler(&stubSpiderService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthHandler(rec, req)

	require.Equal(t, 200, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, false, response["spider_running"])
}

func TestVersionHandler(t *testing.T) {
	handler := NewAPIHandler(&stubSpiderService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/version", nil)
	rec := httptest.NewRecorder()

	handler.VersionHandler(rec, req)

	require.Equal(t, 200, rec.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.NotEmpty(t, response["version"])
	assert.Contains(t, response, "build")
	assert.Contains(t, response, "git_commit")
}

func TestNotFoundHandler(t *testing.T) {
	handler := NewAPIHandler(&stubSpiderService{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/nope", nil)
	rec := httptest.NewRecorder()

	handler.NotFoundHandler(rec, req)

	require.Equal(t, 404, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "Not Found", response["error"])
	assert.Equal(t, "/api/nope", response["path"])
}
