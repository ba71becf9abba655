package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/notebook"
	"github.com/oscillatelabsllc/nflpicker/internal/odds"
	"github.com/oscillatelabsllc/nflpicker/internal/session"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, req models.SearchRequest) models.SearchResponse {
	return models.SearchResponse{Results: []models.SearchResult{{Title: req.Query, URL: "https://example.com"}}}
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	blobs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	slates := odds.NewStore(blobs)
	_, err = slates.Save(ctx, models.Slate{
		Meta: models.SlateMeta{Week: 2, Season: 2025},
		Games: []models.Game{
			{GameID: "g1", HomeTeam: "Buffalo Bills", AwayTeam: "Miami Dolphins", GameTime: "2025-09-12T00:15:00Z"},
		},
	}, odds.DefaultCalendar().Start.AddDate(0, 0, 7))
	require.NoError(t, err)

	words := notebook.TokenizerFunc(func(s string) int { return len(strings.Fields(s)) })
	notebooks := notebook.NewStore(blobs, words, 2025, 100, zerolog.Nop())
	env := session.NewEnvironment(slates, stubSearcher{}, blobs, zerolog.Nop())

	srv := NewServer(env, notebooks, blobs, "0", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthAndReady(t *testing.T) {
	ts := setupTestServer(t)

	var status map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/health", nil, &status))
	assert.Equal(t, "healthy", status["status"])

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/ready", nil, &status))
	assert.Equal(t, "ready", status["status"])
}

func TestOpenAPISpec(t *testing.T) {
	ts := setupTestServer(t)

	var spec map[string]interface{}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/openapi.json", nil, &spec))

	paths, ok := spec["paths"].(map[string]interface{})
	require.True(t, ok)
	for _, p := range []string{"/api/v1/sessions", "/api/v1/session/picks", "/api/v1/notebooks/{identity}/stats"} {
		assert.Contains(t, paths, p)
	}
}

func TestSessionEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, ts.URL+"/api/v1/session", nil, &errBody))
	assert.Equal(t, http.StatusConflict, doJSON(t, http.MethodPost, ts.URL+"/api/v1/session/picks", SubmitPicksRequest{}, &errBody))

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions", StartSessionRequest{Week: 9}, &errBody))
	assert.Contains(t, errBody["error"], "pull-lines")

	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions", StartSessionRequest{}, &errBody))

	var ov session.Overview
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions", StartSessionRequest{Week: 2}, &ov))
	assert.Len(t, ov.Games, 1)
	assert.Equal(t, 3, ov.SearchesAllowed)

	var resp models.SearchResponse
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/api/v1/session/search", models.SearchRequest{Query: "bills"}, &resp))
		assert.Empty(t, resp.Error)
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/api/v1/session/search", models.SearchRequest{Query: "bills"}, &resp))
	assert.Equal(t, "Search budget exhausted: used all 3 searches for 1 games", resp.Error)

	var result session.SubmitResult
	status := doJSON(t, http.MethodPost, ts.URL+"/api/v1/session/picks", SubmitPicksRequest{
		Predictions: models.Predictions{"g1": {Pick: "Buffalo Bills", Units: 49}},
	}, &result)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, result.Accepted)
	assert.Equal(t, session.ReasonUnitTotal, result.Rejection.Reason)

	status = doJSON(t, http.MethodPost, ts.URL+"/api/v1/session/picks", SubmitPicksRequest{
		Predictions: models.Predictions{"g1": {Pick: "Buffalo Bills", Units: 50}},
	}, &result)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, result.Accepted)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/api/v1/session", nil, &ov))
	assert.Equal(t, session.StateClosed, ov.State)
	assert.Equal(t, 0, ov.SearchesRemaining)
}

func TestNotebookEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	base := ts.URL + "/api/v1/notebooks/model-a"

	var res models.WriteResult
	week := 3
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base, WriteNotebookRequest{Content: "Chiefs slow starters", Week: &week}, &res))
	assert.True(t, res.Success)
	assert.Equal(t, 97, res.TokensRemaining)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base, WriteNotebookRequest{Content: "Lions cover at home"}, &res))

	var content map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base, nil, &content))
	assert.Equal(t, "Chiefs slow starters\n\nLions cover at home", content["content"])

	var found map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/search?query=lions", nil, &found))
	// the blank separator line is the preceding context
	assert.Equal(t, "Found 1 mention(s) of 'lions':\n\n\nLions cover at home", found["result"])

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, base+"/search", nil, &errBody))

	var stats models.NotebookStats
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/stats", nil, &stats))
	assert.Equal(t, "model-a", stats.Model)
	assert.Equal(t, 7, stats.TokenCount)
	assert.Equal(t, 3, stats.LastWeekUpdated)

	var other models.NotebookStats
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/api/v1/notebooks/model-b/stats", nil, &other))
	assert.False(t, other.HasContent)
}
