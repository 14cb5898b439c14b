package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/optionsim/internal/models"
	"github.com/eddiefleurent/optionsim/internal/results"
	"github.com/eddiefleurent/optionsim/internal/storage"
)

func serverLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func archivedSummary(runID string) *results.Summary {
	return &results.Summary{
		RunID:    runID,
		Symbol:   "NIFTY",
		Strategy: "short-strangle",
		Start:    time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC),
		NetPnL:   450,
		Equity: []models.EquityPoint{
			{Date: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), Equity: 100000, Cash: 100000},
			{Date: time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), Equity: 100450, Cash: 100450},
		},
		TradeLog: []models.TradeLogEntry{
			{PositionID: "p-1", Action: models.ActionEnter, NetEntryCost: 100},
			{PositionID: "p-1", Action: models.ActionExit, RealizedPnL: 50, ExitReason: models.ExitProfitTarget},
		},
	}
}

func newTestServer(t *testing.T, cfg Config) (*Server, *storage.MockStorage, *Tracker) {
	t.Helper()
	archive := storage.NewMockStorage()
	tracker := NewTracker()
	return NewServer(cfg, archive, tracker, serverLogger()), archive, tracker
}

func get(t *testing.T, s *Server, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s, _, _ := newTestServer(t, Config{Port: 0})
	rec := get(t, s, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_ListRunsMergesLiveAndArchived(t *testing.T) {
	s, archive, tracker := newTestServer(t, Config{})
	require.NoError(t, archive.SaveSummary(archivedSummary("done-1")))
	tracker.Begin("live-1")
	tracker.Progress("live-1", 40, "simulating")

	rec := get(t, s, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Live     []RunState        `json:"live"`
		Archived []storage.RunInfo `json:"archived"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Live, 1)
	assert.Equal(t, "live-1", body.Live[0].ID)
	assert.Equal(t, 40, body.Live[0].Percent)
	require.Len(t, body.Archived, 1)
	assert.Equal(t, "done-1", body.Archived[0].RunID)
}

func TestServer_GetRun(t *testing.T) {
	s, archive, _ := newTestServer(t, Config{})
	require.NoError(t, archive.SaveSummary(archivedSummary("done-1")))

	rec := get(t, s, "/api/runs/done-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary results.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "done-1", summary.RunID)
	assert.InDelta(t, 450, summary.NetPnL, 1e-9)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/runs/missing", nil).Code)
}

func TestServer_GetEquityAndTrades(t *testing.T) {
	s, archive, _ := newTestServer(t, Config{})
	require.NoError(t, archive.SaveSummary(archivedSummary("done-1")))

	rec := get(t, s, "/api/runs/done-1/equity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var equity []models.EquityPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &equity))
	assert.Len(t, equity, 2)

	rec = get(t, s, "/api/runs/done-1/trades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []models.TradeLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, models.ExitProfitTarget, trades[1].ExitReason)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/runs/missing/equity", nil).Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/runs/missing/trades", nil).Code)
}

func TestServer_ProgressLiveThenArchiveFallback(t *testing.T) {
	s, archive, tracker := newTestServer(t, Config{})
	tracker.Begin("live-1")
	tracker.Progress("live-1", 63, "simulating")
	require.NoError(t, archive.SaveSummary(archivedSummary("done-1")))

	rec := get(t, s, "/api/runs/live-1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state RunState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, StatusRunning, state.Status)
	assert.Equal(t, 63, state.Percent)

	// Finished runs are no longer tracked; the archive answers for them.
	rec = get(t, s, "/api/runs/done-1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, 100, state.Percent)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/runs/ghost/progress", nil).Code)
}

func TestServer_AuthToken(t *testing.T) {
	s, archive, _ := newTestServer(t, Config{AuthToken: "sekrit"})
	require.NoError(t, archive.SaveSummary(archivedSummary("done-1")))

	assert.Equal(t, http.StatusUnauthorized, get(t, s, "/api/runs", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		get(t, s, "/api/runs", map[string]string{"X-Auth-Token": "wrong"}).Code)

	assert.Equal(t, http.StatusOK,
		get(t, s, "/api/runs", map[string]string{"X-Auth-Token": "sekrit"}).Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/api/runs?token=sekrit", nil).Code)

	// Health stays open for probes.
	assert.Equal(t, http.StatusOK, get(t, s, "/health", nil).Code)
}
