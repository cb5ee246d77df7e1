package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/models"
	"github.com/split2ynab/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStatusRouter(t *testing.T) {
	tracker := services.NewStatusTracker()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("split2ynab_runs_total 1\n"))
	})
	router := NewRouter(NewStatusHandler(tracker), metrics, logging.NewNoOpLogger())

	t.Run("health", func(t *testing.T) {
		rec := serve(t, router, http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("last run before any run", func(t *testing.T) {
		rec := serve(t, router, http.MethodGet, "/status/last-run")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"no sync run recorded yet"}`, rec.Body.String())
	})

	t.Run("status after runs", func(t *testing.T) {
		tracker.RecordRun(&services.RunResult{RunID: "r-1", State: services.StateDone, Created: 2}, nil)
		tracker.RecordRun(&services.RunResult{RunID: "r-2", State: services.StateFailed, Error: "boom"}, errors.New("boom"))
		tracker.RecordFunding([]models.FundingAdjustment{{Category: "Visa", Delta: 300, Applied: true}}, nil)

		rec := serve(t, router, http.MethodGet, "/status")
		require.Equal(t, http.StatusOK, rec.Code)

		var got services.Status
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 2, got.Runs)
		assert.Equal(t, 1, got.Failures)
		require.NotNil(t, got.LastRun)
		assert.Equal(t, "r-2", got.LastRun.RunID)
		assert.Equal(t, services.StateFailed, got.LastRun.State)
		require.NotNil(t, got.LastFunding)
		assert.Equal(t, int64(300), got.LastFunding.Adjustments[0].Delta)

		rec = serve(t, router, http.MethodGet, "/status/last-run")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"run_id":"r-2"`)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serve(t, router, http.MethodGet, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "split2ynab_runs_total")
	})

	t.Run("unknown route and method", func(t *testing.T) {
		rec := serve(t, router, http.MethodGet, "/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())

		rec = serve(t, router, http.MethodPost, "/status")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestStatusRouter_WithoutMetrics(t *testing.T) {
	router := NewRouter(NewStatusHandler(services.NewStatusTracker()), nil, logging.NewNoOpLogger())
	rec := serve(t, router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
