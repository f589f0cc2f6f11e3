/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Asset registration, lookup and status changes
- Calculator endpoints (preview, expiry, schedule)
- Year-end endpoints (process, trigger, summary, runs)
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fixed-assets/api"
	"github.com/warp/fixed-assets/store/memory"
	"github.com/warp/fixed-assets/yearend"
)

type testServer struct {
	*httptest.Server
	service *yearend.Service
	store   *memory.Memory
}

func newTestServer(t *testing.T, now time.Time) *testServer {
	t.Helper()
	store := memory.NewMemory()
	service := yearend.NewService(store)
	service.Now = func() time.Time { return now }
	service.Logger = log.New(io.Discard, "", 0)

	registry := prometheus.NewRegistry()
	service.Metrics = yearend.NewMetrics(registry)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store, service), registry))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, service: service, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func (s *testServer) createForklift(t *testing.T) api.AssetDTO {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/assets", map[string]any{
		"name":             "Forklift",
		"category":         "Machinery",
		"cost":             "500000",
		"residual_value":   "50000",
		"useful_life":      5,
		"acquisition_date": "2025-10-15",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[api.AssetDTO](t, body)
}

// =============================================================================
// ASSETS
// =============================================================================

func TestCreateAndGetAsset(t *testing.T) {
	srv := newTestServer(t, time.Date(2025, time.October, 20, 12, 0, 0, 0, time.UTC))

	created := srv.createForklift(t)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Available", created.Status)
	assert.Equal(t, "2030-12-31", created.ExpiryDate)
	assert.Equal(t, "500000", created.NetBookValue.Decimal.String())
	require.NotNil(t, created.DepreciationYearsApplied)
	assert.Equal(t, 0, *created.DepreciationYearsApplied)

	status, body := srv.do(t, http.MethodGet, "/api/assets/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[api.AssetDTO](t, body)
	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.RemainingUsefulLife)
	assert.Equal(t, "5", got.RemainingUsefulLife.String())

	status, body = srv.do(t, http.MethodGet, "/api/assets", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]api.AssetDTO](t, body), 1)
}

func TestCreateAsset_Validation(t *testing.T) {
	srv := newTestServer(t, time.Date(2025, time.October, 20, 12, 0, 0, 0, time.UTC))

	cases := map[string]map[string]any{
		"missing name":       {"cost": 100, "useful_life": 5, "acquisition_date": "2025-01-01"},
		"bad date":           {"name": "x", "cost": 100, "useful_life": 5, "acquisition_date": "01/01/2025"},
		"zero life":          {"name": "x", "cost": 100, "useful_life": 0, "acquisition_date": "2025-01-01"},
		"residual over cost": {"name": "x", "cost": 100, "residual_value": 200, "useful_life": 5, "acquisition_date": "2025-01-01"},
		"unknown status":     {"name": "x", "status": "Lost", "cost": 100, "useful_life": 5, "acquisition_date": "2025-01-01"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, out := srv.do(t, http.MethodPost, "/api/assets", body)
			assert.Equal(t, http.StatusBadRequest, status, string(out))
			assert.NotEmpty(t, decode[api.ErrorResponse](t, out).Error)
		})
	}
}

func TestGetAsset_NotFound(t *testing.T) {
	srv := newTestServer(t, time.Now())

	status, _ := srv.do(t, http.MethodGet, "/api/assets/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(t, http.MethodPut, "/api/assets/missing/status", api.UpdateStatusRequest{Status: "Disposed"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpdateAssetStatus(t *testing.T) {
	srv := newTestServer(t, time.Date(2025, time.October, 20, 12, 0, 0, 0, time.UTC))
	created := srv.createForklift(t)

	status, body := srv.do(t, http.MethodPut, "/api/assets/"+created.ID+"/status", api.UpdateStatusRequest{Status: "Disposed"})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Disposed", decode[api.AssetDTO](t, body).Status)

	status, _ = srv.do(t, http.MethodPut, "/api/assets/"+created.ID+"/status", api.UpdateStatusRequest{Status: "Lost"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetAssetSchedule(t *testing.T) {
	srv := newTestServer(t, time.Date(2025, time.October, 20, 12, 0, 0, 0, time.UTC))
	created := srv.createForklift(t)

	status, body := srv.do(t, http.MethodGet, "/api/assets/"+created.ID+"/schedule", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	rows := decode[[]api.ScheduleRowDTO](t, body)
	require.Len(t, rows, 5)
	assert.Equal(t, 2025, rows[0].FiscalYear)
	assert.Equal(t, "22500", rows[0].Depreciation.String())
	assert.Equal(t, "90000", rows[1].Depreciation.String())
	assert.Equal(t, "2029-12-31", rows[4].YearEnd)
	assert.Equal(t, "117500", rows[4].NetBookValue.String())
}

// =============================================================================
// CALCULATORS
// =============================================================================

func TestPreviewDepreciation(t *testing.T) {
	srv := newTestServer(t, time.Now())

	status, body := srv.do(t, http.MethodPost, "/api/depreciation/preview", map[string]any{
		"cost":           500000,
		"residual_value": 50000,
		"useful_life":    5,
		"purchase_date":  "2025-10-15T08:00:00",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	preview := decode[api.DepreciationPreviewDTO](t, body)
	assert.Equal(t, "90000", preview.YearlyDepreciation.String())
	assert.Equal(t, "7500", preview.MonthlyDepreciation.String())
	assert.Equal(t, 3, preview.MonthsUsedInFirstYear)
	assert.Equal(t, "22500", preview.DepreciationToApply.String())
	assert.Equal(t, "477500", preview.NewNetBookValue.String())
	assert.True(t, preview.ShouldContinue)

	// Residual clamp
	status, body = srv.do(t, http.MethodPost, "/api/depreciation/preview", map[string]any{
		"cost":                       100000,
		"residual_value":             10000,
		"useful_life":                5,
		"purchase_date":              "2020-01-01",
		"depreciation_years_applied": 3,
		"current_net_book_value":     15000,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	preview = decode[api.DepreciationPreviewDTO](t, body)
	assert.Equal(t, "5000", preview.DepreciationToApply.String())
	assert.Equal(t, "10000", preview.NewNetBookValue.String())
	assert.False(t, preview.ShouldContinue)
}

func TestGetExpiry(t *testing.T) {
	srv := newTestServer(t, time.Now())

	status, body := srv.do(t, http.MethodGet, "/api/expiry?acquisition_date=2025-11-11&useful_life=5&as_of=2026-01-01", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	expiry := decode[api.ExpiryDTO](t, body)
	assert.Equal(t, 1, expiry.YearEndsPassed)
	assert.Equal(t, "4", expiry.RemainingUsefulLife.String())
	assert.Equal(t, "2030-12-31", expiry.ExpiryDate)
	assert.Equal(t, "2030-01-01", expiry.EstimatedExpiryDate)

	status, _ = srv.do(t, http.MethodGet, "/api/expiry?acquisition_date=2025-11-11&useful_life=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// YEAR-END
// =============================================================================

func TestProcessYearEnd_WrongDate(t *testing.T) {
	srv := newTestServer(t, time.Date(2025, time.December, 30, 12, 0, 0, 0, time.UTC))
	srv.createForklift(t)

	status, body := srv.do(t, http.MethodPost, "/api/year-end/process", nil)
	assert.Equal(t, http.StatusConflict, status)

	result := decode[yearend.BatchResult](t, body)
	assert.False(t, result.Success)
	assert.Equal(t, yearend.MessageNotYearEnd, result.Message)
	assert.Equal(t, 0, result.ProcessedCount)
}

func TestProcessYearEnd_AuditAndRuns(t *testing.T) {
	srv := newTestServer(t, time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC))
	created := srv.createForklift(t)

	status, body := srv.do(t, http.MethodPost, "/api/year-end/process", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	result := decode[yearend.BatchResult](t, body)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProcessedCount)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "22500", result.Results[0].DepreciationApplied.String())
	assert.True(t, result.Results[0].IsFirstYear)

	status, body = srv.do(t, http.MethodGet, "/api/assets/"+created.ID+"/audit", nil)
	require.Equal(t, http.StatusOK, status)
	entries := decode[[]api.AuditEntryDTO](t, body)
	require.Len(t, entries, 1)
	assert.Equal(t, "YEAR_END_DEPRECIATION", entries[0].Action)
	assert.Equal(t, "assets", entries[0].TableName)

	status, body = srv.do(t, http.MethodGet, "/api/year-end/runs", nil)
	require.Equal(t, http.StatusOK, status)
	runs := decode[[]api.YearEndRunDTO](t, body)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, "api", runs[0].Trigger)
	assert.Equal(t, "22500", runs[0].TotalDepreciation.String())

	status, body = srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), `fixed_assets_year_end_runs_total{outcome="completed"} 1`))
}

func TestTriggerYearEnd(t *testing.T) {
	srv := newTestServer(t, time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC))
	srv.createForklift(t)

	status, _ := srv.do(t, http.MethodPost, "/api/year-end/trigger", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := srv.do(t, http.MethodPost, "/api/year-end/trigger", api.TriggerYearEndRequest{FiscalYear: 2026})
	assert.Equal(t, http.StatusConflict, status, string(body))

	status, body = srv.do(t, http.MethodPost, "/api/year-end/trigger", api.TriggerYearEndRequest{FiscalYear: 2025})
	require.Equal(t, http.StatusOK, status, string(body))
	result := decode[yearend.BatchResult](t, body)
	assert.True(t, result.Success)
	assert.Equal(t, 2025, result.FiscalYear)
}

func TestGetYearEndSummary(t *testing.T) {
	srv := newTestServer(t, time.Date(2025, time.November, 2, 12, 0, 0, 0, time.UTC))
	srv.createForklift(t)

	status, body := srv.do(t, http.MethodGet, "/api/year-end/summary", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	summary := decode[api.YearEndSummaryDTO](t, body)
	assert.Nil(t, summary.LastRun)
	assert.Equal(t, 1, summary.EligibleAssets)
	assert.Equal(t, "100000", summary.EstimatedDepreciation.String())
	assert.False(t, summary.IsYearEnd)
	assert.Equal(t, "2025-11-02", summary.AsOf)
}
