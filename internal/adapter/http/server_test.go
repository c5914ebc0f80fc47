package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/air-quality-engine/internal/adapter/http"
	"github.com/couchcryptid/air-quality-engine/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error) *httpadapter.Server {
	api := httpadapter.NewAPI(httpadapter.APIOptions{AlertThreshold: 150}, slog.Default())
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, api, slog.Default())
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(t, newTestServer(fmt.Errorf("not ready yet")), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewServer_WithoutAPI(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, nil, slog.Default())
	rec := do(t, srv, http.MethodGet, "/v1/category?aqi=10", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForecastEndpoint(t *testing.T) {
	body := `{
		"horizon_hours": 6,
		"baseline_aqi": 120,
		"start_time": "2025-03-14T04:00:00Z",
		"jitter": false
	}`
	rec := do(t, newTestServer(nil), http.MethodPost, "/v1/forecast", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		HorizonHours int                   `json:"horizon_hours"`
		Weather      domain.WeatherInput   `json:"weather"`
		Series       domain.ForecastSeries `json:"series"`
		Alerts       domain.AlertSet       `json:"alerts"`
		Peak         *domain.ForecastPoint `json:"peak"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 6, resp.HorizonHours)
	assert.Equal(t, domain.NeutralWeather, resp.Weather)
	require.Len(t, resp.Series, 6)

	got := make([]int, len(resp.Series))
	for i, p := range resp.Series {
		got[i] = p.AQI
	}
	assert.Equal(t, []int{90, 90, 160, 160, 160, 160}, got)

	assert.InDelta(t, 150, resp.Alerts.Threshold, 0)
	assert.Equal(t, 4, resp.Alerts.Count)
	require.NotNil(t, resp.Peak)
	assert.Equal(t, 2, resp.Peak.OffsetHours)
}

func TestForecastEndpoint_ExtremeWeatherSaturates(t *testing.T) {
	body := `{
		"horizon_hours": 3,
		"weather": {"temperature": 1e300, "humidity": 50, "wind_speed": 10, "visibility": 10},
		"jitter": false
	}`
	rec := do(t, newTestServer(nil), http.MethodPost, "/v1/forecast", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Series domain.ForecastSeries `json:"series"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Series, 3)
	for _, p := range resp.Series {
		assert.Equal(t, domain.MaxForecastAQI, p.AQI)
		assert.Equal(t, domain.AQIHazardous, p.Category)
	}
}

func TestForecastEndpoint_SeedIsReproducible(t *testing.T) {
	srv := newTestServer(nil)
	body := `{"horizon_hours": 12, "start_time": "2025-03-14T00:00:00Z", "seed": 42}`

	first := do(t, srv, http.MethodPost, "/v1/forecast", body)
	second := do(t, srv, http.MethodPost, "/v1/forecast", body)
	require.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestForecastEndpoint_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "zero horizon", body: `{"horizon_hours": 0}`, field: "horizon_hours"},
		{name: "horizon too long", body: `{"horizon_hours": 169}`, field: "horizon_hours"},
		{name: "negative baseline", body: `{"baseline_aqi": -1}`, field: "baseline_aqi"},
		{name: "negative threshold", body: `{"alert_threshold": -5}`, field: "alert_threshold"},
		{name: "unknown field", body: `{"horizon": 12}`, field: "unknown field"},
		{name: "malformed", body: `{"horizon_hours":`, field: "decode request body"},
	}

	srv := newTestServer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/forecast", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tt.field)
		})
	}
}

func TestRiskEndpoint(t *testing.T) {
	body := `{"age": 70, "conditions": ["asthma", "copd"], "activity_level": "sedentary", "sensitivity_level": 2}`
	rec := do(t, newTestServer(nil), http.MethodPost, "/v1/risk", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got domain.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 10.0, got.Score, 1e-9)
	assert.Equal(t, domain.RiskVeryHigh, got.Category)
	assert.InDelta(t, 3.0, got.Breakdown.Conditions, 1e-9)
}

func TestRiskEndpoint_InvalidProfile(t *testing.T) {
	body := `{"age": 30, "conditions": ["gout"], "activity_level": "light", "sensitivity_level": 0}`
	rec := do(t, newTestServer(nil), http.MethodPost, "/v1/risk", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "conditions")
}

func TestSensitivityEndpoint(t *testing.T) {
	tests := []struct {
		target    string
		label     domain.SensitivityLabel
		threshold int
	}{
		{target: "/v1/sensitivity?aqi=80&level=1", label: domain.SensitivityLabelHigh, threshold: 75},
		{target: "/v1/sensitivity?aqi=80", label: domain.SensitivityLabelHigh, threshold: 75},
		{target: "/v1/sensitivity?aqi=80&level=0", label: domain.SensitivityLabelModerate, threshold: 100},
		{target: "/v1/sensitivity?aqi=101&level=2", label: domain.SensitivityLabelCritical, threshold: 50},
	}

	srv := newTestServer(nil)
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var got domain.SensitivityStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.threshold, got.ThresholdUsed)
		})
	}
}

func TestSensitivityEndpoint_Rejects(t *testing.T) {
	srv := newTestServer(nil)
	for _, target := range []string{
		"/v1/sensitivity",
		"/v1/sensitivity?aqi=abc",
		"/v1/sensitivity?aqi=NaN",
		"/v1/sensitivity?aqi=50&level=3",
		"/v1/sensitivity?aqi=50&level=high",
	} {
		rec := do(t, srv, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestCategoryEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/v1/category?aqi=120", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, string(domain.AQIUnhealthySensitive), got["category"])
	assert.Equal(t, "orange", got["color"])
	assert.Equal(t, string(domain.AlertModerate), got["alert_level"])
}
