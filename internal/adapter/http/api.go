package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
)

const maxBodyBytes = 1 << 20

// APIOptions are the service-wide defaults applied to API requests.
type APIOptions struct {
	HorizonHours   int
	AlertThreshold float64
	AQITable       domain.Table[domain.AQICategory]
}

// API serves the stateless projection operations over HTTP.
type API struct {
	opts   APIOptions
	logger *slog.Logger
}

// NewAPI creates the projection API. Zero options fall back to the domain defaults.
func NewAPI(opts APIOptions, logger *slog.Logger) *API {
	if opts.HorizonHours <= 0 {
		opts.HorizonHours = domain.DefaultHorizonHours
	}
	if len(opts.AQITable.Bands) == 0 {
		opts.AQITable = domain.AQICategories
	}
	return &API{opts: opts, logger: logger}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/forecast", a.handleForecast)
	mux.HandleFunc("POST /v1/risk", a.handleRisk)
	mux.HandleFunc("GET /v1/sensitivity", a.handleSensitivity)
	mux.HandleFunc("GET /v1/category", a.handleCategory)
}

type forecastRequest struct {
	HorizonHours   *int                 `json:"horizon_hours"`
	BaselineAQI    *float64             `json:"baseline_aqi"`
	Weather        *domain.WeatherInput `json:"weather"`
	StartTime      *time.Time           `json:"start_time"`
	Seed           *uint64              `json:"seed"`
	Jitter         *bool                `json:"jitter"`
	AlertThreshold *float64             `json:"alert_threshold"`
}

type forecastResponse struct {
	HorizonHours int                   `json:"horizon_hours"`
	Weather      domain.WeatherInput   `json:"weather"`
	Series       domain.ForecastSeries `json:"series"`
	Alerts       domain.AlertSet       `json:"alerts"`
	Peak         *domain.ForecastPoint `json:"peak,omitempty"`
}

func (a *API) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	horizon := a.opts.HorizonHours
	if req.HorizonHours != nil {
		horizon = *req.HorizonHours
	}
	if err := domain.ValidateHorizon(horizon); err != nil {
		writeError(w, err)
		return
	}

	baseline := domain.DefaultBaselineAQI
	if req.BaselineAQI != nil {
		if err := domain.ValidateAQI("baseline_aqi", *req.BaselineAQI); err != nil {
			writeError(w, err)
			return
		}
		baseline = *req.BaselineAQI
	}

	weather := domain.NeutralWeather
	if req.Weather != nil {
		if err := domain.ValidateWeather(*req.Weather); err != nil {
			writeError(w, err)
			return
		}
		weather = *req.Weather
	}

	threshold := a.opts.AlertThreshold
	if req.AlertThreshold != nil {
		if err := domain.ValidateAQI("alert_threshold", *req.AlertThreshold); err != nil {
			writeError(w, err)
			return
		}
		threshold = *req.AlertThreshold
	}

	opts := []domain.ForecastOption{domain.WithAQITable(a.opts.AQITable)}
	if req.StartTime != nil {
		opts = append(opts, domain.WithStartTime(req.StartTime.UTC()))
	}
	switch {
	case req.Jitter != nil && !*req.Jitter:
		opts = append(opts, domain.WithJitter(domain.NoJitter{}))
	case req.Seed != nil:
		opts = append(opts, domain.WithJitter(domain.NewSeededJitter(*req.Seed)))
	}

	series := domain.SynthesizeForecast(horizon, weather, baseline, opts...)
	resp := forecastResponse{
		HorizonHours: horizon,
		Weather:      weather,
		Series:       series,
		Alerts:       domain.ExtractAlerts(series, threshold),
	}
	if peak, ok := series.Peak(); ok {
		resp.Peak = &peak
	}

	a.logger.Debug("forecast served", "horizon_hours", horizon, "alert_count", resp.Alerts.Count)
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRisk(w http.ResponseWriter, r *http.Request) {
	var profile domain.HealthProfile
	if err := decodeBody(w, r, &profile); err != nil {
		writeError(w, err)
		return
	}
	if err := domain.ValidateProfile(profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ScoreRisk(profile))
}

func (a *API) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	aqi, err := queryAQI(r, "aqi")
	if err != nil {
		writeError(w, err)
		return
	}

	level := domain.SensitivityMedium
	if s := r.URL.Query().Get("level"); s != "" {
		level, err = strconv.Atoi(s)
		if err != nil {
			writeError(w, &domain.ValidationError{Field: "level", Reason: "must be an integer"})
			return
		}
	}
	if err := domain.ValidateSensitivityLevel(level); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.ClassifySensitivity(aqi, level))
}

type categoryResponse struct {
	AQI        float64            `json:"aqi"`
	Category   domain.AQICategory `json:"category"`
	Color      string             `json:"color"`
	AlertLevel domain.AlertLevel  `json:"alert_level"`
}

func (a *API) handleCategory(w http.ResponseWriter, r *http.Request) {
	aqi, err := queryAQI(r, "aqi")
	if err != nil {
		writeError(w, err)
		return
	}
	band := a.opts.AQITable.Lookup(aqi)
	writeJSON(w, http.StatusOK, categoryResponse{
		AQI:        aqi,
		Category:   band.Label,
		Color:      band.Color,
		AlertLevel: domain.ClassifyAlertLevel(aqi),
	})
}

func queryAQI(r *http.Request, name string) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, &domain.ValidationError{Field: name, Reason: "is required"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Reason: "must be a number"}
	}
	if err := domain.ValidateAQI(name, v); err != nil {
		return 0, err
	}
	return v, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrInvalidInput) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}
