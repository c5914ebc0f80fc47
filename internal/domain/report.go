package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultHorizonHours is used when neither the reading nor the options set one.
const DefaultHorizonHours = 24

// CurrentConditions categorizes the observed AQI of a reading.
type CurrentConditions struct {
	AQI        float64     `json:"aqi"`
	Category   AQICategory `json:"category"`
	Color      string      `json:"color"`
	AlertLevel AlertLevel  `json:"alert_level"`
}

// ForecastReport is the projection published for one station reading.
type ForecastReport struct {
	ID            string            `json:"id"`
	StationID     string            `json:"station_id"`
	City          string            `json:"city,omitempty"`
	Lat           float64           `json:"lat"`
	Lon           float64           `json:"lon"`
	ObservedAt    time.Time         `json:"observed_at"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Current       CurrentConditions `json:"current"`
	Weather       WeatherInput      `json:"weather"`
	WeatherSource string            `json:"weather_source"`
	HorizonHours  int               `json:"horizon_hours"`
	Series        ForecastSeries    `json:"series"`
	Alerts        AlertSet          `json:"alerts"`
	Peak          *ForecastPoint    `json:"peak,omitempty"`
}

// ReportOptions configures BuildReport.
type ReportOptions struct {
	HorizonHours   int
	AlertThreshold float64
	Jitter         Jitter
	AQITable       Table[AQICategory]
}

// BuildReport projects a reading into a forecast report. The series starts at
// the observation hour. Readings without weather are projected under
// NeutralWeather; run EnrichWithWeather first to fill it in.
func BuildReport(r Reading, opts ReportOptions) ForecastReport {
	horizon := r.HorizonHours
	if horizon <= 0 {
		horizon = opts.HorizonHours
	}
	if horizon <= 0 {
		horizon = DefaultHorizonHours
	}

	weather := NeutralWeather
	source := r.WeatherSource
	if r.Weather != nil {
		weather = *r.Weather
	}
	if source == "" {
		source = WeatherSourceNeutral
		if r.Weather != nil {
			source = WeatherSourceReading
		}
	}

	table := opts.AQITable
	if len(table.Bands) == 0 {
		table = AQICategories
	}

	start := r.ObservedAt.UTC().Truncate(time.Hour)
	series := SynthesizeForecast(horizon, weather, r.AQI,
		WithStartTime(start),
		WithJitter(opts.Jitter),
		WithAQITable(table),
	)
	alerts := ExtractAlerts(series, opts.AlertThreshold)

	current := table.Lookup(r.AQI)
	report := ForecastReport{
		ID:          reportID(r.StationID, r.ObservedAt, horizon),
		StationID:   r.StationID,
		City:        r.City,
		Lat:         r.Lat,
		Lon:         r.Lon,
		ObservedAt:  r.ObservedAt,
		GeneratedAt: clock.Now().UTC(),
		Current: CurrentConditions{
			AQI:        r.AQI,
			Category:   current.Label,
			Color:      current.Color,
			AlertLevel: ClassifyAlertLevel(r.AQI),
		},
		Weather:       weather,
		WeatherSource: source,
		HorizonHours:  horizon,
		Series:        series,
		Alerts:        alerts,
	}
	if peak, ok := series.Peak(); ok {
		report.Peak = &peak
	}
	return report
}

// reportID is deterministic so replays of the same reading overwrite rather
// than duplicate downstream.
func reportID(stationID string, observedAt time.Time, horizon int) string {
	name := fmt.Sprintf("%s|%s|%d", stationID, observedAt.UTC().Format(time.RFC3339), horizon)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("air-quality-report:"+name)).String()
}

// SerializeReport marshals a report into a sink message keyed by station.
func SerializeReport(report ForecastReport) (OutputEvent, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize forecast report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(report.StationID),
		Value: data,
		Headers: map[string]string{
			"report_id":    report.ID,
			"station_id":   report.StationID,
			"alert_count":  strconv.Itoa(report.Alerts.Count),
			"generated_at": report.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
