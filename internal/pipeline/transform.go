package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
	"github.com/couchcryptid/air-quality-engine/internal/observability"
)

// ForecastTransformer implements Transformer: it turns a reading message into
// a serialized forecast report, filling in weather from an optional provider.
type ForecastTransformer struct {
	weather domain.WeatherProvider
	opts    domain.ReportOptions
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates a ForecastTransformer. Pass a nil provider to
// project weatherless readings under neutral weather.
func NewTransformer(weather domain.WeatherProvider, opts domain.ReportOptions, metrics *observability.Metrics, logger *slog.Logger) *ForecastTransformer {
	return &ForecastTransformer{
		weather: weather,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
}

func (t *ForecastTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	reading, err := domain.ParseReading(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	reading = domain.EnrichWithWeather(ctx, reading, t.weather, t.logger)
	report := domain.BuildReport(reading, t.opts)

	out, err := domain.SerializeReport(report)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	for _, p := range report.Series {
		t.metrics.ForecastPoints.WithLabelValues(string(p.Category)).Inc()
	}
	t.metrics.AlertsEmitted.Add(float64(report.Alerts.Count))

	if report.Alerts.Count > 0 {
		t.logger.Info("forecast alerts",
			"station_id", report.StationID,
			"alert_count", report.Alerts.Count,
			"peak_aqi", report.Peak.AQI,
			"peak_time", report.Peak.Time,
		)
	}
	return out, nil
}
