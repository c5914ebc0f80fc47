package domain

import (
	"context"
	"log/slog"
)

// WeatherProvider supplies current weather for a coordinate.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (WeatherInput, error)
}

// EnrichWithWeather fills in the weather of a reading that arrived without
// it. Readings that carry weather are left as they are. When provider is nil
// or fails, the reading gets NeutralWeather (graceful degradation) and
// WeatherSource records which path was taken.
func EnrichWithWeather(ctx context.Context, r Reading, provider WeatherProvider, logger *slog.Logger) Reading {
	if r.Weather != nil {
		r.WeatherSource = WeatherSourceReading
		return r
	}

	neutral := NeutralWeather
	if provider == nil {
		r.Weather = &neutral
		r.WeatherSource = WeatherSourceNeutral
		return r
	}

	w, err := provider.CurrentWeather(ctx, r.Lat, r.Lon)
	if err == nil {
		err = ValidateWeather(w)
	}
	if err != nil {
		logger.Warn("weather lookup failed, using neutral weather",
			"station_id", r.StationID,
			"lat", r.Lat,
			"lon", r.Lon,
			"error", err,
		)
		r.Weather = &neutral
		r.WeatherSource = WeatherSourceFallback
		return r
	}

	r.Weather = &w
	r.WeatherSource = WeatherSourceProvider
	return r
}
