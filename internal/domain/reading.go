package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Weather sources recorded on a reading after enrichment.
const (
	WeatherSourceReading  = "reading"  // supplied with the reading
	WeatherSourceProvider = "provider" // fetched from the weather provider
	WeatherSourceNeutral  = "neutral"  // no provider configured
	WeatherSourceFallback = "fallback" // provider failed
)

// Reading is a current air-quality observation for one monitoring station,
// as published by the upstream collector.
type Reading struct {
	StationID    string        `json:"station_id" validate:"required"`
	City         string        `json:"city,omitempty"`
	Lat          float64       `json:"lat" validate:"finite,gte=-90,lte=90"`
	Lon          float64       `json:"lon" validate:"finite,gte=-180,lte=180"`
	AQI          float64       `json:"aqi" validate:"finite,gte=0"`
	ObservedAt   time.Time     `json:"observed_at"`
	HorizonHours int           `json:"horizon_hours,omitempty" validate:"gte=0,lte=168"`
	Weather      *WeatherInput `json:"weather,omitempty" validate:"-"`

	WeatherSource string `json:"-"`
}

// ParseReading deserializes and validates a reading from a raw message.
// A missing observation time falls back to the message timestamp, then to now.
func ParseReading(raw RawEvent) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return Reading{}, fmt.Errorf("parse reading: %w", err)
	}
	if r.ObservedAt.IsZero() {
		r.ObservedAt = raw.Timestamp
	}
	if r.ObservedAt.IsZero() {
		r.ObservedAt = clock.Now()
	}
	if err := ValidateReading(r); err != nil {
		return Reading{}, fmt.Errorf("parse reading: %w", err)
	}
	return r, nil
}
