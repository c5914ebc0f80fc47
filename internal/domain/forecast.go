package domain

import (
	"math"
	"time"
)

// WeatherInput is the weather snapshot a forecast is projected from.
// Units: °C, percent relative humidity, km/h, km.
type WeatherInput struct {
	Temperature float64 `json:"temperature" validate:"finite"`
	Humidity    float64 `json:"humidity" validate:"finite"`
	WindSpeed   float64 `json:"wind_speed" validate:"finite"`
	Visibility  float64 `json:"visibility" validate:"finite"`
}

// NeutralWeather sits on every pivot of the weather coupling, so it adds
// nothing to a projection.
var NeutralWeather = WeatherInput{Temperature: 25, Humidity: 50, WindSpeed: 10, Visibility: 10}

// ForecastPoint is one synthesized hour.
type ForecastPoint struct {
	OffsetHours int       `json:"offset_hours"`
	Time        time.Time `json:"time"`
	AQI         int       `json:"aqi"`
	AQIUpper    int       `json:"aqi_upper"`
	AQILower    int       `json:"aqi_lower"`
	PM25        int       `json:"pm25"`
	PM10        int       `json:"pm10"`
	NO2         int       `json:"no2"`
	O3          int       `json:"o3"`

	// Weather trace for charting only.
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`

	Confidence float64     `json:"confidence"`
	Category   AQICategory `json:"category"`
	Color      string      `json:"color"`
	AlertLevel AlertLevel  `json:"alert_level"`
}

// ForecastSeries is an hourly forecast ordered by OffsetHours.
type ForecastSeries []ForecastPoint

// Peak returns the point with the highest AQI. Ties keep the earliest point.
func (s ForecastSeries) Peak() (ForecastPoint, bool) {
	return peakOf(s)
}

func peakOf(points []ForecastPoint) (ForecastPoint, bool) {
	if len(points) == 0 {
		return ForecastPoint{}, false
	}
	peak := points[0]
	for _, p := range points[1:] {
		if p.AQI > peak.AQI {
			peak = p
		}
	}
	return peak, true
}

// Synthesis constants.
const (
	DefaultBaselineAQI = 120.0
	MinForecastAQI     = 50
	MaxForecastAQI     = 1 << 30
	JitterAmplitude    = 15.0
	MinConfidence      = 0.6
	confidenceSpan     = 0.4
	bandScale          = 35.0
)

// diurnalWindow adjusts the base for hours in [From, To].
type diurnalWindow struct {
	From, To int
	Delta    float64
}

// diurnalWindows never overlap, so at most one applies per hour.
var diurnalWindows = []diurnalWindow{
	{From: 0, To: 5, Delta: -30},   // night trough
	{From: 6, To: 10, Delta: 40},   // morning rush
	{From: 17, To: 21, Delta: 50},  // evening rush
	{From: 22, To: 23, Delta: -30}, // night trough
}

func diurnalDelta(hourOfDay int) float64 {
	for _, w := range diurnalWindows {
		if hourOfDay >= w.From && hourOfDay <= w.To {
			return w.Delta
		}
	}
	return 0
}

// WeatherCoefficients couple weather to projected AQI: each field contributes
// (value - pivot) * weight.
type WeatherCoefficients struct {
	TemperaturePivot, TemperatureWeight float64
	HumidityPivot, HumidityWeight       float64
	WindPivot, WindWeight               float64
}

// DefaultWeatherCoefficients: heat and humidity raise AQI, wind disperses it.
var DefaultWeatherCoefficients = WeatherCoefficients{
	TemperaturePivot: 25, TemperatureWeight: 2,
	HumidityPivot: 50, HumidityWeight: 0.5,
	WindPivot: 10, WindWeight: -3,
}

// Term returns the additive weather contribution for w.
func (c WeatherCoefficients) Term(w WeatherInput) float64 {
	return (w.Temperature-c.TemperaturePivot)*c.TemperatureWeight +
		(w.Humidity-c.HumidityPivot)*c.HumidityWeight +
		(w.WindSpeed-c.WindPivot)*c.WindWeight
}

// Pollutant fractions of the projected AQI.
const (
	pm25Fraction = 0.6
	pm10Fraction = 0.8
	no2Fraction  = 0.3
	o3Fraction   = 0.25
)

type forecastOptions struct {
	start    time.Time
	hasStart bool
	jitter   Jitter
	table    Table[AQICategory]
}

// ForecastOption customizes SynthesizeForecast.
type ForecastOption func(*forecastOptions)

// WithStartTime sets the time of offset 0. The default is the package clock's now.
func WithStartTime(t time.Time) ForecastOption {
	return func(o *forecastOptions) {
		o.start = t
		o.hasStart = true
	}
}

// WithJitter sets the randomness source. Pass NoJitter{} or a seeded source
// for reproducible output. Nil keeps the default.
func WithJitter(j Jitter) ForecastOption {
	return func(o *forecastOptions) {
		if j != nil {
			o.jitter = j
		}
	}
}

// WithAQITable replaces the AQI category table. Tables with no bands are ignored.
func WithAQITable(t Table[AQICategory]) ForecastOption {
	return func(o *forecastOptions) {
		if len(t.Bands) > 0 {
			o.table = t
		}
	}
}

// SynthesizeForecast projects baselineAQI forward horizonHours hours under
// weather. A non-finite baseline falls back to DefaultBaselineAQI. A
// non-positive horizon yields an empty series. Extreme inputs saturate at
// MaxForecastAQI.
//
// Each point draws four jitter values in order: AQI, temperature, humidity,
// wind speed.
func SynthesizeForecast(horizonHours int, weather WeatherInput, baselineAQI float64, opts ...ForecastOption) ForecastSeries {
	o := forecastOptions{table: AQICategories}
	for _, opt := range opts {
		opt(&o)
	}
	if horizonHours <= 0 {
		return ForecastSeries{}
	}
	if !o.hasStart {
		o.start = clock.Now()
	}
	if o.jitter == nil {
		o.jitter = NewRandomJitter()
	}
	if !isFinite(baselineAQI) {
		baselineAQI = DefaultBaselineAQI
	}

	// An infinite term saturates below; only an undefined one is dropped.
	weatherTerm := DefaultWeatherCoefficients.Term(weather)
	if math.IsNaN(weatherTerm) {
		weatherTerm = 0
	}
	startHour := o.start.Hour()
	series := make(ForecastSeries, horizonHours)

	for i := range horizonHours {
		hourOfDay := (startHour + i) % 24

		raw := baselineAQI + diurnalDelta(hourOfDay) + weatherTerm + o.jitter.Offset(JitterAmplitude)
		aqi := roundHalfUp(clamp(raw, MinForecastAQI, MaxForecastAQI))

		confidence := ConfidenceAt(i, horizonHours)
		half := roundHalfUp((1 - confidence) * bandScale)

		band := o.table.Lookup(float64(aqi))
		p := ForecastPoint{
			OffsetHours: i,
			Time:        o.start.Add(time.Duration(i) * time.Hour),
			AQI:         aqi,
			AQIUpper:    aqi + half,
			AQILower:    max(0, aqi-half),
			PM25:        roundHalfUp(pm25Fraction * float64(aqi)),
			PM10:        roundHalfUp(pm10Fraction * float64(aqi)),
			NO2:         roundHalfUp(no2Fraction * float64(aqi)),
			O3:          roundHalfUp(o3Fraction * float64(aqi)),
			Confidence:  confidence,
			Category:    band.Label,
			Color:       band.Color,
			AlertLevel:  ClassifyAlertLevel(float64(aqi)),
		}
		p.Temperature, p.Humidity, p.WindSpeed = weatherTrace(weather, i, o.jitter)
		series[i] = p
	}
	return series
}

// ConfidenceAt is the confidence of offset i in a horizon of h hours:
// 1.0 at the start, decaying linearly by 0.4 across the horizon, never below 0.6.
func ConfidenceAt(i, h int) float64 {
	if h <= 0 {
		return 1
	}
	return math.Max(MinConfidence, 1-(float64(i)/float64(h))*confidenceSpan)
}

// weatherTrace oscillates the input weather over a daily cycle.
func weatherTrace(w WeatherInput, i int, j Jitter) (temp, humidity, wind float64) {
	phase := 2 * math.Pi * float64(i) / 24
	temp = w.Temperature + 3*math.Sin(phase) + j.Offset(1)
	humidity = clamp(w.Humidity-10*math.Sin(phase)+j.Offset(3), 0, 100)
	wind = math.Max(0, w.WindSpeed+2*math.Sin(2*phase)+j.Offset(1))
	return round1(temp), round1(humidity), round1(wind)
}

// roundHalfUp rounds to the nearest integer with .5 going toward +Inf.
// x must lie within the int range.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func round1(x float64) float64 {
	r := math.Round(x*10) / 10
	if math.IsInf(r, 0) {
		return x
	}
	return r
}
