package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
	"github.com/couchcryptid/air-quality-engine/internal/observability"
)

// DefaultBaseURL is the public Open-Meteo API.
const DefaultBaseURL = "https://api.open-meteo.com"

const currentFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,visibility"

// Client implements domain.WeatherProvider using the Open-Meteo forecast API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[domain.WeatherInput]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. The breaker opens after five
// consecutive failures and probes again after 30s.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		breaker:    newBreaker("open-meteo", logger),
		metrics:    metrics,
		logger:     logger,
	}
}

func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker[domain.WeatherInput] {
	return gobreaker.NewCircuitBreaker[domain.WeatherInput](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("weather circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// CurrentWeather fetches current conditions at lat/lon.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (domain.WeatherInput, error) {
	start := time.Now()
	w, err := c.breaker.Execute(func() (domain.WeatherInput, error) {
		return c.fetch(ctx, lat, lon)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.WeatherRequests.WithLabelValues("rejected").Inc()
		return domain.WeatherInput{}, fmt.Errorf("weather provider unavailable: %w", err)
	case err != nil:
		c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherInput{}, err
	}

	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	return w, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (domain.WeatherInput, error) {
	params := url.Values{
		"latitude":        {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":       {strconv.FormatFloat(lon, 'f', 4, 64)},
		"current":         {currentFields},
		"wind_speed_unit": {"kmh"},
		"timezone":        {"UTC"},
	}
	fullURL := c.baseURL + "/v1/forecast?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherInput{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherInput{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.WeatherInput{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.WeatherInput{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Current == nil {
		return domain.WeatherInput{}, errors.New("open-meteo response has no current block")
	}

	c.logger.Debug("weather fetched", "lat", lat, "lon", lon, "time", out.Current.Time)
	return out.Current.weather(), nil
}

// Open-Meteo API response types.

type response struct {
	Current *current `json:"current"`
}

type current struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature_2m"`
	Humidity    float64 `json:"relative_humidity_2m"`
	WindSpeed   float64 `json:"wind_speed_10m"`
	Visibility  float64 `json:"visibility"` // metres
}

func (c current) weather() domain.WeatherInput {
	return domain.WeatherInput{
		Temperature: c.Temperature,
		Humidity:    c.Humidity,
		WindSpeed:   c.WindSpeed,
		Visibility:  c.Visibility / 1000,
	}
}
