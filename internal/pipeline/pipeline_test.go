package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
	"github.com/couchcryptid/air-quality-engine/internal/observability"
	"github.com/couchcryptid/air-quality-engine/internal/pipeline"
)

// --- mocks ---

// mockExtractor hands out its events in batches, then blocks until the
// context is cancelled to simulate waiting for messages.
type mockExtractor struct {
	mu      sync.Mutex
	events  []domain.RawEvent
	errs    []error
	batches atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	m.batches.Add(1)
	m.mu.Lock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return nil, err
	}
	if len(m.events) > 0 {
		n := min(batchSize, len(m.events))
		batch := m.events[:n]
		m.events = m.events[n:]
		m.mu.Unlock()
		return batch, nil
	}
	m.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.OutputEvent
	batches  int
	failures int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.batches++
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) snapshot() []domain.OutputEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...)
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawReading(t, "nyc-01", 88)

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 10)
	require.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, raw.Value, loaded[0].Value)
	assert.True(t, p.Ready())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReadingsConsumed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_Batches(t *testing.T) {
	events := make([]domain.RawEvent, 7)
	for i := range events {
		events[i] = makeRawReading(t, fmt.Sprintf("st-%d", i), 50)
	}

	ext := &mockExtractor{events: events}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 3)
	runFor(t, p, 300*time.Millisecond)

	assert.Len(t, ldr.snapshot(), 7)
	assert.Equal(t, 3, ldr.batches)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.snapshot())
}

func TestPipeline_Run_TransformError(t *testing.T) {
	committed := false
	raw := makeRawReading(t, "nyc-01", 88)
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{err: fmt.Errorf("parse reading: %w", domain.ErrInvalidInput)}, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.snapshot())
	assert.False(t, p.Ready())
	assert.True(t, committed, "poison messages are committed so they are not redelivered")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors.WithLabelValues("invalid")), 0)
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int32
	raw := makeRawReading(t, "nyc-01", 88)
	raw.Topic = "air-quality-readings"
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, int32(1), commits.Load())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int32
	raw := makeRawReading(t, "nyc-01", 88)
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{failures: 1}
	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 400*time.Millisecond)

	assert.Empty(t, ldr.snapshot())
	assert.Equal(t, int32(0), commits.Load())
	assert.False(t, p.Ready())
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	raw := makeRawReading(t, "nyc-01", 88)
	ext := &mockExtractor{events: []domain.RawEvent{raw}, errs: []error{errors.New("coordinator not available")}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 600*time.Millisecond)

	assert.Len(t, ldr.snapshot(), 1, "recovers after the first backoff")
}

// --- transformer tests ---

func TestForecastTransformer_Transform(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	metrics := newTestMetrics()
	tfm := pipeline.NewTransformer(nil, domain.ReportOptions{
		HorizonHours:   24,
		AlertThreshold: 150,
		Jitter:         domain.NoJitter{},
	}, metrics, slog.Default())

	raw := makeRawReading(t, "nyc-01", 120)
	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, []byte("nyc-01"), out.Key)
	assert.Equal(t, "nyc-01", out.Headers["station_id"])
	assert.Equal(t, "2025-03-14T07:00:00Z", out.Headers["generated_at"])

	var report domain.ForecastReport
	require.NoError(t, json.Unmarshal(out.Value, &report))
	assert.Equal(t, domain.WeatherSourceNeutral, report.WeatherSource)
	assert.Len(t, report.Series, 24)
	assert.Equal(t, fmt.Sprint(report.Alerts.Count), out.Headers["alert_count"])
	assert.InDelta(t, float64(report.Alerts.Count), testutil.ToFloat64(metrics.AlertsEmitted), 0)

	// 06:00 start under neutral weather: two rush windows, midday, and night.
	assert.InDelta(t, 10, testutil.ToFloat64(metrics.ForecastPoints.WithLabelValues(string(domain.AQIUnhealthy))), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(metrics.ForecastPoints.WithLabelValues(string(domain.AQIUnhealthySensitive))), 0)
	assert.InDelta(t, 8, testutil.ToFloat64(metrics.ForecastPoints.WithLabelValues(string(domain.AQIModerate))), 0)

	type summary struct {
		StationID string
		Horizon   int
		PeakAQI   int
	}
	want := summary{StationID: "nyc-01", Horizon: 24, PeakAQI: 170}
	got := summary{StationID: report.StationID, Horizon: report.HorizonHours, PeakAQI: report.Peak.AQI}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

type stubWeather struct {
	weather domain.WeatherInput
	err     error
}

func (s stubWeather) CurrentWeather(context.Context, float64, float64) (domain.WeatherInput, error) {
	return s.weather, s.err
}

func TestForecastTransformer_UsesWeatherProvider(t *testing.T) {
	hot := domain.WeatherInput{Temperature: 35, Humidity: 50, WindSpeed: 10, Visibility: 10}
	tfm := pipeline.NewTransformer(stubWeather{weather: hot}, domain.ReportOptions{Jitter: domain.NoJitter{}}, newTestMetrics(), slog.Default())

	out, err := tfm.Transform(context.Background(), makeRawReading(t, "phx-01", 100))
	require.NoError(t, err)

	var report domain.ForecastReport
	require.NoError(t, json.Unmarshal(out.Value, &report))
	assert.Equal(t, domain.WeatherSourceProvider, report.WeatherSource)
	assert.Equal(t, hot, report.Weather)
}

func TestForecastTransformer_ProviderFailureFallsBack(t *testing.T) {
	tfm := pipeline.NewTransformer(stubWeather{err: errors.New("timeout")}, domain.ReportOptions{Jitter: domain.NoJitter{}}, newTestMetrics(), slog.Default())

	out, err := tfm.Transform(context.Background(), makeRawReading(t, "phx-01", 100))
	require.NoError(t, err)

	var report domain.ForecastReport
	require.NoError(t, json.Unmarshal(out.Value, &report))
	assert.Equal(t, domain.WeatherSourceFallback, report.WeatherSource)
	assert.Equal(t, domain.NeutralWeather, report.Weather)
}

func TestForecastTransformer_InvalidReading(t *testing.T) {
	tfm := pipeline.NewTransformer(nil, domain.ReportOptions{}, newTestMetrics(), slog.Default())

	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"aqi":50}`)})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("not json")})
	require.Error(t, err)
}

// --- helpers ---

func makeRawReading(t *testing.T, stationID string, aqi float64) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(domain.Reading{
		StationID:  stationID,
		Lat:        40.71,
		Lon:        -74.0,
		AQI:        aqi,
		ObservedAt: time.Date(2025, 3, 14, 6, 20, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(stationID),
		Value: data,
	}
}
