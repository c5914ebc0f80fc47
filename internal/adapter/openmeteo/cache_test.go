package openmeteo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
	"github.com/couchcryptid/air-quality-engine/internal/observability"
)

// --- mock for cache tests ---

type countingProvider struct {
	calls  int
	result domain.WeatherInput
	err    error
}

func (m *countingProvider) CurrentWeather(_ context.Context, _, _ float64) (domain.WeatherInput, error) {
	m.calls++
	return m.result, m.err
}

// --- CachedProvider tests ---

func TestCachedProvider_Hit(t *testing.T) {
	inner := &countingProvider{result: domain.NeutralWeather}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedProvider(inner, 10, metrics)

	w1, err := cached.CurrentWeather(context.Background(), 40.7128, -74.006)
	require.NoError(t, err)
	w2, err := cached.CurrentWeather(context.Background(), 40.7131, -74.0081) // same 0.01° cell
	require.NoError(t, err)

	assert.Equal(t, w1, w2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("miss")), 0)
}

func TestCachedProvider_DistinctCells(t *testing.T) {
	inner := &countingProvider{result: domain.NeutralWeather}
	cached := NewCachedProvider(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.CurrentWeather(context.Background(), 40.71, -74.00)
	_, _ = cached.CurrentWeather(context.Background(), 40.73, -74.00)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("timeout")}
	cached := NewCachedProvider(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.CurrentWeather(context.Background(), 1, 1)
	require.Error(t, err)
	_, err = cached.CurrentWeather(context.Background(), 1, 1)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &countingProvider{result: domain.NeutralWeather}
	cached := NewCachedProvider(inner, 10, observability.NewMetricsForTesting(), WithTTL(time.Minute), WithClock(clock))

	_, _ = cached.CurrentWeather(context.Background(), 1, 1)
	clock.Advance(59 * time.Second)
	_, _ = cached.CurrentWeather(context.Background(), 1, 1)
	assert.Equal(t, 1, inner.calls)

	clock.Advance(time.Second)
	_, _ = cached.CurrentWeather(context.Background(), 1, 1)
	assert.Equal(t, 2, inner.calls)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()
	later := now.Add(time.Hour)

	c.put("a", domain.WeatherInput{Temperature: 1}, later)
	c.put("b", domain.WeatherInput{Temperature: 2}, later)

	// Touch "a" so "b" is least recently used.
	_, ok := c.get("a", now)
	require.True(t, ok)

	c.put("c", domain.WeatherInput{Temperature: 3}, later)

	_, ok = c.get("b", now)
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.get("a", now)
	assert.True(t, ok)
	_, ok = c.get("c", now)
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()

	c.put("a", domain.WeatherInput{Temperature: 1}, now.Add(time.Hour))
	c.put("a", domain.WeatherInput{Temperature: 9}, now.Add(time.Hour))

	w, ok := c.get("a", now)
	require.True(t, ok)
	assert.Equal(t, 9.0, w.Temperature)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_ExpiredEntryRemoved(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()

	c.put("a", domain.NeutralWeather, now)
	_, ok := c.get("a", now)
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}
