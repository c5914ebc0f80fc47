// Package domain holds the air-quality forecast and risk projection engine.
//
// # Scales
//
// AQI is the unitless US EPA-style Air Quality Index. The engine never computes
// AQI from concentrations; it starts from a baseline reading supplied by the
// upstream provider and projects it forward. Pollutant values attached to a
// forecast point are fixed fractions of the projected AQI, not measurements.
//
// Risk scores live on a 1–10 scale and are derived only from a HealthProfile.
//
// # Category tables
//
// Every categorical label comes from an ordered breakpoint table evaluated
// "first band whose upper bound is >= value":
//
//	AQI:   ≤50 Good | ≤100 Moderate | ≤150 Unhealthy for Sensitive Groups |
//	       ≤200 Unhealthy | ≤300 Very Unhealthy | else Hazardous
//	Alert: ≤100 good | ≤150 moderate | ≤200 unhealthy | else very unhealthy
//	Risk:  ≤3 Low | ≤5 Moderate | ≤7 High | else Very High
//
// Lookups are total: values below the first bound land in the first band,
// values above the last finite bound (and NaN) land in the open-ended band.
//
// # Forecast synthesis
//
// A forecast hour is the sum of a diurnal base, a weather coupling term and a
// bounded jitter:
//
//	base     baseline (default 120), +40 at 06–10h, +50 at 17–21h, −30 at 22–05h
//	weather  (T−25)·2 + (RH−50)·0.5 − (wind−10)·3
//	jitter   uniform in [−15, +15] from an injectable Jitter
//
// The result is rounded half up and floored at 50. Confidence decays linearly
// from 1.0 toward 0.6 across the horizon and widens the [lower, upper] band.
//
// # Risk and sensitivity
//
// The Risk Scorer integrates the whole health profile. The Sensitivity
// Classifier reacts only to the current AQI and the 0–2 sensitivity dial.
// The two are independent signals and are not expected to agree.
//
// # Validation
//
// Core functions are total and never return errors. Values arriving from
// outside (HTTP bodies, Kafka messages) go through [ValidateProfile],
// [ValidateWeather] and [ValidateReading], which reject non-finite numbers and
// out-of-range fields with errors wrapping [ErrInvalidInput].
package domain
