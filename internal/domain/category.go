package domain

import (
	"fmt"
	"math"
	"sort"
)

// AQICategory is the six-level AQI category label.
type AQICategory string

const (
	AQIGood               AQICategory = "Good"
	AQIModerate           AQICategory = "Moderate"
	AQIUnhealthySensitive AQICategory = "Unhealthy for Sensitive Groups"
	AQIUnhealthy          AQICategory = "Unhealthy"
	AQIVeryUnhealthy      AQICategory = "Very Unhealthy"
	AQIHazardous          AQICategory = "Hazardous"
)

// AlertLevel is the coarse four-bucket label used for compact alerting.
type AlertLevel string

const (
	AlertGood          AlertLevel = "good"
	AlertModerate      AlertLevel = "moderate"
	AlertUnhealthy     AlertLevel = "unhealthy"
	AlertVeryUnhealthy AlertLevel = "very unhealthy"
)

// RiskCategory is the personal risk label derived from a risk score.
type RiskCategory string

const (
	RiskLow      RiskCategory = "Low"
	RiskModerate RiskCategory = "Moderate"
	RiskHigh     RiskCategory = "High"
	RiskVeryHigh RiskCategory = "Very High"
)

// Band is one row of a breakpoint table. A value belongs to the first band
// whose Upper bound is greater than or equal to it.
type Band[L ~string] struct {
	Upper float64 `json:"upper" yaml:"upper"`
	Label L       `json:"label" yaml:"label"`
	Color string  `json:"color,omitempty" yaml:"color"`
}

// Table is an ordered breakpoint table. Bands are sorted by ascending Upper
// and the last band is open-ended: its Upper is never consulted.
type Table[L ~string] struct {
	Name  string    `json:"name" yaml:"name"`
	Bands []Band[L] `json:"bands" yaml:"bands"`
}

// Lookup returns the band for v. It is total: values below the first bound
// resolve to the first band, values past the last finite bound (and NaN)
// resolve to the last band. An empty table returns the zero Band.
func (t Table[L]) Lookup(v float64) Band[L] {
	n := len(t.Bands)
	if n == 0 {
		return Band[L]{}
	}
	i := sort.Search(n-1, func(i int) bool { return t.Bands[i].Upper >= v })
	return t.Bands[i]
}

// Validate reports whether the table can be used for lookups.
func (t Table[L]) Validate() error {
	if len(t.Bands) == 0 {
		return fmt.Errorf("table %q: no bands", t.Name)
	}
	for i, b := range t.Bands {
		if b.Label == "" {
			return fmt.Errorf("table %q: band %d has no label", t.Name, i)
		}
		if i == len(t.Bands)-1 {
			break
		}
		if math.IsNaN(b.Upper) || math.IsInf(b.Upper, 0) {
			return fmt.Errorf("table %q: band %d upper bound must be finite", t.Name, i)
		}
		if i > 0 && b.Upper <= t.Bands[i-1].Upper {
			return fmt.Errorf("table %q: band %d upper bound %g not above %g", t.Name, i, b.Upper, t.Bands[i-1].Upper)
		}
	}
	return nil
}

// Default tables. Callers must treat them as read-only.
var (
	AQICategories = Table[AQICategory]{
		Name: "us-epa-aqi",
		Bands: []Band[AQICategory]{
			{Upper: 50, Label: AQIGood, Color: "green"},
			{Upper: 100, Label: AQIModerate, Color: "yellow"},
			{Upper: 150, Label: AQIUnhealthySensitive, Color: "orange"},
			{Upper: 200, Label: AQIUnhealthy, Color: "red"},
			{Upper: 300, Label: AQIVeryUnhealthy, Color: "purple"},
			{Upper: math.Inf(1), Label: AQIHazardous, Color: "maroon"},
		},
	}

	AlertLevels = Table[AlertLevel]{
		Name: "alert-levels",
		Bands: []Band[AlertLevel]{
			{Upper: 100, Label: AlertGood, Color: "green"},
			{Upper: 150, Label: AlertModerate, Color: "yellow"},
			{Upper: 200, Label: AlertUnhealthy, Color: "orange"},
			{Upper: math.Inf(1), Label: AlertVeryUnhealthy, Color: "red"},
		},
	}

	RiskCategories = Table[RiskCategory]{
		Name: "personal-risk",
		Bands: []Band[RiskCategory]{
			{Upper: 3, Label: RiskLow, Color: "green"},
			{Upper: 5, Label: RiskModerate, Color: "yellow"},
			{Upper: 7, Label: RiskHigh, Color: "orange"},
			{Upper: math.Inf(1), Label: RiskVeryHigh, Color: "red"},
		},
	}
)

// CategorizeAQI looks up aqi in the default AQI table.
func CategorizeAQI(aqi float64) Band[AQICategory] {
	return AQICategories.Lookup(aqi)
}

// ClassifyAlertLevel looks up aqi in the four-bucket alert table.
func ClassifyAlertLevel(aqi float64) AlertLevel {
	return AlertLevels.Lookup(aqi).Label
}

// CategorizeRisk looks up score in the default risk table.
func CategorizeRisk(score float64) RiskCategory {
	return RiskCategories.Lookup(score).Label
}
