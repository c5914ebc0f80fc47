package domain

import "math"

// SensitivityLabel is the real-time alert tier for the current reading.
type SensitivityLabel string

const (
	SensitivityLabelLow      SensitivityLabel = "Low"
	SensitivityLabelModerate SensitivityLabel = "Moderate"
	SensitivityLabelHigh     SensitivityLabel = "High"
	SensitivityLabelCritical SensitivityLabel = "Critical"
)

// SensitivityStatus is the alert tier for a reading at a given dial position.
type SensitivityStatus struct {
	Label         SensitivityLabel `json:"label"`
	ThresholdUsed int              `json:"threshold_used"`
}

// sensitivityThresholds is indexed by dial position.
var sensitivityThresholds = [...]int{
	SensitivityLow:    100,
	SensitivityMedium: 75,
	SensitivityHigh:   50,
}

// Offsets from the dial threshold that bound each tier.
const (
	moderateMargin = 25
	criticalMargin = 50
)

// SensitivityThreshold returns the AQI threshold for a dial position.
// Positions outside 0–2 are clamped to the nearest end.
func SensitivityThreshold(level int) int {
	return sensitivityThresholds[clampSensitivity(level)]
}

// sensitivityTable builds the tier table for threshold t. Bounds are
// inclusive, so "aqi > t" is the band above t.
func sensitivityTable(t int) Table[SensitivityLabel] {
	return Table[SensitivityLabel]{
		Name: "sensitivity",
		Bands: []Band[SensitivityLabel]{
			{Upper: float64(t - moderateMargin), Label: SensitivityLabelLow},
			{Upper: float64(t), Label: SensitivityLabelModerate},
			{Upper: float64(t + criticalMargin), Label: SensitivityLabelHigh},
			{Upper: math.Inf(1), Label: SensitivityLabelCritical},
		},
	}
}

// ClassifySensitivity maps the current AQI and a sensitivity dial position to
// an alert tier. It does not consult any health profile. NaN exceeds no
// threshold and is Low.
func ClassifySensitivity(currentAQI float64, level int) SensitivityStatus {
	t := SensitivityThreshold(level)
	label := SensitivityLabelLow
	if !math.IsNaN(currentAQI) {
		label = sensitivityTable(t).Lookup(currentAQI).Label
	}
	return SensitivityStatus{
		Label:         label,
		ThresholdUsed: t,
	}
}
