package domain

// AlertSet holds the forecast points whose AQI exceeds a threshold.
type AlertSet struct {
	Threshold float64         `json:"threshold"`
	Points    []ForecastPoint `json:"points"`
	Count     int             `json:"count"`
}

// ExtractAlerts returns the points of series with AQI strictly above
// threshold, in series order. The input is not modified.
func ExtractAlerts(series ForecastSeries, threshold float64) AlertSet {
	points := make([]ForecastPoint, 0, len(series))
	for _, p := range series {
		if float64(p.AQI) > threshold {
			points = append(points, p)
		}
	}
	return AlertSet{
		Threshold: threshold,
		Points:    points,
		Count:     len(points),
	}
}

// Peak returns the alerting point with the highest AQI.
func (a AlertSet) Peak() (ForecastPoint, bool) {
	return peakOf(a.Points)
}
