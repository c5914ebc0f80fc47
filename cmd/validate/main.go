// Command validate checks the mock data fixtures end to end: every reading
// must be valid, every generated report must satisfy the projection
// invariants, and re-projecting the readings with the same seed must
// reproduce the report fixture exactly.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -readings data/mock/readings.json \
//	  -forecasts data/mock/forecasts.json \
//	  -seed 20250314
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
)

// generatedAt must match cmd/genforecast.
var generatedAt = time.Date(2025, time.March, 14, 23, 0, 0, 0, time.UTC)

const alertThreshold = 150

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	readingsPath := flag.String("readings", "data/mock/readings.json", "path to the readings fixture")
	forecastsPath := flag.String("forecasts", "data/mock/forecasts.json", "path to the forecast report fixture")
	seed := flag.Uint64("seed", 20250314, "base jitter seed used by genforecast")
	flag.Parse()

	if code := run(*readingsPath, *forecastsPath, *seed); code != 0 {
		os.Exit(code)
	}
}

func run(readingsPath, forecastsPath string, seed uint64) int {
	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	fmt.Println("=== Air Quality Fixture Validation ===")
	fmt.Println()

	readings, err := loadJSON[domain.Reading](readingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load readings: %v\n", err)
		return 1
	}

	reports, err := loadJSON[domain.ForecastReport](forecastsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load forecasts: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateReadings(readings),
		validateReportInvariants(reports),
		validateReproducibility(readings, reports, seed),
		validateCrossReference(readings, reports),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d readings, %d reports\n", len(readings), len(reports))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Phase 1: readings ──

func validateReadings(readings []domain.Reading) *phase {
	p := &phase{name: "Phase 1: Reading validity"}
	seen := map[string]bool{}
	for i, r := range readings {
		if err := domain.ValidateReading(r); err != nil {
			p.errorf("reading %d (%s): %v", i, r.StationID, err)
		}
		if r.ObservedAt.IsZero() {
			p.errorf("reading %d (%s): observed_at is zero", i, r.StationID)
		}
		if seen[r.StationID] {
			p.errorf("reading %d: duplicate station_id %q", i, r.StationID)
		}
		seen[r.StationID] = true
	}
	return p
}

// ── Phase 2: report invariants ──

func validateReportInvariants(reports []domain.ForecastReport) *phase {
	p := &phase{name: "Phase 2: Report invariants"}
	for i := range reports {
		checkReport(p, i, &reports[i])
	}
	return p
}

func checkReport(p *phase, i int, r *domain.ForecastReport) {
	pf := func(format string, args ...any) {
		p.errorf("report %d (%s): "+format, append([]any{i, r.StationID}, args...)...)
	}

	if r.HorizonHours < 1 || r.HorizonHours > domain.MaxHorizonHours {
		pf("horizon %d out of range", r.HorizonHours)
	}
	if len(r.Series) != r.HorizonHours {
		pf("series has %d points, horizon is %d", len(r.Series), r.HorizonHours)
	}
	if !r.GeneratedAt.Equal(generatedAt) {
		pf("generated_at %s, expected %s", r.GeneratedAt.Format(time.RFC3339), generatedAt.Format(time.RFC3339))
	}

	start := r.ObservedAt.UTC().Truncate(time.Hour)
	for j := range r.Series {
		checkPoint(pf, j, start, len(r.Series), &r.Series[j])
	}

	if r.Alerts.Count != len(r.Alerts.Points) {
		pf("alert count %d but %d alert points", r.Alerts.Count, len(r.Alerts.Points))
	}
	for _, a := range r.Alerts.Points {
		if float64(a.AQI) <= r.Alerts.Threshold {
			pf("alert point at offset %d has AQI %d <= threshold %g", a.OffsetHours, a.AQI, r.Alerts.Threshold)
		}
	}
	want := domain.ExtractAlerts(r.Series, r.Alerts.Threshold)
	if want.Count != r.Alerts.Count {
		pf("series has %d points above threshold, report lists %d", want.Count, r.Alerts.Count)
	}

	peak, ok := r.Series.Peak()
	switch {
	case !ok && r.Peak != nil:
		pf("peak set on an empty series")
	case ok && r.Peak == nil:
		pf("peak missing")
	case ok && peak.OffsetHours != r.Peak.OffsetHours:
		pf("peak at offset %d, expected %d", r.Peak.OffsetHours, peak.OffsetHours)
	}

	if got := domain.CategorizeAQI(r.Current.AQI).Label; got != r.Current.Category {
		pf("current category %q, expected %q", r.Current.Category, got)
	}
}

func checkPoint(pf func(string, ...any), j int, start time.Time, horizon int, pt *domain.ForecastPoint) {
	if pt.OffsetHours != j {
		pf("point %d has offset %d", j, pt.OffsetHours)
	}
	if want := start.Add(time.Duration(j) * time.Hour); !pt.Time.Equal(want) {
		pf("point %d time %s, expected %s", j, pt.Time.Format(time.RFC3339), want.Format(time.RFC3339))
	}
	if pt.AQI < domain.MinForecastAQI {
		pf("point %d AQI %d below floor %d", j, pt.AQI, domain.MinForecastAQI)
	}
	if pt.AQILower > pt.AQI || pt.AQIUpper < pt.AQI || pt.AQILower < 0 {
		pf("point %d band [%d, %d] does not contain %d", j, pt.AQILower, pt.AQIUpper, pt.AQI)
	}
	if !floatEq(pt.Confidence, domain.ConfidenceAt(j, horizon)) {
		pf("point %d confidence %g, expected %g", j, pt.Confidence, domain.ConfidenceAt(j, horizon))
	}
	if got := domain.CategorizeAQI(float64(pt.AQI)).Label; got != pt.Category {
		pf("point %d category %q, expected %q", j, pt.Category, got)
	}
	if got := domain.ClassifyAlertLevel(float64(pt.AQI)); got != pt.AlertLevel {
		pf("point %d alert level %q, expected %q", j, pt.AlertLevel, got)
	}
	if pt.Humidity < 0 || pt.Humidity > 100 {
		pf("point %d humidity %g outside 0..100", j, pt.Humidity)
	}
	if pt.WindSpeed < 0 {
		pf("point %d wind speed %g is negative", j, pt.WindSpeed)
	}
}

// ── Phase 3: reproducibility ──

func validateReproducibility(readings []domain.Reading, reports []domain.ForecastReport, seed uint64) *phase {
	p := &phase{name: "Phase 3: Seeded reproducibility"}
	if len(readings) != len(reports) {
		p.errorf("%d readings but %d reports", len(readings), len(reports))
		return p
	}

	for i, r := range readings {
		got := domain.BuildReport(r, domain.ReportOptions{
			AlertThreshold: alertThreshold,
			Jitter:         domain.NewSeededJitter(seed + uint64(i)),
		})
		gotJSON, err := json.Marshal(got)
		if err != nil {
			p.errorf("reading %d (%s): marshal: %v", i, r.StationID, err)
			continue
		}
		wantJSON, err := json.Marshal(reports[i])
		if err != nil {
			p.errorf("report %d (%s): marshal: %v", i, reports[i].StationID, err)
			continue
		}
		if string(gotJSON) != string(wantJSON) {
			p.errorf("reading %d (%s): re-projection differs from fixture", i, r.StationID)
		}
	}
	return p
}

// ── Phase 4: cross-reference ──

func validateCrossReference(readings []domain.Reading, reports []domain.ForecastReport) *phase {
	p := &phase{name: "Phase 4: Reading/report cross-reference"}

	byStation := make(map[string]domain.Reading, len(readings))
	for _, r := range readings {
		byStation[r.StationID] = r
	}

	ids := map[string]string{}
	for i := range reports {
		rep := &reports[i]
		r, ok := byStation[rep.StationID]
		if !ok {
			p.errorf("report %d: station %q has no reading", i, rep.StationID)
			continue
		}
		if prev, dup := ids[rep.ID]; dup {
			p.errorf("report %d: id %s already used by %s", i, rep.ID, prev)
		}
		ids[rep.ID] = rep.StationID

		if !floatEq(rep.Current.AQI, r.AQI) {
			p.errorf("report %d (%s): current AQI %g, reading has %g", i, rep.StationID, rep.Current.AQI, r.AQI)
		}
		if !rep.ObservedAt.Equal(r.ObservedAt) {
			p.errorf("report %d (%s): observed_at mismatch", i, rep.StationID)
		}
		wantSource := domain.WeatherSourceNeutral
		if r.Weather != nil {
			wantSource = domain.WeatherSourceReading
			if rep.Weather != *r.Weather {
				p.errorf("report %d (%s): weather %+v, reading has %+v", i, rep.StationID, rep.Weather, *r.Weather)
			}
		}
		if rep.WeatherSource != wantSource {
			p.errorf("report %d (%s): weather source %q, expected %q", i, rep.StationID, rep.WeatherSource, wantSource)
		}
		if r.HorizonHours > 0 && rep.HorizonHours != r.HorizonHours {
			p.errorf("report %d (%s): horizon %d, reading asked for %d", i, rep.StationID, rep.HorizonHours, r.HorizonHours)
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
