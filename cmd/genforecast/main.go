// Command genforecast projects the mock station readings into forecast report
// fixtures. It runs the real domain package under a fixed clock and seeded
// jitter, so the output is byte-for-byte reproducible.
//
// Usage:
//
//	go run ./cmd/genforecast \
//	  -in data/mock/readings.json \
//	  -out data/mock/forecasts.json \
//	  -seed 20250314
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
)

// generatedAt is the fixed report generation time shared with cmd/validate.
var generatedAt = time.Date(2025, time.March, 14, 23, 0, 0, 0, time.UTC)

const alertThreshold = 150

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "data/mock/readings.json", "path to the readings fixture")
	out := flag.String("out", "", "output path for the forecast report fixture")
	seed := flag.Uint64("seed", 20250314, "base jitter seed; reading i uses seed+i")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	readings, err := loadReadings(*in)
	if err != nil {
		return fmt.Errorf("loading readings: %w", err)
	}
	log.Printf("loaded %d readings", len(readings))

	reports := make([]domain.ForecastReport, 0, len(readings))
	for i, r := range readings {
		if err := domain.ValidateReading(r); err != nil {
			return fmt.Errorf("reading %d (%s): %w", i, r.StationID, err)
		}
		reports = append(reports, domain.BuildReport(r, domain.ReportOptions{
			AlertThreshold: alertThreshold,
			Jitter:         domain.NewSeededJitter(*seed + uint64(i)),
		}))
	}

	if err := writeJSON(*out, reports); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d reports: %s", len(reports), *out)

	printStats(reports)
	return nil
}

func loadReadings(path string) ([]domain.Reading, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var readings []domain.Reading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // fixture file, not sensitive
}

func printStats(reports []domain.ForecastReport) {
	byCategory := map[domain.AQICategory]int{}
	var points, alerts int
	for i := range reports {
		r := &reports[i]
		points += len(r.Series)
		alerts += r.Alerts.Count
		if r.Peak != nil {
			byCategory[r.Peak.Category]++
		}
	}

	fmt.Printf("\nReports: %d, forecast points: %d, alert points: %d\n", len(reports), points, alerts)

	fmt.Println("\nPeak category distribution:")
	categories := make([]domain.AQICategory, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return byCategory[categories[i]] > byCategory[categories[j]] })
	for _, c := range categories {
		fmt.Printf("  %-32s %d\n", c, byCategory[c])
	}

	fmt.Println("\nPer station:")
	for i := range reports {
		r := &reports[i]
		peak := "-"
		if r.Peak != nil {
			peak = fmt.Sprintf("%d at %s", r.Peak.AQI, r.Peak.Time.Format("01-02 15:04"))
		}
		fmt.Printf("  %-10s %-8s h=%-3d alerts=%-3d peak=%s\n",
			r.StationID, r.WeatherSource, r.HorizonHours, r.Alerts.Count, peak)
	}
}
