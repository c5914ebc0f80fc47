package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
)

// tablesFile is the on-disk shape of CATEGORY_TABLES_FILE. The last band of a
// table may omit its upper bound.
//
//	aqi:
//	  name: local-standard
//	  bands:
//	    - {upper: 40, label: Good, color: green}
//	    - {label: Hazardous, color: maroon}
type tablesFile struct {
	AQI *domain.Table[domain.AQICategory] `yaml:"aqi"`
}

// LoadAQITable returns the AQI category table to use. An empty path yields
// the built-in table.
func LoadAQITable(path string) (domain.Table[domain.AQICategory], error) {
	if path == "" {
		return domain.AQICategories, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Table[domain.AQICategory]{}, fmt.Errorf("read category tables: %w", err)
	}

	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Table[domain.AQICategory]{}, fmt.Errorf("parse category tables %s: %w", path, err)
	}
	if f.AQI == nil {
		return domain.AQICategories, nil
	}
	if err := f.AQI.Validate(); err != nil {
		return domain.Table[domain.AQICategory]{}, fmt.Errorf("category tables %s: %w", path, err)
	}
	return *f.AQI, nil
}
