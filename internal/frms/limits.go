package frms

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flight-time-engine/internal/model"
)

// LimitsTable is a settings snapshot of limits keyed by fleet category.
type LimitsTable map[model.FleetCategory]model.FleetLimits

// For returns the limits configured for a fleet.
func (t LimitsTable) For(fleet model.FleetCategory) (model.FleetLimits, bool) {
	l, ok := t[fleet]
	return l, ok
}

type limitsFile struct {
	Fleets map[string]model.FleetLimits `yaml:"fleets"`
}

// LoadLimits reads a limits table from a YAML file of the form
//
//	fleets:
//	  short_haul:
//	    flight_hours_28d: 100
//	    duty_hours_7d: 60
func LoadLimits(path string) (LimitsTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read limits file: %w", err)
	}
	return ParseLimits(data)
}

// ParseLimits decodes and validates a limits document.
func ParseLimits(data []byte) (LimitsTable, error) {
	var f limitsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse limits: %w", err)
	}

	table := make(LimitsTable, len(f.Fleets))
	for name, limits := range f.Fleets {
		fleet := model.FleetCategory(name)
		if !fleet.IsValid() {
			return nil, fmt.Errorf("unknown fleet category %q", name)
		}
		for _, v := range []*float64{limits.FlightHours7, limits.FlightHours28, limits.FlightHours365, limits.DutyHours7, limits.DutyHours14} {
			if v != nil && *v < 0 {
				return nil, fmt.Errorf("fleet %s: limits must not be negative", name)
			}
		}
		table[fleet] = limits
	}
	return table, nil
}
