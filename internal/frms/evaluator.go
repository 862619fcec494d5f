// Package frms compares rolling-window totals against fleet flight and duty
// time limits.
package frms

import (
	"encoding/json"
	"fmt"

	"flight-time-engine/internal/model"
	"flight-time-engine/internal/window"
)

const (
	WarningRatio  = 0.8
	CriticalRatio = 0.9
)

// Band is the presentation class of a utilization ratio.
type Band uint8

const (
	BandNominal Band = iota
	BandWarning
	BandCritical
)

var bandNames = [...]string{
	BandNominal:  "nominal",
	BandWarning:  "warning",
	BandCritical: "critical",
}

func (b Band) String() string {
	if int(b) < len(bandNames) {
		return bandNames[b]
	}
	return fmt.Sprintf("band(%d)", uint8(b))
}

func (b Band) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Band) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range bandNames {
		if n == name {
			*b = Band(i)
			return nil
		}
	}
	return fmt.Errorf("unknown band %q", name)
}

// Classify maps a ratio to its band.
func Classify(ratio float64) Band {
	switch {
	case ratio >= CriticalRatio:
		return BandCritical
	case ratio >= WarningRatio:
		return BandWarning
	default:
		return BandNominal
	}
}

// Utilization is one evaluated (window, limit) pair. Hours is never clamped;
// only Ratio is capped at 1.
type Utilization struct {
	Kind     window.Kind `json:"kind"`
	Days     int         `json:"days"`
	Hours    float64     `json:"hours"`
	Limit    float64     `json:"limit"`
	Ratio    float64     `json:"ratio"`
	Band     Band        `json:"band"`
	Exceeded bool        `json:"exceeded"`
}

// LimitFor returns the fleet's limit for a window, or nil when the fleet
// defines none.
func LimitFor(limits model.FleetLimits, kind window.Kind, days int) *float64 {
	switch {
	case kind == window.KindFlight && days == 7:
		return limits.FlightHours7
	case kind == window.KindFlight && days == 28:
		return limits.FlightHours28
	case kind == window.KindFlight && days == 365:
		return limits.FlightHours365
	case kind == window.KindDuty && days == 7:
		return limits.DutyHours7
	case kind == window.KindDuty && days == 14:
		return limits.DutyHours14
	}
	return nil
}

// Evaluate produces a utilization for every window that has an applicable
// limit. Windows with no limit, or a non-positive one, are omitted.
func Evaluate(results []window.Result, limits model.FleetLimits) []Utilization {
	out := make([]Utilization, 0, len(results))
	for _, r := range results {
		limit := LimitFor(limits, r.Kind, r.Days)
		if limit == nil || *limit <= 0 {
			continue
		}

		ratio := min(r.Hours/(*limit), 1.0)
		if ratio < 0 {
			ratio = 0
		}
		out = append(out, Utilization{
			Kind:     r.Kind,
			Days:     r.Days,
			Hours:    r.Hours,
			Limit:    *limit,
			Ratio:    ratio,
			Band:     Classify(ratio),
			Exceeded: r.Hours > *limit,
		})
	}
	return out
}

// Worst returns the highest band among utilizations, BandNominal when empty.
func Worst(us []Utilization) Band {
	worst := BandNominal
	for _, u := range us {
		if u.Band > worst {
			worst = u.Band
		}
	}
	return worst
}
