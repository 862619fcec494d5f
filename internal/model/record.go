package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the crew position held on a sector.
type Role string

const (
	RoleCaptain       Role = "captain"
	RoleFirstOfficer  Role = "first_officer"
	RoleSecondOfficer Role = "second_officer"
)

// IsValid reports whether r is one of the supported crew positions.
func (r Role) IsValid() bool {
	switch r {
	case RoleCaptain, RoleFirstOfficer, RoleSecondOfficer:
		return true
	}
	return false
}

// ParseRole accepts the canonical names plus the common logbook abbreviations.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "captain", "capt", "cpt", "ca":
		return RoleCaptain, nil
	case "first_officer", "fo", "f/o":
		return RoleFirstOfficer, nil
	case "second_officer", "so", "s/o":
		return RoleSecondOfficer, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// FleetCategory keys the FRMS limit tables.
type FleetCategory string

const (
	FleetShortHaul     FleetCategory = "short_haul"
	FleetLongHaul      FleetCategory = "long_haul"
	FleetUltraLongHaul FleetCategory = "ultra_long_haul"
)

func (f FleetCategory) IsValid() bool {
	switch f {
	case FleetShortHaul, FleetLongHaul, FleetUltraLongHaul:
		return true
	}
	return false
}

// TakeoffsLandings holds day/night takeoff and landing counts for one sector.
type TakeoffsLandings struct {
	DayTakeoffs   int `json:"day_takeoffs"`
	NightTakeoffs int `json:"night_takeoffs"`
	DayLandings   int `json:"day_landings"`
	NightLandings int `json:"night_landings"`
}

// FlightRecord is one logged sector or simulator session. The engine only
// reads records; it never writes them back.
type FlightRecord struct {
	ID   uuid.UUID `json:"id"`
	Date time.Time `json:"date"` // civil date, midnight UTC

	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`

	// Clock times are UTC "HH:MM" strings and may be empty or malformed.
	ScheduledOut string `json:"scheduled_out,omitempty"`
	ScheduledIn  string `json:"scheduled_in,omitempty"`
	ActualOut    string `json:"actual_out,omitempty"`
	ActualIn     string `json:"actual_in,omitempty"`

	BlockTime     float64 `json:"block_time"`
	SimulatorTime float64 `json:"simulator_time"`
	DutyTime      float64 `json:"duty_time"`

	Role          Role          `json:"role"`
	Fleet         FleetCategory `json:"fleet,omitempty"`
	ICUS          bool          `json:"icus"`
	IsPilotFlying bool          `json:"is_pilot_flying"`
	IsPositioning bool          `json:"is_positioning"`
	IsSimulator   bool          `json:"is_simulator"`

	P1         float64 `json:"p1"`
	P1US       float64 `json:"p1us"`
	P2         float64 `json:"p2"`
	Instrument float64 `json:"instrument"`
	NightTime  float64 `json:"night_time"`

	TakeoffsLandings
}

// IsSimulatorSession reports whether the record is a simulator session rather
// than a real sector. Either the flag or a populated simulator figure with no
// block time establishes it.
func (r FlightRecord) IsSimulatorSession() bool {
	return r.IsSimulator || (r.SimulatorTime > 0 && r.BlockTime <= 0)
}

// FlightHours is the record's contribution to flight-time windows.
func (r FlightRecord) FlightHours() float64 {
	return nonNegative(r.BlockTime) + nonNegative(r.SimulatorTime)
}

// DutyHours is the record's contribution to duty-time windows.
func (r FlightRecord) DutyHours() float64 {
	return nonNegative(r.DutyTime)
}

// DepartureClock prefers the actual off-blocks time over the scheduled one.
func (r FlightRecord) DepartureClock() string {
	if strings.TrimSpace(r.ActualOut) != "" {
		return r.ActualOut
	}
	return r.ScheduledOut
}

func nonNegative(h float64) float64 {
	if h < 0 {
		return 0
	}
	return h
}
