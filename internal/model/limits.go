package model

// Coordinate is a geographic position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// AirportCoordinate is a gazetteer entry.
type AirportCoordinate struct {
	Code string `json:"code"`
	Coordinate
}

// FleetLimits are the FRMS maxima for one fleet category. A nil field means
// the fleet defines no limit for that window.
type FleetLimits struct {
	FlightHours7   *float64 `json:"flight_hours_7d,omitempty" yaml:"flight_hours_7d"`
	FlightHours28  *float64 `json:"flight_hours_28d,omitempty" yaml:"flight_hours_28d"`
	FlightHours365 *float64 `json:"flight_hours_365d,omitempty" yaml:"flight_hours_365d"`
	DutyHours7     *float64 `json:"duty_hours_7d,omitempty" yaml:"duty_hours_7d"`
	DutyHours14    *float64 `json:"duty_hours_14d,omitempty" yaml:"duty_hours_14d"`
}

// Limit is a helper for building FleetLimits literals.
func Limit(hours float64) *float64 {
	return &hours
}
