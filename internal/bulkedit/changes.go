package bulkedit

import (
	"time"

	"flight-time-engine/internal/model"
	"flight-time-engine/pkg/utils"
)

// Changes holds one Field per editable record attribute. Summarize fills it
// from a selection; a client sends it back with the attributes to overwrite.
type Changes struct {
	Date          Field[time.Time]           `json:"date"`
	Departure     Field[string]              `json:"departure"`
	Arrival       Field[string]              `json:"arrival"`
	ScheduledOut  Field[string]              `json:"scheduled_out"`
	BlockTime     Field[float64]             `json:"block_time"`
	DutyTime      Field[float64]             `json:"duty_time"`
	Role          Field[model.Role]          `json:"role"`
	Fleet         Field[model.FleetCategory] `json:"fleet"`
	ICUS          Field[bool]                `json:"icus"`
	IsPilotFlying Field[bool]                `json:"is_pilot_flying"`
	IsPositioning Field[bool]                `json:"is_positioning"`
}

// Summarize reports, per attribute, whether the selection agrees on a value.
// An empty selection is all Unset.
func Summarize(records []model.FlightRecord) Changes {
	var c Changes
	for _, r := range records {
		c.Date = Merge(c.Date, Of(utils.DayStartUTC(r.Date)))
		c.Departure = Merge(c.Departure, Of(r.Departure))
		c.Arrival = Merge(c.Arrival, Of(r.Arrival))
		c.ScheduledOut = Merge(c.ScheduledOut, Of(r.ScheduledOut))
		c.BlockTime = Merge(c.BlockTime, Of(r.BlockTime))
		c.DutyTime = Merge(c.DutyTime, Of(r.DutyTime))
		c.Role = Merge(c.Role, Of(r.Role))
		c.Fleet = Merge(c.Fleet, Of(r.Fleet))
		c.ICUS = Merge(c.ICUS, Of(r.ICUS))
		c.IsPilotFlying = Merge(c.IsPilotFlying, Of(r.IsPilotFlying))
		c.IsPositioning = Merge(c.IsPositioning, Of(r.IsPositioning))
	}
	return c
}

// ApplyTo returns a copy of r with every valued attribute overwritten.
func (c Changes) ApplyTo(r model.FlightRecord) model.FlightRecord {
	r.Date = c.Date.Apply(r.Date)
	r.Departure = c.Departure.Apply(r.Departure)
	r.Arrival = c.Arrival.Apply(r.Arrival)
	r.ScheduledOut = c.ScheduledOut.Apply(r.ScheduledOut)
	r.BlockTime = c.BlockTime.Apply(r.BlockTime)
	r.DutyTime = c.DutyTime.Apply(r.DutyTime)
	r.Role = c.Role.Apply(r.Role)
	r.Fleet = c.Fleet.Apply(r.Fleet)
	r.ICUS = c.ICUS.Apply(r.ICUS)
	r.IsPilotFlying = c.IsPilotFlying.Apply(r.IsPilotFlying)
	r.IsPositioning = c.IsPositioning.Apply(r.IsPositioning)
	return r
}

// ApplyAll applies c to every record without touching the input slice.
func (c Changes) ApplyAll(records []model.FlightRecord) []model.FlightRecord {
	out := make([]model.FlightRecord, len(records))
	for i, r := range records {
		out[i] = c.ApplyTo(r)
	}
	return out
}
