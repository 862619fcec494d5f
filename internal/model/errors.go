package model

import "errors"

// Sentinel errors returned by collaborators (stores, gazetteer, caches) and
// wrapped with context by callers. The engine itself reports data problems as
// status values, not errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownAirport = errors.New("unknown airport")
	ErrMissingTime    = errors.New("missing or malformed time")
	ErrNegativeHours  = errors.New("negative duration")
	ErrUnknownRole    = errors.New("unknown crew role")
)
