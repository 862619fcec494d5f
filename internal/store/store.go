// Package store provides read-only logbook snapshots from SQLite or
// PostgreSQL. Records are written by the import side of the application;
// Save exists for that side and for tests.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"flight-time-engine/internal/config"
	"flight-time-engine/internal/engine"
	"flight-time-engine/internal/model"
	"flight-time-engine/pkg/logger"
	"flight-time-engine/pkg/utils"
)

// Store is a record source backed by a database.
type Store interface {
	engine.RecordSource
	Save(ctx context.Context, records ...model.FlightRecord) error
	Close() error
}

// Open connects to the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	switch cfg.Driver {
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := OpenPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Both dialects cast every column to text so a single decoder serves them.
const selectColumns = `
	CAST(id AS TEXT),
	COALESCE(CAST(flight_date AS TEXT), ''),
	COALESCE(departure, ''),
	COALESCE(arrival, ''),
	COALESCE(scheduled_out, ''),
	COALESCE(scheduled_in, ''),
	COALESCE(actual_out, ''),
	COALESCE(actual_in, ''),
	COALESCE(CAST(block_time AS TEXT), ''),
	COALESCE(CAST(simulator_time AS TEXT), ''),
	COALESCE(CAST(duty_time AS TEXT), ''),
	COALESCE(role, ''),
	COALESCE(fleet, ''),
	COALESCE(CAST(icus AS TEXT), ''),
	COALESCE(CAST(pilot_flying AS TEXT), ''),
	COALESCE(CAST(positioning AS TEXT), ''),
	COALESCE(CAST(simulator AS TEXT), ''),
	COALESCE(CAST(p1 AS TEXT), ''),
	COALESCE(CAST(p1us AS TEXT), ''),
	COALESCE(CAST(p2 AS TEXT), ''),
	COALESCE(CAST(instrument AS TEXT), ''),
	COALESCE(CAST(night_time AS TEXT), ''),
	COALESCE(CAST(day_takeoffs AS TEXT), ''),
	COALESCE(CAST(night_takeoffs AS TEXT), ''),
	COALESCE(CAST(day_landings AS TEXT), ''),
	COALESCE(CAST(night_landings AS TEXT), '')`

const columnCount = 26

type rowScanner interface {
	Scan(dest ...any) error
}

type row [columnCount]string

func scanRow(s rowScanner) (row, error) {
	var r row
	dest := make([]any, columnCount)
	for i := range r {
		dest[i] = &r[i]
	}
	return r, s.Scan(dest...)
}

// decode converts a text row into a record. Bad values degrade to zero and
// are logged; only an unparseable id rejects the row.
func (r row) decode(log *slog.Logger) (model.FlightRecord, error) {
	id, err := uuid.Parse(r[0])
	if err != nil {
		return model.FlightRecord{}, fmt.Errorf("invalid record id %q: %w", r[0], err)
	}

	rec := model.FlightRecord{
		ID:           id,
		Departure:    r[2],
		Arrival:      r[3],
		ScheduledOut: r[4],
		ScheduledIn:  r[5],
		ActualOut:    r[6],
		ActualIn:     r[7],
		Fleet:        model.FleetCategory(r[12]),
	}

	if r[1] != "" {
		// Postgres DATE and SQLite text both render YYYY-MM-DD first.
		date := r[1]
		if len(date) > len(utils.DateLayout) {
			date = date[:len(utils.DateLayout)]
		}
		if rec.Date, err = utils.ParseCivilDate(date); err != nil {
			log.Warn("record date unreadable", "record", id, "error", err)
		}
	}

	hours := func(i int, field string) float64 {
		h, err := model.ParseHours(r[i])
		if err != nil {
			log.Warn("record hours unreadable, using zero", "record", id, "field", field, "error", err)
			return 0
		}
		return h
	}
	rec.BlockTime = hours(8, "block_time")
	rec.SimulatorTime = hours(9, "simulator_time")
	rec.DutyTime = hours(10, "duty_time")
	rec.P1 = hours(17, "p1")
	rec.P1US = hours(18, "p1us")
	rec.P2 = hours(19, "p2")
	rec.Instrument = hours(20, "instrument")
	rec.NightTime = hours(21, "night_time")

	if r[11] != "" {
		if rec.Role, err = model.ParseRole(r[11]); err != nil {
			log.Warn("record role unreadable", "record", id, "error", err)
		}
	}

	rec.ICUS = parseBool(r[13])
	rec.IsPilotFlying = parseBool(r[14])
	rec.IsPositioning = parseBool(r[15])
	rec.IsSimulator = parseBool(r[16])

	rec.DayTakeoffs = parseCount(r[22])
	rec.NightTakeoffs = parseCount(r[23])
	rec.DayLandings = parseCount(r[24])
	rec.NightLandings = parseCount(r[25])

	return rec, nil
}

// encode renders a record as insert arguments in column order.
func encode(rec model.FlightRecord) []any {
	return []any{
		rec.ID.String(),
		utils.FormatCivilDate(rec.Date),
		rec.Departure, rec.Arrival,
		rec.ScheduledOut, rec.ScheduledIn, rec.ActualOut, rec.ActualIn,
		model.FormatHours(rec.BlockTime),
		model.FormatHours(rec.SimulatorTime),
		model.FormatHours(rec.DutyTime),
		string(rec.Role), string(rec.Fleet),
		rec.ICUS, rec.IsPilotFlying, rec.IsPositioning, rec.IsSimulator,
		model.FormatHours(rec.P1),
		model.FormatHours(rec.P1US),
		model.FormatHours(rec.P2),
		model.FormatHours(rec.Instrument),
		model.FormatHours(rec.NightTime),
		rec.DayTakeoffs, rec.NightTakeoffs, rec.DayLandings, rec.NightLandings,
	}
}

const insertColumns = `id, flight_date, departure, arrival, scheduled_out, scheduled_in, actual_out, actual_in,
	block_time, simulator_time, duty_time, role, fleet, icus, pilot_flying, positioning, simulator,
	p1, p1us, p2, instrument, night_time, day_takeoffs, night_takeoffs, day_landings, night_landings`

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
