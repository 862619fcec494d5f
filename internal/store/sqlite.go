package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"flight-time-engine/internal/engine"
	"flight-time-engine/internal/model"
	"flight-time-engine/pkg/logger"
)

// SQLiteStore reads a local logbook file.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

var _ engine.RecordSource = (*SQLiteStore)(nil)

// OpenSQLite opens or creates a SQLite logbook at path.
func OpenSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.Discard()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, log: log}, nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS flights (
		id TEXT PRIMARY KEY,
		flight_date TEXT,
		departure TEXT,
		arrival TEXT,
		scheduled_out TEXT,
		scheduled_in TEXT,
		actual_out TEXT,
		actual_in TEXT,
		block_time TEXT,
		simulator_time TEXT,
		duty_time TEXT,
		role TEXT,
		fleet TEXT,
		icus INTEGER NOT NULL DEFAULT 0,
		pilot_flying INTEGER NOT NULL DEFAULT 0,
		positioning INTEGER NOT NULL DEFAULT 0,
		simulator INTEGER NOT NULL DEFAULT 0,
		p1 TEXT,
		p1us TEXT,
		p2 TEXT,
		instrument TEXT,
		night_time TEXT,
		day_takeoffs INTEGER NOT NULL DEFAULT 0,
		night_takeoffs INTEGER NOT NULL DEFAULT 0,
		day_landings INTEGER NOT NULL DEFAULT 0,
		night_landings INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_flights_date ON flights(flight_date);
	`

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Records returns every record ordered by date and id.
func (s *SQLiteStore) Records(ctx context.Context) ([]model.FlightRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM flights ORDER BY flight_date, id")
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	var out []model.FlightRecord
	for rows.Next() {
		raw, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		rec, err := raw.decode(s.log)
		if err != nil {
			s.log.Warn("skipping flight row", "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Record returns one record or model.ErrNotFound.
func (s *SQLiteStore) Record(ctx context.Context, id uuid.UUID) (model.FlightRecord, error) {
	raw, err := scanRow(s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM flights WHERE id = ?", id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.FlightRecord{}, fmt.Errorf("flight %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.FlightRecord{}, fmt.Errorf("query flight %s: %w", id, err)
	}
	return raw.decode(s.log)
}

// Save upserts records in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, records ...model.FlightRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := "INSERT OR REPLACE INTO flights (" + insertColumns + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", columnCount), ", ") + ")"
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, encode(rec)...); err != nil {
			return fmt.Errorf("insert flight %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}
