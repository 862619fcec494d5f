package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flight-time-engine/internal/config"
	"flight-time-engine/internal/engine"
	"flight-time-engine/internal/model"
	"flight-time-engine/pkg/logger"
)

// PostgresStore reads a shared logbook from PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ engine.RecordSource = (*PostgresStore)(nil)

// OpenPostgres opens a connection pool and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.Discard()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PostgresStore{pool: pool, log: log}, nil
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS flights (
		id              UUID PRIMARY KEY,
		flight_date     DATE,
		departure       TEXT,
		arrival         TEXT,
		scheduled_out   TEXT,
		scheduled_in    TEXT,
		actual_out      TEXT,
		actual_in       TEXT,
		block_time      NUMERIC(6,2),
		simulator_time  NUMERIC(6,2),
		duty_time       NUMERIC(6,2),
		role            TEXT,
		fleet           TEXT,
		icus            BOOLEAN NOT NULL DEFAULT FALSE,
		pilot_flying    BOOLEAN NOT NULL DEFAULT FALSE,
		positioning     BOOLEAN NOT NULL DEFAULT FALSE,
		simulator       BOOLEAN NOT NULL DEFAULT FALSE,
		p1              NUMERIC(6,2),
		p1us            NUMERIC(6,2),
		p2              NUMERIC(6,2),
		instrument      NUMERIC(6,2),
		night_time      NUMERIC(6,2),
		day_takeoffs    INTEGER NOT NULL DEFAULT 0,
		night_takeoffs  INTEGER NOT NULL DEFAULT 0,
		day_landings    INTEGER NOT NULL DEFAULT 0,
		night_landings  INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_flights_date ON flights(flight_date);
	`

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Records(ctx context.Context) ([]model.FlightRecord, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+selectColumns+" FROM flights ORDER BY flight_date, id")
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

func (s *PostgresStore) Record(ctx context.Context, id uuid.UUID) (model.FlightRecord, error) {
	raw, err := scanRow(s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM flights WHERE id = $1", id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.FlightRecord{}, fmt.Errorf("flight %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.FlightRecord{}, fmt.Errorf("query flight %s: %w", id, err)
	}
	return raw.decode(s.log)
}

// Save upserts records in one batch.
func (s *PostgresStore) Save(ctx context.Context, records ...model.FlightRecord) error {
	placeholders := make([]string, columnCount)
	updates := make([]string, 0, columnCount-1)
	for i := range placeholders {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	for _, col := range strings.Split(insertColumns, ",") {
		col = strings.TrimSpace(col)
		if col != "id" {
			updates = append(updates, col+" = EXCLUDED."+col)
		}
	}
	query := "INSERT INTO flights (" + insertColumns + ") VALUES (" + strings.Join(placeholders, ", ") +
		") ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")

	batch := &pgx.Batch{}
	for _, rec := range records {
		args := encode(rec)
		if args[1] == "" {
			args[1] = nil
		}
		batch.Queue(query, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, rec := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert flight %s: %w", rec.ID, err)
		}
	}
	return nil
}
