package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-time-engine/internal/config"
	"flight-time-engine/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "logbook.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord() model.FlightRecord {
	return model.FlightRecord{
		ID:            uuid.New(),
		Date:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Departure:     "KJFK",
		Arrival:       "EGLL",
		ScheduledOut:  "23:00",
		ActualOut:     "23:12",
		BlockTime:     7.25,
		DutyTime:      9.5,
		Role:          model.RoleFirstOfficer,
		Fleet:         model.FleetLongHaul,
		ICUS:          true,
		IsPilotFlying: true,
		P1US:          7.25,
		Instrument:    0.5,
		NightTime:     7.25,
		TakeoffsLandings: model.TakeoffsLandings{
			NightTakeoffs: 1,
			NightLandings: 1,
		},
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := sampleRecord()
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Record(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestSQLiteRecordsOrderedByDate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	later := sampleRecord()
	later.Date = later.Date.AddDate(0, 0, 3)
	earlier := sampleRecord()
	undated := sampleRecord()
	undated.Date = time.Time{}

	require.NoError(t, s.Save(ctx, later, earlier, undated))

	all, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Date.IsZero())
	assert.Equal(t, earlier.ID, all[1].ID)
	assert.Equal(t, later.ID, all[2].ID)
}

func TestSQLiteSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := sampleRecord()
	require.NoError(t, s.Save(ctx, rec))
	rec.BlockTime = 6.5
	require.NoError(t, s.Save(ctx, rec))

	all, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 6.5, all[0].BlockTime)
}

func TestSQLiteRecordNotFound(t *testing.T) {
	_, err := openTestStore(t).Record(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestSQLiteDegradesBadValues(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flights (id, flight_date, block_time, duty_time, role, pilot_flying) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), "not-a-date", "-2.0", "abc", "purser", 1)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO flights (id) VALUES ('garbage')`)
	require.NoError(t, err)

	all, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "rows with unreadable ids are skipped")

	got := all[0]
	assert.Equal(t, id, got.ID)
	assert.True(t, got.Date.IsZero())
	assert.Zero(t, got.BlockTime)
	assert.Zero(t, got.DutyTime)
	assert.Equal(t, model.Role(""), got.Role)
	assert.True(t, got.IsPilotFlying)
}

func TestOpenByDriver(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "logbook.db"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), config.StoreConfig{Driver: "oracle"}, nil)
	assert.Error(t, err)
}
