package engine

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"flight-time-engine/internal/frms"
	"flight-time-engine/internal/gazetteer"
	"flight-time-engine/internal/metrics"
	"flight-time-engine/internal/model"
	"flight-time-engine/internal/window"
	"flight-time-engine/pkg/logger"
)

type EngineSuite struct {
	suite.Suite
	gaz     *gazetteer.Gazetteer
	limits  frms.LimitsTable
	metrics *metrics.Metrics
	engine  *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.gaz = gazetteer.New(
		model.AirportCoordinate{Code: "KJFK", Coordinate: model.Coordinate{Latitude: 40.6398, Longitude: -73.7789}},
		model.AirportCoordinate{Code: "EGLL", Coordinate: model.Coordinate{Latitude: 51.4700, Longitude: -0.4543}},
	)
	s.limits = frms.LimitsTable{
		model.FleetLongHaul: {
			FlightHours28:  model.Limit(100),
			FlightHours365: model.Limit(1000),
			DutyHours7:     model.Limit(60),
		},
	}
	s.metrics = metrics.New()

	e, err := New(s.gaz, s.limits, WithMetrics(s.metrics), WithContextCache())
	s.Require().NoError(err)
	s.engine = e
}

func winterEastbound() model.FlightRecord {
	return model.FlightRecord{
		ID:            uuid.New(),
		Date:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Departure:     "KJFK",
		Arrival:       "EGLL",
		ScheduledOut:  "23:00",
		BlockTime:     7,
		DutyTime:      9,
		Role:          model.RoleCaptain,
		IsPilotFlying: true,
	}
}

// =============================================================================
// Flight evaluation
// =============================================================================

func (s *EngineSuite) TestClassifiedNightSector() {
	res := s.engine.EvaluateFlight(winterEastbound())

	s.Equal(StatusClassified, res.Status)
	s.Require().NotNil(res.Night)
	s.Equal(7.0, res.NightTime)
	s.Equal(model.TakeoffsLandings{NightTakeoffs: 1, NightLandings: 1}, res.TakeoffsLandings)
	s.Equal(7.0, res.P1)
	s.Equal(0.5, res.Instrument)
	s.Empty(res.Reasons)
}

func (s *EngineSuite) TestPilotMonitoringGetsNoTakeoffsOrLandings() {
	r := winterEastbound()
	r.Role = model.RoleFirstOfficer
	r.IsPilotFlying = false

	res := s.engine.EvaluateFlight(r)
	s.Equal(StatusClassified, res.Status)
	s.Equal(model.TakeoffsLandings{}, res.TakeoffsLandings)
	s.Equal(7.0, res.P2)
	s.Zero(res.Instrument)
}

func (s *EngineSuite) TestActualOutTimeWins() {
	r := winterEastbound()
	r.ScheduledOut = "12:00"
	r.ActualOut = "23:00"

	res := s.engine.EvaluateFlight(r)
	s.Equal(7.0, res.NightTime)
}

func (s *EngineSuite) TestUnknownAirportPreservesManualEntries() {
	r := winterEastbound()
	r.Arrival = "ZZZZ"
	r.NightTime = 2.5
	r.TakeoffsLandings = model.TakeoffsLandings{DayTakeoffs: 1, NightLandings: 1}

	res := s.engine.EvaluateFlight(r)

	s.Equal(StatusUnknown, res.Status)
	s.Nil(res.Night)
	s.Equal(2.5, res.NightTime)
	s.Equal(r.TakeoffsLandings, res.TakeoffsLandings)
	s.Equal(7.0, res.P1, "credits do not depend on coordinates")
	s.Require().Len(res.Reasons, 1)
	s.Contains(res.Reasons[0], "ZZZZ")
}

func (s *EngineSuite) TestMalformedTimeIsUnknownButStillCredited() {
	r := winterEastbound()
	r.ScheduledOut = "25:99"

	res := s.engine.EvaluateFlight(r)
	s.Equal(StatusUnknown, res.Status)
	s.Equal(7.0, res.P1)

	c := NewContext(r, s.gaz)
	s.False(c.Classifiable())
	s.True(errors.Is(c.Problems[0], model.ErrMissingTime))
}

func (s *EngineSuite) TestUnparsedRoleIsReportedNotSilentlyUncredited() {
	var buf bytes.Buffer
	e, err := New(s.gaz, s.limits, WithLogger(logger.NewWithWriter(&buf, "INFO")))
	s.Require().NoError(err)

	r := winterEastbound()
	r.Role = ""

	res := e.EvaluateFlight(r)
	s.Equal(StatusClassified, res.Status, "night classification still runs")
	s.Zero(res.Total())
	s.Require().Len(res.Reasons, 1)
	s.Contains(res.Reasons[0], model.ErrUnknownRole.Error())
	s.Contains(buf.String(), "sector earns no credit")

	r.IsPositioning = true
	s.Empty(e.EvaluateFlight(r).Reasons, "positioning earns no credit by rule")
}

func (s *EngineSuite) TestPositioningIsNotApplicable() {
	r := winterEastbound()
	r.IsPositioning = true
	r.NightTime = 3
	r.TakeoffsLandings = model.TakeoffsLandings{NightTakeoffs: 1}

	res := s.engine.EvaluateFlight(r)
	s.Equal(StatusNotApplicable, res.Status)
	s.Zero(res.NightTime)
	s.Equal(model.TakeoffsLandings{}, res.TakeoffsLandings)
	s.Zero(res.Total())
}

func (s *EngineSuite) TestSimulatorKeepsManualEntries() {
	r := model.FlightRecord{
		ID:               uuid.New(),
		Date:             time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		SimulatorTime:    4,
		Role:             model.RoleCaptain,
		IsPilotFlying:    true,
		NightTime:        1,
		TakeoffsLandings: model.TakeoffsLandings{NightTakeoffs: 3, NightLandings: 3},
	}

	res := s.engine.EvaluateFlight(r)
	s.Equal(StatusNotApplicable, res.Status)
	s.Equal(1.0, res.NightTime)
	s.Equal(3, res.NightLandings)
	s.Zero(res.Total())
}

// =============================================================================
// Context memoisation
// =============================================================================

func (s *EngineSuite) TestContextCacheReusesUntilRelevantFieldsChange() {
	r := winterEastbound()

	s.engine.EvaluateFlight(r)
	s.engine.EvaluateFlight(r)

	r.BlockTime = 7.2 // not part of the context
	s.engine.EvaluateFlight(r)

	r.Departure = "EGLL"
	r.Arrival = "KJFK"
	s.engine.EvaluateFlight(r)

	snap := s.metrics.GetSnapshot()
	s.Equal(int64(2), snap.ContextCacheHits)
	s.Equal(int64(2), snap.ContextCacheMisses)
	s.Equal(int64(4), snap.FlightEvaluations)
	s.Equal(1, s.engine.cache.Len())

	s.engine.cache.Invalidate(r.ID)
	s.Zero(s.engine.cache.Len())
}

func (s *EngineSuite) TestFingerprintIgnoresUnrelatedFields() {
	a := winterEastbound()
	b := a
	b.BlockTime = 1
	b.Role = model.RoleSecondOfficer
	s.Equal(Fingerprint(a), Fingerprint(b))

	b.ActualOut = "23:10"
	s.NotEqual(Fingerprint(a), Fingerprint(b))
}

// =============================================================================
// Logbook evaluation
// =============================================================================

func (s *EngineSuite) TestLogbookUtilization() {
	asOf := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return time.Date(2024, 3, 31-n, 0, 0, 0, 0, time.UTC) }

	records := []model.FlightRecord{
		{ID: uuid.New(), Date: day(1), BlockTime: 40, DutyTime: 50},
		{ID: uuid.New(), Date: day(10), BlockTime: 30, DutyTime: 35},
		{ID: uuid.New(), Date: day(28), BlockTime: 25, DutyTime: 30},
		{ID: uuid.New(), Date: day(29), BlockTime: 100, DutyTime: 120},
		{ID: uuid.New(), BlockTime: 500}, // undated
	}

	res := s.engine.EvaluateLogbook(records, model.FleetLongHaul, asOf)

	s.Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), res.AsOf)
	s.Equal(4, res.Records)
	s.Len(res.Windows, len(window.DefaultSpecs))
	s.Require().Len(res.Utilizations, 3)

	flight28 := res.Utilizations[0]
	s.Equal(28, flight28.Days)
	s.Equal(95.0, flight28.Hours)
	s.InDelta(0.95, flight28.Ratio, 1e-9)
	s.Equal(frms.BandCritical, flight28.Band)

	s.Equal(195.0, res.Utilizations[1].Hours)
	s.Equal(frms.BandNominal, res.Utilizations[1].Band)

	s.Equal(window.KindDuty, res.Utilizations[2].Kind)
	s.Equal(50.0, res.Utilizations[2].Hours)
	s.Equal(frms.BandWarning, res.Utilizations[2].Band)

	s.Equal(frms.BandCritical, res.Worst)
	s.Equal(int64(1), s.metrics.GetSnapshot().LogbookEvaluations)
}

func (s *EngineSuite) TestLogbookWithoutFleetLimits() {
	records := []model.FlightRecord{{ID: uuid.New(), Date: time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC), BlockTime: 9}}

	res := s.engine.EvaluateLogbook(records, model.FleetShortHaul, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	s.Empty(res.Utilizations)
	s.NotNil(res.Utilizations)
	s.Equal(9.0, res.Windows[0].Hours)
	s.Equal(frms.BandNominal, res.Worst)
}

func (s *EngineSuite) TestSnapshotFingerprint() {
	a := winterEastbound()
	b := winterEastbound()
	b.Date = b.Date.AddDate(0, 0, 1)

	s.Equal(SnapshotFingerprint([]model.FlightRecord{a, b}), SnapshotFingerprint([]model.FlightRecord{b, a}))

	edited := b
	edited.BlockTime = 6
	s.NotEqual(SnapshotFingerprint([]model.FlightRecord{a, b}), SnapshotFingerprint([]model.FlightRecord{a, edited}))
}

func (s *EngineSuite) TestNewRejectsNegativeWindow() {
	_, err := New(s.gaz, s.limits, WithWindows([]window.Spec{{Kind: window.KindFlight, Days: -7}}))
	s.Error(err)
}

func (s *EngineSuite) TestStatusString() {
	s.Equal("unknown", StatusUnknown.String())
	s.Equal("status(9)", Status(9).String())
}
