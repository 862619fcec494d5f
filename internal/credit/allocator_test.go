package credit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"flight-time-engine/internal/model"
)

type AllocatorSuite struct {
	suite.Suite
	alloc *Allocator
}

func TestAllocatorSuite(t *testing.T) {
	suite.Run(t, new(AllocatorSuite))
}

func (s *AllocatorSuite) SetupTest() {
	a, err := New()
	s.Require().NoError(err)
	s.alloc = a
}

// =============================================================================
// Scenarios
// =============================================================================

func (s *AllocatorSuite) TestFirstOfficerICUSPilotFlying() {
	block, err := model.ParseHours("2.0")
	s.Require().NoError(err)

	c := s.alloc.Allocate(Input{Role: model.RoleFirstOfficer, ICUS: true, IsPilotFlying: true, BlockTime: block})

	s.Equal(BucketP1US, c.Bucket)
	s.Equal("2.0", model.FormatHours(c.P1US))
	s.Equal("0.0", model.FormatHours(c.P1))
	s.Equal("0.0", model.FormatHours(c.P2))
	s.Equal(0.5, c.Instrument)
}

func (s *AllocatorSuite) TestPositioningCaptainEarnsNothing() {
	c := s.alloc.Allocate(Input{Role: model.RoleCaptain, IsPositioning: true, IsPilotFlying: true, BlockTime: 3.5})

	s.Equal(BucketNone, c.Bucket)
	s.Equal("0.0", model.FormatHours(c.P1))
	s.Equal("0.0", model.FormatHours(c.P1US))
	s.Equal("0.0", model.FormatHours(c.P2))
	s.Zero(c.Instrument)
}

// =============================================================================
// Rule precedence
// =============================================================================

func (s *AllocatorSuite) TestRulePrecedence() {
	cases := []struct {
		name string
		in   Input
		want Bucket
	}{
		{"captain", Input{Role: model.RoleCaptain, BlockTime: 1.5}, BucketP1},
		{"captain ignores icus", Input{Role: model.RoleCaptain, ICUS: true, IsPilotFlying: true, BlockTime: 1.5}, BucketP1},
		{"fo monitoring", Input{Role: model.RoleFirstOfficer, BlockTime: 1.5}, BucketP2},
		{"fo flying without icus", Input{Role: model.RoleFirstOfficer, IsPilotFlying: true, BlockTime: 1.5}, BucketP2},
		{"fo icus monitoring", Input{Role: model.RoleFirstOfficer, ICUS: true, BlockTime: 1.5}, BucketP2},
		{"fo icus flying", Input{Role: model.RoleFirstOfficer, ICUS: true, IsPilotFlying: true, BlockTime: 1.5}, BucketP1US},
		{"second officer", Input{Role: model.RoleSecondOfficer, ICUS: true, IsPilotFlying: true, BlockTime: 1.5}, BucketP2},
		{"unknown role", Input{Role: "purser", BlockTime: 1.5}, BucketNone},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			c := s.alloc.Allocate(tc.in)
			s.Equal(tc.want, c.Bucket)
		})
	}
}

func (s *AllocatorSuite) TestSimulatorSessionEarnsNoCredit() {
	rec := model.FlightRecord{Role: model.RoleCaptain, SimulatorTime: 4, IsPilotFlying: true}
	c := s.alloc.AllocateRecord(rec)
	s.Equal(Credits{}, c)
}

// =============================================================================
// Invariants
// =============================================================================

func (s *AllocatorSuite) TestCreditsSumToBlockTime() {
	roles := []model.Role{model.RoleCaptain, model.RoleFirstOfficer, model.RoleSecondOfficer}
	blocks := []float64{0.1, 0.75, 1.0, 2.0, 7.33, 13.9, 18.25}

	for _, role := range roles {
		for _, block := range blocks {
			for mask := 0; mask < 4; mask++ {
				in := Input{Role: role, ICUS: mask&1 != 0, IsPilotFlying: mask&2 != 0, BlockTime: block}
				c := s.alloc.Allocate(in)

				s.InDelta(block, c.Total(), 0.01, "%+v", in)

				nonZero := 0
				for _, v := range []float64{c.P1, c.P1US, c.P2} {
					if v != 0 {
						nonZero++
					}
				}
				s.Equal(1, nonZero, "%+v", in)
			}
		}
	}
}

func (s *AllocatorSuite) TestIdempotent() {
	in := Input{Role: model.RoleFirstOfficer, ICUS: true, IsPilotFlying: true, BlockTime: 6.4}
	first := s.alloc.Allocate(in)
	for i := 0; i < 3; i++ {
		s.Equal(first, s.alloc.Allocate(in))
	}
}

// =============================================================================
// Instrument time
// =============================================================================

func (s *AllocatorSuite) TestInstrumentTime() {
	s.Zero(s.alloc.Allocate(Input{Role: model.RoleCaptain, BlockTime: 2}).Instrument)
	s.Equal(0.5, s.alloc.Allocate(Input{Role: model.RoleCaptain, IsPilotFlying: true, BlockTime: 2}).Instrument)

	// capped at block time
	s.Equal(0.25, s.alloc.Allocate(Input{Role: model.RoleCaptain, IsPilotFlying: true, BlockTime: 0.25}).Instrument)
	s.Zero(s.alloc.Allocate(Input{Role: model.RoleCaptain, IsPilotFlying: true}).Instrument)
}

func TestWithInstrumentMinutes(t *testing.T) {
	a, err := New(WithInstrumentMinutes(45))
	require.NoError(t, err)
	require.Equal(t, 0.75, a.InstrumentHours())

	_, err = New(WithInstrumentMinutes(-1))
	require.Error(t, err)
}

func TestBucketString(t *testing.T) {
	require.Equal(t, "p1us", BucketP1US.String())
	require.Equal(t, "bucket(9)", Bucket(9).String())
}
