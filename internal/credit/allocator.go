// Package credit splits a sector's block time into the regulatory credit
// buckets P1, P1 under supervision and P2, and derives instrument time.
package credit

import (
	"fmt"

	"flight-time-engine/internal/model"
)

// DefaultInstrumentMinutes is the instrument time credited to the pilot
// flying on each sector.
const DefaultInstrumentMinutes = 30

// Bucket names the credit category that received a sector's block time.
type Bucket uint8

const (
	BucketNone Bucket = iota
	BucketP1
	BucketP1US
	BucketP2
)

var bucketNames = [...]string{
	BucketNone: "none",
	BucketP1:   "p1",
	BucketP1US: "p1us",
	BucketP2:   "p2",
}

func (b Bucket) String() string {
	if int(b) < len(bucketNames) {
		return bucketNames[b]
	}
	return fmt.Sprintf("bucket(%d)", uint8(b))
}

// Input is everything the allocator looks at for one sector.
type Input struct {
	Role          model.Role
	ICUS          bool
	IsPilotFlying bool
	IsPositioning bool
	IsSimulator   bool
	BlockTime     float64
}

// InputFromRecord extracts the allocator input from a flight record.
func InputFromRecord(r model.FlightRecord) Input {
	return Input{
		Role:          r.Role,
		ICUS:          r.ICUS,
		IsPilotFlying: r.IsPilotFlying,
		IsPositioning: r.IsPositioning,
		IsSimulator:   r.IsSimulatorSession(),
		BlockTime:     r.BlockTime,
	}
}

// Credits is the allocation for one sector. At most one of P1, P1US and P2 is
// non-zero.
type Credits struct {
	Bucket     Bucket  `json:"-"`
	P1         float64 `json:"p1"`
	P1US       float64 `json:"p1us"`
	P2         float64 `json:"p2"`
	Instrument float64 `json:"instrument"`
}

// Total is P1 + P1US + P2.
func (c Credits) Total() float64 {
	return c.P1 + c.P1US + c.P2
}

// Allocator applies the credit rules. The zero value is not usable; build one
// with New.
type Allocator struct {
	instrumentHours float64
}

type Option func(*Allocator)

// WithInstrumentMinutes sets the per-sector instrument credit for the pilot
// flying.
func WithInstrumentMinutes(minutes int) Option {
	return func(a *Allocator) {
		a.instrumentHours = float64(minutes) / 60
	}
}

func New(opts ...Option) (*Allocator, error) {
	a := &Allocator{instrumentHours: float64(DefaultInstrumentMinutes) / 60}
	for _, opt := range opts {
		opt(a)
	}
	if a.instrumentHours < 0 {
		return nil, fmt.Errorf("instrument minutes must not be negative")
	}
	return a, nil
}

// InstrumentHours returns the configured per-sector instrument credit.
func (a *Allocator) InstrumentHours() float64 { return a.instrumentHours }

// Allocate returns the credits for one sector. Rules, first match wins:
//
//  1. positioning earns nothing
//  2. captain credits P1
//  3. first officer credits P1US when ICUS and pilot flying, otherwise P2
//  4. second officer credits P2
//
// Simulator sessions and unknown roles earn no P1/P1US/P2. Non-positive block
// time allocates zero.
func (a *Allocator) Allocate(in Input) Credits {
	if in.IsPositioning || in.IsSimulator {
		return Credits{}
	}

	block := in.BlockTime
	if block < 0 {
		block = 0
	}

	var c Credits
	switch selectBucket(in) {
	case BucketP1:
		c.Bucket, c.P1 = BucketP1, block
	case BucketP1US:
		c.Bucket, c.P1US = BucketP1US, block
	case BucketP2:
		c.Bucket, c.P2 = BucketP2, block
	}

	if in.IsPilotFlying && block > 0 {
		c.Instrument = min(a.instrumentHours, block)
	}
	return c
}

// AllocateRecord is Allocate over a flight record.
func (a *Allocator) AllocateRecord(r model.FlightRecord) Credits {
	return a.Allocate(InputFromRecord(r))
}

func selectBucket(in Input) Bucket {
	switch in.Role {
	case model.RoleCaptain:
		return BucketP1
	case model.RoleFirstOfficer:
		if in.ICUS && in.IsPilotFlying {
			return BucketP1US
		}
		return BucketP2
	case model.RoleSecondOfficer:
		return BucketP2
	default:
		return BucketNone
	}
}
