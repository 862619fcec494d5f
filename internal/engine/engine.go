// Package engine wires the solar, night, credit, window and frms stages into
// one explicit pipeline: build a calculation context per record, then call
// the pure stage functions.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flight-time-engine/internal/credit"
	"flight-time-engine/internal/frms"
	"flight-time-engine/internal/metrics"
	"flight-time-engine/internal/model"
	"flight-time-engine/internal/night"
	"flight-time-engine/internal/window"
	"flight-time-engine/pkg/logger"
	"flight-time-engine/pkg/utils"
)

// RecordSource supplies read-only logbook snapshots.
type RecordSource interface {
	Records(ctx context.Context) ([]model.FlightRecord, error)
	Record(ctx context.Context, id uuid.UUID) (model.FlightRecord, error)
}

// Status is the outcome of automatic night classification for a flight.
type Status uint8

const (
	StatusClassified Status = iota
	// StatusUnknown means coordinates or the departure time were missing;
	// manually entered counts are kept.
	StatusUnknown
	// StatusNotApplicable covers positioning and simulator records.
	StatusNotApplicable
)

var statusNames = [...]string{
	StatusClassified:    "classified",
	StatusUnknown:       "unknown",
	StatusNotApplicable: "not_applicable",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// FlightResult is everything derived for a single flight.
type FlightResult struct {
	RecordID  uuid.UUID `json:"record_id"`
	Status    Status    `json:"status"`
	NightTime float64   `json:"night_time"`
	model.TakeoffsLandings
	credit.Credits

	// Night holds the sampler output when Status is StatusClassified.
	Night *night.Result `json:"night,omitempty"`
	// Reasons explains StatusUnknown and sectors that earned no credit.
	Reasons []string `json:"reasons,omitempty"`
}

// LogbookResult is the rolling-window and limit picture for a snapshot.
type LogbookResult struct {
	AsOf         time.Time           `json:"as_of"`
	Fleet        model.FleetCategory `json:"fleet"`
	Records      int                 `json:"records"`
	Windows      []window.Result     `json:"windows"`
	Utilizations []frms.Utilization  `json:"utilizations"`
	Worst        frms.Band           `json:"worst"`
}

// Engine evaluates flights and logbooks. It holds configuration only; every
// call works on the snapshot it is given.
type Engine struct {
	sampler *night.Sampler
	alloc   *credit.Allocator
	gaz     Gazetteer
	limits  frms.LimitsTable
	specs   []window.Spec
	cache   *ContextCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithSampler(s *night.Sampler) Option {
	return func(e *Engine) {
		e.sampler = s
	}
}

func WithAllocator(a *credit.Allocator) Option {
	return func(e *Engine) {
		e.alloc = a
	}
}

// WithWindows replaces the default 7/28/365 flight and 7/14 duty windows.
func WithWindows(specs []window.Spec) Option {
	return func(e *Engine) {
		e.specs = specs
	}
}

// WithContextCache enables calculation context memoisation.
func WithContextCache() Option {
	return func(e *Engine) {
		e.cache = NewContextCache(e.gaz)
	}
}

// New builds an engine over a gazetteer and a limits snapshot.
func New(gaz Gazetteer, limits frms.LimitsTable, opts ...Option) (*Engine, error) {
	e := &Engine{
		gaz:    gaz,
		limits: limits,
		specs:  window.DefaultSpecs,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.sampler == nil {
		s, err := night.New()
		if err != nil {
			return nil, err
		}
		e.sampler = s
	}
	if e.alloc == nil {
		a, err := credit.New()
		if err != nil {
			return nil, err
		}
		e.alloc = a
	}
	for _, spec := range e.specs {
		if spec.Days < 0 {
			return nil, fmt.Errorf("window %s: days must not be negative", spec)
		}
	}
	if e.cache != nil {
		e.cache.onHit = e.metrics.IncrementContextCache
	}
	return e, nil
}

// Windows returns the configured window specs.
func (e *Engine) Windows() []window.Spec { return e.specs }

// Limits returns the limits snapshot the engine evaluates against.
func (e *Engine) Limits() frms.LimitsTable { return e.limits }

func (e *Engine) context(r model.FlightRecord) Context {
	if e.cache != nil {
		return e.cache.Get(r)
	}
	return NewContext(r, e.gaz)
}

// EvaluateFlight derives night time, takeoff/landing classification and
// credits for one record.
func (e *Engine) EvaluateFlight(r model.FlightRecord) FlightResult {
	res := FlightResult{
		RecordID: r.ID,
		Credits:  e.alloc.AllocateRecord(r),
	}

	if !r.IsPositioning && !r.IsSimulatorSession() && !r.Role.IsValid() {
		err := fmt.Errorf("role %q: %w", r.Role, model.ErrUnknownRole)
		res.Reasons = append(res.Reasons, err.Error())
		e.logger.Warn("sector earns no credit", "record", r.ID, "block_time", r.BlockTime, "error", err)
	}

	switch {
	case r.IsPositioning:
		res.Status = StatusNotApplicable

	case r.IsSimulatorSession():
		res.Status = StatusNotApplicable
		res.NightTime = r.NightTime
		res.TakeoffsLandings = r.TakeoffsLandings

	default:
		c := e.context(r)
		if !c.Classifiable() {
			res.Status = StatusUnknown
			res.NightTime = r.NightTime
			res.TakeoffsLandings = r.TakeoffsLandings
			for _, p := range c.Problems {
				res.Reasons = append(res.Reasons, p.Error())
			}
			e.logger.Debug("night classification unknown",
				"record", r.ID, "departure", r.Departure, "arrival", r.Arrival, "reasons", res.Reasons)
			break
		}

		sample := e.sampler.Sample(c.Departure, r.BlockTime, c.From, c.To)
		res.Status = StatusClassified
		res.Night = &sample
		res.NightTime = sample.NightTime
		res.TakeoffsLandings = countsFor(r.IsPilotFlying, sample)
	}

	e.metrics.IncrementFlightEvaluations(res.Status.String())
	return res
}

// EvaluateFlights evaluates every record in order.
func (e *Engine) EvaluateFlights(records []model.FlightRecord) []FlightResult {
	out := make([]FlightResult, 0, len(records))
	for _, r := range records {
		out = append(out, e.EvaluateFlight(r))
	}
	return out
}

// countsFor credits the pilot flying with one takeoff and one landing, each
// classified by the sampler's single-point checks.
func countsFor(pilotFlying bool, s night.Result) model.TakeoffsLandings {
	var tl model.TakeoffsLandings
	if !pilotFlying {
		return tl
	}
	if s.DepartureNight {
		tl.NightTakeoffs = 1
	} else {
		tl.DayTakeoffs = 1
	}
	if s.ArrivalNight {
		tl.NightLandings = 1
	} else {
		tl.DayLandings = 1
	}
	return tl
}

// EvaluateLogbook sums every configured window over the snapshot and rates
// the sums against the fleet's limits. A fleet without a limits entry gets
// window totals and no utilizations.
func (e *Engine) EvaluateLogbook(records []model.FlightRecord, fleet model.FleetCategory, asOf time.Time) LogbookResult {
	start := time.Now()

	set := window.NewSet(records)
	res := LogbookResult{
		AsOf:    utils.DayStartUTC(asOf),
		Fleet:   fleet,
		Records: set.Len(),
		Windows: set.Results(e.specs, asOf),
	}

	if limits, ok := e.limits.For(fleet); ok {
		res.Utilizations = frms.Evaluate(res.Windows, limits)
	} else {
		res.Utilizations = []frms.Utilization{}
		e.logger.Debug("no limits configured for fleet", "fleet", fleet)
	}
	res.Worst = frms.Worst(res.Utilizations)

	e.metrics.ObserveLogbookEvaluation(time.Since(start))
	return res
}

// SnapshotFingerprint identifies a record snapshot for summary caching. It
// changes when any record's window contribution changes and ignores order.
func SnapshotFingerprint(records []model.FlightRecord) string {
	var sum uint64
	for _, r := range records {
		h := fnv.New64a()
		fmt.Fprintf(h, "%s|%s|%g|%g", r.ID, utils.FormatCivilDate(r.Date), r.FlightHours(), r.DutyHours())
		sum += h.Sum64()
	}
	return fmt.Sprintf("%d-%016x", len(records), sum)
}
