// Package window sums flight and duty hours over trailing day windows.
package window

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"sort"
	"time"

	"flight-time-engine/internal/model"
	"flight-time-engine/pkg/utils"
)

// Kind selects which per-record figure a window sums.
type Kind uint8

const (
	KindFlight Kind = iota
	KindDuty
)

var kindNames = [...]string{
	KindFlight: "flight",
	KindDuty:   "duty",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind is the inverse of String.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown window kind %q", s)
}

// Spec is one window to evaluate.
type Spec struct {
	Kind Kind
	Days int
}

func (s Spec) String() string {
	return fmt.Sprintf("%s_%dd", s.Kind, s.Days)
}

// DefaultSpecs are the windows the FRMS tables define limits for.
var DefaultSpecs = []Spec{
	{KindFlight, 7},
	{KindFlight, 28},
	{KindFlight, 365},
	{KindDuty, 7},
	{KindDuty, 14},
}

// Result is the total for one window ending on AsOf.
type Result struct {
	Kind  Kind      `json:"kind"`
	Days  int       `json:"days"`
	AsOf  time.Time `json:"as_of"`
	Hours float64   `json:"hours"`
}

type entry struct {
	day    time.Time
	id     [16]byte
	flight float64
	duty   float64
}

// Set is a read-only snapshot of records, reduced to their dates and hour
// contributions and sorted once so every window length is served from the
// same pass. Records without a date are dropped: they cannot fall inside any
// window.
type Set struct {
	entries []entry
}

// NewSet builds a Set from a record snapshot.
func NewSet(records []model.FlightRecord) *Set {
	entries := make([]entry, 0, len(records))
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		entries = append(entries, entry{
			day:    utils.DayStartUTC(r.Date),
			id:     r.ID,
			flight: r.FlightHours(),
			duty:   r.DutyHours(),
		})
	}

	// A total order makes the float sums independent of input order.
	slices.SortFunc(entries, func(a, b entry) int {
		if c := a.day.Compare(b.day); c != 0 {
			return c
		}
		if c := bytes.Compare(a.id[:], b.id[:]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.flight, b.flight); c != 0 {
			return c
		}
		return cmp.Compare(a.duty, b.duty)
	})

	return &Set{entries: entries}
}

// Len returns the number of dated records in the set.
func (s *Set) Len() int { return len(s.entries) }

// bounds returns the index range of entries dated within
// [asOf - days, asOf], both ends inclusive.
func (s *Set) bounds(days int, asOf time.Time) (int, int) {
	if days < 0 {
		return 0, 0
	}
	end := utils.DayStartUTC(asOf)
	start := end.AddDate(0, 0, -days)

	lo := sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].day.Before(start)
	})
	hi := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].day.After(end)
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Sum totals the kind's hours over the window of days ending on asOf.
func (s *Set) Sum(kind Kind, days int, asOf time.Time) float64 {
	lo, hi := s.bounds(days, asOf)

	var total float64
	for _, e := range s.entries[lo:hi] {
		if kind == KindDuty {
			total += e.duty
		} else {
			total += e.flight
		}
	}
	return total
}

// CountInWindow returns how many records fall inside the window.
func (s *Set) CountInWindow(days int, asOf time.Time) int {
	lo, hi := s.bounds(days, asOf)
	return hi - lo
}

// Results evaluates every spec against the same snapshot.
func (s *Set) Results(specs []Spec, asOf time.Time) []Result {
	day := utils.DayStartUTC(asOf)
	out := make([]Result, 0, len(specs))
	for _, spec := range specs {
		out = append(out, Result{
			Kind:  spec.Kind,
			Days:  spec.Days,
			AsOf:  day,
			Hours: s.Sum(spec.Kind, spec.Days, day),
		})
	}
	return out
}

// SumHours is the one-shot form of Set.Sum. Callers needing several windows
// should build a Set once instead.
func SumHours(records []model.FlightRecord, kind Kind, days int, asOf time.Time) float64 {
	return NewSet(records).Sum(kind, days, asOf)
}
