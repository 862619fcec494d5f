package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flight-time-engine/internal/model"
	"flight-time-engine/pkg/utils"
)

// Gazetteer resolves airport codes. A miss is a normal outcome.
type Gazetteer interface {
	Lookup(code string) (model.AirportCoordinate, bool)
}

// Context is the parsed, resolved view of one record that the pipeline
// stages consume. It is built once per recompute and never mutated.
type Context struct {
	RecordID    uuid.UUID
	Fingerprint string

	// Departure is the off-blocks instant in UTC; zero when the date or
	// clock could not be parsed.
	Departure time.Time

	From    model.Coordinate
	To      model.Coordinate
	HasFrom bool
	HasTo   bool

	// Problems lists why automatic classification cannot run.
	Problems []error
}

// Classifiable reports whether night sampling can run for the record.
func (c Context) Classifiable() bool {
	return len(c.Problems) == 0
}

// NewContext resolves coordinates and parses the departure instant.
func NewContext(r model.FlightRecord, gaz Gazetteer) Context {
	c := Context{
		RecordID:    r.ID,
		Fingerprint: Fingerprint(r),
	}

	if gaz != nil {
		if a, ok := gaz.Lookup(r.Departure); ok {
			c.From, c.HasFrom = a.Coordinate, true
		}
		if a, ok := gaz.Lookup(r.Arrival); ok {
			c.To, c.HasTo = a.Coordinate, true
		}
	}
	if !c.HasFrom {
		c.Problems = append(c.Problems, fmt.Errorf("departure %q: %w", r.Departure, model.ErrUnknownAirport))
	}
	if !c.HasTo {
		c.Problems = append(c.Problems, fmt.Errorf("arrival %q: %w", r.Arrival, model.ErrUnknownAirport))
	}

	dep, err := utils.CombineDateClock(r.Date, r.DepartureClock())
	if err != nil {
		c.Problems = append(c.Problems, fmt.Errorf("departure time: %w: %v", model.ErrMissingTime, err))
	} else {
		c.Departure = dep
	}

	return c
}

// Fingerprint captures the record fields a Context depends on. Edits to any
// other field leave it unchanged.
func Fingerprint(r model.FlightRecord) string {
	return strings.Join([]string{
		utils.FormatCivilDate(r.Date),
		strings.ToUpper(strings.TrimSpace(r.Departure)),
		strings.ToUpper(strings.TrimSpace(r.Arrival)),
		strings.TrimSpace(r.DepartureClock()),
	}, "|")
}

// ContextCache memoises contexts by record ID and fingerprint so unrelated
// edits do not repeat coordinate lookups and date parsing. It is safe for
// concurrent use.
type ContextCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]Context
	gaz     Gazetteer
	onHit   func(hit bool)
}

// NewContextCache creates a cache bound to one gazetteer snapshot.
func NewContextCache(gaz Gazetteer) *ContextCache {
	return &ContextCache{
		entries: make(map[uuid.UUID]Context),
		gaz:     gaz,
	}
}

// Get returns the cached context for r, rebuilding it when the relevant
// fields changed.
func (cc *ContextCache) Get(r model.FlightRecord) Context {
	fp := Fingerprint(r)

	cc.mu.Lock()
	c, ok := cc.entries[r.ID]
	cc.mu.Unlock()

	if ok && c.Fingerprint == fp {
		cc.observe(true)
		return c
	}
	cc.observe(false)

	c = NewContext(r, cc.gaz)
	cc.mu.Lock()
	cc.entries[r.ID] = c
	cc.mu.Unlock()
	return c
}

// Invalidate drops one record's context.
func (cc *ContextCache) Invalidate(id uuid.UUID) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.entries, id)
}

// Len returns the number of memoised contexts.
func (cc *ContextCache) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.entries)
}

func (cc *ContextCache) observe(hit bool) {
	if cc.onHit != nil {
		cc.onHit(hit)
	}
}
