package night

import (
	"fmt"
	"math"
	"time"

	"flight-time-engine/internal/model"
	"flight-time-engine/internal/solar"
	"flight-time-engine/pkg/utils"
)

const (
	// DefaultSegments is the number of equal slices a flight is split into.
	DefaultSegments = 200
	// DefaultLandingOffset moves the landing check inside the last sample so
	// the night-landing flag agrees with accumulated night time.
	DefaultLandingOffset = 3 * time.Minute
)

// Classifier decides night at a point and instant.
type Classifier func(lat, lon float64, t time.Time) bool

// Sampler estimates night time along a straight-line track between two
// airports.
type Sampler struct {
	segments      int
	landingOffset time.Duration
	classify      Classifier
}

type Option func(*Sampler)

func WithSegments(n int) Option {
	return func(s *Sampler) {
		s.segments = n
	}
}

func WithLandingOffset(d time.Duration) Option {
	return func(s *Sampler) {
		s.landingOffset = d
	}
}

// WithClassifier replaces the solar classifier; used to pin behaviour in tests.
func WithClassifier(c Classifier) Option {
	return func(s *Sampler) {
		s.classify = c
	}
}

// New builds a Sampler with the default segment count and landing offset.
func New(opts ...Option) (*Sampler, error) {
	s := &Sampler{
		segments:      DefaultSegments,
		landingOffset: DefaultLandingOffset,
		classify:      solar.IsNight,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.segments < 1 {
		return nil, fmt.Errorf("segment count must be at least 1, got %d", s.segments)
	}
	if s.landingOffset < 0 {
		return nil, fmt.Errorf("landing offset must not be negative, got %s", s.landingOffset)
	}
	if s.classify == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	return s, nil
}

// Segments returns the configured sample count.
func (s *Sampler) Segments() int { return s.segments }

// LandingOffset returns how far before arrival the landing is classified.
func (s *Sampler) LandingOffset() time.Duration { return s.landingOffset }

// Result is the outcome of sampling one flight.
type Result struct {
	NightSegments  int     `json:"night_segments"`
	Segments       int     `json:"segments"`
	NightFraction  float64 `json:"night_fraction"`
	NightTime      float64 `json:"night_time"` // hours, same unit as block time
	DepartureNight bool    `json:"departure_night"`
	ArrivalNight   bool    `json:"arrival_night"`
}

// Sample classifies a flight leaving from at departure and flying blockHours
// to to. Non-positive durations accumulate no night time; the takeoff and
// landing are then both classified at the departure point and instant.
func (s *Sampler) Sample(departure time.Time, blockHours float64, from, to model.Coordinate) Result {
	departure = departure.UTC()
	res := Result{
		DepartureNight: s.classify(from.Latitude, from.Longitude, departure),
	}

	duration := utils.HoursToDuration(blockHours)
	if duration <= 0 {
		res.ArrivalNight = res.DepartureNight
		return res
	}

	res.Segments = s.segments
	step := float64(duration) / float64(s.segments)
	for i := 0; i < s.segments; i++ {
		offset := time.Duration((float64(i) + 0.5) * step)
		p := interpolate(from, to, float64(offset)/float64(duration))
		if s.classify(p.Latitude, p.Longitude, departure.Add(offset)) {
			res.NightSegments++
		}
	}
	res.NightFraction = float64(res.NightSegments) / float64(s.segments)
	res.NightTime = res.NightFraction * blockHours

	landingAt := duration - s.landingOffset
	if landingAt < 0 {
		landingAt = 0
	}
	p := interpolate(from, to, float64(landingAt)/float64(duration))
	res.ArrivalNight = s.classify(p.Latitude, p.Longitude, departure.Add(landingAt))

	return res
}

// interpolate returns the point at fraction f of the straight line from a to b
// in latitude/longitude space, taking the shorter way round in longitude.
func interpolate(a, b model.Coordinate, f float64) model.Coordinate {
	dLon := b.Longitude - a.Longitude
	if dLon > 180 {
		dLon -= 360
	} else if dLon < -180 {
		dLon += 360
	}

	lon := a.Longitude + f*dLon
	lon = math.Mod(lon+540, 360) - 180

	return model.Coordinate{
		Latitude:  a.Latitude + f*(b.Latitude-a.Latitude),
		Longitude: lon,
	}
}
