// Package gazetteer resolves ICAO airport codes to coordinates.
package gazetteer

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"flight-time-engine/internal/model"
)

// Gazetteer is an immutable in-memory airport table.
type Gazetteer struct {
	airports map[string]model.AirportCoordinate
}

// New builds a gazetteer from entries. Later duplicates replace earlier ones.
func New(entries ...model.AirportCoordinate) *Gazetteer {
	g := &Gazetteer{airports: make(map[string]model.AirportCoordinate, len(entries))}
	for _, e := range entries {
		e.Code = normalizeCode(e.Code)
		g.airports[e.Code] = e
	}
	return g
}

// Lookup returns the coordinate for code. An unknown code reports false and
// never a default position.
func (g *Gazetteer) Lookup(code string) (model.AirportCoordinate, bool) {
	if g == nil {
		return model.AirportCoordinate{}, false
	}
	a, ok := g.airports[normalizeCode(code)]
	return a, ok
}

// Len returns the number of airports.
func (g *Gazetteer) Len() int {
	if g == nil {
		return 0
	}
	return len(g.airports)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type fileEntry struct {
	Code      string `yaml:"code"`
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
}

type file struct {
	Airports []fileEntry `yaml:"airports"`
}

// Load reads a YAML airport list:
//
//	airports:
//	  - code: EGLL
//	    latitude: N5128.2
//	    longitude: W00027.3
//	  - code: KJFK
//	    latitude: 40.6398
//	    longitude: -73.7789
func Load(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gazetteer: %w", err)
	}
	return Parse(data)
}

// Parse decodes a gazetteer document.
func Parse(data []byte) (*Gazetteer, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse gazetteer: %w", err)
	}

	entries := make([]model.AirportCoordinate, 0, len(f.Airports))
	for i, a := range f.Airports {
		if normalizeCode(a.Code) == "" {
			return nil, fmt.Errorf("airport %d: missing code", i)
		}
		lat, err := ParseLatitude(a.Latitude)
		if err != nil {
			return nil, fmt.Errorf("airport %s: %w", a.Code, err)
		}
		lon, err := ParseLongitude(a.Longitude)
		if err != nil {
			return nil, fmt.Errorf("airport %s: %w", a.Code, err)
		}
		entries = append(entries, model.AirportCoordinate{
			Code:       a.Code,
			Coordinate: model.Coordinate{Latitude: lat, Longitude: lon},
		})
	}
	return New(entries...), nil
}

// ParseLatitude accepts decimal degrees ("51.47", "-33.95") or a hemisphere
// letter followed by DDMM.M or DDMMSS ("N5128.2", "S335641").
func ParseLatitude(s string) (float64, error) {
	v, err := parseCoordinate(s, 2, "N", "S")
	if err != nil {
		return 0, err
	}
	if v < -90 || v > 90 {
		return 0, fmt.Errorf("latitude %q out of range", s)
	}
	return v, nil
}

// ParseLongitude accepts decimal degrees or a hemisphere letter followed by
// DDDMM.M or DDDMMSS ("W00027.3", "E1511058").
func ParseLongitude(s string) (float64, error) {
	v, err := parseCoordinate(s, 3, "E", "W")
	if err != nil {
		return 0, err
	}
	if v < -180 || v > 180 {
		return 0, fmt.Errorf("longitude %q out of range", s)
	}
	return v, nil
}

func parseCoordinate(s string, degDigits int, pos, neg string) (float64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}

	dir := s[:1]
	if dir != pos && dir != neg {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid coordinate %q", s)
		}
		return v, nil
	}

	v, err := parseDMS(s[1:], degDigits)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q: %w", s, err)
	}
	if dir == neg {
		v = -v
	}
	return v, nil
}

// parseDMS converts DDMM.M (minutes with decimals) or DDMMSS to degrees.
// degDigits is 2 for latitude and 3 for longitude.
func parseDMS(s string, degDigits int) (float64, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if len(whole) < degDigits+2 {
		return 0, fmt.Errorf("too short")
	}

	deg, err := strconv.Atoi(whole[:degDigits])
	if err != nil {
		return 0, err
	}

	var minutes float64
	switch rest := whole[degDigits:]; {
	case hasFrac && len(rest) == 2:
		minutes, err = strconv.ParseFloat(rest+"."+frac, 64)
	case !hasFrac && len(rest) == 2:
		minutes, err = strconv.ParseFloat(rest, 64)
	case !hasFrac && len(rest) == 4:
		var mm, ss int
		if mm, err = strconv.Atoi(rest[:2]); err == nil {
			if ss, err = strconv.Atoi(rest[2:]); err == nil {
				if ss >= 60 {
					return 0, fmt.Errorf("seconds out of range")
				}
				minutes = float64(mm) + float64(ss)/60
			}
		}
	default:
		return 0, fmt.Errorf("unrecognised layout")
	}
	if err != nil {
		return 0, err
	}
	if minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("minutes out of range")
	}

	return float64(deg) + minutes/60, nil
}
