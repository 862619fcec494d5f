// Package solar computes the sun's apparent position with the low-precision
// almanac formulae (accurate to roughly 0.01 degrees between 1950 and 2050),
// which is ample for separating day from civil night.
package solar

import (
	"math"
	"time"
)

// CivilTwilight is the solar elevation, in degrees, below which logbook time
// counts as night.
const CivilTwilight = -6.0

// j2000Unix is 2000-01-01T12:00:00Z.
const j2000Unix = 946728000

// Position is the sun's apparent place at an instant.
type Position struct {
	RightAscension float64 // degrees, [0, 360)
	Declination    float64 // degrees
	MeanLongitude  float64 // degrees, [0, 360)
	EquationOfTime float64 // minutes, apparent minus mean solar time
}

// daysSinceJ2000 returns fractional days from the J2000.0 epoch.
func daysSinceJ2000(t time.Time) float64 {
	return float64(t.UTC().UnixNano()-j2000Unix*int64(time.Second)) / float64(24*time.Hour)
}

// SunPosition returns right ascension, declination and the equation of time.
func SunPosition(t time.Time) Position {
	n := daysSinceJ2000(t)

	meanLon := normalize(280.460 + 0.9856474*n)
	meanAnomaly := radians(normalize(357.528 + 0.9856003*n))

	eclipticLon := radians(meanLon + 1.915*math.Sin(meanAnomaly) + 0.020*math.Sin(2*meanAnomaly))
	obliquity := radians(23.439 - 0.0000004*n)

	ra := normalize(degrees(math.Atan2(math.Cos(obliquity)*math.Sin(eclipticLon), math.Cos(eclipticLon))))
	dec := degrees(math.Asin(math.Sin(obliquity) * math.Sin(eclipticLon)))

	return Position{
		RightAscension: ra,
		Declination:    dec,
		MeanLongitude:  meanLon,
		EquationOfTime: wrap180(meanLon-ra) * 4,
	}
}

// Elevation returns the sun's altitude above the horizon in degrees for an
// observer at lat/lon (decimal degrees, east positive) at instant t.
func Elevation(lat, lon float64, t time.Time) float64 {
	pos := SunPosition(t)
	n := daysSinceJ2000(t)

	gmst := normalize(280.46061837 + 360.98564736629*n)
	hourAngle := radians(gmst + lon - pos.RightAscension)

	phi := radians(lat)
	delta := radians(pos.Declination)

	sinElev := math.Sin(phi)*math.Sin(delta) + math.Cos(phi)*math.Cos(delta)*math.Cos(hourAngle)
	return degrees(math.Asin(clamp(sinElev, -1, 1)))
}

// IsNight reports whether the sun is below the civil twilight threshold.
func IsNight(lat, lon float64, t time.Time) bool {
	return Elevation(lat, lon, t) < CivilTwilight
}

// EquationOfTime returns apparent minus mean solar time in minutes.
func EquationOfTime(t time.Time) float64 {
	return SunPosition(t).EquationOfTime
}

// SolarNoon returns the UTC instant of local apparent noon at longitude lon on
// the UTC calendar day containing date.
func SolarNoon(lon float64, date time.Time) time.Time {
	u := date.UTC()
	base := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	minutes := 720 - 4*lon
	noon := base.Add(time.Duration(minutes * float64(time.Minute)))
	// The equation of time drifts by well under a second per hour; two
	// refinements settle it.
	for i := 0; i < 2; i++ {
		eot := EquationOfTime(noon)
		noon = base.Add(time.Duration((minutes - eot) * float64(time.Minute)))
	}
	return noon
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }

// normalize maps an angle into [0, 360).
func normalize(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// wrap180 maps an angle into [-180, 180).
func wrap180(d float64) float64 {
	d = normalize(d)
	if d >= 180 {
		d -= 360
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
