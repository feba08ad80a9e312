// Package geo implements the azimuthal equidistant (AEQD) projection
// Atlas uses to go from a tile's planar raster coordinates back to WGS84
// longitude/latitude. No library in this module's dependency surface
// exposes a generic AEQD transform (paulmach/orb ships geometry types and
// great-circle helpers, not arbitrary projections), so the forward and
// inverse spherical formulas are implemented directly here, grounded on
// the original's projector::Convert usage.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// earthRadiusMeters is the mean Earth radius used throughout this
// module's tile geometry, matching the original's spherical (not
// ellipsoidal) model.
const earthRadiusMeters = 6371000.0

// Projector converts between metres-from-base and WGS84 lon/lat, anchored
// at Base, using the spherical azimuthal equidistant projection.
type Projector struct {
	Base      orb.Point // lon, lat in degrees
	baseLatR  float64
	baseLonR  float64
	sinBaseLa float64
	cosBaseLa float64
}

// NewProjector builds a Projector anchored at base.
func NewProjector(base orb.Point) Projector {
	latR := degToRad(base.Lat())
	return Projector{
		Base:      base,
		baseLatR:  latR,
		baseLonR:  degToRad(base.Lon()),
		sinBaseLa: math.Sin(latR),
		cosBaseLa: math.Cos(latR),
	}
}

// ToDegrees converts a point (x, y) in metres east/north of Base into a
// WGS84 lon/lat point.
func (p Projector) ToDegrees(x, y float64) orb.Point {
	rho := math.Hypot(x, y)
	if rho == 0 {
		return p.Base
	}
	c := rho / earthRadiusMeters
	sinC, cosC := math.Sin(c), math.Cos(c)

	lat := math.Asin(cosC*p.sinBaseLa + (y*sinC*p.cosBaseLa)/rho)
	lon := p.baseLonR + math.Atan2(
		x*sinC,
		rho*p.cosBaseLa*cosC-y*p.sinBaseLa*sinC,
	)
	return orb.Point{radToDeg(lon), radToDeg(lat)}
}

// ToMeters converts a WGS84 lon/lat point into metres east/north of Base.
func (p Projector) ToMeters(pt orb.Point) (x, y float64) {
	latR := degToRad(pt.Lat())
	lonR := degToRad(pt.Lon())
	dLon := lonR - p.baseLonR

	sinLat, cosLat := math.Sin(latR), math.Cos(latR)
	cosC := p.sinBaseLa*sinLat + p.cosBaseLa*cosLat*math.Cos(dLon)
	cosC = clamp(cosC, -1, 1)
	c := math.Acos(cosC)

	if c == 0 {
		return 0, 0
	}
	k := c / math.Sin(c)
	x = k * cosLat * math.Sin(dLon) * earthRadiusMeters
	y = k * (p.cosBaseLa*sinLat - p.sinBaseLa*cosLat*math.Cos(dLon)) * earthRadiusMeters
	return x, y
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
