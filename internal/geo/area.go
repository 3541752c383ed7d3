// Package geo handles search-area geometry for discovery queries.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

const (
	kmPerDegreeLat = 110.574
	kmPerDegreeLng = 111.320 // at the equator, scaled by cos(lat)
)

// Area is a rectangular search area. Zero value means "no restriction"
// (free-text location bias only).
type Area struct {
	bounds *geom.Bounds
}

// IsZero reports whether the area carries no rectangle.
func (a Area) IsZero() bool { return a.bounds == nil }

// Bounds returns the underlying bounds; nil when unrestricted.
func (a Area) Bounds() *geom.Bounds { return a.bounds }

// SW returns the south-west corner as (lat, lng).
func (a Area) SW() (float64, float64) { return a.bounds.Min(1), a.bounds.Min(0) }

// NE returns the north-east corner as (lat, lng).
func (a Area) NE() (float64, float64) { return a.bounds.Max(1), a.bounds.Max(0) }

// RectAround builds a square area centered on (lat, lng) extending
// radiusKM in each direction.
func RectAround(lat, lng, radiusKM float64) Area {
	dLat := radiusKM / kmPerDegreeLat
	dLng := radiusKM / (kmPerDegreeLng * math.Cos(lat*math.Pi/180))

	b := geom.NewBounds(geom.XY)
	b.Set(lng-dLng, lat-dLat, lng+dLng, lat+dLat)
	return Area{bounds: b}
}

// ParseArea parses a "lat,lng,radius_km" descriptor into an Area.
func ParseArea(s string) (Area, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Area{}, eris.Errorf("geo: area %q must be lat,lng,radius_km", s)
	}

	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Area{}, eris.Wrap(err, fmt.Sprintf("geo: parse area %q", s))
		}
		vals[i] = v
	}

	lat, lng, radius := vals[0], vals[1], vals[2]
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Area{}, eris.Errorf("geo: coordinates out of range in %q", s)
	}
	if radius <= 0 {
		return Area{}, eris.Errorf("geo: radius must be positive in %q", s)
	}

	return RectAround(lat, lng, radius), nil
}
