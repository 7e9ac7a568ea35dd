package domain

import "strings"

// Bounds is a latitude/longitude box. When MinLon is greater than MaxLon the
// box crosses the antimeridian.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b Bounds) Contains(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.MinLon <= b.MaxLon {
		return lon >= b.MinLon && lon <= b.MaxLon
	}
	return lon >= b.MinLon || lon <= b.MaxLon
}

// BoundsAround returns a box of ±radius degrees around a point, clamped to valid latitudes.
func BoundsAround(lat, lon, radius float64) Bounds {
	b := Bounds{
		MinLat: max(lat-radius, -90),
		MaxLat: min(lat+radius, 90),
		MinLon: wrapLongitude(lon - radius),
		MaxLon: wrapLongitude(lon + radius),
	}
	if radius >= 180 {
		b.MinLon, b.MaxLon = -180, 180
	}
	return b
}

func wrapLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

// Region is a named area used to narrow the candidate profiles.
type Region struct {
	Name   string `json:"name"`
	Bounds Bounds `json:"bounds"`
}

// PlaceRadiusDegrees is the half-width of the box built around a geocoded place.
const PlaceRadiusDegrees = 5.0

type regionRule struct {
	phrase string
	region Region
}

// regionRules maps ocean names to rough bounding boxes. Longer phrases win
// over shorter ones, so "north atlantic" is preferred to "atlantic".
var regionRules = []regionRule{
	{"arabian sea", Region{"Arabian Sea", Bounds{0, 25, 50, 78}}},
	{"bay of bengal", Region{"Bay of Bengal", Bounds{0, 23, 78, 100}}},
	{"indian ocean", Region{"Indian Ocean", Bounds{-60, 30, 20, 120}}},
	{"north atlantic", Region{"North Atlantic", Bounds{0, 70, -80, 0}}},
	{"south atlantic", Region{"South Atlantic", Bounds{-60, 0, -70, 20}}},
	{"atlantic", Region{"Atlantic Ocean", Bounds{-60, 70, -80, 20}}},
	{"north pacific", Region{"North Pacific", Bounds{0, 65, 120, -100}}},
	{"south pacific", Region{"South Pacific", Bounds{-60, 0, 150, -70}}},
	{"pacific", Region{"Pacific Ocean", Bounds{-60, 65, 120, -70}}},
	{"southern ocean", Region{"Southern Ocean", Bounds{-90, -50, -180, 180}}},
	{"mediterranean", Region{"Mediterranean Sea", Bounds{30, 46, -6, 36}}},
	{"equatorial", Region{"Equatorial band", Bounds{-5, 5, -180, 180}}},
	{"equator", Region{"Equatorial band", Bounds{-5, 5, -180, 180}}},
}

// LookupRegion returns the named region for phrase, if known.
func LookupRegion(phrase string) (Region, bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	for _, r := range regionRules {
		if r.phrase == phrase {
			return r.region, true
		}
	}
	return Region{}, false
}
