// Package fixture builds the profile dataset: a deterministic synthetic
// generator and a JSON/YAML fixture loader.
package fixture

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/couchcryptid/float-query-service/internal/domain"
)

// FirstFloatID is the WMO-style id given to the first generated float.
const FirstFloatID = 5906300

// GeneratorConfig controls the synthetic dataset.
type GeneratorConfig struct {
	Profiles int
	Levels   int
	Seed     int64
	MaxDepth float64
	Start    time.Time
}

// DefaultGeneratorConfig matches the service defaults: 50 floats, 100 levels to 2000 m.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Profiles: 50,
		Levels:   100,
		Seed:     42,
		MaxDepth: 2000,
		Start:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

type basin struct {
	name                   string
	minLat, maxLat         float64
	minLon, maxLon         float64
	surfaceTemp, surfaceSal float64
}

// basins places floats where the named regions can find them.
var basins = []basin{
	{"arabian sea", 8, 22, 58, 72, 28.5, 36.3},
	{"bay of bengal", 6, 20, 82, 94, 29.0, 33.4},
	{"north atlantic", 25, 55, -60, -20, 18.0, 35.9},
	{"equatorial pacific", -4, 4, -170, -100, 27.0, 35.0},
}

const (
	deepTemp        = 2.0
	deepSal         = 34.7
	thermoclineDrop = 350.0
	haloclineDrop   = 600.0
)

// Generate returns cfg.Profiles synthetic profiles. The same config always
// yields the same profiles. Every tenth float is inactive and every third
// carries dissolved oxygen.
func Generate(cfg GeneratorConfig) []domain.Profile {
	def := DefaultGeneratorConfig()
	if cfg.Levels < 2 {
		cfg.Levels = def.Levels
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.Start.IsZero() {
		cfg.Start = def.Start
	}

	seed := uint64(cfg.Seed)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	profiles := make([]domain.Profile, 0, max(cfg.Profiles, 0))
	for i := 0; i < cfg.Profiles; i++ {
		b := basins[i%len(basins)]
		p := domain.Profile{
			ID:        strconv.Itoa(FirstFloatID + i),
			Latitude:  round(between(rng, b.minLat, b.maxLat), 3),
			Longitude: round(between(rng, b.minLon, b.maxLon), 3),
			Active:    i%10 != 9,
			Date:      cfg.Start.Add(time.Duration(i) * 72 * time.Hour),
		}
		withOxygen := i%3 == 0
		surfaceTemp := b.surfaceTemp + between(rng, -1.5, 1.5)
		surfaceSal := b.surfaceSal + between(rng, -0.3, 0.3)

		p.Samples = make([]domain.Sample, cfg.Levels)
		for k, d := range depthLevels(rng, cfg.Levels, cfg.MaxDepth) {
			s := domain.Sample{
				Depth:       d,
				Temperature: round(deepTemp+(surfaceTemp-deepTemp)*math.Exp(-d/thermoclineDrop)+between(rng, -0.2, 0.2), 3),
				Salinity:    round(surfaceSal+(deepSal-surfaceSal)*(1-math.Exp(-d/haloclineDrop))+between(rng, -0.02, 0.02), 3),
				Pressure:    round(d*1.0101, 1),
			}
			if withOxygen {
				o := 40 + 180*math.Exp(-d/150) + 60*(1-math.Exp(-d/1500)) + between(rng, -2, 2)
				o = round(math.Max(o, 0), 2)
				s.Oxygen = &o
			}
			p.Samples[k] = s
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// depthLevels spreads n strictly ascending depths over [0, maxDepth], each
// jittered by up to 30% of the nominal spacing.
func depthLevels(rng *rand.Rand, n int, maxDepth float64) []float64 {
	step := maxDepth / float64(n-1)
	out := make([]float64, n)
	out[0] = round(between(rng, 0, math.Min(5, step*0.3)), 1)
	for k := 1; k < n; k++ {
		d := float64(k) * step
		if k < n-1 {
			d += between(rng, -0.3*step, 0.3*step)
		}
		d = round(d, 1)
		if d <= out[k-1] {
			d = out[k-1] + 0.1
		}
		out[k] = d
	}
	return out
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
