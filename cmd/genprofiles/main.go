// Command genprofiles writes a deterministic synthetic ARGO profile fixture.
// The output format follows the file extension (.json, .yaml or .yml).
//
// Usage:
//
//	go run ./cmd/genprofiles -out data/profiles.json
//	go run ./cmd/genprofiles -out data/profiles.yaml -profiles 200 -levels 60 -seed 7
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/couchcryptid/float-query-service/internal/adapter/fixture"
)

func main() {
	out := flag.String("out", "data/profiles.json", "output fixture path")
	profiles := flag.Int("profiles", 50, "number of floats")
	levels := flag.Int("levels", 100, "depth levels per float")
	seed := flag.Int64("seed", 42, "generator seed")
	maxDepth := flag.Float64("max-depth", 2000, "deepest sampled level in metres")
	flag.Parse()

	if *profiles < 1 || *levels < 1 {
		log.Fatal("profiles and levels must be positive")
	}
	if *maxDepth <= 0 {
		log.Fatal("max-depth must be positive")
	}

	cfg := fixture.DefaultGeneratorConfig()
	cfg.Profiles = *profiles
	cfg.Levels = *levels
	cfg.Seed = *seed
	cfg.MaxDepth = *maxDepth

	f := fixture.File{
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Seed:        cfg.Seed,
		Profiles:    fixture.Generate(cfg),
	}
	if err := fixture.Write(*out, f); err != nil {
		log.Fatalf("write fixture: %v", err)
	}

	samples, active := 0, 0
	for _, p := range f.Profiles {
		samples += len(p.Samples)
		if p.Active {
			active++
		}
	}
	fmt.Printf("Wrote %s: %d floats (%d active), %d samples, seed %d\n",
		*out, len(f.Profiles), active, samples, cfg.Seed)
}
