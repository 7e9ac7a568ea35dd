// Command validate runs data integrity and query property checks against a
// profile fixture (or the synthetic dataset when no fixture is given). It
// verifies sample ordering and value ranges, then exercises the extractor,
// aggregator and composer with reference reductions.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/profiles.json
//	go run ./cmd/validate -profiles 200 -seed 7
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/float-query-service/internal/adapter/fixture"
	"github.com/couchcryptid/float-query-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// Plausible physical ranges for synthetic ARGO data.
const (
	minTemperature = -2.5
	maxTemperature = 35.0
	minSalinity    = 30.0
	maxSalinity    = 41.0
)

func main() {
	fixturePath := flag.String("fixture", "", "profile fixture (.json, .yaml); synthetic data when empty")
	profiles := flag.Int("profiles", 50, "synthetic float count")
	levels := flag.Int("levels", 100, "synthetic depth levels per float")
	seed := flag.Int64("seed", 42, "synthetic generator seed")
	flag.Parse()

	gen := fixture.DefaultGeneratorConfig()
	gen.Profiles, gen.Levels, gen.Seed = *profiles, *levels, *seed

	if code := run(*fixturePath, gen); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath string, gen fixture.GeneratorConfig) int {
	fmt.Println("=== Float Profile Validation ===")
	fmt.Println()

	store, err := fixture.NewStore(fixturePath, gen, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load profiles: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateProfiles(store),
		validateExtractor(),
		validateDepthCoverage(store),
		validateExtremes(store),
		validateCompare(store),
		validateScenarios(store),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	lo, hi := store.DepthRange()
	fmt.Println()
	fmt.Printf("Profiles: %d total, %d active, depths %.1f to %.1f m\n", store.Len(), store.ActiveCount(), lo, hi)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: profile integrity ──

func validateProfiles(store *domain.Store) *phase {
	p := &phase{name: "Profile integrity"}
	if store.ActiveCount() == 0 {
		p.errorf("no active profiles")
	}
	for _, prof := range store.Profiles() {
		if prof.Latitude < -90 || prof.Latitude > 90 || prof.Longitude < -180 || prof.Longitude > 180 {
			p.errorf("%s: position (%.2f, %.2f) out of range", prof.ID, prof.Latitude, prof.Longitude)
		}
		for i, s := range prof.Samples {
			if i > 0 && s.Depth <= prof.Samples[i-1].Depth {
				p.errorf("%s: depth %.1f not above previous %.1f", prof.ID, s.Depth, prof.Samples[i-1].Depth)
			}
			if s.Temperature < minTemperature || s.Temperature > maxTemperature {
				p.errorf("%s @ %.1f m: temperature %.2f out of range", prof.ID, s.Depth, s.Temperature)
			}
			if s.Salinity < minSalinity || s.Salinity > maxSalinity {
				p.errorf("%s @ %.1f m: salinity %.2f out of range", prof.ID, s.Depth, s.Salinity)
			}
			if s.Pressure < 0 {
				p.errorf("%s @ %.1f m: negative pressure", prof.ID, s.Depth)
			}
			if s.Oxygen != nil && *s.Oxygen < 0 {
				p.errorf("%s @ %.1f m: negative oxygen", prof.ID, s.Depth)
			}
		}
	}
	return p
}

// ── Phase 2: extractor defaults ──

func validateExtractor() *phase {
	p := &phase{name: "Variable without operation is AVERAGE"}
	for _, word := range []string{"temperature", "temp", "salinity", "sal", "pressure", "oxygen", "o2"} {
		got := domain.Extract(word)
		if got.Operation != domain.OperationAverage {
			p.errorf("%q: operation %s, want AVERAGE", word, got.Operation)
		}
	}
	if got := domain.Extract("asdkjasdj"); got.Operation != domain.OperationExplain || got.Variable != domain.VariableUnknown {
		p.errorf("gibberish: got %s/%s, want UNKNOWN/EXPLAIN", got.Variable, got.Operation)
	}
	return p
}

// ── Phase 3: in-range depths return samples ──

func validateDepthCoverage(store *domain.Store) *phase {
	p := &phase{name: "In-range depth queries return samples"}
	for _, prof := range store.Profiles() {
		if !prof.Active {
			continue
		}
		for _, s := range []domain.Sample{prof.Samples[0], prof.Samples[len(prof.Samples)/2], prof.Samples[len(prof.Samples)-1]} {
			q := fmt.Sprintf("average temperature at %sm", trim(s.Depth))
			res, err := domain.Aggregate(domain.Extract(q), store)
			if err != nil {
				p.errorf("%q: %v", q, err)
				continue
			}
			if res.NSamples < 1 {
				p.errorf("%q: n_samples %d", q, res.NSamples)
			}
		}
	}
	return p
}

// ── Phase 4: MAX/MIN match a brute-force reduction ──

func validateExtremes(store *domain.Store) *phase {
	p := &phase{name: "MAX/MIN match reference reduction"}
	for _, v := range domain.MeasuredVariables {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, prof := range store.Profiles() {
			if !prof.Active {
				continue
			}
			for _, s := range prof.Samples {
				if x, ok := s.Value(v); ok {
					lo, hi = math.Min(lo, x), math.Max(hi, x)
				}
			}
		}
		if math.IsInf(hi, -1) {
			continue
		}
		name := strings.ToLower(string(v))
		checkScalar(p, store, "maximum "+name, hi)
		checkScalar(p, store, "minimum "+name, lo)
	}
	return p
}

func checkScalar(p *phase, store *domain.Store, q string, want float64) {
	res, err := domain.Aggregate(domain.Extract(q), store)
	if err != nil {
		p.errorf("%q: %v", q, err)
		return
	}
	if !floatEq(res.Value, want) {
		p.errorf("%q: got %.4f, want %.4f", q, res.Value, want)
	}
}

// ── Phase 5: COMPARE stays within tolerance ──

func validateCompare(store *domain.Store) *phase {
	p := &phase{name: "COMPARE pairs within tolerance"}
	var ids []string
	for _, prof := range store.Profiles() {
		if prof.Active {
			ids = append(ids, prof.ID)
		}
		if len(ids) == 4 {
			break
		}
	}
	for i := 0; i+1 < len(ids); i++ {
		q := fmt.Sprintf("compare temperature between %s and %s", ids[i], ids[i+1])
		intent := domain.Extract(q)
		res, err := domain.Aggregate(intent, store)
		var nd *domain.NoMatchingDataError
		if errors.As(err, &nd) {
			continue
		}
		if err != nil {
			p.errorf("%q: %v", q, err)
			continue
		}
		if len(res.Series) != 2 || len(res.Series[0].Points) != len(res.Series[1].Points) {
			p.errorf("%q: series not aligned", q)
			continue
		}
		for k := range res.Series[0].Points {
			a, b := res.Series[0].Points[k].X, res.Series[1].Points[k].X
			if math.Abs(a-b) > intent.DepthTolerance {
				p.errorf("%q: paired depths %.1f and %.1f exceed ±%.0f", q, a, b, intent.DepthTolerance)
			}
		}
	}
	return p
}

// ── Phase 6: scenarios and determinism ──

func validateScenarios(store *domain.Store) *phase {
	p := &phase{name: "Scenarios and determinism"}
	for _, q := range []string{
		"What's the average temperature at 1000 meters depth?",
		"Show me a salinity profile",
		"asdkjasdj",
		"9999m",
	} {
		first, err := render(store, q)
		if err != nil {
			p.errorf("%q: %v", q, err)
			continue
		}
		again, _ := render(store, q)
		if first != again {
			p.errorf("%q: output differs between runs", q)
		}
	}

	if c, _ := compose(store, "Show me a salinity profile"); c.Visualization.Kind != domain.VisualizationChart {
		p.errorf("salinity profile: visualization %s, want chart", c.Visualization.Kind)
	}
	if c, _ := compose(store, "asdkjasdj"); c.Visualization.Kind != domain.VisualizationNone {
		p.errorf("gibberish: visualization %s, want none", c.Visualization.Kind)
	}
	if _, err := domain.Aggregate(domain.Extract("9999m"), store); !errors.Is(err, domain.ErrNoMatchingData) {
		p.errorf("9999m: got %v, want no matching data", err)
	}
	return p
}

func compose(store *domain.Store, q string) (domain.Composition, error) {
	intent := domain.Extract(q)
	res, err := domain.Aggregate(intent, store)
	var nd *domain.NoMatchingDataError
	if errors.As(err, &nd) {
		return domain.ComposeNoData(nd), nil
	}
	if err != nil {
		return domain.Composition{}, err
	}
	return domain.Compose(intent, res), nil
}

func render(store *domain.Store, q string) (string, error) {
	c, err := compose(store, q)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(c)
	return string(b), err
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func trim(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", f), "0"), ".")
}
