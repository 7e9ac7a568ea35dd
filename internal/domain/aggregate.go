package domain

import (
	"fmt"
	"math"
)

// Point is one (depth, value) pair. X is depth in metres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named list of points, ascending by depth.
type Series struct {
	Name      string   `json:"name"`
	ProfileID string   `json:"profile_id,omitempty"`
	Variable  Variable `json:"variable"`
	Unit      string   `json:"unit"`
	Points    []Point  `json:"points"`
}

// SampleRef locates a single sample in the store.
type SampleRef struct {
	ProfileID string  `json:"profile_id"`
	Depth     float64 `json:"depth"`
}

// AggregationResult is the computed answer to an intent. Scalar operations
// fill Value; PROFILE and COMPARE fill Series.
type AggregationResult struct {
	Operation      Operation  `json:"operation"`
	Variable       Variable   `json:"variable"`
	Unit           string     `json:"unit"`
	Value          float64    `json:"value"`
	Series         []Series   `json:"series,omitempty"`
	NProfiles      int        `json:"n_profiles"`
	NSamples       int        `json:"n_samples"`
	ExtremeAt      *SampleRef `json:"extreme_at,omitempty"`
	ProfileIDs     []string   `json:"profile_ids,omitempty"`
	DepthTarget    *float64   `json:"depth_target,omitempty"`
	DepthTolerance float64    `json:"depth_tolerance,omitempty"`
	Region         string     `json:"region,omitempty"`
}

// Aggregate evaluates intent against store. It never returns a result with
// zero samples for a computing operation; that case is a *NoMatchingDataError.
func Aggregate(intent Intent, store *Store) (AggregationResult, error) {
	if store == nil {
		return AggregationResult{}, ErrStoreUnavailable
	}

	res := AggregationResult{
		Operation: intent.Operation,
		Variable:  intent.Variable,
		Unit:      intent.Variable.Unit(),
	}
	if intent.Region != nil {
		res.Region = intent.Region.Name
	}
	// Any depth outside every active profile is a no-data answer, whatever the
	// operation, including a bare "9999m".
	if intent.HasDepth() && !depthCovered(intent, store) {
		return res, noData(intent, store, ReasonNoSamples)
	}
	if intent.Operation == OperationExplain {
		return res, nil
	}
	if intent.Variable == VariableUnknown || intent.Variable == "" {
		return res, noData(intent, store, ReasonNoVariable)
	}

	candidates, err := selectProfiles(intent, store)
	if err != nil {
		return res, err
	}

	switch intent.Operation {
	case OperationAverage, OperationMax, OperationMin:
		return reduce(intent, store, candidates, res)
	case OperationProfile:
		return profileSeries(intent, store, candidates, res)
	case OperationCompare:
		return compare(intent, store, candidates, res)
	default:
		return res, fmt.Errorf("aggregate: unsupported operation %q", intent.Operation)
	}
}

func noData(intent Intent, store *Store, reason NoDataReason) *NoMatchingDataError {
	e := &NoMatchingDataError{
		Reason:      reason,
		Variable:    intent.Variable,
		Operation:   intent.Operation,
		DepthTarget: intent.DepthTarget,
		Tolerance:   intent.DepthTolerance,
	}
	if intent.Region != nil {
		e.Region = intent.Region.Name
	}
	if store != nil {
		e.MinDepth, e.MaxDepth = store.DepthRange()
	}
	return e
}

// depthCovered reports whether any active profile has a sample inside the
// intent's depth window.
func depthCovered(intent Intent, store *Store) bool {
	lo, hi := intent.DepthWindow()
	for _, p := range store.Profiles() {
		if !p.Active {
			continue
		}
		for _, s := range p.Samples {
			if s.Depth >= lo && s.Depth <= hi {
				return true
			}
		}
	}
	return false
}

// selectProfiles returns explicit profiles when ids are given, otherwise the
// active profiles inside the intent's region, in store order.
func selectProfiles(intent Intent, store *Store) ([]Profile, error) {
	if len(intent.ProfileIDs) > 0 {
		out := make([]Profile, 0, len(intent.ProfileIDs))
		for _, id := range intent.ProfileIDs {
			p, ok := store.Lookup(id)
			if !ok {
				e := noData(intent, store, ReasonUnknownProfile)
				e.ProfileID = id
				return nil, e
			}
			out = append(out, p)
		}
		return out, nil
	}

	var out []Profile
	for _, p := range store.Profiles() {
		if !p.Active {
			continue
		}
		if intent.Region != nil && !intent.Region.Bounds.Contains(p.Latitude, p.Longitude) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, noData(intent, store, ReasonNoProfiles)
	}
	return out, nil
}

func reduce(intent Intent, store *Store, candidates []Profile, res AggregationResult) (AggregationResult, error) {
	lo, hi := intent.DepthWindow()
	var (
		sum      float64
		n        int
		best     float64
		bestRef  SampleRef
		profiles []string
	)
	for _, p := range candidates {
		contributed := false
		for _, s := range p.Samples {
			if intent.HasDepth() {
				if s.Depth < lo {
					continue
				}
				if s.Depth > hi {
					break
				}
			}
			v, ok := s.Value(intent.Variable)
			if !ok {
				continue
			}
			n++
			contributed = true
			switch intent.Operation {
			case OperationAverage:
				sum += v
			case OperationMax:
				if n == 1 || v > best {
					best, bestRef = v, SampleRef{ProfileID: p.ID, Depth: s.Depth}
				}
			case OperationMin:
				if n == 1 || v < best {
					best, bestRef = v, SampleRef{ProfileID: p.ID, Depth: s.Depth}
				}
			}
		}
		if contributed {
			profiles = append(profiles, p.ID)
		}
	}
	if n == 0 {
		return res, noData(intent, store, ReasonNoSamples)
	}

	res.NSamples = n
	res.NProfiles = len(profiles)
	res.ProfileIDs = profiles
	res.DepthTarget = intent.DepthTarget
	if intent.HasDepth() {
		res.DepthTolerance = intent.DepthTolerance
	}
	if intent.Operation == OperationAverage {
		res.Value = sum / float64(n)
	} else {
		res.Value = best
		ref := bestRef
		res.ExtremeAt = &ref
	}
	return res, nil
}

// firstWith returns the first profile carrying v.
func firstWith(candidates []Profile, v Variable) (Profile, bool) {
	for _, p := range candidates {
		if p.Has(v) {
			return p, true
		}
	}
	return Profile{}, false
}

func profileSeries(intent Intent, store *Store, candidates []Profile, res AggregationResult) (AggregationResult, error) {
	p, ok := firstWith(candidates, intent.Variable)
	if len(intent.ProfileIDs) > 0 {
		p, ok = candidates[0], candidates[0].Has(intent.Variable)
	}
	if !ok {
		return res, noData(intent, store, ReasonNoSamples)
	}
	points := p.Series(intent.Variable)
	res.Series = []Series{{
		Name:      fmt.Sprintf("Float %s", p.ID),
		ProfileID: p.ID,
		Variable:  intent.Variable,
		Unit:      intent.Variable.Unit(),
		Points:    points,
	}}
	res.NProfiles = 1
	res.NSamples = len(points)
	res.ProfileIDs = []string{p.ID}
	return res, nil
}

func compare(intent Intent, store *Store, candidates []Profile, res AggregationResult) (AggregationResult, error) {
	var a, b Series
	if len(intent.Variables) >= 2 {
		v1, v2 := intent.Variables[0], intent.Variables[1]
		p := candidates[0]
		if len(intent.ProfileIDs) == 0 {
			found := false
			for _, c := range candidates {
				if c.Has(v1) && c.Has(v2) {
					p, found = c, true
					break
				}
			}
			if !found {
				return res, noData(intent, store, ReasonNoSamples)
			}
		}
		a = Series{Name: v1.AxisLabel(), ProfileID: p.ID, Variable: v1, Unit: v1.Unit(), Points: p.Series(v1)}
		b = Series{Name: v2.AxisLabel(), ProfileID: p.ID, Variable: v2, Unit: v2.Unit(), Points: p.Series(v2)}
		res.ProfileIDs = []string{p.ID}
		res.NProfiles = 1
	} else {
		if len(intent.ProfileIDs) == 1 {
			// One named float is compared against the first other candidate.
			open := intent
			open.ProfileIDs = nil
			if more, err := selectProfiles(open, store); err == nil {
				candidates = append(candidates, more...)
			}
		}
		pair := pickPair(intent, candidates)
		if len(pair) < 2 {
			return res, noData(intent, store, ReasonNeedTwo)
		}
		v := intent.Variable
		a = Series{Name: "Float " + pair[0].ID, ProfileID: pair[0].ID, Variable: v, Unit: v.Unit(), Points: pair[0].Series(v)}
		b = Series{Name: "Float " + pair[1].ID, ProfileID: pair[1].ID, Variable: v, Unit: v.Unit(), Points: pair[1].Series(v)}
		res.ProfileIDs = []string{pair[0].ID, pair[1].ID}
		res.NProfiles = 2
	}

	a.Points, b.Points = alignByDepth(a.Points, b.Points, intent.DepthTolerance)
	if len(a.Points) == 0 {
		return res, noData(intent, store, ReasonNoSamples)
	}
	res.Series = []Series{a, b}
	res.NSamples = len(a.Points) + len(b.Points)
	res.DepthTolerance = intent.DepthTolerance
	return res, nil
}

// pickPair chooses the two profiles to compare: explicit ids first, then
// candidates carrying the variable, skipping duplicates.
func pickPair(intent Intent, candidates []Profile) []Profile {
	var pair []Profile
	seen := make(map[string]bool)
	for _, p := range candidates {
		if len(pair) == 2 {
			break
		}
		if seen[p.ID] || !p.Has(intent.Variable) {
			continue
		}
		seen[p.ID] = true
		pair = append(pair, p)
	}
	return pair
}

// alignByDepth pairs points one-to-one by nearest depth, walking both series
// in ascending order. Pairs further apart than tol are dropped.
func alignByDepth(a, b []Point, tol float64) ([]Point, []Point) {
	outA := make([]Point, 0, min(len(a), len(b)))
	outB := make([]Point, 0, min(len(a), len(b)))
	j := 0
	for _, pa := range a {
		if j >= len(b) {
			break
		}
		for j+1 < len(b) && math.Abs(b[j+1].X-pa.X) < math.Abs(b[j].X-pa.X) {
			j++
		}
		if math.Abs(b[j].X-pa.X) <= tol {
			outA = append(outA, pa)
			outB = append(outB, b[j])
			j++
		}
	}
	return outA, outB
}
