package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidProfile is returned by NewStore when a profile breaks the
// ordering or identity rules of the store.
var ErrInvalidProfile = errors.New("invalid profile")

// Store is the read-only Profile Store. Profiles are sorted by id and their
// samples strictly ascending by depth. A Store is safe for concurrent reads.
type Store struct {
	profiles []Profile
	index    map[string]int
	minDepth float64
	maxDepth float64
	active   int
}

// NewStore copies profiles into a new Store, sorting them by id.
// It rejects empty ids, duplicate ids, profiles without samples, and sample
// depths that are not strictly ascending.
func NewStore(profiles []Profile) (*Store, error) {
	s := &Store{
		profiles: make([]Profile, 0, len(profiles)),
		index:    make(map[string]int, len(profiles)),
	}
	for i := range profiles {
		p := profiles[i]
		if p.ID == "" {
			return nil, fmt.Errorf("profile %d: empty id: %w", i, ErrInvalidProfile)
		}
		if len(p.Samples) == 0 {
			return nil, fmt.Errorf("profile %s: no samples: %w", p.ID, ErrInvalidProfile)
		}
		samples := make([]Sample, len(p.Samples))
		for j, sm := range p.Samples {
			if j > 0 && sm.Depth <= p.Samples[j-1].Depth {
				return nil, fmt.Errorf("profile %s: sample %d depth %.2f not above %.2f: %w",
					p.ID, j, sm.Depth, p.Samples[j-1].Depth, ErrInvalidProfile)
			}
			if sm.Oxygen != nil {
				o := *sm.Oxygen
				sm.Oxygen = &o
			}
			samples[j] = sm
		}
		p.Samples = samples
		s.profiles = append(s.profiles, p)
	}

	sort.SliceStable(s.profiles, func(i, j int) bool { return s.profiles[i].ID < s.profiles[j].ID })

	for i, p := range s.profiles {
		if _, dup := s.index[p.ID]; dup {
			return nil, fmt.Errorf("profile %s: duplicate id: %w", p.ID, ErrInvalidProfile)
		}
		s.index[p.ID] = i
		lo, hi := p.DepthRange()
		if i == 0 || lo < s.minDepth {
			s.minDepth = lo
		}
		if i == 0 || hi > s.maxDepth {
			s.maxDepth = hi
		}
		if p.Active {
			s.active++
		}
	}
	return s, nil
}

// Profiles returns all profiles in id order. Callers must not modify the result.
func (s *Store) Profiles() []Profile {
	return s.profiles
}

// Lookup returns the profile with the given id.
func (s *Store) Lookup(id string) (Profile, bool) {
	i, ok := s.index[id]
	if !ok {
		return Profile{}, false
	}
	return s.profiles[i], true
}

// Len returns the number of profiles in the store.
func (s *Store) Len() int { return len(s.profiles) }

// ActiveCount returns the number of active profiles.
func (s *Store) ActiveCount() int { return s.active }

// DepthRange returns the shallowest and deepest sample depth across all profiles.
func (s *Store) DepthRange() (float64, float64) {
	return s.minDepth, s.maxDepth
}

// ProfileSummary is the listing view of a profile used by map widgets.
type ProfileSummary struct {
	ID          string     `json:"id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Active      bool       `json:"active"`
	Date        string     `json:"date"`
	SampleCount int        `json:"sample_count"`
	MinDepth    float64    `json:"min_depth"`
	MaxDepth    float64    `json:"max_depth"`
	Variables   []Variable `json:"variables"`
}

// Summaries returns one summary per profile in id order. When activeOnly is
// set, inactive floats are left out.
func (s *Store) Summaries(activeOnly bool) []ProfileSummary {
	out := make([]ProfileSummary, 0, len(s.profiles))
	for _, p := range s.profiles {
		if activeOnly && !p.Active {
			continue
		}
		lo, hi := p.DepthRange()
		var vars []Variable
		for _, v := range MeasuredVariables {
			if p.Has(v) {
				vars = append(vars, v)
			}
		}
		out = append(out, ProfileSummary{
			ID:          p.ID,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Active:      p.Active,
			Date:        p.Date.UTC().Format("2006-01-02"),
			SampleCount: len(p.Samples),
			MinDepth:    lo,
			MaxDepth:    hi,
			Variables:   vars,
		})
	}
	return out
}
