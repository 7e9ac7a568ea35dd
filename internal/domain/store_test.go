package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Run("sorts by id", func(t *testing.T) {
		s := testStore(t)
		var ids []string
		for _, p := range s.Profiles() {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"1000001", "1000002", "1000003", "1000004"}, ids)
		assert.Equal(t, 4, s.Len())
		assert.Equal(t, 3, s.ActiveCount())
	})

	t.Run("depth range spans all profiles", func(t *testing.T) {
		lo, hi := testStore(t).DepthRange()
		assert.Equal(t, 0.0, lo)
		assert.Equal(t, 2000.0, hi)
	})

	t.Run("lookup", func(t *testing.T) {
		s := testStore(t)
		p, ok := s.Lookup("1000003")
		require.True(t, ok)
		assert.False(t, p.Active)

		_, ok = s.Lookup("999")
		assert.False(t, ok)
	})

	t.Run("rejects non-ascending depths", func(t *testing.T) {
		_, err := NewStore([]Profile{{ID: "1", Samples: []Sample{{Depth: 10}, {Depth: 10}}}})
		require.ErrorIs(t, err, ErrInvalidProfile)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		p := Profile{ID: "1", Samples: []Sample{{Depth: 1}}}
		_, err := NewStore([]Profile{p, p})
		require.ErrorIs(t, err, ErrInvalidProfile)
	})

	t.Run("rejects empty profiles", func(t *testing.T) {
		_, err := NewStore([]Profile{{ID: "1"}})
		require.ErrorIs(t, err, ErrInvalidProfile)

		_, err = NewStore([]Profile{{Samples: []Sample{{Depth: 1}}}})
		require.ErrorIs(t, err, ErrInvalidProfile)
	})

	t.Run("copies input", func(t *testing.T) {
		in := testProfiles()
		s, err := NewStore(in)
		require.NoError(t, err)

		in[1].Samples[0].Temperature = -99
		*in[1].Samples[0].Oxygen = -1

		p, _ := s.Lookup("1000001")
		assert.Equal(t, 28.0, p.Samples[0].Temperature)
		assert.Equal(t, 250.0, *p.Samples[0].Oxygen)
	})
}

func TestStoreSummaries(t *testing.T) {
	s := testStore(t)

	all := s.Summaries(false)
	require.Len(t, all, 4)
	assert.Equal(t, "1000001", all[0].ID)
	assert.Equal(t, 5, all[0].SampleCount)
	assert.Equal(t, 5.0, all[0].MinDepth)
	assert.Equal(t, 2000.0, all[0].MaxDepth)
	assert.Equal(t, "2024-03-01", all[0].Date)
	assert.Contains(t, all[0].Variables, VariableOxygen)
	assert.NotContains(t, all[1].Variables, VariableOxygen)

	active := s.Summaries(true)
	assert.Len(t, active, 3)
}

func TestSampleValue(t *testing.T) {
	s := Sample{Depth: 10, Temperature: 12, Salinity: 35, Pressure: 10.1}

	v, ok := s.Value(VariableTemperature)
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)

	_, ok = s.Value(VariableOxygen)
	assert.False(t, ok)

	_, ok = s.Value(VariableUnknown)
	assert.False(t, ok)

	s.Oxygen = ptr(210)
	v, ok = s.Value(VariableOxygen)
	assert.True(t, ok)
	assert.Equal(t, 210.0, v)
}

func TestVariableLabels(t *testing.T) {
	assert.Equal(t, "°C", VariableTemperature.Unit())
	assert.Equal(t, "PSU", VariableSalinity.Unit())
	assert.Equal(t, "dbar", VariablePressure.Unit())
	assert.Equal(t, "μmol/kg", VariableOxygen.Unit())
	assert.Equal(t, "Salinity (PSU)", VariableSalinity.AxisLabel())
	assert.Equal(t, "data", VariableUnknown.Label())
}

func TestBoundsContains(t *testing.T) {
	arabian, ok := LookupRegion("Arabian Sea")
	require.True(t, ok)
	assert.True(t, arabian.Bounds.Contains(15, 65))
	assert.False(t, arabian.Bounds.Contains(12, 88))

	pacific, ok := LookupRegion("pacific")
	require.True(t, ok)
	assert.True(t, pacific.Bounds.Contains(0, 170))
	assert.True(t, pacific.Bounds.Contains(0, -150))
	assert.False(t, pacific.Bounds.Contains(0, 0))

	b := BoundsAround(0, 178, 5)
	assert.True(t, b.Contains(0, -179))
	assert.True(t, b.Contains(-4, 175))
	assert.False(t, b.Contains(0, 170))
}
