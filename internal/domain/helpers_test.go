package domain

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(f float64) *float64 { return &f }

func samples(depths, temps, sals []float64, oxy []float64) []Sample {
	out := make([]Sample, len(depths))
	for i, d := range depths {
		out[i] = Sample{Depth: d, Temperature: temps[i], Salinity: sals[i], Pressure: d * 1.01}
		if oxy != nil {
			out[i].Oxygen = ptr(oxy[i])
		}
	}
	return out
}

// testProfiles is a small hand-computed dataset:
//
//	1000001 active, Arabian Sea, carries oxygen
//	1000002 active, Bay of Bengal
//	1000003 inactive, North Atlantic
//	1000004 active, North Atlantic
func testProfiles() []Profile {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []Profile{
		{
			ID: "1000004", Latitude: 45, Longitude: -30, Active: true, Date: date,
			Samples: samples(
				[]float64{0, 975, 1030},
				[]float64{15, 7, 6.5},
				[]float64{35.5, 35.1, 35.0}, nil),
		},
		{
			ID: "1000001", Latitude: 15, Longitude: 65, Active: true, Date: date,
			Samples: samples(
				[]float64{5, 500, 1000, 1500, 2000},
				[]float64{28, 10, 5, 3, 2},
				[]float64{36, 35.2, 34.9, 34.8, 34.7},
				[]float64{250, 100, 80, 120, 150}),
		},
		{
			ID: "1000003", Latitude: 40, Longitude: -40, Active: false, Date: date,
			Samples: samples(
				[]float64{10, 1000},
				[]float64{18, 6},
				[]float64{35.6, 35.0}, nil),
		},
		{
			ID: "1000002", Latitude: 12, Longitude: 88, Active: true, Date: date,
			Samples: samples(
				[]float64{0, 490, 1010, 1600, 1990},
				[]float64{29, 11, 4.5, 2.8, 2.1},
				[]float64{33, 35.0, 34.95, 34.85, 34.75}, nil),
		},
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(testProfiles())
	require.NoError(t, err)
	return s
}
