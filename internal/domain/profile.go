package domain

import (
	"strings"
	"time"
)

// Variable identifies a measured quantity a query can ask about.
type Variable string

const (
	VariableTemperature Variable = "TEMPERATURE"
	VariableSalinity    Variable = "SALINITY"
	VariablePressure    Variable = "PRESSURE"
	VariableOxygen      Variable = "OXYGEN"
	VariableUnknown     Variable = "UNKNOWN"
)

// MeasuredVariables lists the variables a sample can carry, in display order.
var MeasuredVariables = []Variable{
	VariableTemperature,
	VariableSalinity,
	VariablePressure,
	VariableOxygen,
}

// Unit returns the display unit for the variable.
func (v Variable) Unit() string {
	switch v {
	case VariableTemperature:
		return "°C"
	case VariableSalinity:
		return "PSU"
	case VariablePressure:
		return "dbar"
	case VariableOxygen:
		return "μmol/kg"
	default:
		return ""
	}
}

// Label returns the lower-case name used in sentences, e.g. "temperature".
func (v Variable) Label() string {
	if v == VariableUnknown || v == "" {
		return "data"
	}
	return strings.ToLower(string(v))
}

// AxisLabel returns a chart axis label such as "Temperature (°C)".
func (v Variable) AxisLabel() string {
	label := v.Label()
	if label == "" {
		return ""
	}
	title := strings.ToUpper(label[:1]) + label[1:]
	if u := v.Unit(); u != "" {
		return title + " (" + u + ")"
	}
	return title
}

// Description returns the long name of the variable.
func (v Variable) Description() string {
	switch v {
	case VariableTemperature:
		return "Sea water temperature"
	case VariableSalinity:
		return "Practical salinity"
	case VariablePressure:
		return "Sea water pressure"
	case VariableOxygen:
		return "Dissolved oxygen"
	default:
		return "Unknown variable"
	}
}

// Sample is a single depth-indexed measurement within a profile.
type Sample struct {
	Depth       float64  `json:"depth" yaml:"depth" validate:"gte=0,lte=11000"`
	Temperature float64  `json:"temperature" yaml:"temperature" validate:"gte=-3,lte=40"`
	Salinity    float64  `json:"salinity" yaml:"salinity" validate:"gte=0,lte=45"`
	Pressure    float64  `json:"pressure" yaml:"pressure" validate:"gte=0,lte=12000"`
	Oxygen      *float64 `json:"oxygen,omitempty" yaml:"oxygen,omitempty" validate:"omitempty,gte=0,lte=600"`
}

// Value returns the sample's reading for v. The second result is false when
// the sample does not carry that variable.
func (s Sample) Value(v Variable) (float64, bool) {
	switch v {
	case VariableTemperature:
		return s.Temperature, true
	case VariableSalinity:
		return s.Salinity, true
	case VariablePressure:
		return s.Pressure, true
	case VariableOxygen:
		if s.Oxygen == nil {
			return 0, false
		}
		return *s.Oxygen, true
	default:
		return 0, false
	}
}

// Profile is one float's depth-ordered set of measurements.
type Profile struct {
	ID        string    `json:"id" yaml:"id" validate:"required"`
	Latitude  float64   `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
	Active    bool      `json:"active" yaml:"active"`
	Date      time.Time `json:"date" yaml:"date"`
	Samples   []Sample  `json:"samples" yaml:"samples" validate:"required,min=1,dive"`
}

// Series extracts the (depth, value) pairs for v in ascending depth order.
// Samples that do not carry v are skipped.
func (p Profile) Series(v Variable) []Point {
	points := make([]Point, 0, len(p.Samples))
	for _, s := range p.Samples {
		val, ok := s.Value(v)
		if !ok {
			continue
		}
		points = append(points, Point{X: s.Depth, Y: val})
	}
	return points
}

// Has reports whether at least one sample carries v.
func (p Profile) Has(v Variable) bool {
	for _, s := range p.Samples {
		if _, ok := s.Value(v); ok {
			return true
		}
	}
	return false
}

// DepthRange returns the shallowest and deepest sample depths.
func (p Profile) DepthRange() (float64, float64) {
	if len(p.Samples) == 0 {
		return 0, 0
	}
	return p.Samples[0].Depth, p.Samples[len(p.Samples)-1].Depth
}
