package domain

// VisualizationKind tags which payload a VisualizationSpec carries.
type VisualizationKind string

const (
	VisualizationNone  VisualizationKind = "none"
	VisualizationChart VisualizationKind = "chart"
	VisualizationTable VisualizationKind = "table"
)

// Axis describes one chart axis. Depth axes are reversed so the surface is on top.
type Axis struct {
	Label    string `json:"label"`
	Reversed bool   `json:"reversed,omitempty"`
}

// Chart is a render-ready chart description.
type Chart struct {
	Type   string   `json:"type"`
	Title  string   `json:"title"`
	XAxis  Axis     `json:"x_axis"`
	YAxis  Axis     `json:"y_axis"`
	Series []Series `json:"series"`
}

// Table is a render-ready table with pre-formatted cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// VisualizationSpec is a tagged variant: exactly one of Chart or Table is set
// for the matching Kind, neither for VisualizationNone.
type VisualizationSpec struct {
	Kind  VisualizationKind `json:"kind"`
	Chart *Chart            `json:"chart,omitempty"`
	Table *Table            `json:"table,omitempty"`
}

// NoVisualization is the empty spec.
func NoVisualization() VisualizationSpec {
	return VisualizationSpec{Kind: VisualizationNone}
}

// IsNone reports whether there is nothing to render.
func (v VisualizationSpec) IsNone() bool {
	return v.Kind == "" || v.Kind == VisualizationNone
}
