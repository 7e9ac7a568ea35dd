package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ApologyText is returned whenever an answer cannot be rendered safely.
const ApologyText = "Sorry, something went wrong while preparing that answer. Please try rephrasing your question."

// Composition is the user-facing answer: a sentence and an optional visualization.
type Composition struct {
	Text          string            `json:"text"`
	Visualization VisualizationSpec `json:"visualization"`
}

// Apology is the composition used for internal faults.
func Apology() Composition {
	return Composition{Text: ApologyText, Visualization: NoVisualization()}
}

// Compose renders result as text plus visualization. It never fails: panics,
// non-finite values and empty series all degrade to Apology.
func Compose(intent Intent, result AggregationResult) (c Composition) {
	defer func() {
		if r := recover(); r != nil {
			c = Apology()
		}
	}()

	switch result.Operation {
	case OperationExplain:
		return Composition{Text: Explain(intent.Variable), Visualization: NoVisualization()}
	case OperationAverage, OperationMax, OperationMin:
		if !finite(result.Value) || result.NSamples == 0 {
			return Apology()
		}
		return composeScalar(intent, result)
	case OperationProfile:
		if !seriesValid(result.Series, 1) {
			return Apology()
		}
		return composeProfile(intent, result)
	case OperationCompare:
		if !seriesValid(result.Series, 2) {
			return Apology()
		}
		return composeCompare(intent, result)
	default:
		return Apology()
	}
}

// ComposeNoData renders the polite sentence for an empty aggregation.
func ComposeNoData(err *NoMatchingDataError) Composition {
	if err == nil {
		return Apology()
	}
	var text string
	label := err.Variable.Label()
	switch err.Reason {
	case ReasonUnknownProfile:
		text = fmt.Sprintf("I couldn't find a float with id %s in the current dataset.", err.ProfileID)
	case ReasonNoProfiles:
		if err.Region != "" {
			text = fmt.Sprintf("I couldn't find any active floats in the %s.", err.Region)
		} else {
			text = "There are no active floats in the current dataset."
		}
	case ReasonNoVariable:
		text = "I couldn't tell which measurement you are asking about. Try temperature, salinity, pressure or oxygen."
	case ReasonNeedTwo:
		text = fmt.Sprintf("A comparison needs two floats with %s data, but I could only find one.", label)
	default:
		if err.DepthTarget != nil {
			text = fmt.Sprintf("I couldn't find any %s measurements within ±%s m of %s m%s. "+
				"The available data covers depths from %s m to %s m.",
				label, trimFloat(err.Tolerance), trimFloat(*err.DepthTarget), regionPhrase(err.Region),
				trimFloat(err.MinDepth), trimFloat(err.MaxDepth))
		} else {
			text = fmt.Sprintf("None of the selected floats%s carry %s measurements.", regionPhrase(err.Region), label)
		}
	}
	return Composition{Text: text, Visualization: NoVisualization()}
}

func composeScalar(intent Intent, r AggregationResult) Composition {
	var b strings.Builder
	fmt.Fprintf(&b, "The %s %s%s%s is %.2f %s",
		r.Operation.Label(), r.Variable.Label(), regionPhrase(r.Region), depthPhrase(r), r.Value, r.Unit)
	if r.ExtremeAt != nil {
		fmt.Fprintf(&b, ", recorded by float %s at %.1f m", r.ExtremeAt.ProfileID, r.ExtremeAt.Depth)
	}
	fmt.Fprintf(&b, ", based on %s from %s.",
		plural(r.NSamples, "sample", "samples"), plural(r.NProfiles, "float", "floats"))

	c := Composition{Text: b.String(), Visualization: NoVisualization()}
	title := capitalize(r.Operation.Label()) + " " + r.Variable.Label()
	switch {
	case intent.WantsTable:
		c.Visualization = VisualizationSpec{Kind: VisualizationTable, Table: &Table{
			Columns: []string{"Statistic", "Variable", "Value", "Unit", "Samples", "Floats"},
			Rows: [][]string{{
				r.Operation.Label(), r.Variable.Label(), fmt.Sprintf("%.2f", r.Value), r.Unit,
				strconv.Itoa(r.NSamples), strconv.Itoa(r.NProfiles),
			}},
		}}
	case intent.WantsChart:
		x := 0.0
		if r.DepthTarget != nil {
			x = *r.DepthTarget
		}
		c.Visualization = VisualizationSpec{Kind: VisualizationChart, Chart: &Chart{
			Type:  "bar",
			Title: title,
			XAxis: Axis{Label: "Depth (m)"},
			YAxis: Axis{Label: r.Variable.AxisLabel()},
			Series: []Series{{
				Name:     title,
				Variable: r.Variable,
				Unit:     r.Unit,
				Points:   []Point{{X: x, Y: r.Value}},
			}},
		}}
	}
	return c
}

func composeProfile(intent Intent, r AggregationResult) Composition {
	s := r.Series[0]
	lo, hi := valueRange(s.Points)
	text := fmt.Sprintf("Float %s %s profile from %.1f m to %.1f m: values range from %.2f to %.2f %s "+
		"(spread %.2f %s) over %s.",
		s.ProfileID, r.Variable.Label(), s.Points[0].X, s.Points[len(s.Points)-1].X,
		lo, hi, s.Unit, hi-lo, s.Unit, plural(len(s.Points), "sample", "samples"))

	c := Composition{Text: text}
	if intent.WantsTable {
		c.Visualization = seriesTable(r.Series)
		return c
	}
	c.Visualization = VisualizationSpec{Kind: VisualizationChart, Chart: &Chart{
		Type:   "line",
		Title:  fmt.Sprintf("%s profile, float %s", capitalize(r.Variable.Label()), s.ProfileID),
		XAxis:  Axis{Label: "Depth (m)", Reversed: true},
		YAxis:  Axis{Label: r.Variable.AxisLabel()},
		Series: r.Series,
	}}
	return c
}

func composeCompare(intent Intent, r AggregationResult) Composition {
	a, b := r.Series[0], r.Series[1]
	aLo, aHi := valueRange(a.Points)
	bLo, bHi := valueRange(b.Points)
	n := plural(len(a.Points), "matched depth", "matched depths")

	var text, title, yLabel string
	if a.Variable != b.Variable {
		text = fmt.Sprintf("Comparing %s and %s on float %s across %s: %s ranges from %.2f to %.2f %s, "+
			"while %s ranges from %.2f to %.2f %s.",
			a.Variable.Label(), b.Variable.Label(), a.ProfileID, n,
			a.Variable.Label(), aLo, aHi, a.Unit, b.Variable.Label(), bLo, bHi, b.Unit)
		title = fmt.Sprintf("%s and %s, float %s", capitalize(a.Variable.Label()), b.Variable.Label(), a.ProfileID)
		yLabel = a.Variable.AxisLabel() + " / " + b.Variable.AxisLabel()
	} else {
		var diff float64
		for i := range a.Points {
			diff += a.Points[i].Y - b.Points[i].Y
		}
		diff /= float64(len(a.Points))
		text = fmt.Sprintf("Comparing %s between floats %s and %s across %s: float %s ranges from %.2f to %.2f %s "+
			"and float %s from %.2f to %.2f %s, a mean difference of %.2f %s.",
			r.Variable.Label(), a.ProfileID, b.ProfileID, n,
			a.ProfileID, aLo, aHi, a.Unit, b.ProfileID, bLo, bHi, b.Unit, diff, a.Unit)
		title = fmt.Sprintf("%s, float %s vs float %s", capitalize(r.Variable.Label()), a.ProfileID, b.ProfileID)
		yLabel = r.Variable.AxisLabel()
	}

	c := Composition{Text: text}
	if intent.WantsTable {
		c.Visualization = seriesTable(r.Series)
		return c
	}
	c.Visualization = VisualizationSpec{Kind: VisualizationChart, Chart: &Chart{
		Type:   "line",
		Title:  title,
		XAxis:  Axis{Label: "Depth (m)", Reversed: true},
		YAxis:  Axis{Label: yLabel},
		Series: r.Series,
	}}
	return c
}

// seriesTable lays series out side by side, keyed by the first series' depths.
func seriesTable(series []Series) VisualizationSpec {
	cols := []string{"Depth (m)"}
	for _, s := range series {
		name := s.Name
		if s.Unit != "" && !strings.Contains(name, "(") {
			name += " (" + s.Unit + ")"
		}
		cols = append(cols, name)
	}
	rows := make([][]string, 0, len(series[0].Points))
	for i, p := range series[0].Points {
		row := []string{fmt.Sprintf("%.1f", p.X)}
		for _, s := range series {
			row = append(row, fmt.Sprintf("%.2f", s.Points[i].Y))
		}
		rows = append(rows, row)
	}
	return VisualizationSpec{Kind: VisualizationTable, Table: &Table{Columns: cols, Rows: rows}}
}

func seriesValid(series []Series, want int) bool {
	if len(series) != want {
		return false
	}
	n := len(series[0].Points)
	for _, s := range series {
		if len(s.Points) == 0 || len(s.Points) != n {
			return false
		}
		for _, p := range s.Points {
			if !finite(p.X) || !finite(p.Y) {
				return false
			}
		}
	}
	return true
}

// KeyValues returns the numbers a composed answer states, formatted as they
// appear in its text: the scalar value, or each series' low and high.
func (r AggregationResult) KeyValues() []string {
	if r.Operation.Scalar() {
		if r.NSamples == 0 {
			return nil
		}
		return []string{fmt.Sprintf("%.2f", r.Value)}
	}
	var out []string
	for _, s := range r.Series {
		if len(s.Points) == 0 {
			continue
		}
		lo, hi := valueRange(s.Points)
		out = append(out, fmt.Sprintf("%.2f", lo), fmt.Sprintf("%.2f", hi))
	}
	return out
}

func valueRange(points []Point) (float64, float64) {
	lo, hi := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		lo = min(lo, p.Y)
		hi = max(hi, p.Y)
	}
	return lo, hi
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func depthPhrase(r AggregationResult) string {
	if r.DepthTarget == nil {
		return " across all depths"
	}
	if *r.DepthTarget == 0 {
		return fmt.Sprintf(" at the surface (0 to %s m)", trimFloat(r.DepthTolerance))
	}
	return fmt.Sprintf(" at %s m (±%s m)", trimFloat(*r.DepthTarget), trimFloat(r.DepthTolerance))
}

func regionPhrase(region string) string {
	if region == "" {
		return ""
	}
	return " in the " + region
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// plural formats n with thousands separators and the matching noun.
func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return groupThousands(n) + " " + many
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 || len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
