package domain

// Operation is the statistical or presentational action a query asks for.
type Operation string

const (
	OperationAverage Operation = "AVERAGE"
	OperationMax     Operation = "MAX"
	OperationMin     Operation = "MIN"
	OperationProfile Operation = "PROFILE"
	OperationCompare Operation = "COMPARE"
	OperationExplain Operation = "EXPLAIN"
)

// Scalar reports whether the operation reduces to a single number.
func (o Operation) Scalar() bool {
	return o == OperationAverage || o == OperationMax || o == OperationMin
}

// Label returns the word used for the operation in sentences.
func (o Operation) Label() string {
	switch o {
	case OperationAverage:
		return "average"
	case OperationMax:
		return "maximum"
	case OperationMin:
		return "minimum"
	case OperationProfile:
		return "profile"
	case OperationCompare:
		return "comparison"
	default:
		return "explanation"
	}
}

// DefaultDepthTolerance is the half-width in metres of the depth band used
// when a query names a target depth.
const DefaultDepthTolerance = 25.0

// Intent is the structured interpretation of a free-text query.
type Intent struct {
	Variable       Variable   `json:"variable"`
	Variables      []Variable `json:"variables,omitempty"`
	Operation      Operation  `json:"operation"`
	DepthTarget    *float64   `json:"depth_target,omitempty"`
	DepthTolerance float64    `json:"depth_tolerance"`
	ProfileIDs     []string   `json:"profile_ids,omitempty"`
	Region         *Region    `json:"region,omitempty"`
	Place          string     `json:"place,omitempty"`
	WantsChart     bool       `json:"wants_chart,omitempty"`
	WantsTable     bool       `json:"wants_table,omitempty"`
	RawText        string     `json:"raw_text"`
}

// HasDepth reports whether a depth target applies.
func (i Intent) HasDepth() bool { return i.DepthTarget != nil }

// DepthWindow returns the inclusive [target-tol, target+tol] band.
func (i Intent) DepthWindow() (float64, float64) {
	if i.DepthTarget == nil {
		return 0, 0
	}
	return *i.DepthTarget - i.DepthTolerance, *i.DepthTarget + i.DepthTolerance
}
