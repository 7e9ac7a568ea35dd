package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatchingData is the sentinel wrapped by every NoMatchingDataError.
var ErrNoMatchingData = errors.New("no matching data")

// ErrStoreUnavailable is returned when the aggregator has no store to read.
var ErrStoreUnavailable = errors.New("profile store unavailable")

// NoDataReason classifies why an aggregation came back empty.
type NoDataReason string

const (
	ReasonNoSamples      NoDataReason = "no_samples"
	ReasonUnknownProfile NoDataReason = "unknown_profile"
	ReasonNoProfiles     NoDataReason = "no_profiles"
	ReasonNoVariable     NoDataReason = "no_variable"
	ReasonNeedTwo        NoDataReason = "need_two_series"
)

// NoMatchingDataError describes an empty aggregation with enough context for
// a helpful user-facing hint.
type NoMatchingDataError struct {
	Reason      NoDataReason
	Variable    Variable
	Operation   Operation
	DepthTarget *float64
	Tolerance   float64
	Region      string
	ProfileID   string
	MinDepth    float64
	MaxDepth    float64
}

func (e *NoMatchingDataError) Error() string {
	var b strings.Builder
	b.WriteString("no matching data")
	fmt.Fprintf(&b, ": reason=%s variable=%s operation=%s", e.Reason, e.Variable, e.Operation)
	if e.DepthTarget != nil {
		fmt.Fprintf(&b, " depth=%.1f±%.1f", *e.DepthTarget, e.Tolerance)
	}
	if e.Region != "" {
		fmt.Fprintf(&b, " region=%q", e.Region)
	}
	if e.ProfileID != "" {
		fmt.Fprintf(&b, " profile=%s", e.ProfileID)
	}
	return b.String()
}

func (e *NoMatchingDataError) Unwrap() error { return ErrNoMatchingData }
