package domain

import "time"

// AnswerMetadata describes how a data payload was computed.
type AnswerMetadata struct {
	Variable       Variable   `json:"variable"`
	Operation      Operation  `json:"operation"`
	NProfiles      int        `json:"n_profiles"`
	NSamples       int        `json:"n_samples"`
	Units          string     `json:"units"`
	DepthTarget    *float64   `json:"depth_target,omitempty"`
	DepthTolerance *float64   `json:"depth_tolerance,omitempty"`
	ProfileIDs     []string   `json:"profile_ids,omitempty"`
	Region         string     `json:"region,omitempty"`
	ExtremeAt      *SampleRef `json:"extreme_at,omitempty"`
}

// AnswerData is the structured payload behind an answer. Data holds a number
// for scalar operations and a []Series for PROFILE and COMPARE.
type AnswerData struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data"`
	Metadata AnswerMetadata `json:"metadata"`
}

// Answer is the full response to one query.
type Answer struct {
	Response      string             `json:"response"`
	Data          *AnswerData        `json:"data"`
	Visualization *VisualizationSpec `json:"visualization"`
	SessionID     string             `json:"session_id"`
	QueryID       string             `json:"query_id"`
}

// NewAnswerData builds the success payload from a computed result.
// EXPLAIN results carry no data.
func NewAnswerData(r AggregationResult) *AnswerData {
	if r.Operation == OperationExplain {
		return nil
	}
	md := AnswerMetadata{
		Variable:    r.Variable,
		Operation:   r.Operation,
		NProfiles:   r.NProfiles,
		NSamples:    r.NSamples,
		Units:       r.Unit,
		DepthTarget: r.DepthTarget,
		ProfileIDs:  r.ProfileIDs,
		Region:      r.Region,
		ExtremeAt:   r.ExtremeAt,
	}
	if r.DepthTarget != nil || r.Operation == OperationCompare {
		tol := r.DepthTolerance
		md.DepthTolerance = &tol
	}
	var data any = r.Value
	if !r.Operation.Scalar() {
		data = r.Series
	}
	return &AnswerData{Success: true, Data: data, Metadata: md}
}

// NoDataAnswerData builds the failure payload for an empty aggregation.
func NoDataAnswerData(intent Intent) *AnswerData {
	md := AnswerMetadata{
		Variable:    intent.Variable,
		Operation:   intent.Operation,
		Units:       intent.Variable.Unit(),
		DepthTarget: intent.DepthTarget,
		ProfileIDs:  intent.ProfileIDs,
	}
	if intent.DepthTarget != nil {
		tol := intent.DepthTolerance
		md.DepthTolerance = &tol
	}
	if intent.Region != nil {
		md.Region = intent.Region.Name
	}
	return &AnswerData{Success: false, Data: nil, Metadata: md}
}

// HistoryRecord is one answered query kept in a session's history.
type HistoryRecord struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	UserID    string      `json:"user_id"`
	Query     string      `json:"query"`
	Response  string      `json:"response"`
	Variable  Variable    `json:"variable"`
	Operation Operation   `json:"operation"`
	Success   bool        `json:"success"`
	Data      *AnswerData `json:"data,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewHistoryRecord captures an answer for the session history, stamped with the package clock.
func NewHistoryRecord(userID, query string, intent Intent, a Answer) HistoryRecord {
	success := a.Data == nil || a.Data.Success
	if a.Response == ApologyText {
		success = false
	}
	return HistoryRecord{
		ID:        a.QueryID,
		SessionID: a.SessionID,
		UserID:    userID,
		Query:     query,
		Response:  a.Response,
		Variable:  intent.Variable,
		Operation: intent.Operation,
		Success:   success,
		Data:      a.Data,
		CreatedAt: now(),
	}
}
